package app

import (
	"database/sql"
	"time"

	"github.com/lgimportados/pricewatch/lib/models"
)

type MonitorView struct {
	ID                uint         `json:"id"`
	ProductID         *uint        `json:"productId"`
	URL               string       `json:"url"`
	SiteName          string       `json:"siteName"`
	SiteImage         string       `json:"siteImage,omitempty"`
	LastPrice         *string      `json:"lastPrice"`
	LastPriceCurrency string       `json:"lastPriceCurrency"`
	LastCheckedAt     *string      `json:"lastCheckedAt"`
	Status            string       `json:"status"`
	FailureReason     *string      `json:"failureReason"`
	CreatedAt         string       `json:"createdAt"`
	Product           *ProductView `json:"product"`
}

type ProductView struct {
	Name     string `json:"name"`
	Image    string `json:"image"`
	PriceUSD string `json:"priceUSD"`
	PriceBRL string `json:"priceBRL"`
}

type SettingsView struct {
	CheckIntervalMinutes int     `json:"checkIntervalMinutes"`
	IsActive             bool    `json:"isActive"`
	LastRunAt            *string `json:"lastRunAt"`
}

func (view MonitorView) From(row *MonitorRow) MonitorView {
	v := MonitorView{
		ID:                row.ID,
		ProductID:         row.ProductID,
		URL:               row.URL,
		SiteName:          row.SiteName,
		SiteImage:         row.SiteImage,
		LastPrice:         row.LastPrice,
		LastPriceCurrency: row.LastPriceCurrency,
		LastCheckedAt:     isoformat(row.LastCheckedAt),
		Status:            row.Status,
		FailureReason:     row.FailureReason,
		CreatedAt:         row.CreatedAt.UTC().Format(time.RFC3339),
	}
	if row.ProductName != nil {
		v.Product = &ProductView{
			Name:     *row.ProductName,
			Image:    deref(row.ProductImage),
			PriceUSD: deref(row.ProductPriceUSD),
			PriceBRL: deref(row.ProductPriceBRL),
		}
	}
	return v
}

func (view SettingsView) From(entity *models.MonitorSettings) SettingsView {
	return SettingsView{
		CheckIntervalMinutes: entity.CheckIntervalMinutes,
		IsActive:             entity.IsActive,
		LastRunAt:            isoformat(entity.LastRunAt),
	}
}

func isoformat(t sql.NullTime) *string {
	if !t.Valid {
		return nil
	}
	s := t.Time.UTC().Format(time.RFC3339)
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
