package models

import (
	"database/sql"

	"gorm.io/gorm"
)

const (
	StatusActive = "active"
	StatusError  = "error"
	StatusPaused = "paused"

	CurrencyUSD = "USD"
	CurrencyBRL = "BRL"

	// DefaultSiteName labels a monitor until the operator (or a successful
	// check reading the page title) names the competitor site.
	DefaultSiteName = "Concorrente"
)

// PriceMonitor is one tracked (product, competitor URL) pair.
//
// Status and FailureReason move together: an error status always carries a
// reason, and a successful check clears the reason in the same update that
// writes the price.
type PriceMonitor struct {
	gorm.Model
	ProductID *uint    `gorm:"index"`
	Product   *Product `gorm:"constraint:OnDelete:SET NULL"`

	URL       string `gorm:"not null"`
	SiteName  string `gorm:"size:100"`
	SiteImage string

	LastPrice         *string `gorm:"type:decimal(10,2)"`
	LastPriceCurrency string  `gorm:"size:10"`
	LastCheckedAt     sql.NullTime
	Status            string `gorm:"size:20;index"`
	FailureReason     *string
}

type PriceMonitors []PriceMonitor
