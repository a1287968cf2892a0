package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lgimportados/pricewatch/config"
	"github.com/lgimportados/pricewatch/lib/models"
	"github.com/lgimportados/pricewatch/lib/watcher"
)

// ErrMissingFields rejects a monitor created without its required fields.
var ErrMissingFields = errors.New("productId and url are required")

type Service struct {
	cfg     *config.Config
	log     *zap.Logger
	db      *gorm.DB
	watcher *watcher.Watcher
}

func NewService(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, db *gorm.DB, w *watcher.Watcher) *Service {
	return &Service{cfg, log, db, w}
}

// MonitorRow is a monitor joined with the display fields of its product.
// The product side is nullable: a deleted product degrades to placeholders
// instead of failing the listing.
type MonitorRow struct {
	models.PriceMonitor
	ProductName     *string
	ProductImage    *string
	ProductPriceUSD *string
	ProductPriceBRL *string
}

func (svc *Service) ListMonitors(ctx context.Context) ([]MonitorRow, error) {
	var rows []MonitorRow
	tx := svc.db.WithContext(ctx).
		Model(&models.PriceMonitor{}).
		Select("price_monitors.*, " +
			"products.name AS product_name, " +
			"products.image AS product_image, " +
			"products.price_usd AS product_price_usd, " +
			"products.price_brl AS product_price_brl").
		Joins("LEFT JOIN products ON products.id = price_monitors.product_id AND products.deleted_at IS NULL").
		Order("price_monitors.last_checked_at DESC").
		Scan(&rows)
	if err := tx.Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (svc *Service) CreateMonitor(ctx context.Context, productID uint, url, siteName string) (*models.PriceMonitor, error) {
	if productID == 0 || url == "" {
		return nil, ErrMissingFields
	}
	if siteName == "" {
		siteName = models.DefaultSiteName
	}

	monitor := &models.PriceMonitor{
		ProductID:         &productID,
		URL:               watcher.NormalizeURL(url),
		SiteName:          siteName,
		LastPriceCurrency: models.CurrencyUSD,
		Status:            models.StatusActive,
	}
	tx := svc.db.WithContext(ctx).Clauses(clause.Returning{}).Create(monitor)
	if err := tx.Error; err != nil {
		return nil, err
	}

	svc.log.Sugar().Infow("Created price monitor", "monitor_id", monitor.ID, "url", monitor.URL)
	return monitor, nil
}

// DeleteMonitor is idempotent: removing an id that no longer exists succeeds.
func (svc *Service) DeleteMonitor(ctx context.Context, id uint) error {
	tx := svc.db.WithContext(ctx).Delete(&models.PriceMonitor{}, id)
	return tx.Error
}

// RunNow executes the full check pipeline synchronously, outside the
// schedule. The caller waits for the result, success or failure.
func (svc *Service) RunNow(ctx context.Context, id uint) (*watcher.CheckResult, error) {
	return svc.watcher.RunCheck(ctx, id)
}

// GetSettings returns the singleton settings row, or defaults when the
// operator never saved one.
func (svc *Service) GetSettings(ctx context.Context) (*models.MonitorSettings, error) {
	var settings models.MonitorSettings
	tx := svc.db.WithContext(ctx).First(&settings)
	if err := tx.Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.MonitorSettings{
			CheckIntervalMinutes: models.DefaultCheckIntervalMinutes,
			IsActive:             true,
		}, nil
	} else if err != nil {
		return nil, err
	}
	return &settings, nil
}

// UpdateSettings applies a partial update over the singleton row. The write
// goes through an ON CONFLICT upsert keyed on the fixed row id, so racing
// writers can never produce a second row.
func (svc *Service) UpdateSettings(ctx context.Context, intervalMinutes *int, isActive *bool) (*models.MonitorSettings, error) {
	settings, err := svc.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	if intervalMinutes != nil {
		settings.CheckIntervalMinutes = *intervalMinutes
	}
	if isActive != nil {
		settings.IsActive = *isActive
	}
	settings.ID = models.SettingsRowID
	settings.UpdatedAt = time.Now().UTC()

	tx := svc.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"check_interval_minutes", "is_active", "updated_at"}),
		}).
		Create(settings)
	if err := tx.Error; err != nil {
		return nil, err
	}

	svc.log.Sugar().Infow("Monitor settings updated",
		"check_interval_minutes", settings.CheckIntervalMinutes, "is_active", settings.IsActive)
	return settings, nil
}
