package watcher

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lgimportados/pricewatch/lib/models"
)

// CheckResult is the successful outcome of one monitor check.
type CheckResult struct {
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
}

// RunCheck drives the fetch -> sanitize -> extract pipeline for one monitor
// and persists the outcome. A missing monitor is a no-op, not a failure.
//
// Every exit path stamps LastCheckedAt, so a broken monitor waits out a full
// check interval before the scheduler picks it up again.
func (w *Watcher) RunCheck(ctx context.Context, monitorID uint) (*CheckResult, error) {
	log := w.log.Sugar().With("check_id", uuid.NewString(), "monitor_id", monitorID)

	var monitor models.PriceMonitor
	tx := w.db.First(&monitor, monitorID)
	if err := tx.Error; errors.Is(err, gorm.ErrRecordNotFound) {
		log.Infow("Monitor no longer exists, skipping check")
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	log.Infow("Checking competitor price", "url", monitor.URL, "site", monitor.SiteName)

	rawHTML, err := w.fetcher.Fetch(ctx, monitor.URL)
	if err != nil {
		log.Warnw("Fetch failed", "err", err)
		w.metrics.IncCheck("fetch_error")
		return nil, w.markFailed(&monitor, err)
	}

	cleanText := Sanitize(rawHTML, w.maxContentLength)

	result, err := w.extractor.Extract(ctx, cleanText)
	if err != nil {
		outcome := "extract_error"
		if errors.Is(err, ErrPriceNotFound) {
			outcome = "not_found"
		}
		log.Warnw("Extraction failed", "err", err)
		w.metrics.IncCheck(outcome)
		return nil, w.markFailed(&monitor, err)
	}

	if err := w.markChecked(&monitor, result, ExtractPageMeta(rawHTML)); err != nil {
		return nil, err
	}

	log.Infow("Price extracted", "price", result.Price, "currency", result.Currency)
	w.metrics.IncCheck("ok")
	return result, nil
}

// markFailed records the failing stage on the monitor and returns the
// original pipeline error so the manual run-now path can surface it.
func (w *Watcher) markFailed(monitor *models.PriceMonitor, cause error) error {
	tx := w.db.Model(&models.PriceMonitor{}).
		Where("id = ?", monitor.ID).
		Updates(map[string]any{
			"status":          models.StatusError,
			"failure_reason":  cause.Error(),
			"last_checked_at": time.Now().UTC(),
		})
	if err := tx.Error; err != nil {
		w.log.Sugar().Errorw("Failed to persist check failure", "monitor_id", monitor.ID, "err", err)
		return err
	}
	return cause
}

func (w *Watcher) markChecked(monitor *models.PriceMonitor, result *CheckResult, meta PageMeta) error {
	updates := map[string]any{
		"status":              models.StatusActive,
		"last_price":          formatPrice(result.Price),
		"last_price_currency": result.Currency,
		"last_checked_at":     time.Now().UTC(),
		"failure_reason":      nil,
	}

	// Backfill display fields from the page itself when the operator left the
	// generic label in place.
	if meta.Title != "" && (monitor.SiteName == "" || monitor.SiteName == models.DefaultSiteName) {
		updates["site_name"] = clip(meta.Title, 100)
	}
	if meta.ImageURL != "" {
		updates["site_image"] = meta.ImageURL
	}

	tx := w.db.Model(&models.PriceMonitor{}).Where("id = ?", monitor.ID).Updates(updates)
	if err := tx.Error; err != nil {
		w.log.Sugar().Errorw("Failed to persist check result", "monitor_id", monitor.ID, "err", err)
		return err
	}
	return nil
}

func formatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', -1, 64)
}

func clip(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
