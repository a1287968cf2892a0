package watcher

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lgimportados/pricewatch/config"
	"github.com/lgimportados/pricewatch/lib/models"
)

// Watcher owns the recurring price-check loop. It wakes on a fixed short
// tick, reads the global settings row, and runs a bounded batch of overdue
// monitors through the check pipeline, one at a time.
type Watcher struct {
	log       *zap.Logger
	db        *gorm.DB
	fetcher   *Fetcher
	extractor *Extractor
	metrics   *Metrics

	tick             time.Duration
	pacing           time.Duration
	batchSize        int
	maxContentLength int

	// busy is the single-flight guard: a tick that fires while a pass is
	// still running is skipped, never queued.
	busy   atomic.Bool
	cancel context.CancelFunc
}

func New(cfg *config.Config, log *zap.Logger, db *gorm.DB, fetcher *Fetcher, extractor *Extractor, metrics *Metrics) *Watcher {
	tick := cfg.SchedulerTick
	if tick <= 0 {
		tick = time.Minute
	}
	batchSize := cfg.CheckBatchSize
	if batchSize <= 0 {
		batchSize = 5
	}
	maxContentLength := cfg.MaxContentLength
	if maxContentLength <= 0 {
		maxContentLength = 50000
	}

	return &Watcher{
		log:              log,
		db:               db,
		fetcher:          fetcher,
		extractor:        extractor,
		metrics:          metrics,
		tick:             tick,
		pacing:           cfg.CheckPacing,
		batchSize:        batchSize,
		maxContentLength: maxContentLength,
	}
}

func NewWatcher(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, db *gorm.DB, fetcher *Fetcher, extractor *Extractor, metrics *Metrics) *Watcher {
	w := New(cfg, log, db, fetcher, extractor, metrics)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go w.Start(context.Background())
			return nil
		},
		OnStop: func(ctx context.Context) error {
			w.Stop()
			return nil
		},
	})

	return w
}

// Start blocks in the scheduler loop until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.log.Sugar().Infow("Price watcher started", "tick", w.tick, "batch_size", w.batchSize)

	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Sugar().Info("Price watcher stopped")
			return
		case <-ticker.C:
			w.runPass(ctx)
		}
	}
}

func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
}

// runPass executes one scheduling pass. The busy flag is released and panics
// are contained on every exit path so a failing pass can never wedge the loop.
func (w *Watcher) runPass(ctx context.Context) {
	if !w.busy.CompareAndSwap(false, true) {
		w.log.Sugar().Debug("Previous pass still in flight, skipping tick")
		return
	}
	defer w.busy.Store(false)
	defer func() {
		if r := recover(); r != nil {
			w.log.Sugar().Errorw("Scheduler pass panicked", "panic", r)
		}
	}()

	settings, ok := w.loadSettings()
	if !ok {
		return
	}

	monitors := w.selectOverdue(settings)
	if len(monitors) == 0 {
		return
	}

	w.log.Sugar().Infow("Found overdue monitors", "count", len(monitors))

	checked := 0
	for i, monitor := range monitors {
		if ctx.Err() != nil {
			break
		}
		if _, err := w.RunCheck(ctx, monitor.ID); err != nil {
			// Already absorbed into the monitor row; nothing to propagate.
			w.log.Sugar().Debugw("Check ended in error state", "monitor_id", monitor.ID, "err", err)
		}
		checked++

		// Pacing between monitors keeps us inside the scraping proxy's rate
		// limit. Throughput is intentionally sacrificed here.
		if i < len(monitors)-1 {
			select {
			case <-ctx.Done():
			case <-time.After(w.pacing):
			}
		}
	}

	if checked > 0 {
		w.stampLastRun()
	}
	w.metrics.PassesTotal.Inc()
}

// loadSettings reads the global gate. No settings row at all means the
// operator never enabled monitoring, which disables the scheduler.
func (w *Watcher) loadSettings() (*models.MonitorSettings, bool) {
	var settings models.MonitorSettings
	tx := w.db.First(&settings)
	if err := tx.Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false
	} else if err != nil {
		w.log.Sugar().Errorw("Failed to read monitor settings", "err", err)
		return nil, false
	}
	if !settings.IsActive {
		return nil, false
	}
	return &settings, true
}

func (w *Watcher) selectOverdue(settings *models.MonitorSettings) models.PriceMonitors {
	interval := settings.CheckIntervalMinutes
	if interval <= 0 {
		interval = models.DefaultCheckIntervalMinutes
	}
	cutoff := time.Now().UTC().Add(-time.Duration(interval) * time.Minute)

	var monitors models.PriceMonitors
	tx := w.db.
		Where("status = ?", models.StatusActive).
		Where("last_checked_at IS NULL OR last_checked_at <= ?", cutoff).
		Limit(w.batchSize).
		Find(&monitors)
	if err := tx.Error; err != nil {
		w.log.Sugar().Errorw("Failed to select overdue monitors", "err", err)
		return nil
	}
	return monitors
}

func (w *Watcher) stampLastRun() {
	tx := w.db.Model(&models.MonitorSettings{}).
		Where("id = ?", models.SettingsRowID).
		Update("last_run_at", time.Now().UTC())
	if err := tx.Error; err != nil {
		w.log.Sugar().Warnw("Failed to stamp last run time", "err", err)
	}
}
