package watcher

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/lgimportados/pricewatch/lib/models"
)

func createSettings(t *testing.T, db *gorm.DB, intervalMinutes int, isActive bool) {
	t.Helper()
	require.NoError(t, db.Create(&models.MonitorSettings{
		ID:                   models.SettingsRowID,
		CheckIntervalMinutes: intervalMinutes,
		IsActive:             isActive,
	}).Error)
}

func checkedAgo(d time.Duration) sql.NullTime {
	return sql.NullTime{Time: time.Now().UTC().Add(-d), Valid: true}
}

func TestPassSelectsByStalenessCutoff(t *testing.T) {
	db := newTestDB(t)
	ft := &fakeTransport{status: 200, body: competitorPage}
	fc := &fakeChat{reply: `{"price": 100, "currency": "USD"}`}
	w := newTestWatcher(t, db, ft, fc, nil)

	createSettings(t, db, 60, true)

	overdue := createMonitor(t, db, func(m *models.PriceMonitor) {
		m.URL = "https://a.example.com"
		m.LastCheckedAt = checkedAgo(61 * time.Minute)
	})
	fresh := createMonitor(t, db, func(m *models.PriceMonitor) {
		m.URL = "https://b.example.com"
		m.LastCheckedAt = checkedAgo(59 * time.Minute)
	})
	neverChecked := createMonitor(t, db, func(m *models.PriceMonitor) {
		m.URL = "https://c.example.com"
	})
	erroredStale := createMonitor(t, db, func(m *models.PriceMonitor) {
		m.URL = "https://d.example.com"
		m.Status = models.StatusError
		reason := "previous failure"
		m.FailureReason = &reason
		m.LastCheckedAt = checkedAgo(5 * time.Hour)
	})
	pausedStale := createMonitor(t, db, func(m *models.PriceMonitor) {
		m.URL = "https://e.example.com"
		m.Status = models.StatusPaused
		m.LastCheckedAt = checkedAgo(5 * time.Hour)
	})

	w.runPass(context.Background())

	assert.Equal(t, 2, ft.callCount(), "only the 61-minute-old and never-checked monitors are due")

	now := time.Now().UTC()
	assert.WithinDuration(t, now, reloadMonitor(t, db, overdue.ID).LastCheckedAt.Time, time.Minute)
	assert.WithinDuration(t, now, reloadMonitor(t, db, neverChecked.ID).LastCheckedAt.Time, time.Minute)

	assert.WithinDuration(t, now.Add(-59*time.Minute), reloadMonitor(t, db, fresh.ID).LastCheckedAt.Time, time.Minute)
	assert.Equal(t, models.StatusError, reloadMonitor(t, db, erroredStale.ID).Status)
	assert.Equal(t, models.StatusPaused, reloadMonitor(t, db, pausedStale.ID).Status)
}

func TestPassSkippedWhenDisabled(t *testing.T) {
	db := newTestDB(t)
	ft := &fakeTransport{status: 200, body: competitorPage}
	w := newTestWatcher(t, db, ft, &fakeChat{reply: `{"price": 1}`}, nil)

	createSettings(t, db, 60, false)
	createMonitor(t, db, nil) // never checked, would otherwise be due

	w.runPass(context.Background())

	assert.Equal(t, 0, ft.callCount())
}

func TestPassSkippedWithoutSettingsRow(t *testing.T) {
	db := newTestDB(t)
	ft := &fakeTransport{status: 200, body: competitorPage}
	w := newTestWatcher(t, db, ft, &fakeChat{reply: `{"price": 1}`}, nil)

	createMonitor(t, db, nil)

	w.runPass(context.Background())

	assert.Equal(t, 0, ft.callCount())
}

func TestPassRespectsBatchCap(t *testing.T) {
	db := newTestDB(t)
	ft := &fakeTransport{status: 200, body: competitorPage}
	fc := &fakeChat{reply: `{"price": 100, "currency": "USD"}`}
	w := newTestWatcher(t, db, ft, fc, nil)

	createSettings(t, db, 60, true)
	for i := 0; i < 20; i++ {
		createMonitor(t, db, func(m *models.PriceMonitor) {
			m.URL = fmt.Sprintf("https://shop%d.example.com", i)
		})
	}

	w.runPass(context.Background())
	assert.Equal(t, 5, ft.callCount(), "one pass processes at most one batch")

	// The remainder becomes eligible again on subsequent passes.
	w.runPass(context.Background())
	assert.Equal(t, 10, ft.callCount())
}

func TestPassSingleFlight(t *testing.T) {
	db := newTestDB(t)
	ft := &fakeTransport{status: 200, body: competitorPage}
	w := newTestWatcher(t, db, ft, &fakeChat{reply: `{"price": 1}`}, nil)

	createSettings(t, db, 60, true)
	createMonitor(t, db, nil)

	w.busy.Store(true)
	w.runPass(context.Background())
	assert.Equal(t, 0, ft.callCount(), "a pass in flight blocks the next tick")
	w.busy.Store(false)

	w.runPass(context.Background())
	assert.Equal(t, 1, ft.callCount())
	assert.False(t, w.busy.Load(), "busy flag must be released after the pass")
}

func TestPassAbsorbsCheckFailures(t *testing.T) {
	db := newTestDB(t)
	ft := &fakeTransport{status: 500, body: "boom"}
	w := newTestWatcher(t, db, ft, &fakeChat{reply: `{"price": 1}`}, nil)

	createSettings(t, db, 60, true)
	m1 := createMonitor(t, db, func(m *models.PriceMonitor) { m.URL = "https://a.example.com" })
	m2 := createMonitor(t, db, func(m *models.PriceMonitor) { m.URL = "https://b.example.com" })

	w.runPass(context.Background())

	// Both monitors were attempted despite the first failing.
	assert.Equal(t, 2, ft.callCount())
	assert.Equal(t, models.StatusError, reloadMonitor(t, db, m1.ID).Status)
	assert.Equal(t, models.StatusError, reloadMonitor(t, db, m2.ID).Status)
	assert.False(t, w.busy.Load())
}

func TestPassStampsLastRun(t *testing.T) {
	db := newTestDB(t)
	ft := &fakeTransport{status: 200, body: competitorPage}
	fc := &fakeChat{reply: `{"price": 100, "currency": "USD"}`}
	w := newTestWatcher(t, db, ft, fc, nil)

	createSettings(t, db, 60, true)
	createMonitor(t, db, nil)

	w.runPass(context.Background())

	var settings models.MonitorSettings
	require.NoError(t, db.First(&settings).Error)
	require.True(t, settings.LastRunAt.Valid)
	assert.WithinDuration(t, time.Now().UTC(), settings.LastRunAt.Time, time.Minute)
}

func TestStartStopsOnCancel(t *testing.T) {
	db := newTestDB(t)
	w := newTestWatcher(t, db, &fakeTransport{status: 200, body: competitorPage}, &fakeChat{reply: `{"price": 1}`}, nil)
	w.tick = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not stop after context cancellation")
	}
}
