package models

import (
	"database/sql"
	"time"
)

// SettingsRowID is the fixed primary key of the singleton settings row.
// Writing through this key with an ON CONFLICT upsert keeps concurrent
// settings writers from ever producing a second row.
const SettingsRowID uint = 1

const DefaultCheckIntervalMinutes = 60

// MonitorSettings gates the background scheduler globally. LastRunAt is
// informational only and never used for scheduling decisions.
type MonitorSettings struct {
	ID                   uint `gorm:"primaryKey"`
	CheckIntervalMinutes int
	IsActive             bool
	LastRunAt            sql.NullTime
	UpdatedAt            time.Time
}
