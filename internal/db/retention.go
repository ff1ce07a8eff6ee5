package db

import (
	"time"

	"gorm.io/gorm"

	"storefront/internal/logging"
)

// runRetentionOnce performs a single pass of retention cleanup, deleting
// events older than retentionDays and sign-in sessions that have expired.
func runRetentionOnce(db *gorm.DB, retentionDays int, now time.Time) error {
	if retentionDays > 0 {
		cutoff := now.AddDate(0, 0, -retentionDays).UnixMilli()
		res := db.Where("timestamp < ?", cutoff).Delete(&Event{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			logging.Info().Int64("events", res.RowsAffected).Msg("retention: deleted old events")
		}
	}
	return db.Where("expires_at <= ?", now).Delete(&Session{}).Error
}

// StartRetentionWorker launches a background goroutine that runs the
// retention cleanup once at startup and then once per day.
func StartRetentionWorker(db *gorm.DB, retentionDays int) {
	go func() {
		if err := runRetentionOnce(db, retentionDays, time.Now()); err != nil {
			logging.Error().Err(err).Msg("retention cleanup error (startup)")
		}

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		for t := range ticker.C {
			if err := runRetentionOnce(db, retentionDays, t); err != nil {
				logging.Error().Err(err).Msg("retention cleanup error")
			}
		}
	}()
}
