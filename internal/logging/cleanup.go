package logging

import (
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/foundit-backend/internal/models"
	"gorm.io/gorm"
)

const cleanupInterval = 24 * time.Hour

// StartCleanup prunes system_logs past retentionDays and login challenges
// that have expired, once a day until done is closed.
func StartCleanup(db *gorm.DB, retentionDays int, done chan struct{}) {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				prune(db, retentionDays, time.Now())
			case <-done:
				return
			}
		}
	}()
}

func prune(db *gorm.DB, retentionDays int, now time.Time) {
	logs := db.Where("timestamp < ?", now.AddDate(0, 0, -retentionDays)).Delete(&models.SystemLog{})
	if logs.Error != nil {
		slog.Error("log cleanup failed", "error", logs.Error)
	} else if logs.RowsAffected > 0 {
		slog.Info("log cleanup completed", "deleted", logs.RowsAffected, "retention_days", retentionDays)
	}

	challenges := db.Where("expires_at < ?", now).Delete(&models.LoginChallenge{})
	if challenges.Error != nil {
		slog.Error("login challenge cleanup failed", "error", challenges.Error)
	} else if challenges.RowsAffected > 0 {
		slog.Debug("expired login challenges removed", "deleted", challenges.RowsAffected)
	}
}
