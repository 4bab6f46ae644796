package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// FeedingDeductionStrict switches the feeding auto-deduction from
// "skip short-stock ingredients with a warning" to "reject the whole record".
// Product has not unified the two policies; both stay selectable.
//
// Set via env:
// - FEEDING_DEDUCTION_STRICT=true
func FeedingDeductionStrict() bool {
	return boolFromEnv("FEEDING_DEDUCTION_STRICT")
}

// EventDrainEnabled controls the background event drain worker.
// Default: enabled. Disable with EVENT_DRAIN=false for one-off cmd tools.
func EventDrainEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("EVENT_DRAIN")))
	return v != "false" && v != "0"
}

// BackupWarnAfter is the last-successful-backup age beyond which SyncStatus
// reports "warning". Env: BACKUP_WARN_AFTER_HOURS (default 24).
func BackupWarnAfter() time.Duration {
	return time.Duration(intHoursFromEnv("BACKUP_WARN_AFTER_HOURS", 24)) * time.Hour
}

// BackupErrorAfter is the age beyond which SyncStatus reports "error".
// Env: BACKUP_ERROR_AFTER_HOURS (default 72).
func BackupErrorAfter() time.Duration {
	return time.Duration(intHoursFromEnv("BACKUP_ERROR_AFTER_HOURS", 72)) * time.Hour
}

func boolFromEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

func intHoursFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
