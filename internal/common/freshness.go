// Package common provides shared utilities for Buzzboard
package common

import "time"

// Freshness TTLs for quote data components
const (
	FreshnessKeyMetrics = 6 * time.Hour   // slow-changing fundamentals
	FreshnessLiveData   = 10 * time.Minute
	FreshnessIntraday   = 10 * time.Minute
	FreshnessCalendar   = 10 * time.Minute
	FreshnessNews       = 10 * time.Minute
)
