package constants

import "time"

var CacheTTL = struct {
	CardList       time.Duration
	SpeechSettings time.Duration
}{
	CardList:       10 * time.Minute, // library listing per principal
	SpeechSettings: 0,                // settings never expire
}

var RedisConfig = struct {
	ReadyTimeout time.Duration
}{
	ReadyTimeout: 5 * time.Second,
}

var AIInputLimits = struct {
	MaxImageBytes    int
	MaxSpeechRunes   int
	MaxNameRunes     int
	MaxCategoryRunes int
}{
	MaxImageBytes:    10 * 1024 * 1024,
	MaxSpeechRunes:   1000,
	MaxNameRunes:     80,
	MaxCategoryRunes: 60,
}

var AITimeouts = struct {
	Recognition time.Duration
	Synthesis   time.Duration
	Speech      time.Duration
}{
	Recognition: 30 * time.Second,
	Synthesis:   90 * time.Second,
	Speech:      45 * time.Second,
}

var CircuitBreakerConfig = struct {
	FailureThreshold    int
	ResetTimeout        time.Duration
	RateLimitTimeout    time.Duration
	HealthCheckInterval time.Duration
	HealthCheckTimeout  time.Duration
}{
	FailureThreshold:    3,                // open after 3 consecutive failures
	ResetTimeout:        30 * time.Second, // default wait before retrying
	RateLimitTimeout:    10 * time.Minute, // 429 specific
	HealthCheckInterval: 2 * time.Minute,
	HealthCheckTimeout:  10 * time.Second,
}

var StorageConfig = struct {
	UploadTimeout time.Duration
	RemoveTimeout time.Duration
	CacheControl  string
}{
	UploadTimeout: 15 * time.Second,
	RemoveTimeout: 10 * time.Second,
	CacheControl:  "max-age=3600",
}

var PhraseConfig = struct {
	HistoryLimit       int
	BulkDeleteWorkers  int
	MaxSessionItems    int
	SessionIdleTimeout time.Duration
	SweepInterval      time.Duration
	HistorySaveTimeout time.Duration
}{
	HistoryLimit:       20, // saved_phrases listing cap
	BulkDeleteWorkers:  4,
	MaxSessionItems:    100,
	SessionIdleTimeout: 2 * time.Hour,
	SweepInterval:      10 * time.Minute,
	HistorySaveTimeout: 5 * time.Second,
}
