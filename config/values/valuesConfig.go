package values

import "time"

type Config interface {
}

// SefazValues holds the upstream-call defaults loaded from the app config.
// Zero fields are replaced by the documented upstream defaults.
type SefazValues struct {
	DefaultDias      int `yaml:"default-dias"`
	PageSize         int `yaml:"page-size"`
	CacheTTLMinutes  int `yaml:"cache-ttl-minutes"`
	CacheMaxEntries  int `yaml:"cache-max-entries"`
	RequestRateLimit int `yaml:"request-rate-limit"` // requests per minute
	AttemptTimeoutS  int `yaml:"attempt-timeout-seconds"`
	MaxAttempts      int `yaml:"max-attempts"`
}

func (v SefazValues) WithDefaults() SefazValues {
	if v.DefaultDias <= 0 {
		v.DefaultDias = 1
	}
	if v.PageSize <= 0 {
		v.PageSize = 50
	}
	if v.CacheTTLMinutes <= 0 {
		v.CacheTTLMinutes = 30
	}
	if v.CacheMaxEntries <= 0 {
		v.CacheMaxEntries = 100
	}
	if v.RequestRateLimit <= 0 {
		v.RequestRateLimit = 60
	}
	if v.AttemptTimeoutS <= 0 {
		v.AttemptTimeoutS = 45
	}
	if v.MaxAttempts <= 0 {
		v.MaxAttempts = 3
	}
	return v
}

func (v SefazValues) CacheTTL() time.Duration {
	return time.Duration(v.CacheTTLMinutes) * time.Minute
}

func (v SefazValues) AttemptTimeout() time.Duration {
	return time.Duration(v.AttemptTimeoutS) * time.Second
}

// SyncValues holds the batch-run pacing values. The delays are deliberate
// throttling against the upstream rate limit, not tuning knobs.
type SyncValues struct {
	BatchSize    int `yaml:"batch-size"`
	ItemDelayMs  int `yaml:"item-delay-ms"`
	BatchDelayMs int `yaml:"batch-delay-ms"`
}

func (v SyncValues) WithDefaults() SyncValues {
	if v.BatchSize <= 0 {
		v.BatchSize = 3
	}
	if v.ItemDelayMs <= 0 {
		v.ItemDelayMs = 300
	}
	if v.BatchDelayMs <= 0 {
		v.BatchDelayMs = 1000
	}
	return v
}

func (v SyncValues) ItemDelay() time.Duration {
	return time.Duration(v.ItemDelayMs) * time.Millisecond
}

func (v SyncValues) BatchDelay() time.Duration {
	return time.Duration(v.BatchDelayMs) * time.Millisecond
}
