// internal/workers/matching/match-therapists/config.go
package matchtherapists

import (
	"time"

	"matching-platform/internal/common/config"
)

type Config struct {
	Timeout    time.Duration
	MaxResults int
}

func LoadConfig(wc config.WorkerConfig, mc config.MatchingConfig) *Config {
	cfg := &Config{Timeout: 30 * time.Second, MaxResults: mc.MaxResults}
	if wc.Timeout > 0 {
		cfg.Timeout = config.GetDuration(wc.Timeout)
	}
	return cfg
}
