// internal/workers/tracking/track-conversion/config.go
package trackconversion

import (
	"time"

	"matching-platform/internal/common/config"
)

type Config struct {
	Timeout  time.Duration
	Value    float64
	Currency string
}

func LoadConfig(wc config.WorkerConfig) *Config {
	cfg := &Config{
		Timeout:  20 * time.Second,
		Value:    1,
		Currency: "EUR",
	}
	if wc.Timeout > 0 {
		cfg.Timeout = config.GetDuration(wc.Timeout)
	}
	return cfg
}
