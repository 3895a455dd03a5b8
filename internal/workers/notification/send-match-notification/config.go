// internal/workers/notification/send-match-notification/config.go
package sendmatchnotification

import (
	"strings"
	"time"

	"matching-platform/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	// PublicBaseURL prefixes the selection link, e.g. https://example.org.
	PublicBaseURL string
}

func LoadConfig(wc config.WorkerConfig, app config.AppConfig) *Config {
	cfg := &Config{
		Timeout:       15 * time.Second,
		PublicBaseURL: strings.TrimRight(app.PublicBaseURL, "/"),
	}
	if wc.Timeout > 0 {
		cfg.Timeout = config.GetDuration(wc.Timeout)
	}
	return cfg
}
