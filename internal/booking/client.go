// Package booking reads availability and event types from the booking platform's v2 API.
package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/redis/go-redis/v9"

	"matching-platform/internal/common/config"
	stderrors "matching-platform/internal/common/errors"
	"matching-platform/internal/common/httpclient"
	"matching-platform/internal/common/logger"
	"matching-platform/internal/common/metrics"
	"matching-platform/internal/matching"
)

const (
	slotsPath      = "/v2/slots"
	eventTypesPath = "/v2/event-types"
	lookahead      = 14 * 24 * time.Hour
	nearWindow     = 7 * 24 * time.Hour
)

// SlotCounts is the number of bookable intro slots in the next 7 and 14 days.
type SlotCounts struct {
	Within7Days  int `json:"within7Days"`
	Within14Days int `json:"within14Days"`
}

type slotsResponse struct {
	Status string                       `json:"status"`
	Data   map[string][]slotsResponseAt `json:"data"`
}

type slotsResponseAt struct {
	Start string `json:"start"`
}

type eventTypesResponse struct {
	Status string `json:"status"`
	Data   []struct {
		ID   int64  `json:"id"`
		Slug string `json:"slug"`
	} `json:"data"`
}

type Client struct {
	http      *resty.Client
	cache     redis.Cmdable
	cacheTTL  time.Duration
	introSlug string
	now       func() time.Time
	log       logger.Logger
}

// NewClient builds a booking-platform client. cache may be nil to disable slot caching.
func NewClient(cfg config.BookingConfig, cache redis.Cmdable, log logger.Logger) *Client {
	headers := map[string]string{"cal-api-version": cfg.APIVersion}
	if cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + cfg.APIKey
	}

	return &Client{
		http: httpclient.New(httpclient.Options{
			BaseURL:    cfg.BaseURL,
			Timeout:    config.GetDuration(cfg.Timeout),
			RetryCount: 2,
			Headers:    headers,
		}),
		cache:     cache,
		cacheTTL:  config.GetSeconds(cfg.SlotCacheTTL),
		introSlug: cfg.IntroEventSlug,
		now:       time.Now,
		log:       log.WithFields(map[string]interface{}{"component": "booking"}),
	}
}

// IntroSlotCounts counts the therapist's open intro slots. An empty username has no
// availability and is not looked up.
func (c *Client) IntroSlotCounts(ctx context.Context, username, slug string) (SlotCounts, error) {
	if username == "" {
		return SlotCounts{}, nil
	}
	if slug == "" {
		slug = c.introSlug
	}

	key := fmt.Sprintf("slots:%s:%s", username, slug)
	if counts, ok := c.cached(ctx, key); ok {
		metrics.BookingSlotLookups.WithLabelValues("cache").Inc()
		return counts, nil
	}
	metrics.BookingSlotLookups.WithLabelValues("api").Inc()

	now := c.now().UTC()
	var body slotsResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"username":      username,
			"eventTypeSlug": slug,
			"start":         now.Format(time.RFC3339),
			"end":           now.Add(lookahead).Format(time.RFC3339),
			"timeZone":      "UTC",
		}).
		SetResult(&body).
		Get(slotsPath)
	if err := c.checkResponse("slots", resp, err); err != nil {
		return SlotCounts{}, err
	}

	counts := countSlots(body.Data, now)
	c.store(ctx, key, counts)

	c.log.Debug("Fetched intro slots", map[string]interface{}{
		"username":     username,
		"within7Days":  counts.Within7Days,
		"within14Days": counts.Within14Days,
	})
	return counts, nil
}

// EventTypes lists the canonical event types provisioned for username. Unknown slugs are
// dropped.
func (c *Client) EventTypes(ctx context.Context, username string) ([]matching.EventTypeKind, error) {
	if username == "" {
		return nil, nil
	}

	var body eventTypesResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("username", username).
		SetResult(&body).
		Get(eventTypesPath)
	if err := c.checkResponse("event-types", resp, err); err != nil {
		return nil, err
	}

	slugs := make([]string, 0, len(body.Data))
	for _, et := range body.Data {
		slugs = append(slugs, et.Slug)
	}
	return matching.CanonicalEventTypes(slugs), nil
}

func (c *Client) checkResponse(op string, resp *resty.Response, err error) error {
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return stderrors.NewBookingPlatformTimeoutError(op)
		}
		return stderrors.NewBookingPlatformError(op, err)
	}
	if resp.IsError() {
		return stderrors.NewBookingPlatformError(op,
			fmt.Errorf("unexpected status %d", resp.StatusCode())).
			WithMetadata("status", resp.StatusCode())
	}
	if resp.StatusCode() != http.StatusOK {
		c.log.Warn("Unexpected booking platform status", map[string]interface{}{
			"operation": op,
			"status":    resp.StatusCode(),
		})
	}
	return nil
}

// countSlots buckets slot start times into the 7- and 14-day windows starting at now.
// Slots in the past or with unparseable times are ignored.
func countSlots(days map[string][]slotsResponseAt, now time.Time) SlotCounts {
	var counts SlotCounts
	near, far := now.Add(nearWindow), now.Add(lookahead)
	for _, slots := range days {
		for _, s := range slots {
			start, err := time.Parse(time.RFC3339, s.Start)
			if err != nil || start.Before(now) || !start.Before(far) {
				continue
			}
			counts.Within14Days++
			if start.Before(near) {
				counts.Within7Days++
			}
		}
	}
	return counts
}

func (c *Client) cached(ctx context.Context, key string) (SlotCounts, bool) {
	if c.cache == nil || c.cacheTTL <= 0 {
		return SlotCounts{}, false
	}
	raw, err := c.cache.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("Slot cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
		}
		return SlotCounts{}, false
	}
	var counts SlotCounts
	if err := json.Unmarshal([]byte(raw), &counts); err != nil {
		return SlotCounts{}, false
	}
	return counts, true
}

func (c *Client) store(ctx context.Context, key string, counts SlotCounts) {
	if c.cache == nil || c.cacheTTL <= 0 {
		return
	}
	data, _ := json.Marshal(counts)
	if err := c.cache.Set(ctx, key, string(data), c.cacheTTL).Err(); err != nil {
		c.log.Warn("Slot cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}
