// internal/booking/client_test.go
package booking

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matching-platform/internal/common/config"
	stderrors "matching-platform/internal/common/errors"
	"matching-platform/internal/common/logger"
	"matching-platform/internal/matching"
)

var fixedNow = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

func testConfig(baseURL string) config.BookingConfig {
	return config.BookingConfig{
		BaseURL:        baseURL,
		APIKey:         "cal_test",
		APIVersion:     "2024-09-04",
		IntroEventSlug: "intro",
		Timeout:        2000,
		SlotCacheTTL:   300,
	}
}

func slotServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		assert.Equal(t, slotsPath, r.URL.Path)
		assert.Equal(t, "Bearer cal_test", r.Header.Get("Authorization"))
		assert.Equal(t, "2024-09-04", r.Header.Get("cal-api-version"))
		assert.Equal(t, "eva", r.URL.Query().Get("username"))
		assert.Equal(t, "intro", r.URL.Query().Get("eventTypeSlug"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "success",
			"data": map[string][]map[string]string{
				"2026-06-01": {{"start": "2026-06-01T07:00:00.000Z"}, {"start": "2026-06-01T09:00:00.000Z"}},
				"2026-06-03": {{"start": "2026-06-03T09:00:00.000Z"}},
				"2026-06-09": {{"start": "2026-06-09T09:00:00Z"}},
				"2026-06-20": {{"start": "2026-06-20T09:00:00Z"}},
			},
		})
	}))
}

func TestCountSlots(t *testing.T) {
	days := map[string][]slotsResponseAt{
		"a": {{Start: "2026-06-01T07:59:59Z"}, {Start: "2026-06-01T08:00:00Z"}},
		"b": {{Start: "2026-06-08T07:59:59Z"}, {Start: "2026-06-08T08:00:00Z"}},
		"c": {{Start: "2026-06-15T07:59:59Z"}, {Start: "2026-06-15T08:00:00Z"}},
		"d": {{Start: "garbage"}},
	}

	counts := countSlots(days, fixedNow)

	assert.Equal(t, 2, counts.Within7Days)
	assert.Equal(t, 4, counts.Within14Days)
}

func TestIntroSlotCounts_FetchesAndCaches(t *testing.T) {
	var hits int32
	srv := slotServer(t, &hits)
	defer srv.Close()

	rdb, mock := redismock.NewClientMock()
	key := "slots:eva:intro"
	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, `{"within7Days":2,"within14Days":3}`, 300*time.Second).SetVal("OK")

	c := NewClient(testConfig(srv.URL), rdb, logger.NewTestLogger(t))
	c.now = func() time.Time { return fixedNow }

	counts, err := c.IntroSlotCounts(context.Background(), "eva", "")
	require.NoError(t, err)

	assert.Equal(t, SlotCounts{Within7Days: 2, Within14Days: 3}, counts)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIntroSlotCounts_CacheHit(t *testing.T) {
	var hits int32
	srv := slotServer(t, &hits)
	defer srv.Close()

	rdb, mock := redismock.NewClientMock()
	mock.ExpectGet("slots:eva:intro").SetVal(`{"within7Days":4,"within14Days":6}`)

	c := NewClient(testConfig(srv.URL), rdb, logger.NewTestLogger(t))

	counts, err := c.IntroSlotCounts(context.Background(), "eva", "intro")
	require.NoError(t, err)

	assert.Equal(t, SlotCounts{Within7Days: 4, Within14Days: 6}, counts)
	assert.EqualValues(t, 0, atomic.LoadInt32(&hits))
}

func TestIntroSlotCounts_NoCache(t *testing.T) {
	var hits int32
	srv := slotServer(t, &hits)
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), nil, logger.NewTestLogger(t))
	c.now = func() time.Time { return fixedNow }

	_, err := c.IntroSlotCounts(context.Background(), "eva", "")
	require.NoError(t, err)
	_, err = c.IntroSlotCounts(context.Background(), "eva", "")
	require.NoError(t, err)

	assert.EqualValues(t, 2, atomic.LoadInt32(&hits))
}

func TestIntroSlotCounts_EmptyUsername(t *testing.T) {
	c := NewClient(testConfig("http://127.0.0.1:1"), nil, logger.NewNoOpLogger())

	counts, err := c.IntroSlotCounts(context.Background(), "", "")

	assert.NoError(t, err)
	assert.Equal(t, SlotCounts{}, counts)
}

func TestIntroSlotCounts_PlatformError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status":"error"}`))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), nil, logger.NewTestLogger(t))

	_, err := c.IntroSlotCounts(context.Background(), "ghost", "")

	require.Error(t, err)
	assert.True(t, stderrors.HasCode(err, stderrors.ErrCodeBookingPlatformFailed))
}

func TestEventTypes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, eventTypesPath, r.URL.Path)
		assert.Equal(t, "eva", r.URL.Query().Get("username"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","data":[
			{"id":1,"slug":"Kennenlernen"},
			{"id":2,"slug":"therapiesitzung"},
			{"id":3,"slug":"workshop"}]}`))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), nil, logger.NewTestLogger(t))

	kinds, err := c.EventTypes(context.Background(), "eva")
	require.NoError(t, err)
	assert.Equal(t, []matching.EventTypeKind{matching.EventTypeIntro, matching.EventTypeFullSession}, kinds)
}
