package llama

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const poolsBody = `{"status":"success","data":[
  {"pool":"steth","symbol":"STETH","apy":2.9,"apyBase":2.9,"apyReward":null},
  {"pool":"susde","symbol":"SUSDE","apy":"7.25","apyBase":null,"apyReward":null,"apyMean30d":6.1},
  {"pool":"weird","apy":"n/a","apyBase":null,"apyMean30d":4.2},
  {"symbol":"NOID","apy":1}
]}`

func newServer(t *testing.T, status int, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if r.URL.Path != "/pools" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = w.Write([]byte(poolsBody))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNativeYieldField(t *testing.T) {
	var hits int32
	srv := newServer(t, http.StatusOK, &hits)
	c := New(srv.URL+"/", time.Second, time.Minute, nil)

	require.Equal(t, 2.9, c.NativeYield(context.Background(), "steth", "apyBase"))
	require.Equal(t, 7.25, c.NativeYield(context.Background(), " susde ", "apy"))
}

func TestNativeYieldRewardFallback(t *testing.T) {
	var hits int32
	srv := newServer(t, http.StatusOK, &hits)
	c := New(srv.URL, time.Second, time.Minute, nil)

	// apyReward is null, falls back to apy
	require.Equal(t, 2.9, c.NativeYield(context.Background(), "steth", "apyReward"))
	// apy is not numeric and apyBase is null, falls through to apyMean30d
	require.Equal(t, 4.2, c.NativeYield(context.Background(), "weird", "apyReward"))
	// only apyReward has fallbacks
	require.Equal(t, 0.0, c.NativeYield(context.Background(), "weird", "apyBase"))
}

func TestPoolFieldErrors(t *testing.T) {
	var hits int32
	srv := newServer(t, http.StatusOK, &hits)
	c := New(srv.URL, time.Second, time.Minute, nil)

	_, err := c.PoolField(context.Background(), "missing", "apy")
	require.True(t, errors.Is(err, ErrPoolNotFound))

	_, err = c.PoolField(context.Background(), "steth", "tvlUsd")
	require.True(t, errors.Is(err, ErrFieldMissing))
}

func TestNativeYieldEmptyInputsSkipRequest(t *testing.T) {
	var hits int32
	srv := newServer(t, http.StatusOK, &hits)
	c := New(srv.URL, time.Second, time.Minute, nil)

	require.Equal(t, 0.0, c.NativeYield(context.Background(), "", "apy"))
	require.Equal(t, 0.0, c.NativeYield(context.Background(), "steth", " "))
	require.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestNativeYieldHTTPFailureIsZero(t *testing.T) {
	var hits int32
	srv := newServer(t, http.StatusInternalServerError, &hits)
	c := New(srv.URL, time.Second, time.Minute, nil)

	require.Equal(t, 0.0, c.NativeYield(context.Background(), "steth", "apy"))
	_, err := c.Pools(context.Background())
	require.Error(t, err)
}

func TestPoolsCachedForTTL(t *testing.T) {
	var hits int32
	srv := newServer(t, http.StatusOK, &hits)
	c := New(srv.URL, time.Second, time.Minute, nil)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		c.NativeYield(context.Background(), "steth", "apy")
	}
	require.Equal(t, int32(1), atomic.LoadInt32(&hits))

	now = now.Add(2 * time.Minute)
	c.NativeYield(context.Background(), "steth", "apy")
	require.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestPoolsWithoutTTLAlwaysFetch(t *testing.T) {
	var hits int32
	srv := newServer(t, http.StatusOK, &hits)
	c := New(srv.URL, time.Second, 0, nil)

	c.NativeYield(context.Background(), "steth", "apy")
	c.NativeYield(context.Background(), "steth", "apy")
	require.Equal(t, int32(2), atomic.LoadInt32(&hits))
}
