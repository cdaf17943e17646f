package feargreed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OracleEngine/pkg/config"
)

func newTestClient(url string) *Client {
	cfg := config.UpstreamConfig{Timeout: time.Second, Retries: 2, BreakerFailures: 5, BreakerOpenDelay: time.Minute}
	cfg.FearGreed.URL = url
	cfg.FearGreed.PerMinute = 6000
	return New(cfg, nil, nil)
}

func TestFearGreed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"Fear and Greed Index","data":[{"value":"27","value_classification":"Fear","timestamp":"1760400000"}]}`))
	}))
	defer srv.Close()

	v, err := newTestClient(srv.URL).FearGreed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 27.0, v)
}

func TestFearGreedMalformedIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"data":[{"value":"n/a"}]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FearGreed(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestParse(t *testing.T) {
	_, err := parse([]byte(`{"data":[]}`))
	assert.Error(t, err)
	_, err = parse([]byte(`{"data":[{"value":"140"}]}`))
	assert.Error(t, err)
}
