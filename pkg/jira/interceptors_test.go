package jira_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/jira-client/pkg/jira"
)

var errInterceptorStop = errors.New("interceptor stop")

func TestInterceptorChain_ExecutionOrder(t *testing.T) {
	t.Parallel()

	chain := jira.NewInterceptorChain()

	var order []string

	chain.AddRequestInterceptor(func(_ context.Context, _ *jira.Request) error {
		order = append(order, "first")

		return nil
	})
	chain.AddRequestInterceptor(func(_ context.Context, _ *jira.Request) error {
		order = append(order, "second")

		return nil
	})

	err := chain.ExecuteRequestInterceptors(context.Background(), &jira.Request{Method: "GET"})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestInterceptorChain_RequestError(t *testing.T) {
	t.Parallel()

	chain := jira.NewInterceptorChain()

	chain.AddRequestInterceptor(func(_ context.Context, _ *jira.Request) error {
		return errInterceptorStop
	})

	called := false

	chain.AddRequestInterceptor(func(_ context.Context, _ *jira.Request) error {
		called = true

		return nil
	})

	err := chain.ExecuteRequestInterceptors(context.Background(), &jira.Request{})
	require.ErrorIs(t, err, errInterceptorStop)
	// A failing interceptor stops the chain.
	assert.False(t, called)
}

func TestInterceptorChain_ResponseInterceptors(t *testing.T) {
	t.Parallel()

	chain := jira.NewInterceptorChain()

	var seen int

	chain.AddResponseInterceptor(func(_ context.Context, _ *jira.Request, resp *jira.Response) error {
		seen = resp.StatusCode

		return nil
	})

	err := chain.ExecuteResponseInterceptors(context.Background(),
		&jira.Request{Method: "GET", Path: "issue/TEST-1"},
		&jira.Response{StatusCode: 200})
	require.NoError(t, err)
	assert.Equal(t, 200, seen)
}

func TestHeaderInterceptor(t *testing.T) {
	t.Parallel()

	interceptor := jira.HeaderInterceptor(map[string]string{
		"X-Custom": "value",
	})

	req := &jira.Request{Method: "GET"}

	err := interceptor(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "value", req.Headers.Get("X-Custom"))
}

func TestRateLimiter_AllowsBurst(t *testing.T) {
	t.Parallel()

	limiter := jira.NewRateLimiter(5)
	defer limiter.Stop()

	interceptor := limiter.Interceptor()
	req := &jira.Request{Method: "GET"}

	// The initial bucket admits a burst without blocking.
	for range 5 {
		err := interceptor(context.Background(), req)
		require.NoError(t, err)
	}
}

func TestRateLimiter_ContextCancellation(t *testing.T) {
	t.Parallel()

	limiter := jira.NewRateLimiter(1)
	defer limiter.Stop()

	interceptor := limiter.Interceptor()
	req := &jira.Request{Method: "GET"}

	// Drain the bucket
	require.NoError(t, interceptor(context.Background(), req))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := interceptor(ctx, req)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	t.Parallel()

	limiter := jira.NewRateLimiter(2)

	limiter.Stop()
	limiter.Stop()

	// Tokens granted before Stop stay usable.
	err := limiter.Interceptor()(context.Background(), &jira.Request{Method: "GET"})
	require.NoError(t, err)
}

func TestLoggingInterceptors(t *testing.T) {
	t.Parallel()

	logger := &captureLogger{}

	reqInterceptor := jira.LoggingInterceptor(logger)
	respInterceptor := jira.LoggingResponseInterceptor(logger)

	req := &jira.Request{Method: "GET", Path: "issue/TEST-1"}

	require.NoError(t, reqInterceptor(context.Background(), req))
	require.NoError(t, respInterceptor(context.Background(), req, &jira.Response{StatusCode: 200}))
	require.NoError(t, respInterceptor(context.Background(), req,
		&jira.Response{StatusCode: 500, Error: errInterceptorStop}))

	assert.Equal(t, 2, logger.debugCount)
	assert.Equal(t, 1, logger.errorCount)
}

func TestMetricsInterceptors(t *testing.T) {
	t.Parallel()

	collector := jira.NewMetricsCollector()
	reqInterceptor := jira.MetricsRequestInterceptor(collector)
	respInterceptor := jira.MetricsResponseInterceptor(collector)

	ctx := context.Background()

	for _, status := range []int{200, 200, 500} {
		req := &jira.Request{Method: "GET", Path: "issue/TEST-1"}
		require.NoError(t, reqInterceptor(ctx, req))
		require.NoError(t, respInterceptor(ctx, req, &jira.Response{StatusCode: status}))
	}

	metrics := collector.GetMetrics("GET issue/TEST-1")
	require.NotNil(t, metrics)
	assert.Equal(t, int64(3), metrics.TotalRequests)
	assert.Equal(t, int64(1), metrics.TotalErrors)
	assert.Positive(t, metrics.AverageLatency)

	assert.Nil(t, collector.GetMetrics("GET other"))
}

func TestMetricsCollector_ConcurrentRecording(t *testing.T) {
	t.Parallel()

	collector := jira.NewMetricsCollector()
	reqInterceptor := jira.MetricsRequestInterceptor(collector)
	respInterceptor := jira.MetricsResponseInterceptor(collector)

	ctx := context.Background()

	var wg sync.WaitGroup

	for range 16 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			req := &jira.Request{Method: "GET", Path: "issue/TEST-1"}
			assert.NoError(t, reqInterceptor(ctx, req))
			assert.NoError(t, respInterceptor(ctx, req, &jira.Response{StatusCode: 200}))
		}()
	}

	wg.Wait()

	metrics := collector.GetMetrics("GET issue/TEST-1")
	require.NotNil(t, metrics)
	assert.Equal(t, int64(16), metrics.TotalRequests)
	assert.Zero(t, metrics.TotalErrors)
}

func TestMetricsCollector_OnChange(t *testing.T) {
	t.Parallel()

	collector := jira.NewMetricsCollector()

	var notified string

	collector.SetOnChange(func(endpoint string, _ *jira.Metrics) {
		notified = endpoint
	})

	respInterceptor := jira.MetricsResponseInterceptor(collector)
	req := &jira.Request{Method: "POST", Path: "issue"}

	require.NoError(t, respInterceptor(context.Background(), req, &jira.Response{StatusCode: 201}))
	assert.Equal(t, "POST issue", notified)
}

// captureLogger counts log calls per level.
type captureLogger struct {
	mu         sync.Mutex
	debugCount int
	infoCount  int
	warnCount  int
	errorCount int
}

func (l *captureLogger) Debug(_ string, _ map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debugCount++
}

func (l *captureLogger) Info(_ string, _ map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infoCount++
}

func (l *captureLogger) Warn(_ string, _ map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnCount++
}

func (l *captureLogger) Error(_ string, _ map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorCount++
}
