package forecast

import (
	"context"
	"errors"
	"fmt"
	"time"

	xhttp "StockSignal/pkg/http"
)

// httpBase centralizes client construction and JSON POST handling for the
// model service.
type httpBase struct {
	baseURL string
	client  *xhttp.Client
}

func newHTTPBase(baseURL string, timeout time.Duration) *httpBase {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &httpBase{
		baseURL: baseURL,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

func (b *httpBase) postJSON(ctx context.Context, path string, payload, dest interface{}) error {
	if b.baseURL == "" {
		return fmt.Errorf("forecast service url not configured")
	}
	if err := b.client.PostJSON(ctx, b.baseURL+path, payload, dest); err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}

// postJSONWithRetry retries transient failures (transport errors, 429, 5xx)
// with a linear backoff. Client errors are returned immediately.
func (b *httpBase) postJSONWithRetry(ctx context.Context, path string, payload, dest interface{}, attempts int, backoff time.Duration) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 1; i <= attempts; i++ {
		err = b.postJSON(ctx, path, payload, dest)
		if err == nil || !transient(err) || i == attempts {
			return err
		}
		select {
		case <-time.After(time.Duration(i) * backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func transient(err error) bool {
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return !errors.Is(err, context.Canceled)
}
