// fetch.go — Bounded HTTP GET shared by the source canonicalizer, the asset
// resolver and font loading.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single fetch when the caller does not set one.
const DefaultTimeout = 5 * time.Second

// MaxBodySize caps response bodies. Card templates and photos are small.
const MaxBodySize = 32 << 20

// ErrStatus is wrapped by errors for non-2xx responses.
var ErrStatus = errors.New("unexpected status")

// Response is a fetched body plus the metadata callers sniff formats from.
type Response struct {
	Body        []byte
	ContentType string
	URL         string
}

// Get fetches url with its own timeout derived from ctx. A nil client uses
// http.DefaultClient; a non-positive timeout uses DefaultTimeout.
func Get(ctx context.Context, client *http.Client, url string, timeout time.Duration) (*Response, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("get %s: %w %d", url, ErrStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	if len(body) > MaxBodySize {
		return nil, fmt.Errorf("read %s: body exceeds %d bytes", url, MaxBodySize)
	}

	return &Response{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		URL:         url,
	}, nil
}
