package internal

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cockroachdb/errors"
	jsoniter "github.com/json-iterator/go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const DefaultTimeout = 15 * time.Second

// HTTPStatusError is returned when the remote server responds with a non-2xx status.
type HTTPStatusError struct {
	URL        string
	Status     string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("http status response from %s: %s", e.URL, e.Status)
}

// VendorClient performs JSON round-trips against a vendor's REST endpoints.
// Every request is bounded by the client timeout as well as the caller's context.
type VendorClient struct {
	client  *http.Client
	headers map[string]string
	logger  *zap.Logger
}

func NewVendorClient(timeout time.Duration, headers map[string]string, logger *zap.Logger) *VendorClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VendorClient{
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		headers: headers,
		logger:  logger,
	}
}

// PostJSON marshals body (nil sends "{}"), POSTs it and decodes the response into out.
func (vc *VendorClient) PostJSON(ctx context.Context, rawURL string, body any, out any) error {
	payload := []byte("{}")
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request body")
		}
		payload = data
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	return vc.do(req, out)
}

func (vc *VendorClient) GetJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	return vc.do(req, out)
}

func (vc *VendorClient) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	for k, v := range vc.headers {
		req.Header.Set(k, v)
	}

	vc.logger.Debug(req.Method, zap.String("url", withoutQuery(req.URL)))
	resp, err := vc.client.Do(req)
	if err != nil {
		// *url.Error repeats the full URL, query included
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return errors.Wrapf(err, "failed to fetch from %s", withoutQuery(req.URL))
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			vc.logger.Warn("failed to close body", zap.Error(err))
		}
	}()

	if resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &HTTPStatusError{URL: withoutQuery(req.URL), Status: resp.Status, StatusCode: resp.StatusCode}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "failed to unmarshal response")
	}
	return nil
}

// withoutQuery drops the query string, which carries vendor tokens.
func withoutQuery(u *url.URL) string {
	clean := *u
	clean.RawQuery = ""
	clean.User = nil
	return clean.String()
}
