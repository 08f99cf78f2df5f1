package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-content/pkg/llm"
	"github.com/ekaya-inc/ekaya-content/pkg/logging"
	"github.com/ekaya-inc/ekaya-content/pkg/retry"
)

// DefaultHTTPTimeout bounds a single vendor HTTP round trip.
const DefaultHTTPTimeout = 60 * time.Second

// maxResponseBytes caps how much of a vendor response body is read.
const maxResponseBytes = 32 << 20

// jsonClient performs authenticated JSON calls against a vendor REST API.
type jsonClient struct {
	provider   ProviderID
	baseURL    string
	headers    map[string]string
	httpClient *http.Client
	retryCfg   *retry.Config
	logger     *zap.Logger
}

func newJSONClient(provider ProviderID, baseURL string, headers map[string]string, httpClient *http.Client, logger *zap.Logger) *jsonClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &jsonClient{
		provider:   provider,
		baseURL:    baseURL,
		headers:    headers,
		httpClient: httpClient,
		retryCfg:   retry.ProviderConfig(),
		logger:     logger.Named(string(provider)),
	}
}

// submit POSTs a request, retrying transient failures. Submissions are the
// only calls retried here; status checks are retried by the Poller loop.
func (c *jsonClient) submit(ctx context.Context, segments []string, body, out any) error {
	_, err := retry.DoIfRetryableWithResult(ctx, c.retryCfg, func() (struct{}, error) {
		return struct{}{}, c.do(ctx, http.MethodPost, segments, body, out)
	})
	return err
}

// get performs a single GET.
func (c *jsonClient) get(ctx context.Context, segments []string, out any) error {
	return c.do(ctx, http.MethodGet, segments, nil, out)
}

func (c *jsonClient) do(ctx context.Context, method string, segments []string, body, out any) error {
	endpoint, err := buildURL(c.baseURL, segments...)
	if err != nil {
		return NewError(ErrorKindNotConfigured, c.provider, "invalid base URL", err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return NewError(ErrorKindInternal, c.provider, "failed to encode request", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return NewError(ErrorKindInternal, c.provider, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Classify(c.provider, ctx.Err())
		}
		return NewError(ErrorKindUnavailable, c.provider, "request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return NewError(ErrorKindUnavailable, c.provider, "failed to read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := logging.SanitizeProviderDetail(string(respBody))
		c.logger.Warn("Provider returned error status",
			append(llm.ContextFields(ctx),
				zap.String("method", method),
				zap.String("path", path.Join(segments...)),
				zap.Int("status", resp.StatusCode),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("body", detail))...)
		return statusError(c.provider, resp.StatusCode, detail)
	}

	c.logger.Debug("Provider request completed",
		append(llm.ContextFields(ctx),
			zap.String("method", method),
			zap.String("path", path.Join(segments...)),
			zap.Duration("elapsed", time.Since(start)))...)

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return NewError(ErrorKindInternal, c.provider, "failed to parse response", err)
	}
	return nil
}

// statusError maps a non-2xx HTTP status to a provider error.
func statusError(provider ProviderID, status int, detail string) *Error {
	msg := fmt.Sprintf("status %d", status)
	if detail != "" {
		msg += ": " + detail
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewError(ErrorKindAuth, provider, msg, nil)
	case status == http.StatusTooManyRequests || status >= 500:
		return NewError(ErrorKindUnavailable, provider, msg, nil)
	case status == http.StatusNotFound:
		return NewError(ErrorKindNotConfigured, provider, msg, nil)
	default:
		return NewError(ErrorKindRejected, provider, msg, nil)
	}
}

// buildURL joins path segments onto a base URL.
func buildURL(baseURL string, segments ...string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("base URL %q must be absolute", baseURL)
	}

	parts := append([]string{u.Path}, segments...)
	u.Path = path.Join(parts...)
	return u.String(), nil
}
