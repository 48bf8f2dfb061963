package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrRenderTimeout indicates the rendering request exceeded the configured ceiling.
	ErrRenderTimeout = errors.New("gotenberg: timeout")
	// ErrInvalidResponse indicates Gotenberg returned a non-success status code.
	ErrInvalidResponse = errors.New("gotenberg: invalid response")
	// ErrTooSmall indicates the generated PDF was below the minimum expected size.
	ErrTooSmall = errors.New("gotenberg: pdf below minimum size")
)

const (
	defaultMinSize = 1024
	defaultRetries = 2
	defaultTimeout = 30 * time.Second
)

// Page describes the printed page and the readiness condition Chromium waits for.
type Page struct {
	PaperWidth        float64
	PaperHeight       float64
	Landscape         bool
	MarginTop         string
	MarginRight       string
	MarginBottom      string
	MarginLeft        string
	PreferCSSPageSize bool
	PrintBackground   bool
	// WaitForExpression is a JavaScript expression that must become true
	// before the page is printed.
	WaitForExpression string
}

// Options tune the client.
type Options struct {
	// Timeout is the per-attempt ceiling, including the readiness wait.
	Timeout time.Duration
	Retries int
	MinSize int
}

// Client wraps interactions with the Gotenberg API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retries    int
	timeout    time.Duration
	minSize    int
}

// NewClient constructs a new client.
func NewClient(baseURL string, opts Options) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("gotenberg endpoint required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Retries < 0 {
		opts.Retries = defaultRetries
	}
	if opts.MinSize <= 0 {
		opts.MinSize = defaultMinSize
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: opts.Timeout + 5*time.Second,
		},
		retries: opts.Retries,
		timeout: opts.Timeout,
		minSize: opts.MinSize,
	}, nil
}

// Ping checks if the remote Gotenberg service is available.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/health", c.baseURL), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("gotenberg returned status %d", resp.StatusCode)
	}
	return nil
}

// RenderHTML converts a self-contained HTML document into a PDF. Server
// errors, timeouts and undersized output are retried.
func (c *Client) RenderHTML(ctx context.Context, html string, page Page) ([]byte, error) {
	if c == nil || c.httpClient == nil {
		return nil, fmt.Errorf("gotenberg client not initialised")
	}
	payload, contentType, err := c.buildForm(html, page)
	if err != nil {
		return nil, err
	}
	attempts := c.retries + 1
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, retry, err := c.attempt(ctx, payload, contentType)
		if err == nil {
			return data, nil
		}
		if !retry {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("render pdf failed after %d attempts: %w", attempts, lastErr)
}

func (c *Client) attempt(ctx context.Context, payload []byte, contentType string) ([]byte, bool, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.baseURL+"/forms/chromium/convert/html", bytes.NewReader(payload))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, classifyNetError(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	data, readErr := io.ReadAll(resp.Body)
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, true, fmt.Errorf("%w: status %d", ErrInvalidResponse, resp.StatusCode)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, false, fmt.Errorf("%w: status %d", ErrInvalidResponse, resp.StatusCode)
	}
	if readErr != nil {
		return nil, true, classifyNetError(readErr)
	}
	if len(data) < c.minSize {
		return nil, true, ErrTooSmall
	}
	return data, false, nil
}

func (c *Client) buildForm(html string, page Page) ([]byte, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("files", "index.html")
	if err != nil {
		return nil, "", err
	}
	if _, err := io.WriteString(part, html); err != nil {
		return nil, "", err
	}
	fields := map[string]string{
		"landscape":         strconv.FormatBool(page.Landscape),
		"preferCssPageSize": strconv.FormatBool(page.PreferCSSPageSize),
		"printBackground":   strconv.FormatBool(page.PrintBackground),
	}
	if page.PaperWidth > 0 && page.PaperHeight > 0 {
		fields["paperWidth"] = strconv.FormatFloat(page.PaperWidth, 'f', -1, 64)
		fields["paperHeight"] = strconv.FormatFloat(page.PaperHeight, 'f', -1, 64)
	}
	for name, v := range map[string]string{
		"marginTop":         page.MarginTop,
		"marginRight":       page.MarginRight,
		"marginBottom":      page.MarginBottom,
		"marginLeft":        page.MarginLeft,
		"waitForExpression": page.WaitForExpression,
	} {
		if v != "" {
			fields[name] = v
		}
	}
	for name, v := range fields {
		if err := writer.WriteField(name, v); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body.Bytes(), writer.FormDataContentType(), nil
}

func classifyNetError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrRenderTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrRenderTimeout, err)
	}
	return err
}
