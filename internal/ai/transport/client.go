package transport

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/hirelytics/internal/ai"
	"github.com/spigell/hirelytics/internal/utils"
)

const (
	contentType     = "application/json"
	contentEncoding = "gzip"
	userAgent       = "spigell/hirelytics"

	defaultTimeout   = 120 * time.Second
	defaultMaxLogLen = 200
)

// Client posts JSON documents to a provider endpoint and decodes the reply.
// Failures are reported with the ai error taxonomy.
type Client struct {
	provider   ai.Provider
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	MaxLogLen  int
}

func New(provider ai.Provider, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		provider: provider,
		logger:   logger,
		HTTPClient: &http.Client{
			Timeout: defaultTimeout,
		},
		UserAgent: userAgent,
		MaxLogLen: defaultMaxLogLen,
	}
}

// PostJSON sends payload to url with bearer auth and decodes a 2xx body into target.
func (c *Client) PostJSON(ctx context.Context, url, token string, payload, target any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", c.provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &ai.TransportError{Provider: c.provider, Err: err}
	}

	req = c.setHeaders(req, token)
	req.Header.Set("Content-Type", contentType)

	data, status, err := c.do(req)
	if err != nil {
		return err
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return &ai.HTTPError{Provider: c.provider, Status: status, Message: errorMessage(data, status)}
	}

	if err := json.Unmarshal(data, target); err != nil {
		return &ai.ParseError{Provider: c.provider, Reason: "response body is not valid json", Err: err}
	}

	return nil
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	start := time.Now()
	c.logger.Debug("make request", zap.String("url", req.URL.String()))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, &ai.TransportError{Provider: c.provider, Err: err}
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, resp.StatusCode, &ai.TransportError{Provider: c.provider, Err: err}
		}
		defer gz.Close()
		reader = gz
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, resp.StatusCode, &ai.TransportError{Provider: c.provider, Err: err}
	}

	c.logger.Debug("got response",
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("response_length", utf8.RuneCount(data)),
		zap.String("response_preview", utils.TruncateForLog(string(data), c.MaxLogLen)),
	)

	return data, resp.StatusCode, nil
}

func (c *Client) setHeaders(req *http.Request, token string) *http.Request {
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", contentType)
	req.Header.Set("Accept-Encoding", contentEncoding)

	return req
}

// errorMessage pulls a human readable message out of a provider error body.
func errorMessage(data []byte, status int) string {
	var body struct {
		Message string `json:"message"`
		Detail  any    `json:"detail"`
		Error   any    `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		switch v := body.Error.(type) {
		case string:
			if v != "" {
				return v
			}
		case map[string]any:
			if msg, ok := v["message"].(string); ok && msg != "" {
				return msg
			}
		}
		if body.Message != "" {
			return body.Message
		}
		if detail, ok := body.Detail.(string); ok && detail != "" {
			return detail
		}
	}

	if text := utils.TruncateForLog(string(data), defaultMaxLogLen); text != "" {
		return text
	}
	return strings.ToLower(http.StatusText(status))
}
