// Package gemini is a thin REST client for the generativelanguage API,
// covering the three calls an extraction needs: upload a document, generate
// text against it, delete it.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/proposal-extractor/constants"
	"github.com/joseph-ayodele/proposal-extractor/internal/common"
	"github.com/joseph-ayodele/proposal-extractor/internal/retry"
)

// Config for the Gemini client.
type Config struct {
	APIKey            string        // if empty, falls back to env GEMINI_API_KEY
	BaseURL           string        // default https://generativelanguage.googleapis.com
	Model             string        // e.g. "gemini-2.0-flash"
	Timeout           time.Duration // per-request http timeout
	RequestsPerSecond float64       // client-side pacing; <= 0 disables
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    limiter,
		log:        logger,
	}
}

// Upload sends one document to the files endpoint and returns its handle.
// Rate-limit and server-side failures come back marked retryable; an
// unreadable local file never does.
func (c *Client) Upload(ctx context.Context, path string) (FileHandle, error) {
	rid := uuid.New().String()
	start := time.Now()

	data, err := os.ReadFile(path)
	if err != nil {
		return FileHandle{}, common.NewAppError("UPLOAD_ERROR", "read document", err)
	}

	c.log.Info("gemini.upload.start",
		"req_id", rid,
		"run_id", common.RunIDFromContext(ctx),
		"path", path,
		"bytes", len(data),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.cfg.BaseURL, "/")+"/upload/v1beta/files", bytes.NewReader(data))
	if err != nil {
		return FileHandle{}, err
	}
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)
	req.Header.Set("X-Goog-Upload-Protocol", "raw")
	req.Header.Set("Content-Type", mimeTypeFor(path))

	raw, err := c.do(req, "gemini upload", rid)
	if err != nil {
		c.log.Error("gemini.upload.error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return FileHandle{}, err
	}

	var ur uploadResponse
	if err := json.Unmarshal(raw, &ur); err != nil {
		return FileHandle{}, fmt.Errorf("decode upload response: %w", err)
	}
	if ur.File.URI == "" {
		return FileHandle{}, fmt.Errorf("upload response missing file uri")
	}
	if ur.File.MIMEType == "" {
		ur.File.MIMEType = mimeTypeFor(path)
	}

	c.log.Info("gemini.upload.ok",
		"req_id", rid,
		"file", ur.File.Name,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return ur.File, nil
}

// Generate asks the model to answer prompt against an uploaded document and
// returns the first candidate's text.
func (c *Client) Generate(ctx context.Context, file FileHandle, prompt string) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("gemini.generate.start",
		"req_id", rid,
		"run_id", common.RunIDFromContext(ctx),
		"model", c.cfg.Model,
		"file", file.Name,
		"prompt_len", len(prompt),
	)

	body := GenerateContentRequest{
		Contents: []Content{{
			Role: "user",
			Parts: []Part{
				{FileData: &FileData{MIMEType: file.MIMEType, FileURI: file.URI}},
				{Text: prompt},
			},
		}},
	}
	b, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent",
		strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	raw, err := c.do(req, "gemini generate", rid)
	if err != nil {
		c.log.Error("gemini.generate.error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", err
	}

	var gr GenerateContentResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	text := gr.Text()
	if text == "" {
		return "", fmt.Errorf("no candidate text in generate response")
	}

	c.log.Info("gemini.generate.ok",
		"req_id", rid,
		"chars", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

// DeleteFile removes an uploaded document. Callers treat failures as
// non-fatal; the service expires files on its own after 48 hours.
func (c *Client) DeleteFile(ctx context.Context, file FileHandle) error {
	if file.Name == "" {
		return nil
	}
	rid := uuid.New().String()

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/v1beta/" + file.Name
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	if _, err := c.do(req, "gemini delete", rid); err != nil {
		return err
	}
	c.log.Info("gemini.delete.ok", "req_id", rid, "file", file.Name)
	return nil
}

// do paces, sends, and reads one request, classifying failures for the retry
// policy: timeouts, 429 and 5xx are transient, other non-2xx statuses are not.
func (c *Client) do(req *http.Request, op, rid string) ([]byte, error) {
	ctx := req.Context()
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, retry.Transient(fmt.Errorf("%s: %w", op, err))
	}
	defer func(body io.ReadCloser) {
		if cerr := body.Close(); cerr != nil {
			c.log.Warn("gemini.body_close_error", "req_id", rid, "error", cerr)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("%s status %d: %s", op, resp.StatusCode, strings.TrimSpace(string(raw)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, retry.Transient(err)
		}
		return nil, err
	}
	return raw, nil
}

func mimeTypeFor(path string) string {
	ext := constants.NormalizeExt(filepath.Ext(path))
	if mt := mime.TypeByExtension("." + ext); mt != "" {
		return mt
	}
	switch ext {
	case "pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
