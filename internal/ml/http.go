package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"
)

// Endpoint paths on the analysis service.
const (
	pathCleanliness = "/predict_kebersihan"
	pathAntenna     = "/detect_antenna_and_spatial_data"
	pathVoltage     = "/process_lcd_image_direct_openai"
	pathRust        = "/detect_rust"
	pathBolts       = "/detect_bolts"
	pathPose        = "/predict_pose"
)

// Multipart field names expected per endpoint. The cleanliness and pose
// endpoints take "image"; the rest take "file".
const (
	fieldImage = "image"
	fieldFile  = "file"
)

// DefaultRequestTimeout bounds one analysis call. Detection on large photos
// is slow, so this is generous; the worker's job timeout is the hard stop.
const DefaultRequestTimeout = 2 * time.Minute

// Config contains configuration for the HTTP analyzer.
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
}

// Client implements Analyzer against the analysis service's HTTP API.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewClient creates a new HTTP analyzer client.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("analysis service base URL is required")
	}
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = DefaultRequestTimeout
	}
	return &Client{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

// AnalyzeCleanliness classifies site cleanliness from one or more photos.
func (c *Client) AnalyzeCleanliness(ctx context.Context, images []ImageInput) ([]byte, error) {
	return c.post(ctx, pathCleanliness, fieldImage, images)
}

// AnalyzeAntennas counts antenna equipment and detects spatial data.
func (c *Client) AnalyzeAntennas(ctx context.Context, images []ImageInput) ([]byte, error) {
	return c.post(ctx, pathAntenna, fieldFile, images)
}

// ReadVoltagePanel reads the measured value from an LCD panel photo.
func (c *Client) ReadVoltagePanel(ctx context.Context, image ImageInput) ([]byte, error) {
	return c.post(ctx, pathVoltage, fieldFile, []ImageInput{image})
}

// DetectRust grades the overall rust level from a structure photo.
func (c *Client) DetectRust(ctx context.Context, image ImageInput) ([]byte, error) {
	return c.post(ctx, pathRust, fieldFile, []ImageInput{image})
}

// DetectBolts checks bolt completeness from a close-up photo.
func (c *Client) DetectBolts(ctx context.Context, image ImageInput) ([]byte, error) {
	return c.post(ctx, pathBolts, fieldFile, []ImageInput{image})
}

// DetectPose estimates the tower pose from a full-view photo.
func (c *Client) DetectPose(ctx context.Context, image ImageInput) ([]byte, error) {
	return c.post(ctx, pathPose, fieldImage, []ImageInput{image})
}

// post sends the images as a multipart request and returns the raw JSON
// body. Non-2xx statuses and non-JSON bodies map to the package's sentinel
// errors so callers can decide on retries.
func (c *Client) post(ctx context.Context, path, field string, images []ImageInput) ([]byte, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for i, img := range images {
		name := img.Filename
		if name == "" {
			name = fmt.Sprintf("photo%d.jpg", i)
		}
		part, err := writer.CreateFormFile(field, name)
		if err != nil {
			return nil, fmt.Errorf("create multipart field: %w", err)
		}
		if _, err := part.Write(img.Data); err != nil {
			return nil, fmt.Errorf("write multipart data: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, fmt.Errorf("%w: %s", ErrTimeout, path)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("analysis request completed",
		"path", path,
		"status", resp.StatusCode,
		"images", len(images),
		"duration", time.Since(start),
	)

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: status %d", ErrBadRequest, resp.StatusCode)
	}

	if len(raw) == 0 || !json.Valid(raw) {
		return nil, ErrEmptyResponse
	}
	return raw, nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
