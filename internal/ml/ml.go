// Package ml defines the client interface to the external image-analysis
// service and the normalization of its untyped JSON responses.
package ml

import (
	"context"
	"errors"
	"fmt"
)

// Analyzer defines the interface to the analysis service, one operation per
// detection endpoint. Every operation returns the raw JSON response body;
// callers normalize it with the functions in normalize.go. The response
// shape is untrusted and revision-dependent, so nothing here parses beyond
// "is valid JSON".
type Analyzer interface {
	// AnalyzeCleanliness classifies site cleanliness from one or more photos.
	AnalyzeCleanliness(ctx context.Context, images []ImageInput) ([]byte, error)

	// AnalyzeAntennas counts antenna equipment and detects spatial data.
	AnalyzeAntennas(ctx context.Context, images []ImageInput) ([]byte, error)

	// ReadVoltagePanel reads the measured value from an LCD panel photo.
	ReadVoltagePanel(ctx context.Context, image ImageInput) ([]byte, error)

	// DetectRust grades the overall rust level from a structure photo.
	DetectRust(ctx context.Context, image ImageInput) ([]byte, error)

	// DetectBolts checks bolt completeness from a close-up photo.
	DetectBolts(ctx context.Context, image ImageInput) ([]byte, error)

	// DetectPose estimates the tower pose from a full-view photo.
	DetectPose(ctx context.Context, image ImageInput) ([]byte, error)
}

// ImageInput is one photo sent to an analysis endpoint.
type ImageInput struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Sentinel errors for analysis operations.
var (
	// ErrUnavailable indicates the analysis service could not be reached or
	// answered with a server error.
	ErrUnavailable = errors.New("analysis service unavailable")

	// ErrTimeout indicates the analysis request timed out.
	ErrTimeout = errors.New("analysis request timed out")

	// ErrBadRequest indicates the analysis service rejected the request.
	ErrBadRequest = errors.New("analysis service rejected request")

	// ErrEmptyResponse indicates the service answered with an empty or
	// non-JSON body.
	ErrEmptyResponse = errors.New("analysis service returned empty response")
)

// IsRetryable returns true for transient failures worth retrying.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrTimeout)
}

// WrapError wraps an error with the analysis operation that failed.
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("analysis %s: %w", operation, err)
}
