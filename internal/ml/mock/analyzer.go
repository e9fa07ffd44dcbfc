// Package mock provides a configurable Analyzer for testing and local
// development without the real analysis service.
package mock

import (
	"context"
	"log/slog"

	"github.com/fieldsight/menara/internal/ml"
)

// Analyzer is a mock analysis client. Zero value responses fall back to
// canned JSON matching the service's documented shapes.
type Analyzer struct {
	logger *slog.Logger

	// Configurable responses for testing. A nil response means "use the
	// canned default"; a non-nil error wins over any response.
	CleanlinessResponse []byte
	CleanlinessError    error
	AntennaResponse     []byte
	AntennaError        error
	VoltageResponse     []byte
	VoltageError        error
	RustResponse        []byte
	RustError           error
	BoltsResponse       []byte
	BoltsError          error
	PoseResponse        []byte
	PoseError           error

	// Call tracking for testing
	CleanlinessCalls int
	AntennaCalls     int
	VoltageCalls     int
	RustCalls        int
	BoltsCalls       int
	PoseCalls        int
}

// New creates a new mock analyzer.
func New(logger *slog.Logger) *Analyzer {
	return &Analyzer{logger: logger}
}

// AnalyzeCleanliness returns the configured or canned cleanliness response.
func (a *Analyzer) AnalyzeCleanliness(ctx context.Context, images []ml.ImageInput) ([]byte, error) {
	a.CleanlinessCalls++
	if a.CleanlinessError != nil {
		return nil, a.CleanlinessError
	}
	if a.CleanlinessResponse != nil {
		return a.CleanlinessResponse, nil
	}
	return []byte(`{
		"output": {
			"classification": "Unclean",
			"counts": {"tanaman_liar": 2, "lumut": 1, "genangan_air": 0, "noda_dinding": 3, "retakan": 0, "sampah": 1, "sampah_daun": 2},
			"recommendations": ["clear wild plants around the fence", "remove litter near the shelter"]
		}
	}`), nil
}

// AnalyzeAntennas returns the configured or canned antenna response.
func (a *Analyzer) AnalyzeAntennas(ctx context.Context, images []ml.ImageInput) ([]byte, error) {
	a.AntennaCalls++
	if a.AntennaError != nil {
		return nil, a.AntennaError
	}
	if a.AntennaResponse != nil {
		return a.AntennaResponse, nil
	}
	return []byte(`{
		"antenna_counts": {"radio_freq_unit": 3, "remote_radio_unit": 6, "microwave": 2},
		"height": "42.0"
	}`), nil
}

// ReadVoltagePanel returns the configured or canned voltage response.
func (a *Analyzer) ReadVoltagePanel(ctx context.Context, image ml.ImageInput) ([]byte, error) {
	a.VoltageCalls++
	if a.VoltageError != nil {
		return nil, a.VoltageError
	}
	if a.VoltageResponse != nil {
		return a.VoltageResponse, nil
	}
	return []byte(`{"processed_data": [{"Tegangan": 221.4}]}`), nil
}

// DetectRust returns the configured or canned rust response.
func (a *Analyzer) DetectRust(ctx context.Context, image ml.ImageInput) ([]byte, error) {
	a.RustCalls++
	if a.RustError != nil {
		return nil, a.RustError
	}
	if a.RustResponse != nil {
		return a.RustResponse, nil
	}
	return []byte(`{"overall_rust_level": "MEDIUM"}`), nil
}

// DetectBolts returns the configured or canned bolts response.
func (a *Analyzer) DetectBolts(ctx context.Context, image ml.ImageInput) ([]byte, error) {
	a.BoltsCalls++
	if a.BoltsError != nil {
		return nil, a.BoltsError
	}
	if a.BoltsResponse != nil {
		return a.BoltsResponse, nil
	}
	return []byte(`{"bolt_completeness_status": "COMPLETE", "total_bolts_detected": 24}`), nil
}

// DetectPose returns the configured or canned pose response.
func (a *Analyzer) DetectPose(ctx context.Context, image ml.ImageInput) ([]byte, error) {
	a.PoseCalls++
	if a.PoseError != nil {
		return nil, a.PoseError
	}
	if a.PoseResponse != nil {
		return a.PoseResponse, nil
	}
	return []byte(`[{"pose_analysis": {"pose": "upright"}}]`), nil
}

// Reset clears call counters and configured responses.
func (a *Analyzer) Reset() {
	*a = Analyzer{logger: a.logger}
}
