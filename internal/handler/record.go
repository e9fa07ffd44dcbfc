// This file defines the JSON response shapes for inspection records.
package handler

import (
	"encoding/json"
	"time"

	"github.com/fieldsight/menara/internal/domain"
)

// PhotoResponse is the JSON shape of one photo.
type PhotoResponse struct {
	ID           int64  `json:"id"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Role         string `json:"role"`
	Position     int    `json:"position"`
}

// CleanlinessResponse is the JSON shape of a cleanliness result.
type CleanlinessResponse struct {
	Classification  string   `json:"classification"`
	TanamanLiar     int      `json:"tanaman_liar"`
	Lumut           int      `json:"lumut"`
	GenanganAir     int      `json:"genangan_air"`
	NodaDinding     int      `json:"noda_dinding"`
	Retakan         int      `json:"retakan"`
	Sampah          int      `json:"sampah"`
	Recommendations []string `json:"recommendations"`
}

// AntennaResponse is the JSON shape of an antenna-equipment result.
type AntennaResponse struct {
	RadioFreqUnits   int     `json:"radio_freq_units"`
	RemoteRadioUnits int     `json:"remote_radio_units"`
	Microwave        int     `json:"microwave"`
	Total            int     `json:"total"`
	Height           float64 `json:"height"`
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
}

// VoltageResponse is the JSON shape of a voltage/current result.
type VoltageResponse struct {
	Category      string   `json:"category"`
	InputValue    float64  `json:"input_value"`
	DetectedValue *float64 `json:"detected_value"`
	Validity      string   `json:"validity"`
	Profile       string   `json:"profile"`
	Unit          string   `json:"unit"`
}

// StructuralResponse is the JSON shape of a structural-condition result.
type StructuralResponse struct {
	RustLevel     string `json:"rust_level"`
	BoltStatus    string `json:"bolt_status"`
	BoltsDetected int    `json:"bolts_detected"`
	Pose          string `json:"pose,omitempty"`
}

// RecordResponse is the JSON shape of an inspection record. Exactly one of
// the result fields is set, matching Kind, and only once the record is
// COMPLETED; before that clients must not treat derived fields as results.
type RecordResponse struct {
	ID             int64     `json:"id"`
	Kind           string    `json:"kind"`
	TowerID        int64     `json:"tower_id"`
	TowerName      string    `json:"tower_name,omitempty"`
	TechnicianName string    `json:"technician_name,omitempty"`
	Status         string    `json:"status"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Photos []PhotoResponse `json:"photos"`

	// MainPhotoURL is the record's cover image: the first photo's URL, or
	// null when the record has no photos.
	MainPhotoURL *string `json:"main_photo_url"`

	Cleanliness *CleanlinessResponse `json:"cleanliness,omitempty"`
	Antenna     *AntennaResponse     `json:"antenna,omitempty"`
	Voltage     *VoltageResponse     `json:"voltage,omitempty"`
	Structural  *StructuralResponse  `json:"structural,omitempty"`

	RawAnalysis json.RawMessage `json:"raw_analysis,omitempty"`
}

// toRecordResponse converts a domain record. Derived results are included
// only for COMPLETED records; pending, in-progress and failed records expose
// status and photos but no analysis output.
func toRecordResponse(r *domain.InspectionRecord, includeRaw bool) RecordResponse {
	resp := RecordResponse{
		ID:             r.ID,
		Kind:           r.Kind.String(),
		TowerID:        r.TowerID,
		TowerName:      r.TowerName,
		TechnicianName: r.TechnicianName,
		Status:         r.Status.String(),
		ErrorMessage:   r.ErrorMessage,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
		Photos:         toPhotoResponses(r.Photos),
	}
	if url := r.MainPhotoURL(); url != "" {
		resp.MainPhotoURL = &url
	}

	if !r.ResultsValid() {
		return resp
	}

	if includeRaw {
		resp.RawAnalysis = r.RawAnalysis
	}

	switch {
	case r.Cleanliness != nil:
		recs := r.Cleanliness.Recommendations
		if recs == nil {
			recs = []string{}
		}
		resp.Cleanliness = &CleanlinessResponse{
			Classification:  r.Cleanliness.Classification,
			TanamanLiar:     r.Cleanliness.TanamanLiar,
			Lumut:           r.Cleanliness.Lumut,
			GenanganAir:     r.Cleanliness.GenanganAir,
			NodaDinding:     r.Cleanliness.NodaDinding,
			Retakan:         r.Cleanliness.Retakan,
			Sampah:          r.Cleanliness.Sampah,
			Recommendations: recs,
		}
	case r.Antenna != nil:
		resp.Antenna = &AntennaResponse{
			RadioFreqUnits:   r.Antenna.RadioFreqUnits,
			RemoteRadioUnits: r.Antenna.RemoteRadioUnits,
			Microwave:        r.Antenna.Microwave,
			Total:            r.Antenna.Total,
			Height:           r.Antenna.Height,
			Latitude:         r.Antenna.Latitude,
			Longitude:        r.Antenna.Longitude,
		}
	case r.Voltage != nil:
		v := &VoltageResponse{
			Category:   string(r.Voltage.Category),
			InputValue: r.Voltage.InputValue,
			Validity:   string(r.Voltage.Validity),
			Profile:    string(r.Voltage.Profile),
			Unit:       r.Voltage.Unit,
		}
		if r.Voltage.Detected {
			detected := r.Voltage.DetectedValue
			v.DetectedValue = &detected
		}
		resp.Voltage = v
	case r.Structural != nil:
		resp.Structural = &StructuralResponse{
			RustLevel:     r.Structural.RustLevel,
			BoltStatus:    r.Structural.BoltStatus,
			BoltsDetected: r.Structural.BoltsDetected,
			Pose:          r.Structural.Pose,
		}
	}

	return resp
}

func toPhotoResponses(photos []domain.Photo) []PhotoResponse {
	out := make([]PhotoResponse, len(photos))
	for i, p := range photos {
		out[i] = PhotoResponse{
			ID:           p.ID,
			URL:          p.URL,
			ThumbnailURL: p.ThumbnailURL,
			Role:         string(p.Role),
			Position:     p.Position,
		}
	}
	return out
}

func toRecordResponses(records []*domain.InspectionRecord) []RecordResponse {
	out := make([]RecordResponse, len(records))
	for i, r := range records {
		out[i] = toRecordResponse(r, false)
	}
	return out
}
