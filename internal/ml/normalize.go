package ml

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/antonholmquist/jason"
	"github.com/fieldsight/menara/internal/domain"
)

// Normalization turns the analysis service's untyped JSON into the fixed
// per-kind result shapes. Every field access goes through a defaulting
// accessor: a missing or mistyped field falls back to its documented
// default and never fails the record. Only a body that is not a JSON
// object/array at all is an error.

// NormalizeCleanliness extracts a cleanliness result.
//
// Defaults: classification "unclean" (lower-cased when present), all counts
// 0, recommendations empty. The sampah count is the sum of the "sampah" and
// "sampah_daun" keys; some service revisions report leaf litter separately.
func NormalizeCleanliness(raw []byte) (*domain.CleanlinessResult, error) {
	root, err := jason.NewObjectFromBytes(raw)
	if err != nil {
		return nil, WrapError("parse cleanliness response", err)
	}

	result := domain.NewCleanlinessResult()
	if classification, err := root.GetString("output", "classification"); err == nil && classification != "" {
		result.Classification = strings.ToLower(classification)
	}

	result.TanamanLiar = intAt(root, "output", "counts", "tanaman_liar")
	result.Lumut = intAt(root, "output", "counts", "lumut")
	result.GenanganAir = intAt(root, "output", "counts", "genangan_air")
	result.NodaDinding = intAt(root, "output", "counts", "noda_dinding")
	result.Retakan = intAt(root, "output", "counts", "retakan")
	result.Sampah = intAt(root, "output", "counts", "sampah") +
		intAt(root, "output", "counts", "sampah_daun")

	if recs, err := root.GetStringArray("output", "recommendations"); err == nil {
		result.Recommendations = recs
	}
	return result, nil
}

// NormalizeAntenna extracts an antenna-equipment result seeded with the
// technician-supplied height and coordinates.
//
// Counts default to 0 and the total is always their sum. The detected
// height may arrive as a number or a quoted numeric string; it overwrites
// the supplied height only when it parses to a valid non-zero number.
// Coordinates are never overwritten.
func NormalizeAntenna(raw []byte, height, latitude, longitude float64) (*domain.AntennaResult, error) {
	root, err := jason.NewObjectFromBytes(raw)
	if err != nil {
		return nil, WrapError("parse antenna response", err)
	}

	result := domain.NewAntennaResult(height, latitude, longitude)
	result.RadioFreqUnits = intAt(root, "antenna_counts", "radio_freq_unit")
	result.RemoteRadioUnits = intAt(root, "antenna_counts", "remote_radio_unit")
	result.Microwave = intAt(root, "antenna_counts", "microwave")
	result.Total = result.RadioFreqUnits + result.RemoteRadioUnits + result.Microwave

	if detected, ok := floatAt(root, "height"); ok && detected != 0 {
		result.Height = detected
	}
	return result, nil
}

// NormalizeVoltage extracts a voltage result for the given category and
// technician reading.
//
// The detected value is processed_data[0].Tegangan; when absent or
// unparseable the detection is treated as failed, which classifies the
// record INVALID and falls back to the technician's reading for the
// profile.
func NormalizeVoltage(raw []byte, category domain.VoltageCategory, input float64) (*domain.VoltageResult, error) {
	root, err := jason.NewObjectFromBytes(raw)
	if err != nil {
		return nil, WrapError("parse voltage response", err)
	}

	result := domain.NewVoltageResult(category, input)
	detected, ok := 0.0, false
	if rows, err := root.GetObjectArray("processed_data"); err == nil && len(rows) > 0 {
		detected, ok = floatAt(rows[0], "Tegangan")
	}
	result.Finalize(detected, ok)
	return result, nil
}

// NormalizeStructural combines the rust, bolts and optional pose detections
// into one structural result. poseRaw may be nil when no pose photo was
// submitted.
func NormalizeStructural(rustRaw, boltsRaw, poseRaw []byte) (*domain.StructuralResult, error) {
	result := domain.NewStructuralResult()

	rust, err := jason.NewObjectFromBytes(rustRaw)
	if err != nil {
		return nil, WrapError("parse rust response", err)
	}
	if level, err := rust.GetString("overall_rust_level"); err == nil {
		result.RustLevel = level
	}

	bolts, err := jason.NewObjectFromBytes(boltsRaw)
	if err != nil {
		return nil, WrapError("parse bolts response", err)
	}
	if status, err := bolts.GetString("bolt_completeness_status"); err == nil {
		result.BoltStatus = status
	}
	result.BoltsDetected = intAt(bolts, "total_bolts_detected")

	if len(poseRaw) > 0 {
		pose, err := poseObject(poseRaw)
		if err != nil {
			return nil, WrapError("parse pose response", err)
		}
		if pose != nil {
			if p, err := pose.GetString("pose_analysis", "pose"); err == nil {
				result.Pose = p
			}
		}
	}
	return result, nil
}

// poseObject unwraps the pose response, which some service revisions return
// as a single object and others as a one-element array.
func poseObject(raw []byte) (*jason.Object, error) {
	value, err := jason.NewValueFromBytes(raw)
	if err != nil {
		return nil, err
	}
	if obj, err := value.Object(); err == nil {
		return obj, nil
	}
	if arr, err := value.Array(); err == nil {
		if len(arr) == 0 {
			return nil, nil
		}
		return arr[0].Object()
	}
	return nil, fmt.Errorf("pose response is neither object nor array")
}

// intAt reads an integer at the given key path, defaulting to 0 when the
// key is absent or not a number.
func intAt(obj *jason.Object, path ...string) int {
	v, err := obj.GetFloat64(path...)
	if err != nil || math.IsNaN(v) {
		return 0
	}
	return int(v)
}

// floatAt reads a number that may arrive as a JSON number or as a quoted
// numeric string. Returns false when absent or unparseable.
func floatAt(obj *jason.Object, path ...string) (float64, bool) {
	if v, err := obj.GetFloat64(path...); err == nil && !math.IsNaN(v) {
		return v, true
	}
	s, err := obj.GetString(path...)
	if err != nil {
		return 0, false
	}
	s = strings.TrimSpace(strings.ReplaceAll(s, `"`, ""))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}
