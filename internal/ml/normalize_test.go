package ml

import (
	"testing"

	"github.com/fieldsight/menara/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCleanliness(t *testing.T) {
	t.Run("full response", func(t *testing.T) {
		raw := []byte(`{
			"output": {
				"classification": "CLEAN",
				"counts": {"tanaman_liar": 1, "lumut": 2, "genangan_air": 3, "noda_dinding": 4, "retakan": 5, "sampah": 2, "sampah_daun": 3},
				"recommendations": ["trim vegetation"]
			}
		}`)

		result, err := NormalizeCleanliness(raw)
		require.NoError(t, err)

		assert.Equal(t, "clean", result.Classification)
		assert.Equal(t, 1, result.TanamanLiar)
		assert.Equal(t, 2, result.Lumut)
		assert.Equal(t, 3, result.GenanganAir)
		assert.Equal(t, 4, result.NodaDinding)
		assert.Equal(t, 5, result.Retakan)
		// sampah and sampah_daun are summed, not alternatives.
		assert.Equal(t, 5, result.Sampah)
		assert.Equal(t, []string{"trim vegetation"}, result.Recommendations)
	})

	t.Run("empty object falls back to defaults", func(t *testing.T) {
		result, err := NormalizeCleanliness([]byte(`{}`))
		require.NoError(t, err)

		assert.Equal(t, domain.DefaultCleanlinessClassification, result.Classification)
		assert.Equal(t, 0, result.Sampah)
		assert.Empty(t, result.Recommendations)
	})

	t.Run("mistyped counts default to zero", func(t *testing.T) {
		raw := []byte(`{"output": {"classification": 7, "counts": {"lumut": "many", "sampah": 2}}}`)

		result, err := NormalizeCleanliness(raw)
		require.NoError(t, err)

		assert.Equal(t, domain.DefaultCleanlinessClassification, result.Classification)
		assert.Equal(t, 0, result.Lumut)
		assert.Equal(t, 2, result.Sampah)
	})

	t.Run("idempotent over the same payload", func(t *testing.T) {
		raw := []byte(`{"output": {"classification": "Unclean", "counts": {"sampah": 1, "sampah_daun": 1}}}`)

		first, err := NormalizeCleanliness(raw)
		require.NoError(t, err)
		second, err := NormalizeCleanliness(raw)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("non-object body is an error", func(t *testing.T) {
		_, err := NormalizeCleanliness([]byte(`not json`))
		assert.Error(t, err)
	})
}

func TestNormalizeAntenna(t *testing.T) {
	t.Run("counts and detected height", func(t *testing.T) {
		raw := []byte(`{"antenna_counts": {"radio_freq_unit": 3, "remote_radio_unit": 6, "microwave": 2}, "height": 45.5}`)

		result, err := NormalizeAntenna(raw, 40, -6.2, 106.8)
		require.NoError(t, err)

		assert.Equal(t, 3, result.RadioFreqUnits)
		assert.Equal(t, 6, result.RemoteRadioUnits)
		assert.Equal(t, 2, result.Microwave)
		assert.Equal(t, 11, result.Total)
		assert.Equal(t, 45.5, result.Height)
		assert.Equal(t, -6.2, result.Latitude)
		assert.Equal(t, 106.8, result.Longitude)
	})

	t.Run("quoted string height", func(t *testing.T) {
		raw := []byte(`{"height": "\"32.5\""}`)

		result, err := NormalizeAntenna(raw, 40, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, 32.5, result.Height)
	})

	t.Run("zero detected height keeps supplied value", func(t *testing.T) {
		raw := []byte(`{"height": "0"}`)

		result, err := NormalizeAntenna(raw, 12.5, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, 12.5, result.Height)
	})

	t.Run("unparseable height keeps supplied value", func(t *testing.T) {
		raw := []byte(`{"height": "unknown"}`)

		result, err := NormalizeAntenna(raw, 12.5, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, 12.5, result.Height)
	})

	t.Run("missing counts default to zero", func(t *testing.T) {
		result, err := NormalizeAntenna([]byte(`{}`), 40, 0, 0)
		require.NoError(t, err)

		assert.Equal(t, 0, result.Total)
		assert.Equal(t, 40.0, result.Height)
	})
}

func TestNormalizeVoltage(t *testing.T) {
	t.Run("detected value drives validity and profile", func(t *testing.T) {
		raw := []byte(`{"processed_data": [{"Tegangan": 210}]}`)

		result, err := NormalizeVoltage(raw, domain.CategoryRN, 212)
		require.NoError(t, err)

		assert.True(t, result.Detected)
		assert.Equal(t, 210.0, result.DetectedValue)
		assert.Equal(t, domain.ValidityValid, result.Validity)
		assert.Equal(t, domain.ProfileNormal, result.Profile)
		assert.Equal(t, "V", result.Unit)
	})

	t.Run("string NaN means detection failed", func(t *testing.T) {
		raw := []byte(`{"processed_data": [{"Tegangan": "NaN"}]}`)

		result, err := NormalizeVoltage(raw, domain.CategoryN, 35)
		require.NoError(t, err)

		assert.False(t, result.Detected)
		assert.Equal(t, 0.0, result.DetectedValue)
		assert.Equal(t, domain.ValidityInvalid, result.Validity)
		// Profile falls back to the technician's reading.
		assert.Equal(t, domain.ProfileNormal, result.Profile)
		assert.Equal(t, "A", result.Unit)
	})

	t.Run("missing processed_data means detection failed", func(t *testing.T) {
		result, err := NormalizeVoltage([]byte(`{}`), domain.CategoryGN, 0.4)
		require.NoError(t, err)

		assert.False(t, result.Detected)
		assert.Equal(t, domain.ValidityInvalid, result.Validity)
		assert.Equal(t, domain.ProfileNormal, result.Profile)
	})

	t.Run("quoted numeric string is accepted", func(t *testing.T) {
		raw := []byte(`{"processed_data": [{"Tegangan": "398"}]}`)

		result, err := NormalizeVoltage(raw, domain.CategoryRT, 400)
		require.NoError(t, err)

		assert.True(t, result.Detected)
		assert.Equal(t, 398.0, result.DetectedValue)
		assert.Equal(t, domain.ValidityValid, result.Validity)
	})
}

func TestNormalizeStructural(t *testing.T) {
	rustRaw := []byte(`{"overall_rust_level": "HIGH"}`)
	boltsRaw := []byte(`{"bolt_completeness_status": "INCOMPLETE", "total_bolts_detected": 18}`)

	t.Run("pose as object", func(t *testing.T) {
		poseRaw := []byte(`{"pose_analysis": {"pose": "tilted"}}`)

		result, err := NormalizeStructural(rustRaw, boltsRaw, poseRaw)
		require.NoError(t, err)

		assert.Equal(t, "HIGH", result.RustLevel)
		assert.Equal(t, "INCOMPLETE", result.BoltStatus)
		assert.Equal(t, 18, result.BoltsDetected)
		assert.Equal(t, "tilted", result.Pose)
	})

	t.Run("pose as one-element array", func(t *testing.T) {
		poseRaw := []byte(`[{"pose_analysis": {"pose": "upright"}}]`)

		result, err := NormalizeStructural(rustRaw, boltsRaw, poseRaw)
		require.NoError(t, err)
		assert.Equal(t, "upright", result.Pose)
	})

	t.Run("no pose photo", func(t *testing.T) {
		result, err := NormalizeStructural(rustRaw, boltsRaw, nil)
		require.NoError(t, err)
		assert.Equal(t, "", result.Pose)
	})

	t.Run("missing bolt fields default", func(t *testing.T) {
		result, err := NormalizeStructural([]byte(`{}`), []byte(`{}`), nil)
		require.NoError(t, err)

		assert.Equal(t, "", result.RustLevel)
		assert.Equal(t, "", result.BoltStatus)
		assert.Equal(t, 0, result.BoltsDetected)
	})
}
