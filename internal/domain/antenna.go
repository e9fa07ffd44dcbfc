package domain

// AntennaResult holds the derived fields of an antenna-equipment record.
//
// Latitude and Longitude are always the technician-supplied coordinates.
// Height starts as the technician-supplied value in meters; a detected
// height from analysis overwrites it only when it parses to a valid
// non-zero number.
type AntennaResult struct {
	RadioFreqUnits   int
	RemoteRadioUnits int
	Microwave        int
	Total            int
	Height           float64
	Latitude         float64
	Longitude        float64
}

// NewAntennaResult returns the placeholder result seeded with the
// technician-supplied position data.
func NewAntennaResult(height, latitude, longitude float64) *AntennaResult {
	return &AntennaResult{
		Height:    height,
		Latitude:  latitude,
		Longitude: longitude,
	}
}
