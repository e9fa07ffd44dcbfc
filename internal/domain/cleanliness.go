package domain

// CleanlinessResult holds the derived fields of a site-cleanliness record.
// Count field names follow the analysis service's finding taxonomy:
// tanaman_liar (wild plants), lumut (moss), genangan_air (standing water),
// noda_dinding (wall stains), retakan (cracks), sampah (litter).
type CleanlinessResult struct {
	Classification  string // "clean" | "unclean" as reported, lower-cased
	TanamanLiar     int
	Lumut           int
	GenanganAir     int
	NodaDinding     int
	Retakan         int
	Sampah          int
	Recommendations []string
}

// DefaultCleanlinessClassification is stored until analysis completes and
// whenever the analysis response omits a classification.
const DefaultCleanlinessClassification = "unclean"

// NewCleanlinessResult returns the placeholder result a record carries
// between creation and a successful COMPLETED transition.
func NewCleanlinessResult() *CleanlinessResult {
	return &CleanlinessResult{Classification: DefaultCleanlinessClassification}
}
