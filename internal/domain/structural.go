package domain

// StructuralResult holds the derived fields of a structural-condition
// record. Rust and bolt fields come from two separate detections over the
// rust and bolts photos; Pose is filled only when a pose photo was
// submitted.
type StructuralResult struct {
	RustLevel     string // overall rust level enum as reported by analysis
	BoltStatus    string // bolt completeness status enum as reported
	BoltsDetected int
	Pose          string
}

// NewStructuralResult returns the placeholder result a record carries until
// analysis completes.
func NewStructuralResult() *StructuralResult {
	return &StructuralResult{}
}
