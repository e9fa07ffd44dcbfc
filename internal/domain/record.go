// Package domain contains core business types and interfaces.
//
// This file defines the inspection record types shared by all four
// inspection kinds and the record lifecycle state machine.
package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// =============================================================================
// Inspection Kind
// =============================================================================

// InspectionKind identifies one of the four inspection types a technician
// can submit for a tower.
type InspectionKind string

const (
	KindCleanliness InspectionKind = "cleanliness"
	KindAntenna     InspectionKind = "antenna"
	KindVoltage     InspectionKind = "voltage"
	KindStructural  InspectionKind = "structural"
)

// Kinds lists every inspection kind in a fixed, deterministic order.
// Aggregation iterates in this order so tie-breaks are stable.
func Kinds() []InspectionKind {
	return []InspectionKind{KindCleanliness, KindAntenna, KindVoltage, KindStructural}
}

// String returns the string representation of the kind.
func (k InspectionKind) String() string {
	return string(k)
}

// IsValid returns true if the kind is a recognized value.
func (k InspectionKind) IsValid() bool {
	switch k {
	case KindCleanliness, KindAntenna, KindVoltage, KindStructural:
		return true
	}
	return false
}

// ParseInspectionKind parses a kind from its string form.
func ParseInspectionKind(s string) (InspectionKind, error) {
	k := InspectionKind(s)
	if !k.IsValid() {
		return "", fmt.Errorf("unknown inspection kind %q", s)
	}
	return k, nil
}

// =============================================================================
// Record Status
// =============================================================================

// RecordStatus represents the lifecycle state of an inspection record.
//
// Every record is created PENDING, claimed to IN_PROGRESS by exactly one
// background processor, and finished in COMPLETED or ERROR. The two final
// states are terminal; re-processing requires a new record.
type RecordStatus string

const (
	// RecordStatusPending indicates the record and its photos are persisted
	// but analysis has not started. Derived fields hold placeholder defaults.
	RecordStatusPending RecordStatus = "PENDING"

	// RecordStatusInProgress indicates a background processor has claimed the
	// record and analysis is running.
	RecordStatusInProgress RecordStatus = "IN_PROGRESS"

	// RecordStatusCompleted indicates analysis finished and derived fields
	// were written in one atomic update.
	RecordStatusCompleted RecordStatus = "COMPLETED"

	// RecordStatusError indicates analysis failed. Derived fields keep their
	// creation-time defaults; ErrorMessage carries the diagnostic if known.
	RecordStatusError RecordStatus = "ERROR"
)

// String returns the string representation of the status.
func (s RecordStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is a recognized value.
func (s RecordStatus) IsValid() bool {
	switch s {
	case RecordStatusPending, RecordStatusInProgress, RecordStatusCompleted, RecordStatusError:
		return true
	}
	return false
}

// IsTerminal returns true for COMPLETED and ERROR.
func (s RecordStatus) IsTerminal() bool {
	return s == RecordStatusCompleted || s == RecordStatusError
}

// CanTransitionTo checks whether the record may move to the target status.
//
// Valid transitions:
// - PENDING -> IN_PROGRESS (background processor claims the record)
// - IN_PROGRESS -> COMPLETED (analysis succeeded)
// - IN_PROGRESS -> ERROR (analysis, parsing, or the final update failed)
//
// Transitions are one-directional; terminal states accept nothing.
func (s RecordStatus) CanTransitionTo(target RecordStatus) bool {
	switch s {
	case RecordStatusPending:
		return target == RecordStatusInProgress
	case RecordStatusInProgress:
		return target == RecordStatusCompleted || target == RecordStatusError
	}
	return false
}

// =============================================================================
// Photos
// =============================================================================

// PhotoRole tags the role a photo plays within its record. Structural
// inspections distinguish rust, bolts and pose shots; the other kinds use
// the generic role.
type PhotoRole string

const (
	PhotoRoleGeneric PhotoRole = "photo"
	PhotoRoleRust    PhotoRole = "rust"
	PhotoRoleBolts   PhotoRole = "bolts"
	PhotoRolePose    PhotoRole = "pose"
)

// Photo is an immutable uploaded photo attached to an inspection record.
// Photos are created in the same transaction as their record, in upload
// order; Position preserves that order.
type Photo struct {
	ID           int64
	RecordID     int64
	URL          string
	ThumbnailURL string
	ObjectKey    string // blob store key, used for cleanup on failed submissions
	Role         PhotoRole
	Position     int
	CreatedAt    time.Time
}

// =============================================================================
// Inspection Record
// =============================================================================

// InspectionRecord is the common shape of all four record kinds. Exactly one
// of the kind-specific result pointers is non-nil, matching Kind.
type InspectionRecord struct {
	ID     int64
	Kind   InspectionKind
	TowerID int64
	UserID int64
	Status RecordStatus

	// ErrorMessage is set only when Status is ERROR.
	ErrorMessage string

	// RawAnalysis holds the unnormalized analysis-service response for
	// audit. Set only on COMPLETED.
	RawAnalysis json.RawMessage

	Photos    []Photo
	CreatedAt time.Time
	UpdatedAt time.Time

	// Joined display fields, populated by queries.
	TowerName      string
	TechnicianName string

	Cleanliness *CleanlinessResult
	Antenna     *AntennaResult
	Voltage     *VoltageResult
	Structural  *StructuralResult
}

// TransitionTo moves the record to the target status, or returns an
// EINVALID error if the transition is not allowed. The status is unchanged
// on error.
func (r *InspectionRecord) TransitionTo(target RecordStatus) error {
	if !r.Status.CanTransitionTo(target) {
		return Errorf(EINVALID, "record.transition",
			"cannot transition record from %s to %s", r.Status, target)
	}
	r.Status = target
	return nil
}

// MainPhotoURL returns the first photo's URL, or "" if the record has no
// photos. The first photo is the record's cover image.
func (r *InspectionRecord) MainPhotoURL() string {
	if len(r.Photos) == 0 {
		return ""
	}
	return r.Photos[0].URL
}

// ResultsValid reports whether the derived fields carry real analysis
// output. Before COMPLETED they hold placeholder defaults and must not be
// presented as results.
func (r *InspectionRecord) ResultsValid() bool {
	return r.Status == RecordStatusCompleted
}
