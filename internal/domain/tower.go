package domain

import "time"

// Region groups towers geographically. Regions are created by admin action
// and immutable afterward.
type Region struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// Tower is a telecommunication tower site. The antenna counters are
// overwritten by each completed antenna-equipment inspection.
type Tower struct {
	ID        int64
	Name      string
	RegionID  int64
	Latitude  float64
	Longitude float64
	Height    float64 // meters

	// Equipment counters by antenna type.
	AntennaRF  int // radio frequency units
	AntennaRRU int // remote radio units
	AntennaMW  int // microwave units

	CreatedAt time.Time
	UpdatedAt time.Time

	// Joined display field, populated by queries.
	RegionName string
}

// =============================================================================
// Composite Inspection Status
// =============================================================================

// TowerStatus is the composite inspection status derived from the latest
// completed record of each inspection kind.
type TowerStatus string

const (
	TowerStatusPending    TowerStatus = "pending"
	TowerStatusInProgress TowerStatus = "in_progress"
	TowerStatusCompleted  TowerStatus = "completed"
)

// TowerInspectionSummary is the derived view of a tower's inspection
// progress across the four kinds.
type TowerInspectionSummary struct {
	CompletedCount      int
	Status              TowerStatus
	FirstInspectionDate *time.Time
	LastInspectionDate  *time.Time
	TechnicianName      string
}

// DeriveTowerInspection folds the latest completed record per kind into a
// composite summary. Absent kinds (no completed record, or the lookup
// failed) are passed as nil entries.
//
// The fold iterates kinds in the fixed Kinds() order, so when two records
// share the newest timestamp the technician of the earlier-ordered kind
// wins deterministically.
func DeriveTowerInspection(latest map[InspectionKind]*InspectionRecord) TowerInspectionSummary {
	var summary TowerInspectionSummary
	var newest *InspectionRecord

	for _, kind := range Kinds() {
		rec := latest[kind]
		if rec == nil {
			continue
		}
		summary.CompletedCount++

		created := rec.CreatedAt
		if summary.FirstInspectionDate == nil || created.Before(*summary.FirstInspectionDate) {
			t := created
			summary.FirstInspectionDate = &t
		}
		if summary.LastInspectionDate == nil || created.After(*summary.LastInspectionDate) {
			t := created
			summary.LastInspectionDate = &t
		}
		if newest == nil || created.After(newest.CreatedAt) {
			newest = rec
		}
	}

	switch summary.CompletedCount {
	case 0:
		summary.Status = TowerStatusPending
	case len(Kinds()):
		summary.Status = TowerStatusCompleted
	default:
		summary.Status = TowerStatusInProgress
	}
	if newest != nil {
		summary.TechnicianName = newest.TechnicianName
	}
	return summary
}

// TowerDetail is a tower joined with its derived inspection summary and the
// latest completed record of each kind.
type TowerDetail struct {
	Tower   Tower
	Summary TowerInspectionSummary
	Latest  map[InspectionKind]*InspectionRecord
}
