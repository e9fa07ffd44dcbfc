package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sqlc-dev/pqtype"
)

// User mirrors the users table.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         string
	Phone        string
	CreatedAt    time.Time
}

// Region mirrors the regions table.
type Region struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// Tower mirrors the towers table.
type Tower struct {
	ID         int64
	Name       string
	RegionID   int64
	Latitude   float64
	Longitude  float64
	Height     float64
	AntennaRf  int32
	AntennaRru int32
	AntennaMw  int32
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TowerWithRegion joins a tower with its region name.
type TowerWithRegion struct {
	Tower
	RegionName string
}

// InspectionRecord mirrors the inspection_records table. All four inspection
// kinds share the table; kind-specific columns are nullable and only
// populated for their kind.
type InspectionRecord struct {
	ID           int64
	Kind         string
	TowerID      int64
	UserID       int64
	Status       string
	ErrorMessage sql.NullString
	RawAnalysis  pqtype.NullRawMessage
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// Cleanliness
	Classification  sql.NullString
	TanamanLiar     sql.NullInt32
	Lumut           sql.NullInt32
	GenanganAir     sql.NullInt32
	NodaDinding     sql.NullInt32
	Retakan         sql.NullInt32
	Sampah          sql.NullInt32
	Recommendations pq.StringArray

	// Antenna equipment
	AntennaRf    sql.NullInt32
	AntennaRru   sql.NullInt32
	AntennaMw    sql.NullInt32
	AntennaTotal sql.NullInt32
	Height       sql.NullFloat64
	Latitude     sql.NullFloat64
	Longitude    sql.NullFloat64

	// Voltage / current
	Category      sql.NullString
	InputValue    sql.NullFloat64
	DetectedValue sql.NullFloat64
	Detected      sql.NullBool
	Validity      sql.NullString
	Profile       sql.NullString
	Unit          sql.NullString

	// Structural condition
	RustLevel     sql.NullString
	BoltStatus    sql.NullString
	BoltsDetected sql.NullInt32
	Pose          sql.NullString
}

// InspectionRecordWithNames joins a record with its technician and tower
// names for display.
type InspectionRecordWithNames struct {
	InspectionRecord
	TechnicianName string
	TowerName      string
}

// Photo mirrors the photos table.
type Photo struct {
	ID           int64
	RecordID     int64
	Url          string
	ThumbnailUrl string
	ObjectKey    string
	Role         string
	Position     int32
	CreatedAt    time.Time
}

// Job mirrors the jobs table used by the background worker.
type Job struct {
	ID           uuid.UUID
	JobType      string
	Payload      json.RawMessage
	Status       string
	Priority     int32
	Attempts     int32
	MaxAttempts  int32
	ScheduledAt  time.Time
	StartedAt    sql.NullTime
	CompletedAt  sql.NullTime
	ErrorMessage sql.NullString
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
