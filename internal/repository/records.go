package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/sqlc-dev/pqtype"
)

const recordColumns = `ir.id, ir.kind, ir.tower_id, ir.user_id, ir.status, ir.error_message,
ir.raw_analysis, ir.created_at, ir.updated_at,
ir.classification, ir.tanaman_liar, ir.lumut, ir.genangan_air, ir.noda_dinding, ir.retakan,
ir.sampah, ir.recommendations,
ir.antenna_rf, ir.antenna_rru, ir.antenna_mw, ir.antenna_total, ir.height, ir.latitude, ir.longitude,
ir.category, ir.input_value, ir.detected_value, ir.detected, ir.validity, ir.profile, ir.unit,
ir.rust_level, ir.bolt_status, ir.bolts_detected, ir.pose`

type recordScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row recordScanner, r *InspectionRecord, extra ...interface{}) error {
	dest := []interface{}{
		&r.ID, &r.Kind, &r.TowerID, &r.UserID, &r.Status, &r.ErrorMessage,
		&r.RawAnalysis, &r.CreatedAt, &r.UpdatedAt,
		&r.Classification, &r.TanamanLiar, &r.Lumut, &r.GenanganAir, &r.NodaDinding, &r.Retakan,
		&r.Sampah, &r.Recommendations,
		&r.AntennaRf, &r.AntennaRru, &r.AntennaMw, &r.AntennaTotal, &r.Height, &r.Latitude, &r.Longitude,
		&r.Category, &r.InputValue, &r.DetectedValue, &r.Detected, &r.Validity, &r.Profile, &r.Unit,
		&r.RustLevel, &r.BoltStatus, &r.BoltsDetected, &r.Pose,
	}
	dest = append(dest, extra...)
	return row.Scan(dest...)
}

// =============================================================================
// Creation
// =============================================================================

const createRecord = `
INSERT INTO inspection_records
	(kind, tower_id, user_id, status, height, latitude, longitude, category, input_value, unit)
VALUES ($1, $2, $3, 'PENDING', $4, $5, $6, $7, $8, $9)
RETURNING ` + selfRecordColumns

// selfRecordColumns is recordColumns without the table alias, for RETURNING.
const selfRecordColumns = `id, kind, tower_id, user_id, status, error_message,
raw_analysis, created_at, updated_at,
classification, tanaman_liar, lumut, genangan_air, noda_dinding, retakan,
sampah, recommendations,
antenna_rf, antenna_rru, antenna_mw, antenna_total, height, latitude, longitude,
category, input_value, detected_value, detected, validity, profile, unit,
rust_level, bolt_status, bolts_detected, pose`

// CreateRecordParams holds the columns for a new placeholder record. Only
// technician-supplied values are set; derived columns stay NULL until a
// successful COMPLETED transition.
type CreateRecordParams struct {
	Kind    string
	TowerID int64
	UserID  int64

	// Antenna equipment
	Height    sql.NullFloat64
	Latitude  sql.NullFloat64
	Longitude sql.NullFloat64

	// Voltage / current
	Category   sql.NullString
	InputValue sql.NullFloat64
	Unit       sql.NullString
}

// CreateRecord inserts a PENDING record and returns the stored row.
func (q *Queries) CreateRecord(ctx context.Context, arg CreateRecordParams) (InspectionRecord, error) {
	row := q.db.QueryRowContext(ctx, createRecord,
		arg.Kind, arg.TowerID, arg.UserID,
		arg.Height, arg.Latitude, arg.Longitude,
		arg.Category, arg.InputValue, arg.Unit)
	var r InspectionRecord
	err := scanRecord(row, &r)
	return r, err
}

const createPhoto = `
INSERT INTO photos (record_id, url, thumbnail_url, object_key, role, position)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, record_id, url, thumbnail_url, object_key, role, position, created_at
`

// CreatePhotoParams holds the columns for a new photo row.
type CreatePhotoParams struct {
	RecordID     int64
	Url          string
	ThumbnailUrl string
	ObjectKey    string
	Role         string
	Position     int32
}

// CreatePhoto inserts a photo row and returns it.
func (q *Queries) CreatePhoto(ctx context.Context, arg CreatePhotoParams) (Photo, error) {
	row := q.db.QueryRowContext(ctx, createPhoto,
		arg.RecordID, arg.Url, arg.ThumbnailUrl, arg.ObjectKey, arg.Role, arg.Position)
	var p Photo
	err := row.Scan(&p.ID, &p.RecordID, &p.Url, &p.ThumbnailUrl, &p.ObjectKey, &p.Role, &p.Position, &p.CreatedAt)
	return p, err
}

// =============================================================================
// Reads
// =============================================================================

const getRecordByID = `
SELECT ` + recordColumns + `, u.name AS technician_name, t.name AS tower_name
FROM inspection_records ir
JOIN users u ON u.id = ir.user_id
JOIN towers t ON t.id = ir.tower_id
WHERE ir.id = $1
`

// GetRecordByID fetches a record with display names. Returns sql.ErrNoRows
// if absent.
func (q *Queries) GetRecordByID(ctx context.Context, id int64) (InspectionRecordWithNames, error) {
	row := q.db.QueryRowContext(ctx, getRecordByID, id)
	var r InspectionRecordWithNames
	err := scanRecord(row, &r.InspectionRecord, &r.TechnicianName, &r.TowerName)
	return r, err
}

const listPhotosByRecordID = `
SELECT id, record_id, url, thumbnail_url, object_key, role, position, created_at
FROM photos
WHERE record_id = $1
ORDER BY position
`

// ListPhotosByRecordID returns a record's photos in upload order.
func (q *Queries) ListPhotosByRecordID(ctx context.Context, recordID int64) ([]Photo, error) {
	rows, err := q.db.QueryContext(ctx, listPhotosByRecordID, recordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var photos []Photo
	for rows.Next() {
		var p Photo
		if err := rows.Scan(&p.ID, &p.RecordID, &p.Url, &p.ThumbnailUrl, &p.ObjectKey, &p.Role, &p.Position, &p.CreatedAt); err != nil {
			return nil, err
		}
		photos = append(photos, p)
	}
	return photos, rows.Err()
}

const listRecordsByTowerAndKind = `
SELECT ` + recordColumns + `, u.name AS technician_name, t.name AS tower_name
FROM inspection_records ir
JOIN users u ON u.id = ir.user_id
JOIN towers t ON t.id = ir.tower_id
WHERE ir.tower_id = $1 AND ir.kind = $2
ORDER BY ir.created_at DESC
`

// ListRecordsByTowerAndKindParams identifies one tower's records of a kind.
type ListRecordsByTowerAndKindParams struct {
	TowerID int64
	Kind    string
}

// ListRecordsByTowerAndKind returns a tower's records of one kind, newest
// first.
func (q *Queries) ListRecordsByTowerAndKind(ctx context.Context, arg ListRecordsByTowerAndKindParams) ([]InspectionRecordWithNames, error) {
	rows, err := q.db.QueryContext(ctx, listRecordsByTowerAndKind, arg.TowerID, arg.Kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

const latestCompletedRecord = `
SELECT ` + recordColumns + `, u.name AS technician_name, t.name AS tower_name
FROM inspection_records ir
JOIN users u ON u.id = ir.user_id
JOIN towers t ON t.id = ir.tower_id
WHERE ir.tower_id = $1 AND ir.kind = $2 AND ir.status = 'COMPLETED'
ORDER BY ir.created_at DESC
LIMIT 1
`

// LatestCompletedRecordParams identifies the latest completed record of one
// kind for a tower.
type LatestCompletedRecordParams struct {
	TowerID int64
	Kind    string
}

// LatestCompletedRecord returns the most recent COMPLETED record of the
// kind for the tower. Returns sql.ErrNoRows when the tower has none.
func (q *Queries) LatestCompletedRecord(ctx context.Context, arg LatestCompletedRecordParams) (InspectionRecordWithNames, error) {
	row := q.db.QueryRowContext(ctx, latestCompletedRecord, arg.TowerID, arg.Kind)
	var r InspectionRecordWithNames
	err := scanRecord(row, &r.InspectionRecord, &r.TechnicianName, &r.TowerName)
	return r, err
}

const listRecordsByUser = `
SELECT ` + recordColumns + `, u.name AS technician_name, t.name AS tower_name
FROM inspection_records ir
JOIN users u ON u.id = ir.user_id
JOIN towers t ON t.id = ir.tower_id
WHERE ir.user_id = $1 AND ($2::text IS NULL OR ir.kind = $2)
ORDER BY ir.created_at DESC
`

// ListRecordsByUserParams filters a technician's submission history.
type ListRecordsByUserParams struct {
	UserID int64
	Kind   sql.NullString
}

// ListRecordsByUser returns a technician's records, newest first, optionally
// filtered by kind.
func (q *Queries) ListRecordsByUser(ctx context.Context, arg ListRecordsByUserParams) ([]InspectionRecordWithNames, error) {
	rows, err := q.db.QueryContext(ctx, listRecordsByUser, arg.UserID, arg.Kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

func collectRecords(rows *sql.Rows) ([]InspectionRecordWithNames, error) {
	var records []InspectionRecordWithNames
	for rows.Next() {
		var r InspectionRecordWithNames
		if err := scanRecord(rows, &r.InspectionRecord, &r.TechnicianName, &r.TowerName); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// =============================================================================
// Lifecycle Transitions
// =============================================================================

const claimRecord = `
UPDATE inspection_records
SET status = 'IN_PROGRESS', updated_at = NOW()
WHERE id = $1 AND status = 'PENDING'
`

// ClaimRecord conditionally moves a record from PENDING to IN_PROGRESS.
// Returns the number of rows updated: zero means another processor already
// claimed the record.
func (q *Queries) ClaimRecord(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, claimRecord, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const completeRecord = `
UPDATE inspection_records
SET status = 'COMPLETED',
	raw_analysis = $2,
	updated_at = NOW(),
	classification = $3, tanaman_liar = $4, lumut = $5, genangan_air = $6,
	noda_dinding = $7, retakan = $8, sampah = $9, recommendations = $10,
	antenna_rf = $11, antenna_rru = $12, antenna_mw = $13, antenna_total = $14,
	height = COALESCE($15, height),
	detected_value = $16, detected = $17, validity = $18, profile = $19,
	rust_level = $20, bolt_status = $21, bolts_detected = $22, pose = $23
WHERE id = $1 AND status = 'IN_PROGRESS'
`

// CompleteRecordParams carries the derived fields written by a successful
// analysis. Fields for other kinds stay NULL.
type CompleteRecordParams struct {
	ID          int64
	RawAnalysis pqtype.NullRawMessage

	Classification  sql.NullString
	TanamanLiar     sql.NullInt32
	Lumut           sql.NullInt32
	GenanganAir     sql.NullInt32
	NodaDinding     sql.NullInt32
	Retakan         sql.NullInt32
	Sampah          sql.NullInt32
	Recommendations pq.StringArray

	AntennaRf    sql.NullInt32
	AntennaRru   sql.NullInt32
	AntennaMw    sql.NullInt32
	AntennaTotal sql.NullInt32
	Height       sql.NullFloat64

	DetectedValue sql.NullFloat64
	Detected      sql.NullBool
	Validity      sql.NullString
	Profile       sql.NullString

	RustLevel     sql.NullString
	BoltStatus    sql.NullString
	BoltsDetected sql.NullInt32
	Pose          sql.NullString
}

// CompleteRecord writes the derived fields and moves the record to
// COMPLETED in one atomic update, guarded on the IN_PROGRESS state. Returns
// the number of rows updated.
func (q *Queries) CompleteRecord(ctx context.Context, arg CompleteRecordParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, completeRecord,
		arg.ID, arg.RawAnalysis,
		arg.Classification, arg.TanamanLiar, arg.Lumut, arg.GenanganAir,
		arg.NodaDinding, arg.Retakan, arg.Sampah, arg.Recommendations,
		arg.AntennaRf, arg.AntennaRru, arg.AntennaMw, arg.AntennaTotal,
		arg.Height,
		arg.DetectedValue, arg.Detected, arg.Validity, arg.Profile,
		arg.RustLevel, arg.BoltStatus, arg.BoltsDetected, arg.Pose)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const failRecord = `
UPDATE inspection_records
SET status = 'ERROR', error_message = $2, updated_at = NOW()
WHERE id = $1 AND status IN ('PENDING', 'IN_PROGRESS')
`

// FailRecordParams identifies the record to fail and the diagnostic to
// store.
type FailRecordParams struct {
	ID           int64
	ErrorMessage sql.NullString
}

// FailRecord moves a non-terminal record to ERROR. Terminal records are
// left untouched; returns the number of rows updated.
func (q *Queries) FailRecord(ctx context.Context, arg FailRecordParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, failRecord, arg.ID, arg.ErrorMessage)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const failStaleRecords = `
UPDATE inspection_records
SET status = 'ERROR',
	error_message = 'analysis timed out',
	updated_at = NOW()
WHERE status = 'IN_PROGRESS'
	AND updated_at < NOW() - ($1 * INTERVAL '1 second')
`

// FailStaleRecords is the watchdog: records stuck IN_PROGRESS longer than
// the threshold are forced to ERROR. Returns the number of records failed.
func (q *Queries) FailStaleRecords(ctx context.Context, thresholdSeconds float64) (int64, error) {
	result, err := q.db.ExecContext(ctx, failStaleRecords, thresholdSeconds)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// =============================================================================
// Aggregate Counters
// =============================================================================

const countRecordsByClassification = `
SELECT classification, COUNT(*)
FROM inspection_records
WHERE kind = 'cleanliness' AND status = 'COMPLETED' AND classification IS NOT NULL
GROUP BY classification
`

// GroupCount is one group-by bucket.
type GroupCount struct {
	Key   string
	Count int64
}

// CountRecordsByClassification groups completed cleanliness records by
// classification.
func (q *Queries) CountRecordsByClassification(ctx context.Context) ([]GroupCount, error) {
	return q.groupCounts(ctx, countRecordsByClassification)
}

const countRecordsByProfile = `
SELECT profile, COUNT(*)
FROM inspection_records
WHERE kind = 'voltage' AND status = 'COMPLETED' AND profile IS NOT NULL
GROUP BY profile
`

// CountRecordsByProfile groups completed voltage records by profile.
func (q *Queries) CountRecordsByProfile(ctx context.Context) ([]GroupCount, error) {
	return q.groupCounts(ctx, countRecordsByProfile)
}

func (q *Queries) groupCounts(ctx context.Context, query string) ([]GroupCount, error) {
	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []GroupCount
	for rows.Next() {
		var g GroupCount
		if err := rows.Scan(&g.Key, &g.Count); err != nil {
			return nil, err
		}
		counts = append(counts, g)
	}
	return counts, rows.Err()
}
