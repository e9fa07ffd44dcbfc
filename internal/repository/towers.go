package repository

import (
	"context"
	"database/sql"
)

// =============================================================================
// Regions
// =============================================================================

const createRegion = `
INSERT INTO regions (name)
VALUES ($1)
RETURNING id, name, created_at
`

// CreateRegion inserts a region and returns the stored row.
func (q *Queries) CreateRegion(ctx context.Context, name string) (Region, error) {
	row := q.db.QueryRowContext(ctx, createRegion, name)
	var r Region
	err := row.Scan(&r.ID, &r.Name, &r.CreatedAt)
	return r, err
}

const listRegions = `
SELECT id, name, created_at
FROM regions
ORDER BY name
`

// ListRegions returns all regions ordered by name.
func (q *Queries) ListRegions(ctx context.Context) ([]Region, error) {
	rows, err := q.db.QueryContext(ctx, listRegions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regions []Region
	for rows.Next() {
		var r Region
		if err := rows.Scan(&r.ID, &r.Name, &r.CreatedAt); err != nil {
			return nil, err
		}
		regions = append(regions, r)
	}
	return regions, rows.Err()
}

const getRegionByID = `
SELECT id, name, created_at
FROM regions
WHERE id = $1
`

// GetRegionByID fetches a region by ID. Returns sql.ErrNoRows if absent.
func (q *Queries) GetRegionByID(ctx context.Context, id int64) (Region, error) {
	row := q.db.QueryRowContext(ctx, getRegionByID, id)
	var r Region
	err := row.Scan(&r.ID, &r.Name, &r.CreatedAt)
	return r, err
}

// =============================================================================
// Towers
// =============================================================================

const towerColumns = `t.id, t.name, t.region_id, t.latitude, t.longitude, t.height,
t.antenna_rf, t.antenna_rru, t.antenna_mw, t.created_at, t.updated_at`

const createTower = `
INSERT INTO towers (name, region_id, latitude, longitude, height)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, name, region_id, latitude, longitude, height,
antenna_rf, antenna_rru, antenna_mw, created_at, updated_at
`

// CreateTowerParams holds the columns for a new tower.
type CreateTowerParams struct {
	Name      string
	RegionID  int64
	Latitude  float64
	Longitude float64
	Height    float64
}

// CreateTower inserts a tower and returns the stored row.
func (q *Queries) CreateTower(ctx context.Context, arg CreateTowerParams) (Tower, error) {
	row := q.db.QueryRowContext(ctx, createTower,
		arg.Name, arg.RegionID, arg.Latitude, arg.Longitude, arg.Height)
	var t Tower
	err := scanTower(row, &t)
	return t, err
}

const getTowerByID = `
SELECT ` + towerColumns + `, r.name AS region_name
FROM towers t
JOIN regions r ON r.id = t.region_id
WHERE t.id = $1
`

// GetTowerByID fetches a tower with its region name. Returns sql.ErrNoRows
// if absent.
func (q *Queries) GetTowerByID(ctx context.Context, id int64) (TowerWithRegion, error) {
	row := q.db.QueryRowContext(ctx, getTowerByID, id)
	var t TowerWithRegion
	err := row.Scan(&t.ID, &t.Name, &t.RegionID, &t.Latitude, &t.Longitude, &t.Height,
		&t.AntennaRf, &t.AntennaRru, &t.AntennaMw, &t.CreatedAt, &t.UpdatedAt, &t.RegionName)
	return t, err
}

const listTowers = `
SELECT ` + towerColumns + `, r.name AS region_name
FROM towers t
JOIN regions r ON r.id = t.region_id
WHERE ($1::bigint IS NULL OR t.region_id = $1)
ORDER BY t.name
`

// ListTowers returns towers with their region names, optionally filtered by
// region.
func (q *Queries) ListTowers(ctx context.Context, regionID sql.NullInt64) ([]TowerWithRegion, error) {
	rows, err := q.db.QueryContext(ctx, listTowers, regionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var towers []TowerWithRegion
	for rows.Next() {
		var t TowerWithRegion
		if err := rows.Scan(&t.ID, &t.Name, &t.RegionID, &t.Latitude, &t.Longitude, &t.Height,
			&t.AntennaRf, &t.AntennaRru, &t.AntennaMw, &t.CreatedAt, &t.UpdatedAt, &t.RegionName); err != nil {
			return nil, err
		}
		towers = append(towers, t)
	}
	return towers, rows.Err()
}

const countTowers = `
SELECT COUNT(*) FROM towers
`

// CountTowers returns the total number of towers.
func (q *Queries) CountTowers(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countTowers).Scan(&count)
	return count, err
}

const updateTowerAntennaCounts = `
UPDATE towers
SET antenna_rf = $2, antenna_rru = $3, antenna_mw = $4, updated_at = NOW()
WHERE id = $1
`

// UpdateTowerAntennaCountsParams holds the antenna counters written by a
// completed antenna-equipment inspection.
type UpdateTowerAntennaCountsParams struct {
	ID         int64
	AntennaRf  int32
	AntennaRru int32
	AntennaMw  int32
}

// UpdateTowerAntennaCounts overwrites a tower's equipment counters.
func (q *Queries) UpdateTowerAntennaCounts(ctx context.Context, arg UpdateTowerAntennaCountsParams) error {
	_, err := q.db.ExecContext(ctx, updateTowerAntennaCounts,
		arg.ID, arg.AntennaRf, arg.AntennaRru, arg.AntennaMw)
	return err
}

const sumAntennaCounts = `
SELECT COALESCE(SUM(antenna_rf), 0), COALESCE(SUM(antenna_rru), 0), COALESCE(SUM(antenna_mw), 0)
FROM towers
`

// AntennaCountSums holds the fleet-wide antenna totals.
type AntennaCountSums struct {
	AntennaRf  int64
	AntennaRru int64
	AntennaMw  int64
}

// SumAntennaCounts sums the antenna counters across all towers.
func (q *Queries) SumAntennaCounts(ctx context.Context) (AntennaCountSums, error) {
	var s AntennaCountSums
	err := q.db.QueryRowContext(ctx, sumAntennaCounts).Scan(&s.AntennaRf, &s.AntennaRru, &s.AntennaMw)
	return s, err
}

func scanTower(row *sql.Row, t *Tower) error {
	return row.Scan(&t.ID, &t.Name, &t.RegionID, &t.Latitude, &t.Longitude, &t.Height,
		&t.AntennaRf, &t.AntennaRru, &t.AntennaMw, &t.CreatedAt, &t.UpdatedAt)
}
