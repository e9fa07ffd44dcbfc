// This file implements region and tower management plus the per-tower
// composite inspection status.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/fieldsight/menara/internal/domain"
	"github.com/fieldsight/menara/internal/repository"
)

// CreateTowerParams holds the fields for a new tower.
type CreateTowerParams struct {
	Name      string
	RegionID  int64
	Latitude  float64
	Longitude float64
	Height    float64
}

// TowerService defines region and tower operations.
type TowerService interface {
	// CreateRegion creates a region.
	// Returns domain.EINVALID for validation errors.
	CreateRegion(ctx context.Context, name string) (*domain.Region, error)

	// ListRegions returns all regions.
	ListRegions(ctx context.Context) ([]domain.Region, error)

	// CreateTower creates a tower in a region.
	// Returns domain.ENOTFOUND if the region does not exist.
	CreateTower(ctx context.Context, params CreateTowerParams) (*domain.Tower, error)

	// GetTowerDetail returns a tower with its composite inspection status
	// and the latest completed record of each kind.
	// Returns domain.ENOTFOUND if the tower does not exist.
	GetTowerDetail(ctx context.Context, id int64) (*domain.TowerDetail, error)

	// ListTowers returns towers with their composite inspection status,
	// optionally filtered by region.
	ListTowers(ctx context.Context, regionID *int64) ([]domain.TowerDetail, error)
}

// towerQueries is the slice of the repository the tower service depends on.
type towerQueries interface {
	CreateRegion(ctx context.Context, name string) (repository.Region, error)
	ListRegions(ctx context.Context) ([]repository.Region, error)
	GetRegionByID(ctx context.Context, id int64) (repository.Region, error)
	CreateTower(ctx context.Context, arg repository.CreateTowerParams) (repository.Tower, error)
	GetTowerByID(ctx context.Context, id int64) (repository.TowerWithRegion, error)
	ListTowers(ctx context.Context, regionID sql.NullInt64) ([]repository.TowerWithRegion, error)
	LatestCompletedRecord(ctx context.Context, arg repository.LatestCompletedRecordParams) (repository.InspectionRecordWithNames, error)
	ListPhotosByRecordID(ctx context.Context, recordID int64) ([]repository.Photo, error)
}

type towerService struct {
	queries towerQueries
	logger  *slog.Logger
}

// NewTowerService creates a new TowerService.
func NewTowerService(queries *repository.Queries, logger *slog.Logger) TowerService {
	return &towerService{
		queries: queries,
		logger:  logger,
	}
}

// CreateRegion creates a region.
func (s *towerService) CreateRegion(ctx context.Context, name string) (*domain.Region, error) {
	const op = "TowerService.CreateRegion"

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Invalid(op, "name is required")
	}

	row, err := s.queries.CreateRegion(ctx, name)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to create region")
	}

	s.logger.Info("region created", "region_id", row.ID, "name", name)
	return &domain.Region{ID: row.ID, Name: row.Name, CreatedAt: row.CreatedAt}, nil
}

// ListRegions returns all regions.
func (s *towerService) ListRegions(ctx context.Context) ([]domain.Region, error) {
	const op = "TowerService.ListRegions"

	rows, err := s.queries.ListRegions(ctx)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list regions")
	}

	regions := make([]domain.Region, len(rows))
	for i, r := range rows {
		regions[i] = domain.Region{ID: r.ID, Name: r.Name, CreatedAt: r.CreatedAt}
	}
	return regions, nil
}

// CreateTower creates a tower in a region.
func (s *towerService) CreateTower(ctx context.Context, params CreateTowerParams) (*domain.Tower, error) {
	const op = "TowerService.CreateTower"

	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, domain.Invalid(op, "name is required")
	}
	if params.Latitude < -90 || params.Latitude > 90 {
		return nil, domain.Invalid(op, "latitude must be between -90 and 90")
	}
	if params.Longitude < -180 || params.Longitude > 180 {
		return nil, domain.Invalid(op, "longitude must be between -180 and 180")
	}
	if params.Height < 0 {
		return nil, domain.Invalid(op, "height must not be negative")
	}

	if _, err := s.queries.GetRegionByID(ctx, params.RegionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "region", strconv.FormatInt(params.RegionID, 10))
		}
		return nil, domain.Internal(err, op, "failed to verify region")
	}

	row, err := s.queries.CreateTower(ctx, repository.CreateTowerParams{
		Name:      name,
		RegionID:  params.RegionID,
		Latitude:  params.Latitude,
		Longitude: params.Longitude,
		Height:    params.Height,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to create tower")
	}

	tower := rowToTower(repository.TowerWithRegion{Tower: row})
	s.logger.Info("tower created", "tower_id", tower.ID, "region_id", params.RegionID)
	return tower, nil
}

// GetTowerDetail returns a tower with its composite inspection status.
func (s *towerService) GetTowerDetail(ctx context.Context, id int64) (*domain.TowerDetail, error) {
	const op = "TowerService.GetTowerDetail"

	row, err := s.queries.GetTowerByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "tower", strconv.FormatInt(id, 10))
		}
		return nil, domain.Internal(err, op, "failed to fetch tower")
	}

	detail := s.buildDetail(ctx, row)
	return &detail, nil
}

// ListTowers returns towers with their composite inspection status.
func (s *towerService) ListTowers(ctx context.Context, regionID *int64) ([]domain.TowerDetail, error) {
	const op = "TowerService.ListTowers"

	var filter sql.NullInt64
	if regionID != nil {
		filter = sql.NullInt64{Int64: *regionID, Valid: true}
	}

	rows, err := s.queries.ListTowers(ctx, filter)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list towers")
	}

	details := make([]domain.TowerDetail, len(rows))
	for i, row := range rows {
		details[i] = s.buildDetail(ctx, row)
	}
	return details, nil
}

// buildDetail derives the composite inspection status from the latest
// completed record of each kind. A lookup failure for one kind degrades to
// "no completed record of that kind" rather than failing the tower: a
// partially derivable status is more useful than none.
func (s *towerService) buildDetail(ctx context.Context, row repository.TowerWithRegion) domain.TowerDetail {
	latest := make(map[domain.InspectionKind]*domain.InspectionRecord)
	for _, kind := range domain.Kinds() {
		recordRow, err := s.queries.LatestCompletedRecord(ctx, repository.LatestCompletedRecordParams{
			TowerID: row.ID,
			Kind:    kind.String(),
		})
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				s.logger.Error("failed to fetch latest record",
					"tower_id", row.ID, "kind", kind, "error", err)
			}
			continue
		}
		record := rowToRecord(recordRow)

		// The record's photos feed the per-kind cover image. Losing them
		// degrades the detail, not the whole tower.
		photos, err := s.queries.ListPhotosByRecordID(ctx, recordRow.ID)
		if err != nil {
			s.logger.Error("failed to fetch record photos",
				"tower_id", row.ID, "record_id", recordRow.ID, "error", err)
		} else {
			record.Photos = rowsToPhotos(photos)
		}
		latest[kind] = record
	}

	return domain.TowerDetail{
		Tower:   *rowToTower(row),
		Summary: domain.DeriveTowerInspection(latest),
		Latest:  latest,
	}
}

func rowToTower(row repository.TowerWithRegion) *domain.Tower {
	return &domain.Tower{
		ID:         row.ID,
		Name:       row.Name,
		RegionID:   row.RegionID,
		Latitude:   row.Latitude,
		Longitude:  row.Longitude,
		Height:     row.Height,
		AntennaRF:  int(row.AntennaRf),
		AntennaRRU: int(row.AntennaRru),
		AntennaMW:  int(row.AntennaMw),
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
		RegionName: row.RegionName,
	}
}
