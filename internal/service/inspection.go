// This file implements the inspection service: the synchronous half of the
// analysis pipeline. A submission uploads photos to blob storage, persists
// the placeholder record, its photo rows and the analysis job in one
// transaction, and returns immediately with a PENDING record.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/fieldsight/menara/internal/domain"
	"github.com/fieldsight/menara/internal/metrics"
	"github.com/fieldsight/menara/internal/repository"
	"github.com/fieldsight/menara/internal/worker"
)

// MaxPhotosPerSubmission caps multi-photo submissions.
const MaxPhotosPerSubmission = 5

// SubmitCleanlinessParams holds a cleanliness submission.
type SubmitCleanlinessParams struct {
	TowerID int64
	UserID  int64
	Photos  []FileUpload
}

// SubmitAntennaParams holds an antenna-equipment submission.
type SubmitAntennaParams struct {
	TowerID   int64
	UserID    int64
	Height    float64 // meters
	Latitude  float64
	Longitude float64
	Photos    []FileUpload
}

// SubmitVoltageParams holds a voltage/current panel submission.
type SubmitVoltageParams struct {
	TowerID    int64
	UserID     int64
	Category   string
	InputValue float64 // technician's manual reading
	Photo      FileUpload
}

// SubmitStructuralParams holds a structural-condition submission. The pose
// photo is optional.
type SubmitStructuralParams struct {
	TowerID    int64
	UserID     int64
	RustPhoto  FileUpload
	BoltsPhoto FileUpload
	PosePhoto  *FileUpload
}

// TowerHistory groups one technician's records by tower.
type TowerHistory struct {
	TowerID   int64
	TowerName string
	Records   []*domain.InspectionRecord
}

// InspectionService defines inspection record operations.
type InspectionService interface {
	// SubmitCleanliness creates a PENDING cleanliness record and schedules
	// its analysis. Returns domain.EINVALID for validation errors and
	// domain.ENOTFOUND if the tower does not exist.
	SubmitCleanliness(ctx context.Context, params SubmitCleanlinessParams) (*domain.InspectionRecord, error)

	// SubmitAntenna creates a PENDING antenna-equipment record.
	SubmitAntenna(ctx context.Context, params SubmitAntennaParams) (*domain.InspectionRecord, error)

	// SubmitVoltage creates a PENDING voltage record.
	SubmitVoltage(ctx context.Context, params SubmitVoltageParams) (*domain.InspectionRecord, error)

	// SubmitStructural creates a PENDING structural-condition record.
	SubmitStructural(ctx context.Context, params SubmitStructuralParams) (*domain.InspectionRecord, error)

	// GetByID retrieves a record with its photos.
	// Returns domain.ENOTFOUND if the record does not exist.
	GetByID(ctx context.Context, id int64) (*domain.InspectionRecord, error)

	// ListByTower returns a tower's records of one kind, newest first.
	ListByTower(ctx context.Context, towerID int64, kind domain.InspectionKind) ([]*domain.InspectionRecord, error)

	// ListByUser returns a technician's submission history grouped by tower,
	// newest record first within each group. A nil kind returns all kinds.
	ListByUser(ctx context.Context, userID int64, kind *domain.InspectionKind) ([]TowerHistory, error)
}

type inspectionService struct {
	db      *sql.DB
	queries *repository.Queries
	photos  PhotoService
	logger  *slog.Logger
}

// NewInspectionService creates a new InspectionService.
func NewInspectionService(
	db *sql.DB,
	queries *repository.Queries,
	photos PhotoService,
	logger *slog.Logger,
) InspectionService {
	return &inspectionService{
		db:      db,
		queries: queries,
		photos:  photos,
		logger:  logger,
	}
}

// =============================================================================
// Submissions
// =============================================================================

// SubmitCleanliness creates a PENDING cleanliness record.
func (s *inspectionService) SubmitCleanliness(ctx context.Context, params SubmitCleanlinessParams) (*domain.InspectionRecord, error) {
	const op = "InspectionService.SubmitCleanliness"

	if err := validatePhotoCount(op, len(params.Photos)); err != nil {
		return nil, err
	}

	uploads := make([]photoUpload, len(params.Photos))
	for i, f := range params.Photos {
		uploads[i] = photoUpload{file: f, role: domain.PhotoRoleGeneric, position: i}
	}

	return s.submit(ctx, op, domain.KindCleanliness, params.TowerID, params.UserID,
		repository.CreateRecordParams{}, uploads)
}

// SubmitAntenna creates a PENDING antenna-equipment record.
func (s *inspectionService) SubmitAntenna(ctx context.Context, params SubmitAntennaParams) (*domain.InspectionRecord, error) {
	const op = "InspectionService.SubmitAntenna"

	if err := validatePhotoCount(op, len(params.Photos)); err != nil {
		return nil, err
	}
	if params.Height <= 0 {
		return nil, domain.Invalid(op, "height must be a positive number of meters")
	}
	if params.Latitude < -90 || params.Latitude > 90 {
		return nil, domain.Invalid(op, "latitude must be between -90 and 90")
	}
	if params.Longitude < -180 || params.Longitude > 180 {
		return nil, domain.Invalid(op, "longitude must be between -180 and 180")
	}

	uploads := make([]photoUpload, len(params.Photos))
	for i, f := range params.Photos {
		uploads[i] = photoUpload{file: f, role: domain.PhotoRoleGeneric, position: i}
	}

	return s.submit(ctx, op, domain.KindAntenna, params.TowerID, params.UserID,
		repository.CreateRecordParams{
			Height:    sql.NullFloat64{Float64: params.Height, Valid: true},
			Latitude:  sql.NullFloat64{Float64: params.Latitude, Valid: true},
			Longitude: sql.NullFloat64{Float64: params.Longitude, Valid: true},
		}, uploads)
}

// SubmitVoltage creates a PENDING voltage record.
func (s *inspectionService) SubmitVoltage(ctx context.Context, params SubmitVoltageParams) (*domain.InspectionRecord, error) {
	const op = "InspectionService.SubmitVoltage"

	category, err := domain.ParseVoltageCategory(strings.ToUpper(strings.TrimSpace(params.Category)))
	if err != nil {
		return nil, domain.Invalid(op, "unknown measurement category")
	}
	if params.InputValue < 0 {
		return nil, domain.Invalid(op, "measured value must not be negative")
	}

	uploads := []photoUpload{{file: params.Photo, role: domain.PhotoRoleGeneric, position: 0}}

	return s.submit(ctx, op, domain.KindVoltage, params.TowerID, params.UserID,
		repository.CreateRecordParams{
			Category:   sql.NullString{String: string(category), Valid: true},
			InputValue: sql.NullFloat64{Float64: params.InputValue, Valid: true},
			Unit:       sql.NullString{String: category.Unit(), Valid: true},
		}, uploads)
}

// SubmitStructural creates a PENDING structural-condition record.
func (s *inspectionService) SubmitStructural(ctx context.Context, params SubmitStructuralParams) (*domain.InspectionRecord, error) {
	const op = "InspectionService.SubmitStructural"

	if len(params.RustPhoto.Data) == 0 {
		return nil, domain.Invalid(op, "rust photo is required")
	}
	if len(params.BoltsPhoto.Data) == 0 {
		return nil, domain.Invalid(op, "bolts photo is required")
	}

	uploads := []photoUpload{
		{file: params.RustPhoto, role: domain.PhotoRoleRust, position: 0},
		{file: params.BoltsPhoto, role: domain.PhotoRoleBolts, position: 1},
	}
	if params.PosePhoto != nil && len(params.PosePhoto.Data) > 0 {
		uploads = append(uploads, photoUpload{file: *params.PosePhoto, role: domain.PhotoRolePose, position: 2})
	}

	return s.submit(ctx, op, domain.KindStructural, params.TowerID, params.UserID,
		repository.CreateRecordParams{}, uploads)
}

type photoUpload struct {
	file     FileUpload
	role     domain.PhotoRole
	position int
}

// submit runs the shared submission pipeline: verify the tower, upload the
// photos, then persist record, photo rows and the analysis job in a single
// transaction. When the transaction fails the uploaded blobs are removed so
// storage holds no orphans.
func (s *inspectionService) submit(
	ctx context.Context,
	op string,
	kind domain.InspectionKind,
	towerID, userID int64,
	recordParams repository.CreateRecordParams,
	uploads []photoUpload,
) (*domain.InspectionRecord, error) {
	tower, err := s.queries.GetTowerByID(ctx, towerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "tower", strconv.FormatInt(towerID, 10))
		}
		return nil, domain.Internal(err, op, "failed to verify tower")
	}

	uploaded := make([]*UploadedPhoto, 0, len(uploads))
	for _, u := range uploads {
		p, err := s.photos.Upload(ctx, towerID, kind, u.role, u.position, u.file)
		if err != nil {
			s.photos.Cleanup(ctx, uploaded)
			return nil, err
		}
		uploaded = append(uploaded, p)
	}

	recordParams.Kind = kind.String()
	recordParams.TowerID = towerID
	recordParams.UserID = userID

	record, err := s.persistSubmission(ctx, recordParams, uploaded)
	if err != nil {
		s.photos.Cleanup(ctx, uploaded)
		return nil, domain.Internal(err, op, "failed to persist submission")
	}

	metrics.InspectionsSubmitted.WithLabelValues(kind.String()).Inc()
	metrics.PhotosUploaded.WithLabelValues(kind.String()).Add(float64(len(uploaded)))
	s.logger.Info("inspection submitted",
		"record_id", record.ID,
		"kind", kind,
		"tower_id", towerID,
		"user_id", userID,
		"photos", len(uploaded),
	)

	record.TowerName = tower.Name
	return record, nil
}

// persistSubmission writes the record, its photos and the analysis job
// atomically. Either all of them exist afterwards or none do.
func (s *inspectionService) persistSubmission(
	ctx context.Context,
	recordParams repository.CreateRecordParams,
	uploaded []*UploadedPhoto,
) (*domain.InspectionRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)

	row, err := qtx.CreateRecord(ctx, recordParams)
	if err != nil {
		return nil, fmt.Errorf("create record: %w", err)
	}

	photos := make([]repository.Photo, 0, len(uploaded))
	for _, p := range uploaded {
		photoRow, err := qtx.CreatePhoto(ctx, repository.CreatePhotoParams{
			RecordID:     row.ID,
			Url:          p.URL,
			ThumbnailUrl: p.ThumbnailURL,
			ObjectKey:    p.ObjectKey,
			Role:         string(p.Role),
			Position:     int32(p.Position),
		})
		if err != nil {
			return nil, fmt.Errorf("create photo: %w", err)
		}
		photos = append(photos, photoRow)
	}

	// Enqueueing inside the transaction means a persisted record always has
	// its analysis job and an aborted one never does.
	_, err = worker.EnqueueAnalyzeRecord(ctx, qtx, row.ID, row.Kind)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit submission: %w", err)
	}

	record := rowToRecord(repository.InspectionRecordWithNames{InspectionRecord: row})
	record.Photos = rowsToPhotos(photos)
	return record, nil
}

func validatePhotoCount(op string, n int) error {
	if n == 0 {
		return domain.Invalid(op, "at least one photo is required")
	}
	if n > MaxPhotosPerSubmission {
		return domain.Invalid(op, fmt.Sprintf("at most %d photos per submission", MaxPhotosPerSubmission))
	}
	return nil
}

// =============================================================================
// Reads
// =============================================================================

// GetByID retrieves a record with its photos.
func (s *inspectionService) GetByID(ctx context.Context, id int64) (*domain.InspectionRecord, error) {
	const op = "InspectionService.GetByID"

	row, err := s.queries.GetRecordByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "inspection record", strconv.FormatInt(id, 10))
		}
		return nil, domain.Internal(err, op, "failed to fetch record")
	}

	photos, err := s.queries.ListPhotosByRecordID(ctx, id)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to fetch photos")
	}

	record := rowToRecord(row)
	record.Photos = rowsToPhotos(photos)
	return record, nil
}

// ListByTower returns a tower's records of one kind, newest first.
func (s *inspectionService) ListByTower(ctx context.Context, towerID int64, kind domain.InspectionKind) ([]*domain.InspectionRecord, error) {
	const op = "InspectionService.ListByTower"

	if !kind.IsValid() {
		return nil, domain.Invalid(op, "unknown inspection kind")
	}

	rows, err := s.queries.ListRecordsByTowerAndKind(ctx, repository.ListRecordsByTowerAndKindParams{
		TowerID: towerID,
		Kind:    kind.String(),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list records")
	}

	return s.attachPhotos(ctx, op, rows)
}

// ListByUser returns a technician's submission history grouped by tower.
func (s *inspectionService) ListByUser(ctx context.Context, userID int64, kind *domain.InspectionKind) ([]TowerHistory, error) {
	const op = "InspectionService.ListByUser"

	var kindFilter sql.NullString
	if kind != nil {
		if !kind.IsValid() {
			return nil, domain.Invalid(op, "unknown inspection kind")
		}
		kindFilter = sql.NullString{String: kind.String(), Valid: true}
	}

	rows, err := s.queries.ListRecordsByUser(ctx, repository.ListRecordsByUserParams{
		UserID: userID,
		Kind:   kindFilter,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list records")
	}

	records, err := s.attachPhotos(ctx, op, rows)
	if err != nil {
		return nil, err
	}

	// Group by tower, keeping towers in order of their newest record.
	var history []TowerHistory
	index := make(map[int64]int)
	for _, r := range records {
		i, ok := index[r.TowerID]
		if !ok {
			i = len(history)
			index[r.TowerID] = i
			history = append(history, TowerHistory{TowerID: r.TowerID, TowerName: r.TowerName})
		}
		history[i].Records = append(history[i].Records, r)
	}
	return history, nil
}

func (s *inspectionService) attachPhotos(ctx context.Context, op string, rows []repository.InspectionRecordWithNames) ([]*domain.InspectionRecord, error) {
	records := make([]*domain.InspectionRecord, 0, len(rows))
	for _, row := range rows {
		record := rowToRecord(row)
		photos, err := s.queries.ListPhotosByRecordID(ctx, row.ID)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to fetch photos")
		}
		record.Photos = rowsToPhotos(photos)
		records = append(records, record)
	}
	return records, nil
}

// =============================================================================
// Row Conversion
// =============================================================================

// rowToRecord converts a database row to the domain record. Records that are
// not COMPLETED carry placeholder results seeded with the technician's
// inputs; derived columns are only trusted on COMPLETED rows.
func rowToRecord(row repository.InspectionRecordWithNames) *domain.InspectionRecord {
	record := &domain.InspectionRecord{
		ID:             row.ID,
		Kind:           domain.InspectionKind(row.Kind),
		TowerID:        row.TowerID,
		UserID:         row.UserID,
		Status:         domain.RecordStatus(row.Status),
		ErrorMessage:   row.ErrorMessage.String,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
		TowerName:      row.TowerName,
		TechnicianName: row.TechnicianName,
	}
	if row.RawAnalysis.Valid {
		record.RawAnalysis = row.RawAnalysis.RawMessage
	}

	completed := record.Status == domain.RecordStatusCompleted

	switch record.Kind {
	case domain.KindCleanliness:
		result := domain.NewCleanlinessResult()
		if completed {
			if row.Classification.Valid && row.Classification.String != "" {
				result.Classification = row.Classification.String
			}
			result.TanamanLiar = int(row.TanamanLiar.Int32)
			result.Lumut = int(row.Lumut.Int32)
			result.GenanganAir = int(row.GenanganAir.Int32)
			result.NodaDinding = int(row.NodaDinding.Int32)
			result.Retakan = int(row.Retakan.Int32)
			result.Sampah = int(row.Sampah.Int32)
			result.Recommendations = []string(row.Recommendations)
		}
		record.Cleanliness = result

	case domain.KindAntenna:
		result := domain.NewAntennaResult(row.Height.Float64, row.Latitude.Float64, row.Longitude.Float64)
		if completed {
			result.RadioFreqUnits = int(row.AntennaRf.Int32)
			result.RemoteRadioUnits = int(row.AntennaRru.Int32)
			result.Microwave = int(row.AntennaMw.Int32)
			result.Total = int(row.AntennaTotal.Int32)
		}
		record.Antenna = result

	case domain.KindVoltage:
		result := domain.NewVoltageResult(domain.VoltageCategory(row.Category.String), row.InputValue.Float64)
		if completed {
			result.Finalize(row.DetectedValue.Float64, row.Detected.Bool)
		}
		record.Voltage = result

	case domain.KindStructural:
		result := domain.NewStructuralResult()
		if completed {
			result.RustLevel = row.RustLevel.String
			result.BoltStatus = row.BoltStatus.String
			result.BoltsDetected = int(row.BoltsDetected.Int32)
			result.Pose = row.Pose.String
		}
		record.Structural = result
	}

	return record
}

func rowsToPhotos(rows []repository.Photo) []domain.Photo {
	photos := make([]domain.Photo, len(rows))
	for i, p := range rows {
		photos[i] = domain.Photo{
			ID:           p.ID,
			RecordID:     p.RecordID,
			URL:          p.Url,
			ThumbnailURL: p.ThumbnailUrl,
			ObjectKey:    p.ObjectKey,
			Role:         domain.PhotoRole(p.Role),
			Position:     int(p.Position),
			CreatedAt:    p.CreatedAt,
		}
	}
	return photos
}
