package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/fieldsight/menara/internal/domain"
	"github.com/fieldsight/menara/internal/metrics"
	"github.com/fieldsight/menara/internal/ml"
	"github.com/fieldsight/menara/internal/repository"
	"github.com/fieldsight/menara/internal/storage"
	"github.com/fieldsight/menara/internal/worker"
	"github.com/lib/pq"
	"github.com/sqlc-dev/pqtype"
)

// recordQueries is the slice of the repository the analysis job depends on.
type recordQueries interface {
	GetRecordByID(ctx context.Context, id int64) (repository.InspectionRecordWithNames, error)
	ClaimRecord(ctx context.Context, id int64) (int64, error)
	ListPhotosByRecordID(ctx context.Context, recordID int64) ([]repository.Photo, error)
	CompleteRecord(ctx context.Context, arg repository.CompleteRecordParams) (int64, error)
	FailRecord(ctx context.Context, arg repository.FailRecordParams) (int64, error)
	UpdateTowerAntennaCounts(ctx context.Context, arg repository.UpdateTowerAntennaCountsParams) error
}

// AnalyzeRecordHandler processes jobs that run the analysis pipeline for a
// freshly submitted inspection record: claim the record, download its photos,
// call the analysis service, normalize the response and write the derived
// fields.
type AnalyzeRecordHandler struct {
	queries  recordQueries
	analyzer ml.Analyzer
	storage  storage.Storage
	logger   *slog.Logger
}

// NewAnalyzeRecordHandler creates a new handler for record analysis jobs.
func NewAnalyzeRecordHandler(
	queries *repository.Queries,
	analyzer ml.Analyzer,
	storage storage.Storage,
	logger *slog.Logger,
) *AnalyzeRecordHandler {
	return &AnalyzeRecordHandler{
		queries:  queries,
		analyzer: analyzer,
		storage:  storage,
		logger:   logger,
	}
}

// Type returns the job type identifier.
func (h *AnalyzeRecordHandler) Type() string {
	return worker.JobTypeAnalyzeRecord
}

// Handle executes the record analysis job.
//
// The record is claimed with a conditional PENDING -> IN_PROGRESS update, so
// a duplicate or racing job exits cleanly without touching the record. Once
// claimed the outcome is decided in this execution: analysis and
// normalization failures move the record to ERROR rather than rescheduling
// the job, because the technician is waiting on a terminal state, not on
// eventual retries.
func (h *AnalyzeRecordHandler) Handle(ctx context.Context, payload []byte) error {
	var p worker.AnalyzeRecordPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return worker.NewPermanentError(fmt.Errorf("invalid payload: %w", err))
	}

	kind, err := domain.ParseInspectionKind(p.Kind)
	if err != nil {
		return worker.NewPermanentError(err)
	}

	logger := h.logger.With("record_id", p.RecordID, "kind", kind)
	logger.Info("Analyzing inspection record")

	record, err := h.queries.GetRecordByID(ctx, p.RecordID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return worker.NewPermanentError(fmt.Errorf("record not found: %w", err))
		}
		// Database error - retryable
		return fmt.Errorf("fetch record: %w", err)
	}
	if record.Kind != kind.String() {
		return worker.NewPermanentError(fmt.Errorf("record %d is %s, job says %s", p.RecordID, record.Kind, kind))
	}

	claimed, err := h.queries.ClaimRecord(ctx, p.RecordID)
	if err != nil {
		return fmt.Errorf("claim record: %w", err)
	}
	if claimed == 0 {
		// Another processor got there first, or the record is already
		// terminal. Nothing to do.
		logger.Info("Record already claimed, skipping", "status", record.Status)
		return nil
	}

	photos, err := h.queries.ListPhotosByRecordID(ctx, p.RecordID)
	if err != nil {
		return h.fail(ctx, p.RecordID, kind, logger, fmt.Errorf("fetch photos: %w", err))
	}
	if len(photos) == 0 {
		return h.fail(ctx, p.RecordID, kind, logger, fmt.Errorf("record has no photos"))
	}

	params, err := h.analyze(ctx, kind, record.InspectionRecord, photos, logger)
	if err != nil {
		return h.fail(ctx, p.RecordID, kind, logger, err)
	}
	params.ID = p.RecordID

	updated, err := h.queries.CompleteRecord(ctx, *params)
	if err != nil {
		return h.fail(ctx, p.RecordID, kind, logger, fmt.Errorf("complete record: %w", err))
	}
	if updated == 0 {
		// The watchdog or a concurrent failure already moved the record out
		// of IN_PROGRESS; the analysis result is discarded.
		logger.Warn("Record left IN_PROGRESS before completion, result discarded")
		return nil
	}

	metrics.RecordsProcessed.WithLabelValues(kind.String(), "completed").Inc()
	logger.Info("Record analysis completed")
	return nil
}

// analyze runs the kind-specific pipeline and returns the derived columns to
// write. Fields for other kinds are left at their zero (NULL) values.
func (h *AnalyzeRecordHandler) analyze(
	ctx context.Context,
	kind domain.InspectionKind,
	record repository.InspectionRecord,
	photos []repository.Photo,
	logger *slog.Logger,
) (*repository.CompleteRecordParams, error) {
	switch kind {
	case domain.KindCleanliness:
		return h.analyzeCleanliness(ctx, photos)
	case domain.KindAntenna:
		return h.analyzeAntenna(ctx, record, photos, logger)
	case domain.KindVoltage:
		return h.analyzeVoltage(ctx, record, photos)
	case domain.KindStructural:
		return h.analyzeStructural(ctx, photos, logger)
	}
	return nil, fmt.Errorf("unsupported kind %s", kind)
}

func (h *AnalyzeRecordHandler) analyzeCleanliness(ctx context.Context, photos []repository.Photo) (*repository.CompleteRecordParams, error) {
	images, err := h.loadImages(ctx, photos)
	if err != nil {
		return nil, err
	}

	raw, err := h.call(ctx, "cleanliness", func() ([]byte, error) {
		return h.analyzer.AnalyzeCleanliness(ctx, images)
	})
	if err != nil {
		return nil, err
	}

	result, err := ml.NormalizeCleanliness(raw)
	if err != nil {
		return nil, err
	}

	recs := result.Recommendations
	if recs == nil {
		recs = []string{}
	}
	return &repository.CompleteRecordParams{
		RawAnalysis:     pqtype.NullRawMessage{RawMessage: raw, Valid: true},
		Classification:  nullString(result.Classification),
		TanamanLiar:     nullInt32(result.TanamanLiar),
		Lumut:           nullInt32(result.Lumut),
		GenanganAir:     nullInt32(result.GenanganAir),
		NodaDinding:     nullInt32(result.NodaDinding),
		Retakan:         nullInt32(result.Retakan),
		Sampah:          nullInt32(result.Sampah),
		Recommendations: pq.StringArray(recs),
	}, nil
}

func (h *AnalyzeRecordHandler) analyzeAntenna(
	ctx context.Context,
	record repository.InspectionRecord,
	photos []repository.Photo,
	logger *slog.Logger,
) (*repository.CompleteRecordParams, error) {
	images, err := h.loadImages(ctx, photos)
	if err != nil {
		return nil, err
	}

	raw, err := h.call(ctx, "antenna", func() ([]byte, error) {
		return h.analyzer.AnalyzeAntennas(ctx, images)
	})
	if err != nil {
		return nil, err
	}

	result, err := ml.NormalizeAntenna(raw,
		record.Height.Float64, record.Latitude.Float64, record.Longitude.Float64)
	if err != nil {
		return nil, err
	}

	// Keep the tower's equipment counts in sync with the latest analysis.
	// A failure here is logged, not fatal: the record itself is complete.
	err = h.queries.UpdateTowerAntennaCounts(ctx, repository.UpdateTowerAntennaCountsParams{
		ID:         record.TowerID,
		AntennaRf:  int32(result.RadioFreqUnits),
		AntennaRru: int32(result.RemoteRadioUnits),
		AntennaMw:  int32(result.Microwave),
	})
	if err != nil {
		logger.Error("Failed to update tower antenna counts", "tower_id", record.TowerID, "error", err)
	}

	return &repository.CompleteRecordParams{
		RawAnalysis:  pqtype.NullRawMessage{RawMessage: raw, Valid: true},
		AntennaRf:    nullInt32(result.RadioFreqUnits),
		AntennaRru:   nullInt32(result.RemoteRadioUnits),
		AntennaMw:    nullInt32(result.Microwave),
		AntennaTotal: nullInt32(result.Total),
		Height:       sql.NullFloat64{Float64: result.Height, Valid: result.Height != 0},
	}, nil
}

func (h *AnalyzeRecordHandler) analyzeVoltage(
	ctx context.Context,
	record repository.InspectionRecord,
	photos []repository.Photo,
) (*repository.CompleteRecordParams, error) {
	category, err := domain.ParseVoltageCategory(record.Category.String)
	if err != nil {
		return nil, err
	}

	image, err := h.loadImage(ctx, photos[0])
	if err != nil {
		return nil, err
	}

	raw, err := h.call(ctx, "voltage", func() ([]byte, error) {
		return h.analyzer.ReadVoltagePanel(ctx, image)
	})
	if err != nil {
		return nil, err
	}

	result, err := ml.NormalizeVoltage(raw, category, record.InputValue.Float64)
	if err != nil {
		return nil, err
	}

	return &repository.CompleteRecordParams{
		RawAnalysis:   pqtype.NullRawMessage{RawMessage: raw, Valid: true},
		DetectedValue: sql.NullFloat64{Float64: result.DetectedValue, Valid: result.Detected},
		Detected:      sql.NullBool{Bool: result.Detected, Valid: true},
		Validity:      nullString(string(result.Validity)),
		Profile:       nullString(string(result.Profile)),
	}, nil
}

func (h *AnalyzeRecordHandler) analyzeStructural(
	ctx context.Context,
	photos []repository.Photo,
	logger *slog.Logger,
) (*repository.CompleteRecordParams, error) {
	rustPhoto := photoByRole(photos, domain.PhotoRoleRust)
	boltsPhoto := photoByRole(photos, domain.PhotoRoleBolts)
	posePhoto := photoByRole(photos, domain.PhotoRolePose)
	if rustPhoto == nil || boltsPhoto == nil {
		return nil, fmt.Errorf("structural record is missing rust or bolts photo")
	}

	rustImage, err := h.loadImage(ctx, *rustPhoto)
	if err != nil {
		return nil, err
	}
	rustRaw, err := h.call(ctx, "rust", func() ([]byte, error) {
		return h.analyzer.DetectRust(ctx, rustImage)
	})
	if err != nil {
		return nil, err
	}

	boltsImage, err := h.loadImage(ctx, *boltsPhoto)
	if err != nil {
		return nil, err
	}
	boltsRaw, err := h.call(ctx, "bolts", func() ([]byte, error) {
		return h.analyzer.DetectBolts(ctx, boltsImage)
	})
	if err != nil {
		return nil, err
	}

	// The pose photo is optional, and a failed pose detection degrades to an
	// empty pose rather than failing the record.
	var poseRaw []byte
	if posePhoto != nil {
		poseImage, err := h.loadImage(ctx, *posePhoto)
		if err == nil {
			poseRaw, err = h.call(ctx, "pose", func() ([]byte, error) {
				return h.analyzer.DetectPose(ctx, poseImage)
			})
		}
		if err != nil {
			logger.Warn("Pose detection failed, continuing without pose", "error", err)
			poseRaw = nil
		}
	}

	result, err := ml.NormalizeStructural(rustRaw, boltsRaw, poseRaw)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(map[string]json.RawMessage{
		"rust":  rustRaw,
		"bolts": boltsRaw,
		"pose":  poseRaw,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal combined response: %w", err)
	}

	return &repository.CompleteRecordParams{
		RawAnalysis:   pqtype.NullRawMessage{RawMessage: raw, Valid: true},
		RustLevel:     nullString(result.RustLevel),
		BoltStatus:    nullString(result.BoltStatus),
		BoltsDetected: nullInt32(result.BoltsDetected),
		Pose:          nullString(result.Pose),
	}, nil
}

// call invokes one analysis endpoint and records the outcome.
func (h *AnalyzeRecordHandler) call(ctx context.Context, endpoint string, fn func() ([]byte, error)) ([]byte, error) {
	raw, err := fn()
	if err != nil {
		metrics.AnalysisCalls.WithLabelValues(endpoint, "error").Inc()
		return nil, err
	}
	metrics.AnalysisCalls.WithLabelValues(endpoint, "ok").Inc()
	return raw, nil
}

// fail moves the record to ERROR and reports the job as permanently failed.
// A failure of the ERROR update itself is logged and swallowed so it cannot
// mask the original diagnostic; the watchdog will catch the stuck record.
func (h *AnalyzeRecordHandler) fail(ctx context.Context, recordID int64, kind domain.InspectionKind, logger *slog.Logger, cause error) error {
	logger.Error("Record analysis failed", "error", cause)

	_, err := h.queries.FailRecord(ctx, repository.FailRecordParams{
		ID:           recordID,
		ErrorMessage: sql.NullString{String: cause.Error(), Valid: true},
	})
	if err != nil {
		logger.Error("Failed to mark record as failed", "error", err)
	}

	metrics.RecordsProcessed.WithLabelValues(kind.String(), "error").Inc()
	return worker.NewPermanentError(cause)
}

// loadImages downloads every photo of a record from blob storage.
func (h *AnalyzeRecordHandler) loadImages(ctx context.Context, photos []repository.Photo) ([]ml.ImageInput, error) {
	images := make([]ml.ImageInput, 0, len(photos))
	for _, p := range photos {
		img, err := h.loadImage(ctx, p)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}

func (h *AnalyzeRecordHandler) loadImage(ctx context.Context, photo repository.Photo) (ml.ImageInput, error) {
	reader, info, err := h.storage.Get(ctx, photo.ObjectKey)
	if err != nil {
		return ml.ImageInput{}, fmt.Errorf("download photo %s: %w", photo.ObjectKey, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return ml.ImageInput{}, fmt.Errorf("read photo %s: %w", photo.ObjectKey, err)
	}

	return ml.ImageInput{
		Filename:    photo.ObjectKey,
		ContentType: info.ContentType,
		Data:        data,
	}, nil
}

func photoByRole(photos []repository.Photo, role domain.PhotoRole) *repository.Photo {
	for i := range photos {
		if photos[i].Role == string(role) {
			return &photos[i]
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

func nullInt32(v int) sql.NullInt32 {
	return sql.NullInt32{Int32: int32(v), Valid: true}
}
