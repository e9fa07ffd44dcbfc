// This file implements the inspection submission and read endpoints.
//
// Submissions are multipart forms: photos plus kind-specific fields. The
// response is the freshly persisted PENDING record; analysis results arrive
// asynchronously and are fetched by polling the record.
package handler

import (
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/fieldsight/menara/internal/auth"
	"github.com/fieldsight/menara/internal/domain"
	"github.com/fieldsight/menara/internal/service"
)

// maxSubmissionMemory bounds in-memory multipart parsing; larger parts spill
// to temp files.
const maxSubmissionMemory = 32 << 20

// InspectionHandler handles inspection record requests.
//
// Routes handled:
// - POST /api/towers/{towerID}/inspections/cleanliness -> SubmitCleanliness
// - POST /api/towers/{towerID}/inspections/antenna     -> SubmitAntenna
// - POST /api/towers/{towerID}/inspections/voltage     -> SubmitVoltage
// - POST /api/towers/{towerID}/inspections/structural  -> SubmitStructural
// - GET  /api/towers/{towerID}/inspections/{kind}      -> ListByTower
// - GET  /api/inspections/{id}                         -> GetByID
// - GET  /api/history                                  -> History
type InspectionHandler struct {
	inspections service.InspectionService
	logger      *slog.Logger
}

// NewInspectionHandler creates a new InspectionHandler.
func NewInspectionHandler(inspections service.InspectionService, logger *slog.Logger) *InspectionHandler {
	return &InspectionHandler{
		inspections: inspections,
		logger:      logger,
	}
}

// RegisterRoutes registers the inspection routes on the mux. The caller
// wraps the mux with authentication middleware.
func (h *InspectionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/towers/{towerID}/inspections/cleanliness", h.SubmitCleanliness)
	mux.HandleFunc("POST /api/towers/{towerID}/inspections/antenna", h.SubmitAntenna)
	mux.HandleFunc("POST /api/towers/{towerID}/inspections/voltage", h.SubmitVoltage)
	mux.HandleFunc("POST /api/towers/{towerID}/inspections/structural", h.SubmitStructural)
	mux.HandleFunc("GET /api/towers/{towerID}/inspections/{kind}", h.ListByTower)
	mux.HandleFunc("GET /api/inspections/{id}", h.GetByID)
	mux.HandleFunc("GET /api/history", h.History)
}

// SubmitCleanliness handles POST /api/towers/{towerID}/inspections/cleanliness.
func (h *InspectionHandler) SubmitCleanliness(w http.ResponseWriter, r *http.Request) {
	const op = "InspectionHandler.SubmitCleanliness"

	user, towerID, ok := h.submissionContext(w, r, op)
	if !ok {
		return
	}

	photos, err := formFiles(r, "photos")
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, err.Error()))
		return
	}

	record, err := h.inspections.SubmitCleanliness(r.Context(), service.SubmitCleanlinessParams{
		TowerID: towerID,
		UserID:  user.ID,
		Photos:  photos,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusAccepted, toRecordResponse(record, false))
}

// SubmitAntenna handles POST /api/towers/{towerID}/inspections/antenna.
func (h *InspectionHandler) SubmitAntenna(w http.ResponseWriter, r *http.Request) {
	const op = "InspectionHandler.SubmitAntenna"

	user, towerID, ok := h.submissionContext(w, r, op)
	if !ok {
		return
	}

	photos, err := formFiles(r, "photos")
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, err.Error()))
		return
	}

	height, err := formFloat(r, "height")
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "height must be a number"))
		return
	}
	latitude, err := formFloat(r, "latitude")
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "latitude must be a number"))
		return
	}
	longitude, err := formFloat(r, "longitude")
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "longitude must be a number"))
		return
	}

	record, err := h.inspections.SubmitAntenna(r.Context(), service.SubmitAntennaParams{
		TowerID:   towerID,
		UserID:    user.ID,
		Height:    height,
		Latitude:  latitude,
		Longitude: longitude,
		Photos:    photos,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusAccepted, toRecordResponse(record, false))
}

// SubmitVoltage handles POST /api/towers/{towerID}/inspections/voltage.
func (h *InspectionHandler) SubmitVoltage(w http.ResponseWriter, r *http.Request) {
	const op = "InspectionHandler.SubmitVoltage"

	user, towerID, ok := h.submissionContext(w, r, op)
	if !ok {
		return
	}

	photo, err := formFile(r, "photo")
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, err.Error()))
		return
	}

	value, err := formFloat(r, "value")
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "value must be a number"))
		return
	}

	record, err := h.inspections.SubmitVoltage(r.Context(), service.SubmitVoltageParams{
		TowerID:    towerID,
		UserID:     user.ID,
		Category:   r.FormValue("category"),
		InputValue: value,
		Photo:      photo,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusAccepted, toRecordResponse(record, false))
}

// SubmitStructural handles POST /api/towers/{towerID}/inspections/structural.
func (h *InspectionHandler) SubmitStructural(w http.ResponseWriter, r *http.Request) {
	const op = "InspectionHandler.SubmitStructural"

	user, towerID, ok := h.submissionContext(w, r, op)
	if !ok {
		return
	}

	rustPhoto, err := formFile(r, "rust_photo")
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "rust_photo is required"))
		return
	}
	boltsPhoto, err := formFile(r, "bolts_photo")
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "bolts_photo is required"))
		return
	}

	params := service.SubmitStructuralParams{
		TowerID:    towerID,
		UserID:     user.ID,
		RustPhoto:  rustPhoto,
		BoltsPhoto: boltsPhoto,
	}
	if posePhoto, err := formFile(r, "pose_photo"); err == nil {
		params.PosePhoto = &posePhoto
	}

	record, err := h.inspections.SubmitStructural(r.Context(), params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusAccepted, toRecordResponse(record, false))
}

// GetByID handles GET /api/inspections/{id}.
func (h *InspectionHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		NotFoundResponse(w, r, h.logger)
		return
	}

	record, err := h.inspections.GetByID(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	// Raw analysis output is an admin-only audit detail.
	user := auth.GetUser(r.Context())
	includeRaw := user != nil && user.Role == domain.RoleAdmin

	writeJSON(w, http.StatusOK, toRecordResponse(record, includeRaw))
}

// ListByTower handles GET /api/towers/{towerID}/inspections/{kind}.
func (h *InspectionHandler) ListByTower(w http.ResponseWriter, r *http.Request) {
	const op = "InspectionHandler.ListByTower"

	towerID, err := strconv.ParseInt(r.PathValue("towerID"), 10, 64)
	if err != nil {
		NotFoundResponse(w, r, h.logger)
		return
	}
	kind, err := domain.ParseInspectionKind(r.PathValue("kind"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "unknown inspection kind"))
		return
	}

	records, err := h.inspections.ListByTower(r.Context(), towerID, kind)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"records": toRecordResponses(records),
	})
}

// towerHistoryResponse is one tower group in the history response.
type towerHistoryResponse struct {
	TowerID   int64            `json:"tower_id"`
	TowerName string           `json:"tower_name"`
	Records   []RecordResponse `json:"records"`
}

// History handles GET /api/history. The optional "kind" query parameter
// filters to one inspection kind.
func (h *InspectionHandler) History(w http.ResponseWriter, r *http.Request) {
	const op = "InspectionHandler.History"

	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var kind *domain.InspectionKind
	if k := r.URL.Query().Get("kind"); k != "" {
		parsed, err := domain.ParseInspectionKind(k)
		if err != nil {
			ErrorResponse(w, r, h.logger, domain.Invalid(op, "unknown inspection kind"))
			return
		}
		kind = &parsed
	}

	history, err := h.inspections.ListByUser(r.Context(), user.ID, kind)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	groups := make([]towerHistoryResponse, len(history))
	for i, g := range history {
		groups[i] = towerHistoryResponse{
			TowerID:   g.TowerID,
			TowerName: g.TowerName,
			Records:   toRecordResponses(g.Records),
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"towers": groups})
}

// submissionContext extracts the authenticated user and tower ID shared by
// all submission endpoints, writing the error response itself on failure.
func (h *InspectionHandler) submissionContext(w http.ResponseWriter, r *http.Request, op string) (*domain.User, int64, bool) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return nil, 0, false
	}

	towerID, err := strconv.ParseInt(r.PathValue("towerID"), 10, 64)
	if err != nil {
		NotFoundResponse(w, r, h.logger)
		return nil, 0, false
	}

	if err := r.ParseMultipartForm(maxSubmissionMemory); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "expected a multipart form"))
		return nil, 0, false
	}

	return user, towerID, true
}

// formFiles reads every uploaded file under the field name.
func formFiles(r *http.Request, field string) ([]service.FileUpload, error) {
	if r.MultipartForm == nil || len(r.MultipartForm.File[field]) == 0 {
		return nil, errFieldRequired(field)
	}

	var files []service.FileUpload
	for _, header := range r.MultipartForm.File[field] {
		file, err := readUpload(header)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, nil
}

// formFile reads a single uploaded file under the field name.
func formFile(r *http.Request, field string) (service.FileUpload, error) {
	if r.MultipartForm == nil || len(r.MultipartForm.File[field]) == 0 {
		return service.FileUpload{}, errFieldRequired(field)
	}
	return readUpload(r.MultipartForm.File[field][0])
}

func readUpload(header *multipart.FileHeader) (service.FileUpload, error) {
	f, err := header.Open()
	if err != nil {
		return service.FileUpload{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return service.FileUpload{}, err
	}

	return service.FileUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func formFloat(r *http.Request, field string) (float64, error) {
	return strconv.ParseFloat(r.FormValue(field), 64)
}

type fieldRequiredError string

func (e fieldRequiredError) Error() string { return string(e) + " is required" }

func errFieldRequired(field string) error { return fieldRequiredError(field) }
