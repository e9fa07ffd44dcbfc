// This file implements the region and tower endpoints.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fieldsight/menara/internal/auth"
	"github.com/fieldsight/menara/internal/domain"
	"github.com/fieldsight/menara/internal/service"
)

// TowerHandler handles region and tower requests.
//
// Routes handled:
// - POST /api/regions        -> CreateRegion (admin)
// - GET  /api/regions        -> ListRegions
// - POST /api/towers         -> CreateTower (admin)
// - GET  /api/towers         -> ListTowers
// - GET  /api/towers/{id}    -> GetTower
type TowerHandler struct {
	towers service.TowerService
	logger *slog.Logger
}

// NewTowerHandler creates a new TowerHandler.
func NewTowerHandler(towers service.TowerService, logger *slog.Logger) *TowerHandler {
	return &TowerHandler{
		towers: towers,
		logger: logger,
	}
}

// RegisterRoutes registers the tower routes on the mux.
func (h *TowerHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/regions", h.CreateRegion)
	mux.HandleFunc("GET /api/regions", h.ListRegions)
	mux.HandleFunc("POST /api/towers", h.CreateTower)
	mux.HandleFunc("GET /api/towers", h.ListTowers)
	mux.HandleFunc("GET /api/towers/{id}", h.GetTower)
}

// RegionResponse is the JSON shape of a region.
type RegionResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// TowerSummaryResponse is the derived inspection status of a tower.
type TowerSummaryResponse struct {
	CompletedCount      int        `json:"completed_count"`
	Status              string     `json:"status"`
	FirstInspectionDate *time.Time `json:"first_inspection_date"`
	LastInspectionDate  *time.Time `json:"last_inspection_date"`
	TechnicianName      string     `json:"technician_name,omitempty"`
}

// TowerResponse is the JSON shape of a tower with its derived status.
type TowerResponse struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	RegionID   int64   `json:"region_id"`
	RegionName string  `json:"region_name,omitempty"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Height     float64 `json:"height"`

	AntennaRF  int `json:"antenna_rf"`
	AntennaRRU int `json:"antenna_rru"`
	AntennaMW  int `json:"antenna_mw"`

	Summary *TowerSummaryResponse `json:"inspection_summary,omitempty"`

	// Latest completed record per kind, present on the detail endpoint.
	Latest map[string]RecordResponse `json:"latest,omitempty"`
}

type createRegionRequest struct {
	Name string `json:"name"`
}

type createTowerRequest struct {
	Name      string  `json:"name"`
	RegionID  int64   `json:"region_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Height    float64 `json:"height"`
}

// CreateRegion handles POST /api/regions.
func (h *TowerHandler) CreateRegion(w http.ResponseWriter, r *http.Request) {
	const op = "TowerHandler.CreateRegion"

	if !h.requireAdmin(w, r) {
		return
	}

	var req createRegionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "invalid JSON body"))
		return
	}

	region, err := h.towers.CreateRegion(r.Context(), req.Name)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, toRegionResponse(*region))
}

// ListRegions handles GET /api/regions.
func (h *TowerHandler) ListRegions(w http.ResponseWriter, r *http.Request) {
	regions, err := h.towers.ListRegions(r.Context())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]RegionResponse, len(regions))
	for i, region := range regions {
		out[i] = toRegionResponse(region)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"regions": out})
}

// CreateTower handles POST /api/towers.
func (h *TowerHandler) CreateTower(w http.ResponseWriter, r *http.Request) {
	const op = "TowerHandler.CreateTower"

	if !h.requireAdmin(w, r) {
		return
	}

	var req createTowerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "invalid JSON body"))
		return
	}

	tower, err := h.towers.CreateTower(r.Context(), service.CreateTowerParams{
		Name:      req.Name,
		RegionID:  req.RegionID,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Height:    req.Height,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTowerResponse(domain.TowerDetail{Tower: *tower}, false))
}

// ListTowers handles GET /api/towers. The optional "region_id" query
// parameter filters by region.
func (h *TowerHandler) ListTowers(w http.ResponseWriter, r *http.Request) {
	const op = "TowerHandler.ListTowers"

	var regionID *int64
	if raw := r.URL.Query().Get("region_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			ErrorResponse(w, r, h.logger, domain.Invalid(op, "region_id must be an integer"))
			return
		}
		regionID = &id
	}

	details, err := h.towers.ListTowers(r.Context(), regionID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]TowerResponse, len(details))
	for i, d := range details {
		out[i] = toTowerResponse(d, false)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"towers": out})
}

// GetTower handles GET /api/towers/{id}.
func (h *TowerHandler) GetTower(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		NotFoundResponse(w, r, h.logger)
		return
	}

	detail, err := h.towers.GetTowerDetail(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toTowerResponse(*detail, true))
}

func (h *TowerHandler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return false
	}
	if user.Role != domain.RoleAdmin {
		ForbiddenResponse(w, r, h.logger)
		return false
	}
	return true
}

func toRegionResponse(region domain.Region) RegionResponse {
	return RegionResponse{ID: region.ID, Name: region.Name, CreatedAt: region.CreatedAt}
}

func toTowerResponse(detail domain.TowerDetail, includeLatest bool) TowerResponse {
	t := detail.Tower
	resp := TowerResponse{
		ID:         t.ID,
		Name:       t.Name,
		RegionID:   t.RegionID,
		RegionName: t.RegionName,
		Latitude:   t.Latitude,
		Longitude:  t.Longitude,
		Height:     t.Height,
		AntennaRF:  t.AntennaRF,
		AntennaRRU: t.AntennaRRU,
		AntennaMW:  t.AntennaMW,
	}

	if detail.Latest != nil {
		resp.Summary = &TowerSummaryResponse{
			CompletedCount:      detail.Summary.CompletedCount,
			Status:              string(detail.Summary.Status),
			FirstInspectionDate: detail.Summary.FirstInspectionDate,
			LastInspectionDate:  detail.Summary.LastInspectionDate,
			TechnicianName:      detail.Summary.TechnicianName,
		}
	}

	if includeLatest && len(detail.Latest) > 0 {
		resp.Latest = make(map[string]RecordResponse, len(detail.Latest))
		for kind, record := range detail.Latest {
			resp.Latest[kind.String()] = toRecordResponse(record, false)
		}
	}
	return resp
}
