// This file implements the dashboard statistics endpoint.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/fieldsight/menara/internal/service"
)

// StatsHandler handles dashboard statistics requests.
//
// Routes handled:
// - GET /api/stats/dashboard -> Dashboard
type StatsHandler struct {
	stats  service.StatsService
	logger *slog.Logger
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(stats service.StatsService, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{
		stats:  stats,
		logger: logger,
	}
}

// RegisterRoutes registers the stats routes on the mux.
func (h *StatsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/stats/dashboard", h.Dashboard)
}

type dashboardResponse struct {
	TowerCount int64 `json:"tower_count"`

	Antennas struct {
		RF    int64 `json:"rf"`
		RRU   int64 `json:"rru"`
		MW    int64 `json:"mw"`
		Total int64 `json:"total"`
	} `json:"antennas"`

	CleanlinessCounts map[string]int64 `json:"cleanliness_counts"`
	VoltageProfiles   map[string]int64 `json:"voltage_profiles"`
}

// Dashboard handles GET /api/stats/dashboard.
func (h *StatsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Dashboard(r.Context())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var resp dashboardResponse
	resp.TowerCount = stats.TowerCount
	resp.Antennas.RF = stats.AntennaRF
	resp.Antennas.RRU = stats.AntennaRRU
	resp.Antennas.MW = stats.AntennaMW
	resp.Antennas.Total = stats.AntennaTotal
	resp.CleanlinessCounts = stats.CleanlinessCounts
	resp.VoltageProfiles = stats.VoltageProfiles

	writeJSON(w, http.StatusOK, resp)
}
