package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/permit-leads/internal/export"
	"github.com/sells-group/permit-leads/internal/model"
	"github.com/sells-group/permit-leads/internal/store"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// permitListResponse is the paginated envelope for GET /api/permits.
type permitListResponse struct {
	Status  model.Status   `json:"status"`
	Permits []model.Permit `json:"permits"`
	Page    int            `json:"page"`
	Limit   int            `json:"limit"`
	Total   int            `json:"total"`
}

// summaryResponse mirrors the stored batch envelope for GET /api/summary.
type summaryResponse struct {
	Status      model.Status    `json:"status"`
	ErrorType   model.ErrorType `json:"error_type,omitempty"`
	Message     string          `json:"message,omitempty"`
	Summary     model.Summary   `json:"summary"`
	Metadata    model.Metadata  `json:"metadata"`
	LastUpdated time.Time       `json:"last_updated"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListPermits(w http.ResponseWriter, r *http.Request) {
	filter, page, limit, err := parseFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	total, err := s.store.CountPermits(r.Context(), filter)
	if err != nil {
		zap.L().Error("server: count permits", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to query permits")
		return
	}

	permits, err := s.store.ListPermits(r.Context(), filter)
	if err != nil {
		zap.L().Error("server: list permits", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to query permits")
		return
	}

	respondJSON(w, http.StatusOK, permitListResponse{
		Status:  model.StatusSuccess,
		Permits: permits,
		Page:    page,
		Limit:   limit,
		Total:   total,
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	batch, err := s.store.LatestBatch(r.Context())
	if err != nil {
		zap.L().Error("server: latest batch", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to load summary")
		return
	}
	if batch == nil {
		respondError(w, http.StatusNotFound, "no permit data has been loaded yet")
		return
	}

	respondJSON(w, http.StatusOK, summaryResponse{
		Status:      batch.Status,
		ErrorType:   batch.ErrorType,
		Message:     batch.Message,
		Summary:     batch.Summary,
		Metadata:    batch.Metadata,
		LastUpdated: batch.CreatedAt,
	})
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	permits, ok := s.exportPermits(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="permit_leads.csv"`)
	if err := export.WriteCSV(w, permits); err != nil {
		zap.L().Error("server: write csv export", zap.Error(err))
	}
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	permits, ok := s.exportPermits(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="permit_leads.xlsx"`)
	if err := export.WriteXLSX(w, permits); err != nil {
		zap.L().Error("server: write xlsx export", zap.Error(err))
	}
}

// exportPermits resolves the filtered permit set for a download request.
// Downloads are unpaginated; the whole filtered batch goes into the file.
func (s *Server) exportPermits(w http.ResponseWriter, r *http.Request) ([]model.Permit, bool) {
	filter, _, _, err := parseFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	filter.Limit = 0
	filter.Offset = 0

	total, err := s.store.CountPermits(r.Context(), filter)
	if err != nil {
		zap.L().Error("server: count permits for export", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to query permits")
		return nil, false
	}
	if total == 0 {
		return []model.Permit{}, true
	}
	filter.Limit = total

	permits, err := s.store.ListPermits(r.Context(), filter)
	if err != nil {
		zap.L().Error("server: list permits for export", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to query permits")
		return nil, false
	}
	return permits, true
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.refresh == nil {
		respondError(w, http.StatusNotImplemented, "refresh is not configured")
		return
	}

	result, err := s.refresh(r.Context())
	if err != nil {
		zap.L().Error("server: refresh failed", zap.Error(err))
		respondError(w, http.StatusBadGateway, "refresh failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":        result.Status,
		"error_type":    result.ErrorType,
		"message":       result.Message,
		"total_permits": result.Summary.TotalPermits,
	})
}

// parseFilter builds the store filter from query parameters, plus the page
// and limit actually applied.
func parseFilter(r *http.Request) (store.PermitFilter, int, int, error) {
	q := r.URL.Query()
	var filter store.PermitFilter

	if v := q.Get("priority"); v != "" {
		p := model.LeadPriority(v)
		if !p.Valid() {
			return filter, 0, 0, errBadParam("priority", v)
		}
		filter.Priority = p
	}
	if v := q.Get("contractor_type"); v != "" {
		c := model.ContractorType(v)
		if !c.Valid() {
			return filter, 0, 0, errBadParam("contractor_type", v)
		}
		filter.ContractorType = c
	}
	filter.Status = q.Get("status")
	filter.WorkType = q.Get("work_type")

	if v := q.Get("min_value"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return filter, 0, 0, errBadParam("min_value", v)
		}
		filter.MinValue = &f
	}
	if v := q.Get("max_value"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return filter, 0, 0, errBadParam("max_value", v)
		}
		filter.MaxValue = &f
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(model.DateLayout, v)
		if err != nil {
			return filter, 0, 0, errBadParam("from", v)
		}
		filter.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(model.DateLayout, v)
		if err != nil {
			return filter, 0, 0, errBadParam("to", v)
		}
		filter.To = &t
	}

	page := 1
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return filter, 0, 0, errBadParam("page", v)
		}
		page = n
	}
	limit := defaultPageSize
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return filter, 0, 0, errBadParam("limit", v)
		}
		if n > maxPageSize {
			n = maxPageSize
		}
		limit = n
	}

	filter.Limit = limit
	filter.Offset = (page - 1) * limit

	return filter, page, limit, nil
}

type paramError struct {
	name, value string
}

func (e paramError) Error() string {
	return "invalid value for " + e.name + ": " + e.value
}

func errBadParam(name, value string) error {
	return paramError{name: name, value: value}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"status": "error", "message": msg})
}
