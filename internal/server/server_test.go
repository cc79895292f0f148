package server

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/permit-leads/internal/model"
	"github.com/sells-group/permit-leads/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func seedPermit(num, date string, value float64, priority model.LeadPriority, contractor model.ContractorType) model.Permit {
	d, _ := time.Parse(model.DateLayout, date)
	return model.Permit{
		PermitNumber:      num,
		PermitType:        "Residential",
		Status:            "Issued",
		ApplicationDate:   model.NewDate(d),
		ConstructionValue: value,
		ValueRange:        model.ValueRangeFor(value),
		WorkType:          "Renovation",
		SubWorkType:       "Not Available",
		Description:       "seeded",
		Address:           "1 Main St",
		LeadPriority:      priority,
		ContractorType:    contractor,
	}
}

func seedStore(t *testing.T, st store.Store, permits ...model.Permit) {
	t.Helper()
	_, err := st.ReplaceBatch(context.Background(), &model.TransformResult{
		Status:  model.StatusSuccess,
		Permits: permits,
		Summary: model.Summary{
			TotalPermits:           len(permits),
			PriorityDistribution:   map[string]int{},
			ContractorDistribution: map[string]int{},
			PermitTypeDistribution: map[string]int{},
			ValueRangeDistribution: map[string]int{},
		},
		Metadata: model.Metadata{Timestamp: time.Now().UTC(), Source: "feature_service"},
	})
	require.NoError(t, err)
}

func newTestServer(t *testing.T, st store.Store, refresh RefreshFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(New(st, refresh, 0).Router())
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, newTestStore(t), nil)

	var body map[string]string
	resp := getJSON(t, srv.URL+"/health", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestListPermits(t *testing.T) {
	st := newTestStore(t)
	seedStore(t, st,
		seedPermit("BP-1", "2025-03-01", 2000000, model.PriorityHigh, model.ContractorGeneralContractors),
		seedPermit("BP-2", "2025-01-15", 45000, model.PriorityLow, model.ContractorGeneral),
	)
	srv := newTestServer(t, st, nil)

	var body struct {
		Status  string           `json:"status"`
		Permits []map[string]any `json:"permits"`
		Page    int              `json:"page"`
		Limit   int              `json:"limit"`
		Total   int              `json:"total"`
	}
	resp := getJSON(t, srv.URL+"/api/permits", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, 2, body.Total)
	assert.Equal(t, 1, body.Page)
	require.Len(t, body.Permits, 2)

	// Human-readable labels in the payload, newest first.
	assert.Equal(t, "BP-1", body.Permits[0]["Permit Number"])
	assert.Equal(t, "2025-03-01", body.Permits[0]["Application Date"])
	assert.Equal(t, "High", body.Permits[0]["Lead Priority"])
}

func TestListPermitsFiltered(t *testing.T) {
	st := newTestStore(t)
	seedStore(t, st,
		seedPermit("BP-1", "2025-03-01", 2000000, model.PriorityHigh, model.ContractorGeneralContractors),
		seedPermit("BP-2", "2025-01-15", 45000, model.PriorityLow, model.ContractorPlumbers),
	)
	srv := newTestServer(t, st, nil)

	var body struct {
		Total   int              `json:"total"`
		Permits []map[string]any `json:"permits"`
	}
	getJSON(t, srv.URL+"/api/permits?priority=High", &body)
	assert.Equal(t, 1, body.Total)
	require.Len(t, body.Permits, 1)
	assert.Equal(t, "BP-1", body.Permits[0]["Permit Number"])

	getJSON(t, srv.URL+"/api/permits?contractor_type=Plumbers&min_value=1000", &body)
	assert.Equal(t, 1, body.Total)
}

func TestListPermitsPagination(t *testing.T) {
	st := newTestStore(t)
	seedStore(t, st,
		seedPermit("BP-1", "2025-05-01", 1000, model.PriorityLow, model.ContractorGeneral),
		seedPermit("BP-2", "2025-04-01", 1000, model.PriorityLow, model.ContractorGeneral),
		seedPermit("BP-3", "2025-03-01", 1000, model.PriorityLow, model.ContractorGeneral),
	)
	srv := newTestServer(t, st, nil)

	var body struct {
		Total   int              `json:"total"`
		Page    int              `json:"page"`
		Limit   int              `json:"limit"`
		Permits []map[string]any `json:"permits"`
	}
	getJSON(t, srv.URL+"/api/permits?page=2&limit=2", &body)
	assert.Equal(t, 3, body.Total)
	assert.Equal(t, 2, body.Page)
	assert.Equal(t, 2, body.Limit)
	require.Len(t, body.Permits, 1)
	assert.Equal(t, "BP-3", body.Permits[0]["Permit Number"])
}

func TestListPermitsBadParams(t *testing.T) {
	srv := newTestServer(t, newTestStore(t), nil)

	for _, q := range []string{
		"priority=Urgent",
		"contractor_type=Roofers",
		"min_value=lots",
		"from=March",
		"page=0",
		"limit=-5",
	} {
		resp, err := http.Get(srv.URL + "/api/permits?" + q)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "query %s", q)
	}
}

func TestSummary(t *testing.T) {
	st := newTestStore(t)
	seedStore(t, st, seedPermit("BP-1", "2025-03-01", 100000, model.PriorityMedium, model.ContractorGeneral))
	srv := newTestServer(t, st, nil)

	var body struct {
		Status  string `json:"status"`
		Summary struct {
			TotalPermits int `json:"total_permits"`
		} `json:"summary"`
		LastUpdated time.Time `json:"last_updated"`
	}
	resp := getJSON(t, srv.URL+"/api/summary", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, 1, body.Summary.TotalPermits)
	assert.False(t, body.LastUpdated.IsZero())
}

func TestSummaryNoData(t *testing.T) {
	srv := newTestServer(t, newTestStore(t), nil)

	resp, err := http.Get(srv.URL + "/api/summary")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExportCSV(t *testing.T) {
	st := newTestStore(t)
	seedStore(t, st,
		seedPermit("BP-1", "2025-03-01", 2000000, model.PriorityHigh, model.ContractorGeneralContractors),
		seedPermit("BP-2", "2025-01-15", 45000, model.PriorityLow, model.ContractorGeneral),
	)
	srv := newTestServer(t, st, nil)

	resp, err := http.Get(srv.URL + "/api/permits.csv")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "permit_leads.csv")

	rows, err := csv.NewReader(resp.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, model.CSVHeader(), rows[0])
	assert.Equal(t, "BP-1", rows[1][0])
}

func TestExportCSVFiltered(t *testing.T) {
	st := newTestStore(t)
	seedStore(t, st,
		seedPermit("BP-1", "2025-03-01", 2000000, model.PriorityHigh, model.ContractorGeneralContractors),
		seedPermit("BP-2", "2025-01-15", 45000, model.PriorityLow, model.ContractorGeneral),
	)
	srv := newTestServer(t, st, nil)

	resp, err := http.Get(srv.URL + "/api/permits.csv?priority=Low")
	require.NoError(t, err)
	defer resp.Body.Close()

	rows, err := csv.NewReader(resp.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "BP-2", rows[1][0])
}

func TestExportXLSX(t *testing.T) {
	st := newTestStore(t)
	seedStore(t, st, seedPermit("BP-1", "2025-03-01", 100000, model.PriorityMedium, model.ContractorGeneral))
	srv := newTestServer(t, st, nil)

	resp, err := http.Get(srv.URL + "/api/permits.xlsx")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "permit_leads.xlsx")
}

func TestRefresh(t *testing.T) {
	st := newTestStore(t)
	srv := newTestServer(t, st, func(ctx context.Context) (*model.TransformResult, error) {
		result := &model.TransformResult{
			Status: model.StatusSuccess,
			Summary: model.Summary{
				TotalPermits:           1,
				PriorityDistribution:   map[string]int{},
				ContractorDistribution: map[string]int{},
				PermitTypeDistribution: map[string]int{},
				ValueRangeDistribution: map[string]int{},
			},
			Permits:  []model.Permit{seedPermit("BP-NEW", "2025-06-01", 1000, model.PriorityLow, model.ContractorGeneral)},
			Metadata: model.Metadata{Timestamp: time.Now().UTC()},
		}
		_, err := st.ReplaceBatch(ctx, result)
		return result, err
	})

	resp, err := http.Post(srv.URL+"/api/refresh", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, float64(1), body["total_permits"])

	permits, err := st.ListPermits(context.Background(), store.PermitFilter{})
	require.NoError(t, err)
	require.Len(t, permits, 1)
	assert.Equal(t, "BP-NEW", permits[0].PermitNumber)
}

func TestRefreshNotConfigured(t *testing.T) {
	srv := newTestServer(t, newTestStore(t), nil)

	resp, err := http.Post(srv.URL+"/api/refresh", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

func TestRefreshFailure(t *testing.T) {
	srv := newTestServer(t, newTestStore(t), func(ctx context.Context) (*model.TransformResult, error) {
		return nil, assert.AnError
	})

	resp, err := http.Post(srv.URL+"/api/refresh", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}
