package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/folio-org/mod-rtac-cache-sub000/internal/app"
	"github.com/folio-org/mod-rtac-cache-sub000/internal/cache"
	testutil "github.com/folio-org/mod-rtac-cache-sub000/internal/database/testutil"
	"github.com/folio-org/mod-rtac-cache-sub000/internal/events"
	"github.com/folio-org/mod-rtac-cache-sub000/internal/gateway"
	"github.com/folio-org/mod-rtac-cache-sub000/internal/models"
	"github.com/folio-org/mod-rtac-cache-sub000/internal/prewarm"
	"github.com/folio-org/mod-rtac-cache-sub000/internal/refdata"
)

type stubRefGateway struct{}

func (stubRefGateway) Locations(context.Context, string) ([]gateway.Location, error) {
	return nil, nil
}
func (stubRefGateway) Libraries(context.Context, string) ([]gateway.Library, error) {
	return nil, nil
}
func (stubRefGateway) MaterialTypes(context.Context, string) ([]gateway.NamedRef, error) {
	return nil, nil
}
func (stubRefGateway) LoanTypes(context.Context, string) ([]gateway.NamedRef, error) {
	return nil, nil
}
func (stubRefGateway) NoteTypes(context.Context, string) ([]gateway.NamedRef, error) {
	return nil, nil
}

type stubGenerator struct{}

func (stubGenerator) Run(context.Context, string, string) error { return nil }

func newTestRouter(t *testing.T) (*gin.Engine, *cache.Store, *prewarm.Orchestrator) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t)
	store, err := cache.NewStore(db)
	require.NoError(t, err)
	ref, err := refdata.NewLookup(stubRefGateway{})
	require.NoError(t, err)
	handlers, err := events.DefaultHandlers(store, ref)
	require.NoError(t, err)
	dispatcher, err := events.NewDispatcher(handlers...)
	require.NoError(t, err)
	jobs, err := prewarm.NewJobStore(db)
	require.NoError(t, err)
	orch, err := prewarm.NewOrchestrator(stubGenerator{}, store, jobs)
	require.NoError(t, err)

	cfg, err := app.LoadConfig(t.TempDir())
	require.NoError(t, err)

	router, err := NewRouter(db, cfg, store, dispatcher, orch)
	require.NoError(t, err)
	return router, store, orch
}

func doRequest(r *gin.Engine, method, path, tenant, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if tenant != "" {
		req.Header.Set("X-Okapi-Tenant", tenant)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestMetricsEndpoint(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAPIRoutesRequireTenantHeader(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/rtac-cache/availability/inst-1", "", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "MISSING_TENANT")
}

func TestAvailabilityEndpointReturnsRows(t *testing.T) {
	router, store, _ := newTestRouter(t)

	require.NoError(t, store.Upsert(context.Background(), models.AvailabilityRecord{
		InstanceID: "inst-1",
		RecordType: models.RecordTypeHolding,
		RecordID:   "h-1",
		HoldingsID: "h-1",
		CallNumber: "CN",
	}))

	w := doRequest(router, http.MethodGet, "/rtac-cache/availability/inst-1", "diku", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"CN"`)
	require.Contains(t, w.Body.String(), `"inst-1"`)
}

func TestPrewarmSubmitAndStatus(t *testing.T) {
	router, _, orch := newTestRouter(t)

	body := `{"instanceIds": ["7f0c6a52-9b3e-4f4a-a9f3-0d6a2f8f2f10"]}`
	w := doRequest(router, http.MethodPost, "/rtac-cache/prewarm", "diku", body)
	require.Equal(t, http.StatusAccepted, w.Code)

	var envelope struct {
		Data models.PreWarmJob `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotEmpty(t, envelope.Data.ID)

	orch.Wait()

	w = doRequest(router, http.MethodGet, "/rtac-cache/prewarm/"+envelope.Data.ID, "diku", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), string(models.JobStatusCompleted))
}

func TestPrewarmSubmitValidatesPayload(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/rtac-cache/prewarm", "diku", `{"instanceIds": []}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodPost, "/rtac-cache/prewarm", "diku", `{"instanceIds": ["not-a-uuid"]}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPrewarmStatusUnknownJob(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/rtac-cache/prewarm/missing", "diku", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "JOB_NOT_FOUND")
}

func TestEventIngestAppliesEvent(t *testing.T) {
	router, store, _ := newTestRouter(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, models.AvailabilityRecord{
		InstanceID: "inst-1",
		RecordType: models.RecordTypeItem,
		RecordID:   "it-1",
		HoldingsID: "h-1",
	}))

	body := `{"entityType": "ITEM", "action": "DELETE", "new": {"id": "it-1"}}`
	w := doRequest(router, http.MethodPost, "/rtac-cache/events", "diku", body)
	require.Equal(t, http.StatusOK, w.Code)

	row, err := store.FindItem(ctx, "it-1")
	require.NoError(t, err)
	require.Nil(t, row)
}

func TestEventIngestUnroutableIsServerError(t *testing.T) {
	router, _, _ := newTestRouter(t)

	body := `{"entityType": "INSTANCE", "action": "DELETE", "new": {"id": "inst-1"}}`
	w := doRequest(router, http.MethodPost, "/rtac-cache/events", "diku", body)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Contains(t, w.Body.String(), "UNROUTABLE_EVENT")
}

func TestUnknownRouteReturnsJSON404(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/nope", "", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}
