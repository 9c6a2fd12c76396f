package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spareflow/internal/app"
	"spareflow/internal/core/entity"
	"spareflow/internal/core/id"
	"spareflow/internal/domain/auth"
	"spareflow/internal/domain/catalog"
	"spareflow/internal/domain/inventory"
	"spareflow/internal/infrastructure/http/v1/middleware"
	"spareflow/internal/infrastructure/metrics"
	"spareflow/internal/infrastructure/storage/memory"
)

const (
	serviceCenterID int64 = 3
	technicianID    int64 = 7
	spareFilter     int64 = 10
	sparePump       int64 = 11
)

type testServer struct {
	handler  http.Handler
	services *app.Services
}

func newTestServer(t *testing.T, mutate func(cfg *RouterConfig)) *testServer {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	catalogs := store.Catalogs()
	require.NoError(t, catalogs.PutSpare(ctx, catalog.Spare{ID: spareFilter, Code: "FLT-10", Description: "Water filter"}))
	require.NoError(t, catalogs.PutSpare(ctx, catalog.Spare{ID: sparePump, Code: "PMP-11", Description: "Drain pump"}))
	require.NoError(t, catalogs.PutTechnician(ctx, catalog.Technician{ID: technicianID, Name: "Ravi", ServiceCenterID: serviceCenterID}))

	services := app.NewServices(app.MemoryStorage(store), app.Options{})
	cfg := RouterConfig{Services: services}
	if mutate != nil {
		mutate(&cfg)
	}
	return &testServer{handler: NewRouter(cfg), services: services}
}

func (s *testServer) seed(t *testing.T, spareID int64, loc entity.Location, qty entity.Split) {
	t.Helper()
	require.NoError(t, s.services.Inventory.Adjust(context.Background(), inventory.AdjustInput{
		SpareID:  spareID,
		Location: loc,
		Quantity: qty,
		Reason:   "test seed",
	}))
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

type statusBody struct {
	RequestID string `json:"requestId"`
	RequestNo string `json:"requestNo"`
	Status    string `json:"status"`
}

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

type detailsBody struct {
	RequestID string `json:"requestId"`
	Status    string `json:"status"`
	Items     []struct {
		ItemID  string `json:"itemId"`
		SpareID int64  `json:"spareId"`
	} `json:"items"`
	Summary struct {
		Approved entity.Split `json:"approved"`
	} `json:"summary"`
	StockMovements []struct {
		ID       string `json:"id"`
		TotalQty int64  `json:"totalQty"`
		Status   string `json:"status"`
	} `json:"stockMovements"`
	Approvals []struct {
		Status string `json:"approvalStatus"`
	} `json:"approvals"`
	History []struct {
		Action string `json:"action"`
	} `json:"history"`
}

func createReturn(t *testing.T, s *testServer, headers map[string]string) statusBody {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/create-return-request", map[string]any{
		"technicianId": technicianID,
		"items":        []map[string]any{{"spareId": spareFilter, "goodQty": 3, "defectiveQty": 1}},
		"reason":       "job closed",
	}, headers)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var out statusBody
	decode(t, w, &out)
	return out
}

func returnDetails(t *testing.T, s *testServer, requestID string) detailsBody {
	t.Helper()
	w := s.do(t, http.MethodGet, "/api/v1/return-details/"+requestID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out detailsBody
	decode(t, w, &out)
	return out
}

func TestReturnLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	s.seed(t, spareFilter, entity.Technician(technicianID), entity.Split{Good: 5, Defective: 2})

	created := createReturn(t, s, nil)
	assert.Equal(t, "pending", created.Status)
	assert.True(t, strings.HasPrefix(created.RequestNo, "RR"), created.RequestNo)

	details := returnDetails(t, s, created.RequestID)
	require.Len(t, details.Items, 1)
	itemID := details.Items[0].ItemID

	w := s.do(t, http.MethodPost, "/api/v1/receive-return/"+created.RequestID, map[string]any{
		"serviceCenterId": serviceCenterID,
		"receivedBy":      "sc-3-clerk",
		"receivedItems":   []map[string]any{{"itemId": itemID, "receivedGoodQty": 3, "receivedDefectiveQty": 1}},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var received statusBody
	decode(t, w, &received)
	assert.Equal(t, "received", received.Status)

	verifyBody := map[string]any{
		"serviceCenterId": serviceCenterID,
		"verifiedBy":      "sc-3-manager",
		"verifiedItems":   []map[string]any{{"itemId": itemID, "verifiedGoodQty": 3, "verifiedDefectiveQty": 1}},
	}
	w = s.do(t, http.MethodPost, "/api/v1/verify-return/"+created.RequestID, verifyBody, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var verified struct {
		RequestID        string `json:"requestId"`
		Status           string `json:"status"`
		StockMovementID  string `json:"stockMovementId"`
		TotalQtyReturned int64  `json:"totalQtyReturned"`
	}
	decode(t, w, &verified)
	assert.Equal(t, "verified", verified.Status)
	assert.Equal(t, int64(4), verified.TotalQtyReturned)
	assert.NotEmpty(t, verified.StockMovementID)

	w = s.do(t, http.MethodPost, "/api/v1/verify-return/"+created.RequestID, verifyBody, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	var conflict errorBody
	decode(t, w, &conflict)
	assert.Equal(t, "REQUEST_READ_ONLY", conflict.Code)

	details = returnDetails(t, s, created.RequestID)
	assert.Equal(t, "verified", details.Status)
	require.Len(t, details.StockMovements, 1)
	assert.Equal(t, int64(4), details.StockMovements[0].TotalQty)
	assert.Len(t, details.Approvals, 1)
	assert.NotEmpty(t, details.History)

	w = s.do(t, http.MethodGet, "/api/v1/inventory-pools?spareId=10&locationType=service_center&locationId=3", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var pools struct {
		Items []inventory.Pool `json:"items"`
	}
	decode(t, w, &pools)
	require.Len(t, pools.Items, 1)
	assert.Equal(t, entity.Split{Good: 3, Defective: 1}, pools.Items[0].Quantity)
}

func TestReturnVerifyInsufficientStock(t *testing.T) {
	s := newTestServer(t, nil)
	s.seed(t, spareFilter, entity.Technician(technicianID), entity.Split{Good: 2, Defective: 1})

	created := createReturn(t, s, nil)
	itemID := returnDetails(t, s, created.RequestID).Items[0].ItemID

	w := s.do(t, http.MethodPost, "/api/v1/verify-return/"+created.RequestID, map[string]any{
		"serviceCenterId": serviceCenterID,
		"verifiedBy":      "sc-3-manager",
		"verifiedItems":   []map[string]any{{"itemId": itemID, "verifiedGoodQty": 3, "verifiedDefectiveQty": 1}},
	}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var body errorBody
	decode(t, w, &body)
	assert.Equal(t, "INSUFFICIENT_STOCK", body.Code)

	details := returnDetails(t, s, created.RequestID)
	assert.Equal(t, "pending", details.Status)
	assert.Empty(t, details.StockMovements)
	assert.Empty(t, details.Approvals)
}

func TestReturnRejectAndReopen(t *testing.T) {
	s := newTestServer(t, nil)
	created := createReturn(t, s, nil)

	w := s.do(t, http.MethodPost, "/api/v1/reopen-return/"+created.RequestID, map[string]any{
		"reopenedBy": "sc-3-manager",
		"reason":     "customer dispute",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var reopened statusBody
	decode(t, w, &reopened)
	assert.Equal(t, "reopened", reopened.Status)

	w = s.do(t, http.MethodPost, "/api/v1/reject-return/"+created.RequestID, map[string]any{
		"serviceCenterId": serviceCenterID,
		"rejectedBy":      "sc-3-manager",
		"reason":          "wrong parts",
	}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestListReturns(t *testing.T) {
	s := newTestServer(t, nil)
	createReturn(t, s, nil)
	createReturn(t, s, nil)

	w := s.do(t, http.MethodGet, "/api/v1/list-returns?technicianId=7&status=pending&includeItems=true&limit=1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var list struct {
		Items []struct {
			Status string            `json:"status"`
			Items  []json.RawMessage `json:"items"`
		} `json:"items"`
		TotalCount int64 `json:"totalCount"`
		Limit      int   `json:"limit"`
	}
	decode(t, w, &list)
	assert.Equal(t, int64(2), list.TotalCount)
	assert.Equal(t, 1, list.Limit)
	require.Len(t, list.Items, 1)
	assert.Len(t, list.Items[0].Items, 1)

	w = s.do(t, http.MethodGet, "/api/v1/list-returns?fromDate=yesterday", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/list-issue-requests", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &list)
	assert.Equal(t, int64(0), list.TotalCount)
}

func TestIssueLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	s.seed(t, spareFilter, entity.ServiceCenter(serviceCenterID), entity.Split{Good: 10})
	s.seed(t, sparePump, entity.ServiceCenter(serviceCenterID), entity.Split{Good: 10})

	w := s.do(t, http.MethodPost, "/api/v1/create-issue-request", map[string]any{
		"technicianId": technicianID,
		"items": []map[string]any{
			{"spareId": spareFilter, "qty": 2},
			{"spareId": sparePump, "qty": 1},
		},
		"reason": "call 42",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created statusBody
	decode(t, w, &created)
	assert.Equal(t, "pending", created.Status)

	w = s.do(t, http.MethodGet, "/api/v1/issue-request-details/"+created.RequestID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var details detailsBody
	decode(t, w, &details)
	require.Len(t, details.Items, 2)

	decisions := make([]map[string]any, 0, 2)
	for _, it := range details.Items {
		if it.SpareID == spareFilter {
			decisions = append(decisions, map[string]any{"itemId": it.ItemID, "approvedQty": 2})
		} else {
			decisions = append(decisions, map[string]any{"itemId": it.ItemID, "isRejected": true, "rejectionReason": "out of stock"})
		}
	}

	w = s.do(t, http.MethodPost, "/api/v1/approve-issue-request/"+created.RequestID, map[string]any{
		"approverId":      "sc-3-manager",
		"serviceCenterId": serviceCenterID,
		"decisions":       decisions,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var approved struct {
		RequestID      string `json:"requestId"`
		Status         string `json:"status"`
		StockMovements []struct {
			ID       string `json:"id"`
			TotalQty int64  `json:"totalQty"`
			Status   string `json:"status"`
		} `json:"stockMovements"`
	}
	decode(t, w, &approved)
	assert.Equal(t, "approved", approved.Status)
	require.Len(t, approved.StockMovements, 1)
	assert.Equal(t, int64(2), approved.StockMovements[0].TotalQty)
	assert.Equal(t, "pending", approved.StockMovements[0].Status)

	movementID := approved.StockMovements[0].ID
	w = s.do(t, http.MethodPost, "/api/v1/complete-issue-movement/"+movementID, map[string]any{
		"serviceCenterId": 4,
		"completedBy":     "sc-4-manager",
	}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/complete-issue-movement/"+movementID, map[string]any{
		"serviceCenterId": serviceCenterID,
		"completedBy":     "sc-3-manager",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var completed struct {
		Status string `json:"status"`
	}
	decode(t, w, &completed)
	assert.Equal(t, "completed", completed.Status)

	w = s.do(t, http.MethodGet, "/api/v1/issue-request-details/"+created.RequestID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &details)
	assert.Len(t, details.Approvals, 2)

	w = s.do(t, http.MethodGet, "/api/v1/inventory-pools?locationType=technician&locationId=7", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var pools struct {
		Items []inventory.Pool `json:"items"`
	}
	decode(t, w, &pools)
	require.Len(t, pools.Items, 1)
	assert.Equal(t, spareFilter, pools.Items[0].SpareID)
	assert.Equal(t, entity.Split{Good: 2}, pools.Items[0].Quantity)
}

func TestRequestErrors(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{
			name:   "empty items",
			method: http.MethodPost,
			path:   "/api/v1/create-return-request",
			body:   map[string]any{"technicianId": technicianID, "items": []any{}},
			status: http.StatusBadRequest,
			code:   "VALIDATION_ERROR",
		},
		{
			name:   "unknown spare",
			method: http.MethodPost,
			path:   "/api/v1/create-issue-request",
			body:   map[string]any{"technicianId": technicianID, "items": []map[string]any{{"spareId": 99, "qty": 1}}},
			status: http.StatusBadRequest,
			code:   "VALIDATION_ERROR",
		},
		{
			name:   "malformed id",
			method: http.MethodGet,
			path:   "/api/v1/return-details/not-a-uuid",
			status: http.StatusBadRequest,
			code:   "VALIDATION_ERROR",
		},
		{
			name:   "unknown request",
			method: http.MethodGet,
			path:   "/api/v1/return-details/" + id.New().String(),
			status: http.StatusNotFound,
			code:   "NOT_FOUND",
		},
		{
			name:   "unknown location type",
			method: http.MethodGet,
			path:   "/api/v1/inventory-pools?locationType=warehouse",
			status: http.StatusBadRequest,
			code:   "VALIDATION_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, tt.method, tt.path, tt.body, nil)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			var body errorBody
			decode(t, w, &body)
			assert.Equal(t, tt.code, body.Code)
		})
	}
}

func TestAuth(t *testing.T) {
	tokens := auth.NewTokenService(auth.DefaultConfig("test-secret", "spareflow"))
	s := newTestServer(t, func(cfg *RouterConfig) {
		cfg.TokenValidator = tokens
	})

	w := s.do(t, http.MethodGet, "/api/v1/list-returns", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/list-returns", nil, map[string]string{"Authorization": "Bearer garbage"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	technician, _, err := tokens.Issue("7")
	require.NoError(t, err)
	bearer := map[string]string{"Authorization": "Bearer " + technician}
	created := createReturn(t, s, bearer)

	w = s.do(t, http.MethodPost, "/api/v1/reopen-return/"+created.RequestID, map[string]any{
		"reopenedBy": "sc-3-manager",
		"reason":     "dispute",
	}, bearer)
	assert.Equal(t, http.StatusForbidden, w.Code)
	var body errorBody
	decode(t, w, &body)
	assert.Equal(t, "FORBIDDEN", body.Code)

	w = s.do(t, http.MethodGet, "/health/live", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIdempotentReplay(t *testing.T) {
	s := newTestServer(t, func(cfg *RouterConfig) {
		cfg.Idempotency = memory.NewIdempotencyStore(time.Hour)
	})
	key := map[string]string{middleware.HeaderIdempotencyKey: "create-1"}

	first := s.do(t, http.MethodPost, "/api/v1/create-return-request", map[string]any{
		"technicianId": technicianID,
		"items":        []map[string]any{{"spareId": spareFilter, "goodQty": 1}},
	}, key)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	second := s.do(t, http.MethodPost, "/api/v1/create-return-request", map[string]any{
		"technicianId": technicianID,
		"items":        []map[string]any{{"spareId": spareFilter, "goodQty": 1}},
	}, key)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replay"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	other := s.do(t, http.MethodPost, "/api/v1/create-return-request", map[string]any{
		"technicianId": technicianID,
		"items":        []map[string]any{{"spareId": spareFilter, "goodQty": 2}},
	}, key)
	assert.Equal(t, http.StatusConflict, other.Code)
	var body errorBody
	decode(t, other, &body)
	assert.Equal(t, "IDEMPOTENCY_CONFLICT", body.Code)

	w := s.do(t, http.MethodGet, "/api/v1/list-returns", nil, nil)
	var list struct {
		TotalCount int64 `json:"totalCount"`
	}
	decode(t, w, &list)
	assert.Equal(t, int64(1), list.TotalCount)

	invalid := map[string]string{middleware.HeaderIdempotencyKey: "create-2"}
	w = s.do(t, http.MethodPost, "/api/v1/create-return-request", map[string]any{"technicianId": technicianID}, invalid)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	replayed := s.do(t, http.MethodPost, "/api/v1/create-return-request", map[string]any{"technicianId": technicianID}, invalid)
	assert.Equal(t, http.StatusBadRequest, replayed.Code)
	assert.Equal(t, "true", replayed.Header().Get("Idempotent-Replay"))
}

func TestHealthAndMetrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	s := newTestServer(t, func(cfg *RouterConfig) {
		cfg.Metrics = m
	})

	w := s.do(t, http.MethodGet, "/health/ready", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "memory")

	w = s.do(t, http.MethodGet, "/health/info", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "spareflow")

	w = s.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "spareflow_http_requests_total")
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))
}
