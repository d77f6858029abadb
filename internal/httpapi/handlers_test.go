package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"smartfix/backend/internal/cache"
	"smartfix/backend/internal/domain"
	"smartfix/backend/internal/drawer"
	"smartfix/backend/internal/notify"
	"smartfix/backend/internal/service"
	"smartfix/backend/internal/signal"
	"smartfix/backend/internal/store/memory"
)

// newTestAPI builds a full API with the in-memory store, real
// AuthManager and real Service so handler tests exercise the complete
// request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	svc := service.New(repo, drawer.NewWatch(), signal.NewBus(), notify.Noop{}, cache.NoopDrawerStatusCache{}, time.Minute,
		service.TaxPolicy{RatePercent: 11.5})
	auth := NewAuthManager("test-secret-key", time.Hour, repo)

	return New(svc, auth, "*")
}

func loginAs(t *testing.T, handler http.Handler, username string, password string) string {
	t.Helper()

	payload, _ := json.Marshal(domain.LoginRequest{Username: username, Password: password})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login as %s: expected 200, got %d: %s", username, rec.Code, rec.Body.String())
	}

	var resp domain.LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.AccessToken
}

func csrfToken(t *testing.T, handler http.Handler) string {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/csrf-token", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("csrf token: expected 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode csrf response: %v", err)
	}
	return body["csrf_token"]
}

func doJSON(t *testing.T, handler http.Handler, method string, path string, token string, csrf string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if csrf != "" {
		req.Header.Set("X-CSRF-Token", csrf)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "", "",
		domain.LoginRequest{Username: "admin", Password: "nope"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireAuthAndRoleGates(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: expected 401, got %d", rec.Code)
	}

	techToken := loginAs(t, handler, "tino", "tech123")
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/users/staff", techToken, "", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("technician on staff route: expected 403, got %d", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/reports/financial-overview", techToken, "", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("technician on reports: expected 403, got %d", rec.Code)
	}
}

func TestDrawerLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, handler, "admin", "admin123")
	csrf := csrfToken(t, handler)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/drawer/open", token, csrf,
		domain.DrawerOpenRequest{Denominations: map[string]int{"bills_100": 1, "coins_025": 2}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("open: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/drawer/open", token, csrf,
		domain.DrawerOpenRequest{Denominations: map[string]int{"bills_20": 1}})
	if rec.Code != http.StatusConflict {
		t.Fatalf("second open: expected 409, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/drawer/status", token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: expected 200, got %d", rec.Code)
	}
	var status domain.DrawerStatus
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.IsOpen || status.Drawer == nil || status.Drawer.OpeningBalance != 10050 {
		t.Fatalf("unexpected status: %+v", status)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/drawer/close", token, csrf,
		domain.DrawerCloseRequest{Denominations: map[string]int{"bills_100": 1}})
	if rec.Code != http.StatusOK {
		t.Fatalf("close: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result domain.DrawerCloseResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode close result: %v", err)
	}
	if result.Difference != -50 {
		t.Fatalf("difference: want -50, got %d", result.Difference)
	}
}

func TestOrderAndLedgerOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, handler, "admin", "admin123")
	csrf := csrfToken(t, handler)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/orders", token, csrf, domain.OrderCreateRequest{
		CustomerName: "Carla Mendoza",
		DeviceBrand:  "Samsung",
		DeviceModel:  "A54",
		Issue:        "cracked screen",
		CostEstimate: 4000,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create order: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Order domain.WorkOrder `json:"order"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	if created.Order.BalanceDue != 4460 {
		t.Fatalf("balance: want 4460, got %d", created.Order.BalanceDue)
	}

	base := fmt.Sprintf("/api/v1/orders/%s", created.Order.ID)

	rec = doJSON(t, handler, http.MethodPost, base+"/deposits", token, csrf,
		domain.PaymentRequest{AmountCents: 5000, Method: "card"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("over-deposit: expected 422, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, base+"/payments", token, csrf,
		domain.PaymentRequest{AmountCents: 2000, Method: "card"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("payment: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	// Cash settles regardless of drawer state.
	rec = doJSON(t, handler, http.MethodPost, base+"/payments", token, csrf,
		domain.PaymentRequest{AmountCents: 2000, Method: "cash"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("cash payment without drawer: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, base+"/notes", token, csrf,
		domain.OrderNoteRequest{Note: "back glass on order"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("note: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet, base+"/events", token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("events: expected 200, got %d", rec.Code)
	}
	var events struct {
		Events []domain.WorkOrderEvent `json:"events"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&events); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(events.Events) < 2 {
		t.Fatalf("expected create and payment events, got %d", len(events.Events))
	}

	rec = doJSON(t, handler, http.MethodPost, base+"/status", token, csrf,
		domain.StatusChangeRequest{Status: "waiting_parts"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("skip transition: expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDeleteGuardOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, handler, "admin", "admin123")
	csrf := csrfToken(t, handler)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/orders", token, csrf, domain.OrderCreateRequest{
		CustomerName: "Luis Parra",
		DeviceBrand:  "Apple",
		DeviceModel:  "iPhone 13",
		Issue:        "battery drain",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create order: expected 201, got %d", rec.Code)
	}
	var created struct {
		Order domain.WorkOrder `json:"order"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	path := fmt.Sprintf("/api/v1/orders/%s/delete-permanently", created.Order.ID)

	rec = doJSON(t, handler, http.MethodDelete, path, token, csrf,
		domain.OrderDeleteRequest{Confirmation: "borrar", PIN: "735291"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("wrong phrase: expected 422, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodDelete, path, token, csrf,
		domain.OrderDeleteRequest{Confirmation: "ELIMINAR", PIN: "000000"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("wrong pin: expected 403, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodDelete, path, token, csrf,
		domain.OrderDeleteRequest{Confirmation: "ELIMINAR", PIN: "735291"})
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet, fmt.Sprintf("/api/v1/orders/%s", created.Order.ID), token, "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("deleted order lookup: expected 404, got %d", rec.Code)
	}
}

func TestSoftDeleteOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, handler, "admin", "admin123")
	csrf := csrfToken(t, handler)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/orders", token, csrf, domain.OrderCreateRequest{
		CustomerName: "Nora Vidal",
		DeviceBrand:  "Xiaomi",
		DeviceModel:  "Redmi 12",
		Issue:        "no charge",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create order: expected 201, got %d", rec.Code)
	}
	var created struct {
		Order domain.WorkOrder `json:"order"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	path := fmt.Sprintf("/api/v1/orders/%s", created.Order.ID)

	rec = doJSON(t, handler, http.MethodDelete, path, token, csrf, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("soft delete: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var deleted struct {
		Order domain.WorkOrder `json:"order"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&deleted); err != nil {
		t.Fatalf("decode deleted order: %v", err)
	}
	if !deleted.Order.Deleted {
		t.Fatal("response should carry the deleted flag")
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/orders?include_deleted=true", token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("include_deleted listing: expected 200, got %d", rec.Code)
	}
	var listed struct {
		Orders []domain.WorkOrder `json:"orders"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&listed); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	found := false
	for _, o := range listed.Orders {
		if o.ID == created.Order.ID && o.Deleted {
			found = true
		}
	}
	if !found {
		t.Fatal("admin include_deleted listing should show the soft-deleted order")
	}
}
