package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pdv-terminal/api/controllers"
	"github.com/angelmondragon/pdv-terminal/internal/attendant"
	"github.com/angelmondragon/pdv-terminal/internal/erptest"
	"github.com/angelmondragon/pdv-terminal/internal/poll"
	"github.com/angelmondragon/pdv-terminal/internal/terminal"
	"github.com/angelmondragon/pdv-terminal/pkg/apiclient"
	"github.com/angelmondragon/pdv-terminal/pkg/config"
	"github.com/angelmondragon/pdv-terminal/pkg/enums"
	"github.com/angelmondragon/pdv-terminal/pkg/localstore"
	"github.com/angelmondragon/pdv-terminal/pkg/logger"
	"github.com/angelmondragon/pdv-terminal/pkg/metrics"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error {
	return p.err
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type harness struct {
	t       *testing.T
	erp     *erptest.Server
	term    *terminal.Terminal
	handler http.Handler
}

func newHarness(t *testing.T, pingers map[string]controllers.Pinger) *harness {
	t.Helper()
	erp := erptest.New()
	t.Cleanup(erp.Close)

	cfg := &config.Config{
		App: config.AppConfig{Env: "test"},
		Polling: config.PollingConfig{
			GridInterval:    time.Hour,
			BillInterval:    time.Hour,
			SessionInterval: time.Hour,
			PageSize:        100,
		},
		Terminal: config.TerminalConfig{RegisterID: "1"},
	}
	api, err := apiclient.New(erp.URL, "restaurante-centro",
		apiclient.WithTokenSource(apiclient.StaticTokens{Access: "token"}),
		apiclient.WithRetryPolicy(1, time.Millisecond),
	)
	if err != nil {
		t.Fatalf("api client: %v", err)
	}
	poller, err := poll.NewService(poll.ServiceParams{Logger: logger.Nop()})
	if err != nil {
		t.Fatalf("poller: %v", err)
	}
	registry := prometheus.NewRegistry()
	term, err := terminal.New(terminal.Params{
		Config:   cfg,
		API:      api,
		Store:    localstore.NewMemory("pdv"),
		Operator: attendant.Operator{ID: "1", Cargo: enums.CargoCashier, CashierRole: true},
		Poller:   poller,
		Metrics:  metrics.NewBillingMetrics(registry),
		Logger:   logger.Nop(),
	})
	if err != nil {
		t.Fatalf("terminal: %v", err)
	}
	t.Cleanup(func() { _ = term.Close() })

	return &harness{
		t:       t,
		erp:     erp,
		term:    term,
		handler: NewRouter(cfg, logger.Nop(), term, registry, pingers),
	}
}

func (h *harness) do(method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			h.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") == "application/json" {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			h.t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return w, env
}

func TestHealthEndpoints(t *testing.T) {
	h := newHarness(t, map[string]controllers.Pinger{"store": stubPinger{}})

	for _, path := range []string{"/healthz", "/health/live", "/health/ready"} {
		w, _ := h.do(http.MethodGet, path, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, w.Code)
		}
		if got := w.Header().Get("X-PDV-Env"); got != "test" {
			t.Fatalf("%s: expected env header, got %q", path, got)
		}
	}
}

func TestReadyReportsFailingDependency(t *testing.T) {
	h := newHarness(t, map[string]controllers.Pinger{"store": stubPinger{err: errors.New("down")}})

	w, env := h.do(http.MethodGet, "/health/ready", nil)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
	if env.Error == nil || env.Error.Code != "DEPENDENCY_ERROR" {
		t.Fatalf("unexpected error payload %+v", env.Error)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestSessionRequiresSelection(t *testing.T) {
	h := newHarness(t, nil)

	w, env := h.do(http.MethodGet, "/api/v1/session/", nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	if env.Error == nil || env.Error.Code != "STATE_CONFLICT" {
		t.Fatalf("unexpected error payload %+v", env.Error)
	}
}

func TestTableOrderAndCloseFlow(t *testing.T) {
	h := newHarness(t, nil)
	h.erp.AddTable(7, "LIVRE")
	h.erp.SetPrice("p1", decimal.RequireFromString("12.5"))

	if w, _ := h.do(http.MethodPost, "/api/v1/tables/refresh", nil); w.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d", w.Code)
	}
	w, env := h.do(http.MethodGet, "/api/v1/tables/", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", w.Code)
	}
	var grid struct {
		Results []struct {
			ID     string `json:"id"`
			Number int    `json:"numero"`
		} `json:"results"`
	}
	if err := json.Unmarshal(env.Data, &grid); err != nil {
		t.Fatalf("decode grid: %v", err)
	}
	if len(grid.Results) != 1 || grid.Results[0].Number != 7 {
		t.Fatalf("unexpected grid %+v", grid.Results)
	}

	if w, _ := h.do(http.MethodPost, "/api/v1/tables/7/select", nil); w.Code != http.StatusOK {
		t.Fatalf("select: expected 200, got %d", w.Code)
	}
	w, _ = h.do(http.MethodPost, "/api/v1/cart/items", map[string]any{
		"id": "p1", "name": "Picanha", "unit_price": "12.5", "kind": "PRATO",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("add item: expected 201, got %d", w.Code)
	}
	if w, _ := h.do(http.MethodPost, "/api/v1/cart/items/p1/increment", nil); w.Code != http.StatusOK {
		t.Fatalf("increment: expected 200, got %d", w.Code)
	}

	w, env = h.do(http.MethodPost, "/api/v1/session/send", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("send: expected 200, got %d (%+v)", w.Code, env.Error)
	}
	if h.erp.Table(7).Status != "OCUPADA" {
		t.Fatalf("expected table opened on the backend")
	}
	if !h.term.Cart().IsEmpty() {
		t.Fatalf("expected cart cleared after send")
	}

	closeBody := map[string]any{"method": "PIX", "warehouse_id": "dep1", "amount_tendered": "25"}
	w, env = h.do(http.MethodPost, "/api/v1/session/close", closeBody)
	if w.Code != http.StatusPreconditionFailed {
		t.Fatalf("close without session: expected 412, got %d", w.Code)
	}
	if h.erp.Hits("POST /mesas/7/fechar/") != 0 {
		t.Fatalf("close must not reach the backend without a cash session")
	}

	if w, _ := h.do(http.MethodPost, "/api/v1/cashier/open", map[string]any{"opening_balance": "100"}); w.Code != http.StatusOK {
		t.Fatalf("open register: expected 200, got %d", w.Code)
	}
	w, env = h.do(http.MethodPost, "/api/v1/session/close", closeBody)
	if w.Code != http.StatusOK {
		t.Fatalf("close: expected 200, got %d (%+v)", w.Code, env.Error)
	}
	var closed struct {
		Result struct {
			SaleID string `json:"sale_id"`
		} `json:"result"`
	}
	if err := json.Unmarshal(env.Data, &closed); err != nil {
		t.Fatalf("decode close: %v", err)
	}
	if closed.Result.SaleID == "" {
		t.Fatalf("expected sale id")
	}
}

func TestCartLineNotFound(t *testing.T) {
	h := newHarness(t, nil)

	w, env := h.do(http.MethodPost, "/api/v1/cart/items/missing/decrement", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if env.Error == nil || env.Error.Code != "NOT_FOUND" {
		t.Fatalf("unexpected error payload %+v", env.Error)
	}
}

func TestCartRejectsUnknownFields(t *testing.T) {
	h := newHarness(t, nil)

	w, _ := h.do(http.MethodPost, "/api/v1/cart/items", map[string]any{"id": "p1", "name": "x", "price": 1})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestCancelRequiresConfirmation(t *testing.T) {
	h := newHarness(t, nil)
	h.erp.AddTable(3, "OCUPADA")
	h.erp.AddItem(3, 55, "p1", 1, decimal.NewFromInt(10))
	if err := h.term.TableGrid().Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if w, _ := h.do(http.MethodPost, "/api/v1/tables/3/select", nil); w.Code != http.StatusOK {
		t.Fatalf("select: expected 200, got %d", w.Code)
	}

	w, env := h.do(http.MethodPost, "/api/v1/session/items/55/cancel", map[string]any{"confirm": false})
	if w.Code != http.StatusConflict || env.Error == nil || env.Error.Code != "DECLINED" {
		t.Fatalf("expected declined, got %d %+v", w.Code, env.Error)
	}
	if h.erp.Hits("POST /mesas/3/remover_pedido/") != 0 {
		t.Fatalf("declined cancel must not reach the backend")
	}

	w, _ = h.do(http.MethodPost, "/api/v1/session/items/55/cancel", map[string]any{"confirm": true})
	if w.Code != http.StatusOK {
		t.Fatalf("confirmed cancel: expected 200, got %d", w.Code)
	}
	if h.erp.Hits("POST /mesas/3/remover_pedido/") != 1 {
		t.Fatalf("expected one removal call")
	}
}

func TestCounterSelect(t *testing.T) {
	h := newHarness(t, nil)

	w, env := h.do(http.MethodPost, "/api/v1/counter/select", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var session struct {
		Context struct {
			Kind string `json:"kind"`
		} `json:"context"`
		Availability string `json:"availability"`
	}
	if err := json.Unmarshal(env.Data, &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if session.Context.Kind != string(enums.ContextKindCounter) {
		t.Fatalf("unexpected context %q", session.Context.Kind)
	}
}
