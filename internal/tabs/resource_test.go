package tabs

import (
	"context"
	"encoding/json"
	"net/url"
	"testing"

	"github.com/angelmondragon/pdv-terminal/internal/billing"
	"github.com/angelmondragon/pdv-terminal/internal/cart"
	"github.com/angelmondragon/pdv-terminal/internal/roster"
	"github.com/angelmondragon/pdv-terminal/pkg/enums"
	pkgerrors "github.com/angelmondragon/pdv-terminal/pkg/errors"
	"github.com/angelmondragon/pdv-terminal/pkg/localstore"
)

type stubAPI struct {
	paths     []string
	bodies    []string
	responses map[string]string
}

func (s *stubAPI) Get(_ context.Context, path string, _ url.Values, out any) error {
	s.paths = append(s.paths, "GET "+path)
	return s.reply(path, out)
}

func (s *stubAPI) Post(_ context.Context, path string, body, out any) error {
	raw, _ := json.Marshal(body)
	s.paths = append(s.paths, "POST "+path)
	s.bodies = append(s.bodies, string(raw))
	return s.reply(path, out)
}

func (s *stubAPI) reply(path string, out any) error {
	if resp, ok := s.responses[path]; ok && out != nil {
		return json.Unmarshal([]byte(resp), out)
	}
	return nil
}

func newResource(t *testing.T, api *stubAPI) *Resource {
	t.Helper()
	store := roster.NewStore(TabID, localstore.New[[]Tab](localstore.NewMemory("pdv"), localstore.KeyTabs), nil)
	res, err := NewResource(api, store)
	if err != nil {
		t.Fatalf("new resource: %v", err)
	}
	return res
}

func TestTabAvailability(t *testing.T) {
	ctx := context.Background()
	res := newResource(t, &stubAPI{})
	res.Roster().Replace(ctx, []Tab{
		{ID: "1", Code: "A01", Status: enums.TabStatusFree},
		{ID: "2", Code: "A02", Status: enums.TabStatusInUse},
		{ID: "3", Code: "A03", Status: enums.TabStatusBlocked},
	})

	tests := []struct {
		id   string
		want billing.Availability
	}{
		{id: "1", want: billing.AvailabilityNeedsOpen},
		{id: "2", want: billing.AvailabilityOpen},
		{id: "3", want: billing.AvailabilityUnavailable},
		{id: "missing", want: billing.AvailabilityNeedsOpen},
	}
	for _, tt := range tests {
		if got := res.Backend(tt.id).Availability(); got != tt.want {
			t.Fatalf("tab %s: availability %s want %s", tt.id, got, tt.want)
		}
	}
	if ref := res.Backend("2").Ref(); ref != cart.Tab("2") {
		t.Fatalf("unexpected ref %v", ref)
	}
}

func TestTabOpenAndCloseUseComandasPaths(t *testing.T) {
	ctx := context.Background()
	api := &stubAPI{responses: map[string]string{"/comandas/1/fechar/": `{"success": true, "venda_id": "v9"}`}}
	res := newResource(t, api)
	res.Roster().Replace(ctx, []Tab{{ID: "1", Code: "A01", Status: enums.TabStatusFree}})
	backend := res.Backend("1")

	if err := backend.Open(ctx, ""); err != nil {
		t.Fatalf("open: %v", err)
	}
	if api.bodies[0] != `{}` {
		t.Fatalf("expected empty open body, got %s", api.bodies[0])
	}
	if tab, _ := res.Get("1"); tab.Status != enums.TabStatusInUse {
		t.Fatalf("expected EM_USO echo, got %s", tab.Status)
	}

	resp, err := backend.CloseBill(ctx, billing.CloseRequest{WarehouseID: "dep1", Method: "DINHEIRO"})
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if resp.SaleID != "v9" {
		t.Fatalf("unexpected sale id %s", resp.SaleID)
	}
	if tab, _ := res.Get("1"); tab.Status != enums.TabStatusFree {
		t.Fatalf("expected LIVRE echo, got %s", tab.Status)
	}
	want := []string{"POST /comandas/1/abrir/", "POST /comandas/1/fechar/"}
	for i, p := range want {
		if api.paths[i] != p {
			t.Fatalf("call %d: got %s want %s", i, api.paths[i], p)
		}
	}
}

func TestCreateAndFindByCode(t *testing.T) {
	ctx := context.Background()
	api := &stubAPI{responses: map[string]string{"/comandas/": `{"id": 40, "codigo": "B12"}`}}
	res := newResource(t, api)

	created, err := res.Create(ctx, CreateRequest{Code: " B12 "})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if api.bodies[0] != `{"codigo":"B12"}` {
		t.Fatalf("unexpected body %s", api.bodies[0])
	}
	if created.Status != enums.TabStatusFree {
		t.Fatalf("expected default status LIVRE, got %s", created.Status)
	}
	found, ok := res.FindByCode("b12")
	if !ok || found.ID != "40" {
		t.Fatalf("expected to find tab by code, got %+v ok=%v", found, ok)
	}
	if _, err := res.Create(ctx, CreateRequest{Code: "  "}); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
