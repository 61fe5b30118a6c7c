package tables

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/angelmondragon/pdv-terminal/internal/billing"
	"github.com/angelmondragon/pdv-terminal/internal/cart"
	"github.com/angelmondragon/pdv-terminal/internal/roster"
	"github.com/angelmondragon/pdv-terminal/pkg/apiclient"
	"github.com/angelmondragon/pdv-terminal/pkg/enums"
	pkgerrors "github.com/angelmondragon/pdv-terminal/pkg/errors"
	"github.com/angelmondragon/pdv-terminal/pkg/localstore"
	"github.com/angelmondragon/pdv-terminal/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	method string
	path   string
	query  string
	body   string
}

type stubAPI struct {
	calls     []call
	responses map[string]string
	errs      map[string]error
}

func newStubAPI() *stubAPI {
	return &stubAPI{responses: map[string]string{}, errs: map[string]error{}}
}

func (s *stubAPI) Get(_ context.Context, path string, query url.Values, out any) error {
	return s.do(call{method: http.MethodGet, path: path, query: query.Encode()}, out)
}

func (s *stubAPI) Post(_ context.Context, path string, body, out any) error {
	raw := ""
	if body != nil {
		b, _ := json.Marshal(body)
		raw = string(b)
	}
	return s.do(call{method: http.MethodPost, path: path, body: raw}, out)
}

func (s *stubAPI) do(c call, out any) error {
	s.calls = append(s.calls, c)
	if err := s.errs[c.path]; err != nil {
		return err
	}
	if resp, ok := s.responses[c.path]; ok && out != nil {
		return json.Unmarshal([]byte(resp), out)
	}
	return nil
}

func newResource(t *testing.T, api *stubAPI) *Resource {
	t.Helper()
	store := roster.NewStore(TableID, localstore.New[[]Table](localstore.NewMemory("pdv"), localstore.KeyTables), logger.Nop())
	res, err := NewResource(api, store)
	require.NoError(t, err)
	return res
}

func TestListDecodesPage(t *testing.T) {
	api := newStubAPI()
	api.responses["/mesas/"] = `{"count": 2, "next": null, "previous": null, "results": [
		{"id": 1, "numero": 7, "status": "LIVRE"},
		{"id": 2, "numero": 8, "capacidade": 4, "status": "OCUPADA", "pedido_atual_id": 55, "total_conta": "40.00"}
	]}`
	res := newResource(t, api)

	tables, err := res.List(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "page_size=100", api.calls[0].query)
	assert.Equal(t, 7, tables[0].Number)
	assert.Equal(t, enums.TableStatusOccupied, tables[1].Status)
	require.NotNil(t, tables[1].BillTotal)
	assert.True(t, tables[1].BillTotal.Equal(decimal.NewFromInt(40)))
	assert.Equal(t, "55", tables[1].CurrentOrderID.String())
}

func TestGridKeepsTablesOnFailure(t *testing.T) {
	ctx := context.Background()
	api := newStubAPI()
	api.responses["/mesas/"] = `{"results": [{"id": 1, "numero": 7, "status": "LIVRE"}]}`
	res := newResource(t, api)
	grid := roster.NewGrid[Table]("tables", res.Roster(), res, 100, nil)

	require.NoError(t, grid.Refresh(ctx))
	api.errs["/mesas/"] = pkgerrors.New(pkgerrors.CodeDependency, "backend unavailable")
	require.Error(t, grid.Refresh(ctx))

	table, err := res.Get("1")
	require.NoError(t, err)
	assert.Equal(t, 7, table.Number)
	assert.Error(t, res.Roster().Err())
}

func TestCreateAddsToRoster(t *testing.T) {
	api := newStubAPI()
	api.responses["/mesas/"] = `{"id": 9, "numero": 12}`
	res := newResource(t, api)

	capacity := 6
	created, err := res.Create(context.Background(), CreateRequest{Number: 12, Capacity: &capacity})
	require.NoError(t, err)
	assert.Equal(t, enums.TableStatusFree, created.Status)
	assert.Equal(t, `{"numero":12,"capacidade":6}`, api.calls[0].body)

	cached, err := res.Get("9")
	require.NoError(t, err)
	assert.Equal(t, 12, cached.Number)

	_, err = res.Create(context.Background(), CreateRequest{})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	_, err = res.Get("404")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestBackendLifecycleEchoesStatus(t *testing.T) {
	ctx := context.Background()
	api := newStubAPI()
	res := newResource(t, api)
	res.Roster().Replace(ctx, []Table{{ID: "7", Number: 7, Status: enums.TableStatusFree}})

	backend := res.Backend("7")
	assert.Equal(t, cart.Table("7"), backend.Ref())
	assert.Equal(t, billing.AvailabilityNeedsOpen, backend.Availability())

	bill, err := backend.FetchBill(ctx)
	require.NoError(t, err)
	assert.False(t, bill.HasItems())
	assert.Empty(t, api.calls, "a free table has no bill to fetch")

	require.NoError(t, backend.Open(ctx, "99"))
	assert.Equal(t, call{method: http.MethodPost, path: "/mesas/7/abrir/", body: `{"atendente_id":"99"}`}, api.calls[0])
	assert.Equal(t, billing.AvailabilityOpen, backend.Availability())
	table, _ := res.Get("7")
	assert.Equal(t, enums.TableStatusOccupied, table.Status)

	require.NoError(t, backend.AddLine(ctx, cart.WireLine{ProductID: "p1", Quantity: 2, Note: "sem cebola"}))
	assert.Equal(t, `{"produto_id":"p1","quantidade":2,"observacoes":"sem cebola"}`, api.calls[1].body)
	assert.Equal(t, "/mesas/7/adicionar_pedido/", api.calls[1].path)

	api.responses["/mesas/7/conta/"] = `{"mesa_id": 7, "numero_pedido": "A-1", "total_bruto": "25.00", "total_desconto": "0", "total_liquido": "25.00",
		"itens": [{"id": 1, "produto_nome": "Picanha", "quantidade": 2, "preco_unitario": "12.50", "subtotal": "25.00"}]}`
	bill, err = backend.FetchBill(ctx)
	require.NoError(t, err)
	assert.Equal(t, "7", bill.EntityID)
	require.Len(t, bill.Items, 1)
	assert.Equal(t, "1", bill.Items[0].ID.String())
	assert.True(t, bill.NetTotal.Equal(decimal.NewFromInt(25)))

	require.NoError(t, backend.RemoveLine(ctx, "1"))
	assert.Equal(t, `{"item_id":"1"}`, api.calls[len(api.calls)-1].body)

	api.responses["/mesas/7/fechar/"] = `{"success": true, "venda_id": 321}`
	resp, err := backend.CloseBill(ctx, billing.CloseRequest{WarehouseID: "dep1", Method: "PIX", AmountTendered: decimal.NewFromInt(25)})
	require.NoError(t, err)
	assert.Equal(t, "321", resp.SaleID.String())
	assert.Equal(t, `{"deposito_id":"dep1","tipo_pagamento":"PIX","valor_pago":"25"}`, api.calls[len(api.calls)-1].body)
	table, _ = res.Get("7")
	assert.Equal(t, enums.TableStatusFree, table.Status)
}

func TestBackendBillNotFoundIsEmpty(t *testing.T) {
	ctx := context.Background()
	api := newStubAPI()
	api.errs["/mesas/3/conta/"] = pkgerrors.Wrap(pkgerrors.CodeNotFound, &apiclient.StatusError{Status: http.StatusNotFound}, "not found")
	res := newResource(t, api)
	res.Roster().Replace(ctx, []Table{{ID: "3", Status: enums.TableStatusOccupied}})

	bill, err := res.Backend("3").FetchBill(ctx)
	require.NoError(t, err)
	assert.Equal(t, "3", bill.EntityID)
	assert.Empty(t, bill.Items)

	api.errs["/mesas/3/conta/"] = pkgerrors.New(pkgerrors.CodeDependency, "down")
	_, err = res.Backend("3").FetchBill(ctx)
	assert.Error(t, err)
}

func TestReleaseEchoesFree(t *testing.T) {
	ctx := context.Background()
	api := newStubAPI()
	res := newResource(t, api)
	orderID := "55"
	res.Roster().Replace(ctx, []Table{{ID: "4", Status: enums.TableStatusOccupied, CurrentOrderNumber: &orderID}})

	require.NoError(t, res.Backend("4").Release(ctx))
	assert.Equal(t, "/mesas/4/liberar/", api.calls[0].path)
	table, _ := res.Get("4")
	assert.Equal(t, enums.TableStatusFree, table.Status)
	assert.Nil(t, table.CurrentOrderNumber)
}
