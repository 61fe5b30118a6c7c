// Package billing drives one bill session (table, tab or counter sale)
// against the backend: sending the cart, cancelling committed items, closing
// the bill behind the cash session gate and releasing the context.
package billing

import (
	"context"

	"github.com/angelmondragon/pdv-terminal/internal/cart"
	"github.com/angelmondragon/pdv-terminal/pkg/types"
	"github.com/shopspring/decimal"
)

// Availability is what the backend context allows right now.
type Availability int

const (
	// AvailabilityOpen means the context has an open bill and accepts lines.
	AvailabilityOpen Availability = iota
	// AvailabilityNeedsOpen means the context is free and must be opened first.
	AvailabilityNeedsOpen
	// AvailabilityUnavailable means the context cannot take orders (e.g. a blocked tab).
	AvailabilityUnavailable
)

func (a Availability) String() string {
	switch a {
	case AvailabilityOpen:
		return "open"
	case AvailabilityNeedsOpen:
		return "needs_open"
	default:
		return "unavailable"
	}
}

// Backend is the capability set a bill session needs from one context kind.
type Backend interface {
	Ref() cart.ContextRef
	Availability() Availability
	Open(ctx context.Context, attendantID string) error
	AddLine(ctx context.Context, line cart.WireLine) error
	RemoveLine(ctx context.Context, itemID string) error
	CloseBill(ctx context.Context, req CloseRequest) (*CloseResponse, error)
	Release(ctx context.Context) error
	FetchBill(ctx context.Context) (*Bill, error)
}

// Addon is an extra attached to a bill item.
type Addon struct {
	Name     string          `json:"nome"`
	Quantity decimal.Decimal `json:"quantidade"`
	Price    decimal.Decimal `json:"preco"`
}

// BillItem is one committed order line as the server computed it.
type BillItem struct {
	ID          types.ID        `json:"id"`
	ProductName string          `json:"produto_nome"`
	Quantity    decimal.Decimal `json:"quantidade"`
	UnitPrice   decimal.Decimal `json:"preco_unitario"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Addons      []Addon         `json:"adicionais,omitempty"`
}

// Bill is the read-only bill snapshot. Totals are never computed locally.
type Bill struct {
	EntityID      string          `json:"entity_id"`
	OrderNumber   string          `json:"numero_pedido,omitempty"`
	GrossTotal    decimal.Decimal `json:"total_bruto"`
	DiscountTotal decimal.Decimal `json:"total_desconto"`
	NetTotal      decimal.Decimal `json:"total_liquido"`
	Items         []BillItem      `json:"itens"`
}

// EmptyBill is the snapshot of a context with nothing committed.
func EmptyBill(entityID string) *Bill {
	return &Bill{EntityID: entityID, Items: []BillItem{}}
}

func (b *Bill) HasItems() bool {
	return b != nil && len(b.Items) > 0
}

// Item looks up a committed item by id.
func (b *Bill) Item(id string) (BillItem, bool) {
	if b == nil {
		return BillItem{}, false
	}
	for _, item := range b.Items {
		if item.ID.String() == id {
			return item, true
		}
	}
	return BillItem{}, false
}

func (b *Bill) clone() *Bill {
	if b == nil {
		return nil
	}
	cp := *b
	cp.Items = append([]BillItem(nil), b.Items...)
	return &cp
}

// CloseRequest is the close endpoint body.
type CloseRequest struct {
	WarehouseID    string          `json:"deposito_id"`
	Method         string          `json:"tipo_pagamento"`
	AmountTendered decimal.Decimal `json:"valor_pago"`
	AttendantID    string          `json:"colaborador_id,omitempty"`
	CustomerTaxID  string          `json:"cpf_cliente,omitempty"`
}

// CloseResponse is the close endpoint reply.
type CloseResponse struct {
	Success bool     `json:"success"`
	SaleID  types.ID `json:"venda_id"`
}

// OpenRequest is the open endpoint body for tables and tabs.
type OpenRequest struct {
	AttendantID string `json:"atendente_id,omitempty"`
}

// RemoveLineRequest is the cancel endpoint body for tables and tabs.
type RemoveLineRequest struct {
	ItemID string `json:"item_id"`
}

// State is derived from the cart and the bill, never stored.
type State string

const (
	StateIdle          State = "idle"
	StateComposing     State = "composing"
	StateReviewingBill State = "reviewing_bill"
)
