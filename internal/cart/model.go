package cart

import (
	"github.com/angelmondragon/pdv-terminal/pkg/enums"
	"github.com/shopspring/decimal"
)

// ProductSnapshot is the product data captured when a line is created.
type ProductSnapshot struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	UnitPrice decimal.Decimal   `json:"unit_price"`
	Kind      enums.ProductKind `json:"kind"`
}

// Line is one not-yet-sent product in the cart, keyed by ProductID.
type Line struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Note      string          `json:"note,omitempty"`
	Product   ProductSnapshot `json:"product"`
}

// Total is unit price times quantity.
func (l Line) Total() decimal.Decimal {
	return l.Product.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// State is the persisted cart. At most one of TableID and TabID is set;
// neither means counter mode.
type State struct {
	Lines   []Line `json:"lines"`
	TableID string `json:"table_id,omitempty"`
	TabID   string `json:"tab_id,omitempty"`
}

// Ref derives the context the state is scoped to.
func (s State) Ref() ContextRef {
	switch {
	case s.TableID != "":
		return ContextRef{Kind: enums.ContextKindTable, ID: s.TableID}
	case s.TabID != "":
		return ContextRef{Kind: enums.ContextKindTab, ID: s.TabID}
	default:
		return Counter()
	}
}

// ContextRef names the billing context a cart belongs to.
type ContextRef struct {
	Kind enums.ContextKind `json:"kind"`
	ID   string            `json:"id,omitempty"`
}

func Counter() ContextRef { return ContextRef{Kind: enums.ContextKindCounter} }

func Table(id string) ContextRef { return ContextRef{Kind: enums.ContextKindTable, ID: id} }

func Tab(id string) ContextRef { return ContextRef{Kind: enums.ContextKindTab, ID: id} }

func (r ContextRef) String() string {
	if r.ID == "" {
		return r.Kind.String()
	}
	return r.Kind.String() + ":" + r.ID
}

// WireLine is the submission shape of a line.
type WireLine struct {
	ProductID string `json:"produto_id"`
	Quantity  int    `json:"quantidade"`
	Note      string `json:"observacoes,omitempty"`
}
