// Package tables is the dine-in table (mesa) resource: the polled roster and
// the per-table bill backend.
package tables

import (
	"github.com/angelmondragon/pdv-terminal/pkg/enums"
	"github.com/angelmondragon/pdv-terminal/pkg/types"
	"github.com/shopspring/decimal"
)

const resource = "mesas"

// Table is one physical table as the backend reports it.
type Table struct {
	ID                 types.ID          `json:"id"`
	Number             int               `json:"numero"`
	Capacity           *int              `json:"capacidade,omitempty"`
	Status             enums.TableStatus `json:"status"`
	CurrentOrderID     *types.ID         `json:"pedido_atual_id,omitempty"`
	CurrentOrderNumber *string           `json:"pedido_atual_numero,omitempty"`
	BillTotal          *decimal.Decimal  `json:"total_conta,omitempty"`
}

// TableID keys the roster.
func TableID(t Table) string {
	return t.ID.String()
}

// CreateRequest is the body of POST /mesas/.
type CreateRequest struct {
	Number   int  `json:"numero" validate:"required,gt=0"`
	Capacity *int `json:"capacidade,omitempty" validate:"omitempty,gt=0"`
}
