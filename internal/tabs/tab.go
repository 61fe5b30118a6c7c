// Package tabs is the comanda resource: tabs handed to patrons and keyed by a
// free-form code instead of a table number.
package tabs

import (
	"github.com/angelmondragon/pdv-terminal/pkg/enums"
	"github.com/angelmondragon/pdv-terminal/pkg/types"
	"github.com/shopspring/decimal"
)

const resource = "comandas"

type Tab struct {
	ID                 types.ID         `json:"id"`
	Code               string           `json:"codigo"`
	Status             enums.TabStatus  `json:"status"`
	CurrentOrderID     *types.ID        `json:"pedido_atual_id,omitempty"`
	CurrentOrderNumber *string          `json:"pedido_atual_numero,omitempty"`
	BillTotal          *decimal.Decimal `json:"total_conta,omitempty"`
}

func TabID(t Tab) string {
	return t.ID.String()
}

// CreateRequest is the body of POST /comandas/.
type CreateRequest struct {
	Code string `json:"codigo" validate:"required,max=32"`
}
