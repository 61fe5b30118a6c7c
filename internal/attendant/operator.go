// Package attendant resolves who is operating the terminal and whether they
// may assign orders to another attendant.
package attendant

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/pdv-terminal/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
)

// Operator is the logged-in user as described by the access token.
type Operator struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Cargo       enums.Cargo `json:"cargo"`
	CashierRole bool        `json:"role_caixa"`
}

// OperatorFromToken reads the operator claims from the access token. The
// signature is not checked here; the backend verifies every request.
func OperatorFromToken(token string) (Operator, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Operator{}, fmt.Errorf("access token is empty")
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Operator{}, fmt.Errorf("parse access token: %w", err)
	}
	op := Operator{
		ID:    claimString(claims, "user_id"),
		Name:  claimString(claims, "nome"),
		Cargo: enums.NormalizeCargo(claimString(claims, "cargo")),
	}
	if v, ok := claims["role_caixa"].(bool); ok {
		op.CashierRole = v
	}
	return op, nil
}

func claimString(claims jwt.MapClaims, key string) string {
	switch v := claims[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// CanChooseAttendant is the policy table for assigning another attendant:
// cashier-role holders and ADMIN or GERENTE cargos. Everyone else orders as
// themselves.
func CanChooseAttendant(op Operator) bool {
	if op.CashierRole {
		return true
	}
	switch op.Cargo {
	case enums.CargoAdmin, enums.CargoManager:
		return true
	default:
		return false
	}
}
