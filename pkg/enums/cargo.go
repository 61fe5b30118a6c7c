package enums

import (
	"fmt"
	"strings"
)

// Cargo is the staff position carried in the operator's access token.
type Cargo string

const (
	CargoAdmin   Cargo = "ADMIN"
	CargoManager Cargo = "GERENTE"
	CargoCashier Cargo = "CAIXA"
	CargoWaiter  Cargo = "GARCOM"
	CargoCook    Cargo = "COZINHA"
)

var validCargos = []Cargo{
	CargoAdmin,
	CargoManager,
	CargoCashier,
	CargoWaiter,
	CargoCook,
}

// String implements fmt.Stringer.
func (c Cargo) String() string {
	return string(c)
}

// IsValid reports whether the value is a known Cargo.
func (c Cargo) IsValid() bool {
	for _, candidate := range validCargos {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCargo converts raw input into a Cargo.
func ParseCargo(value string) (Cargo, error) {
	for _, candidate := range validCargos {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cargo %q", value)
}

// Normalize upper-cases and trims raw claim values before parsing.
func NormalizeCargo(value string) Cargo {
	return Cargo(strings.ToUpper(strings.TrimSpace(value)))
}
