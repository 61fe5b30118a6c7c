package enums

import "fmt"

// TableStatus is the occupancy state of a dining table as reported by the backend.
type TableStatus string

const (
	TableStatusFree     TableStatus = "LIVRE"
	TableStatusOccupied TableStatus = "OCUPADA"
	TableStatusDirty    TableStatus = "SUJA"
	TableStatusReserved TableStatus = "RESERVADA"
)

var validTableStatuses = []TableStatus{
	TableStatusFree,
	TableStatusOccupied,
	TableStatusDirty,
	TableStatusReserved,
}

// String implements fmt.Stringer.
func (t TableStatus) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TableStatus.
func (t TableStatus) IsValid() bool {
	for _, candidate := range validTableStatuses {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTableStatus converts raw input into a TableStatus.
func ParseTableStatus(value string) (TableStatus, error) {
	for _, candidate := range validTableStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid table status %q", value)
}

// NeedsOpening reports whether an order sent to the table must first open it.
func (t TableStatus) NeedsOpening() bool {
	return t != TableStatusOccupied
}

// InUse reports whether the table currently carries a bill worth polling.
func (t TableStatus) InUse() bool {
	return t == TableStatusOccupied
}
