package enums

import "fmt"

// TabStatus is the state of a tab (comanda) card.
type TabStatus string

const (
	TabStatusFree    TabStatus = "LIVRE"
	TabStatusInUse   TabStatus = "EM_USO"
	TabStatusBlocked TabStatus = "BLOQUEADA"
)

var validTabStatuses = []TabStatus{
	TabStatusFree,
	TabStatusInUse,
	TabStatusBlocked,
}

// String implements fmt.Stringer.
func (t TabStatus) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TabStatus.
func (t TabStatus) IsValid() bool {
	for _, candidate := range validTabStatuses {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTabStatus converts raw input into a TabStatus.
func ParseTabStatus(value string) (TabStatus, error) {
	for _, candidate := range validTabStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid tab status %q", value)
}

// NeedsOpening reports whether an order sent to the tab must first open it.
func (t TabStatus) NeedsOpening() bool {
	return t == TabStatusFree
}

// InUse reports whether the tab currently carries a bill worth polling.
func (t TabStatus) InUse() bool {
	return t == TabStatusInUse
}
