package enums

import "testing"

func TestTableStatusTransitionsHelpers(t *testing.T) {
	tests := []struct {
		status    TableStatus
		needsOpen bool
		inUse     bool
	}{
		{TableStatusFree, true, false},
		{TableStatusReserved, true, false},
		{TableStatusDirty, true, false},
		{TableStatusOccupied, false, true},
	}
	for _, tt := range tests {
		if got := tt.status.NeedsOpening(); got != tt.needsOpen {
			t.Fatalf("%s NeedsOpening=%v want %v", tt.status, got, tt.needsOpen)
		}
		if got := tt.status.InUse(); got != tt.inUse {
			t.Fatalf("%s InUse=%v want %v", tt.status, got, tt.inUse)
		}
	}
}

func TestTabStatusBlockedNeitherOpensNorPolls(t *testing.T) {
	if TabStatusBlocked.NeedsOpening() || TabStatusBlocked.InUse() {
		t.Fatalf("blocked tab must not open or poll")
	}
	if !TabStatusFree.NeedsOpening() || !TabStatusInUse.InUse() {
		t.Fatalf("unexpected free/in-use helpers")
	}
}

func TestParsePaymentMethod(t *testing.T) {
	method, err := ParsePaymentMethod("DINHEIRO")
	if err != nil || method != PaymentMethodCash {
		t.Fatalf("expected cash, got %q err=%v", method, err)
	}
	if _, err := ParsePaymentMethod("cheque"); err == nil {
		t.Fatalf("expected unknown method to fail")
	}
}

func TestNormalizeCargo(t *testing.T) {
	if got := NormalizeCargo(" gerente "); got != CargoManager || !got.IsValid() {
		t.Fatalf("unexpected normalized cargo %q", got)
	}
}
