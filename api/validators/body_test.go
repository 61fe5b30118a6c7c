package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/pdv-terminal/pkg/errors"
)

type moneyPayload struct {
	Amount decimal.Decimal `json:"amount" validate:"gte=0"`
	Name   string          `json:"name" validate:"required"`
}

func request(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func TestDecodeJSONBodyValidatesDecimals(t *testing.T) {
	var dest moneyPayload
	err := DecodeJSONBody(request(`{"amount":"-1","name":"x"}`), &dest)
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, _ := pkgerrors.As(err).Details().(map[string]string)
	if details["amount"] == "" {
		t.Fatalf("expected amount detail, got %v", details)
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	var dest moneyPayload
	err := DecodeJSONBody(request(`{"amount":"1","name":"x","extra":true}`), &dest)
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyAcceptsEmptyBody(t *testing.T) {
	var dest struct {
		Confirm bool `json:"confirm"`
	}
	if err := DecodeJSONBody(request(""), &dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseQueryInt(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?min_capacity=4", nil)
	got, err := ParseQueryInt(r, "min_capacity", 0, 0, 10)
	if err != nil || got != 4 {
		t.Fatalf("expected 4, got %d (%v)", got, err)
	}
	r = httptest.NewRequest(http.MethodGet, "/?min_capacity=40", nil)
	if _, err := ParseQueryInt(r, "min_capacity", 0, 0, 10); err == nil {
		t.Fatalf("expected out of range error")
	}
}
