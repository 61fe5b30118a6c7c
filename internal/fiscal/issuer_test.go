package fiscal

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/angelmondragon/pdv-terminal/pkg/config"
	pkgerrors "github.com/angelmondragon/pdv-terminal/pkg/errors"
)

type stubPoster struct {
	path string
	body []byte
	resp string
	err  error
}

func (s *stubPoster) Post(_ context.Context, path string, body, out any) error {
	s.path = path
	s.body, _ = json.Marshal(body)
	if s.err != nil {
		return s.err
	}
	return json.Unmarshal([]byte(s.resp), out)
}

func TestGenerateFromSale(t *testing.T) {
	poster := &stubPoster{resp: `{"id": 91, "numero": "000123", "status": "AUTORIZADA"}`}
	issuer, err := NewIssuer(poster, config.FiscalConfig{Model: "65", Series: 2})
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}

	doc, err := issuer.GenerateFromSale(context.Background(), "555")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if poster.path != "/nfe/emissao/gerar-de-venda/" {
		t.Fatalf("unexpected path %s", poster.path)
	}
	if string(poster.body) != `{"venda_id":"555","modelo":"65","serie":2}` {
		t.Fatalf("unexpected body %s", poster.body)
	}
	if doc.ID != "91" || doc.Status != "AUTORIZADA" {
		t.Fatalf("unexpected document %+v", doc)
	}
}

func TestGenerateFromSaleDefaultsAndErrors(t *testing.T) {
	poster := &stubPoster{err: errors.New("sefaz offline")}
	issuer, err := NewIssuer(poster, config.FiscalConfig{})
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	if issuer.model != "65" || issuer.series != 1 {
		t.Fatalf("expected NFC-e defaults, got %s/%d", issuer.model, issuer.series)
	}

	if _, err := issuer.GenerateFromSale(context.Background(), "1"); err == nil || err.Error() != "sefaz offline" {
		t.Fatalf("expected backend error, got %v", err)
	}
	if _, err := issuer.GenerateFromSale(context.Background(), " "); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := NewIssuer(nil, config.FiscalConfig{}); err == nil {
		t.Fatalf("expected error for nil api")
	}
}
