// Package fiscal requests the NFC-e for a closed sale. Generation is a
// secondary effect of closing a bill and never undoes the closure.
package fiscal

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/pdv-terminal/pkg/config"
	pkgerrors "github.com/angelmondragon/pdv-terminal/pkg/errors"
	"github.com/angelmondragon/pdv-terminal/pkg/types"
)

const generatePath = "/nfe/emissao/gerar-de-venda/"

// Poster is the slice of the API client the issuer needs.
type Poster interface {
	Post(ctx context.Context, path string, body, out any) error
}

// Document is the fiscal document the backend reports back.
type Document struct {
	ID        types.ID `json:"id"`
	Number    string   `json:"numero,omitempty"`
	Series    int      `json:"serie,omitempty"`
	AccessKey string   `json:"chave_acesso,omitempty"`
	Status    string   `json:"status,omitempty"`
}

type generateRequest struct {
	SaleID string `json:"venda_id"`
	Model  string `json:"modelo"`
	Series int    `json:"serie"`
}

type Issuer struct {
	api    Poster
	model  string
	series int
}

func NewIssuer(api Poster, cfg config.FiscalConfig) (*Issuer, error) {
	if api == nil {
		return nil, errors.New("fiscal api is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "65"
	}
	series := cfg.Series
	if series <= 0 {
		series = 1
	}
	return &Issuer{api: api, model: model, series: series}, nil
}

// GenerateFromSale asks the backend to issue the document for saleID.
func (i *Issuer) GenerateFromSale(ctx context.Context, saleID string) (*Document, error) {
	if strings.TrimSpace(saleID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id is required for fiscal generation")
	}
	var doc Document
	req := generateRequest{SaleID: saleID, Model: i.model, Series: i.series}
	if err := i.api.Post(ctx, generatePath, req, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
