// Package counter is counter mode (balcão): a direct sale with no table or
// tab. The sale is created on the first send and forgotten once it is
// finalized or released.
package counter

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/angelmondragon/pdv-terminal/internal/billing"
	"github.com/angelmondragon/pdv-terminal/internal/cart"
	"github.com/angelmondragon/pdv-terminal/pkg/localstore"
	"github.com/angelmondragon/pdv-terminal/pkg/logger"
	"github.com/angelmondragon/pdv-terminal/pkg/types"
	"github.com/shopspring/decimal"
)

const (
	salesPath     = "/vendas/"
	saleItemsPath = "/itens-venda/"
	originCounter = "BALCAO"
)

// API is the slice of the API client counter mode needs.
type API interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string) error
}

type createSaleRequest struct {
	Origin      string `json:"origem"`
	AttendantID string `json:"atendente_id,omitempty"`
}

type saleItemRequest struct {
	SaleID string `json:"venda_id"`
	cart.WireLine
}

type sale struct {
	ID            types.ID           `json:"id"`
	Number        string             `json:"numero"`
	GrossTotal    decimal.Decimal    `json:"total_bruto"`
	DiscountTotal decimal.Decimal    `json:"total_desconto"`
	NetTotal      decimal.Decimal    `json:"total_liquido"`
	Items         []billing.BillItem `json:"itens"`
}

// Backend implements billing.Backend over /vendas/ and /itens-venda/.
type Backend struct {
	api     API
	persist *localstore.Store[string]
	logg    *logger.Logger

	mu     sync.RWMutex
	saleID string
}

func NewBackend(api API, persist *localstore.Store[string], logg *logger.Logger) (*Backend, error) {
	if api == nil {
		return nil, errors.New("counter api is required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Backend{api: api, persist: persist, logg: logg}, nil
}

// Load restores the open sale id so a restart resumes the same sale.
func (b *Backend) Load(ctx context.Context) error {
	id, ok, err := b.persist.Load(ctx)
	if err != nil {
		if errors.Is(err, localstore.ErrIncompatible) {
			return b.persist.Clear(ctx)
		}
		return err
	}
	if ok {
		b.mu.Lock()
		b.saleID = id
		b.mu.Unlock()
	}
	return nil
}

// SaleID is the open direct sale, empty when none.
func (b *Backend) SaleID() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.saleID
}

func (b *Backend) Ref() cart.ContextRef {
	return cart.Counter()
}

func (b *Backend) Availability() billing.Availability {
	if b.SaleID() == "" {
		return billing.AvailabilityNeedsOpen
	}
	return billing.AvailabilityOpen
}

func (b *Backend) Open(ctx context.Context, attendantID string) error {
	var created sale
	req := createSaleRequest{Origin: originCounter, AttendantID: attendantID}
	if err := b.api.Post(ctx, salesPath, req, &created); err != nil {
		return err
	}
	if created.ID.IsZero() {
		return fmt.Errorf("create sale: backend returned no id")
	}
	b.setSale(ctx, created.ID.String())
	return nil
}

func (b *Backend) AddLine(ctx context.Context, line cart.WireLine) error {
	id := b.SaleID()
	if id == "" {
		return errors.New("no open sale")
	}
	return b.api.Post(ctx, saleItemsPath, saleItemRequest{SaleID: id, WireLine: line}, nil)
}

func (b *Backend) RemoveLine(ctx context.Context, itemID string) error {
	return b.api.Delete(ctx, saleItemsPath+url.PathEscape(itemID)+"/")
}

func (b *Backend) CloseBill(ctx context.Context, req billing.CloseRequest) (*billing.CloseResponse, error) {
	id := b.SaleID()
	if id == "" {
		return nil, errors.New("no open sale")
	}
	var resp billing.CloseResponse
	if err := b.api.Post(ctx, salesPath+url.PathEscape(id)+"/finalizar/", req, &resp); err != nil {
		return nil, err
	}
	if resp.SaleID.IsZero() {
		resp.SaleID = types.ID(id)
	}
	resp.Success = true
	b.setSale(ctx, "")
	return &resp, nil
}

// Release forgets the open sale. There is no backend call.
func (b *Backend) Release(ctx context.Context) error {
	b.setSale(ctx, "")
	return nil
}

func (b *Backend) FetchBill(ctx context.Context) (*billing.Bill, error) {
	id := b.SaleID()
	if id == "" {
		return billing.EmptyBill(""), nil
	}
	var current sale
	if err := b.api.Get(ctx, salesPath+url.PathEscape(id)+"/", nil, &current); err != nil {
		return nil, err
	}
	items := current.Items
	if items == nil {
		items = []billing.BillItem{}
	}
	return &billing.Bill{
		EntityID:      id,
		OrderNumber:   current.Number,
		GrossTotal:    current.GrossTotal,
		DiscountTotal: current.DiscountTotal,
		NetTotal:      current.NetTotal,
		Items:         items,
	}, nil
}

func (b *Backend) setSale(ctx context.Context, id string) {
	b.mu.Lock()
	b.saleID = id
	b.mu.Unlock()
	var err error
	if id == "" {
		err = b.persist.Clear(ctx)
	} else {
		err = b.persist.Save(ctx, id)
	}
	if err != nil {
		b.logg.Error(ctx, "failed to persist counter sale", err)
	}
}

var _ billing.Backend = (*Backend)(nil)
