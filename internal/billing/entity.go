package billing

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/angelmondragon/pdv-terminal/internal/cart"
	"github.com/angelmondragon/pdv-terminal/pkg/apiclient"
)

// API is the slice of the API client the backends use.
type API interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
}

// EntityHooks bind an EntityBackend to its roster: where availability comes
// from and how successful transitions are echoed locally until the next poll.
type EntityHooks struct {
	Availability func() Availability
	OnOpened     func(ctx context.Context)
	OnClosed     func(ctx context.Context)
	OnReleased   func(ctx context.Context)
}

// EntityBackend implements Backend for resources that expose the
// conta/abrir/adicionar_pedido/remover_pedido/fechar/liberar actions
// (tables and tabs).
type EntityBackend struct {
	api   API
	ref   cart.ContextRef
	base  string
	hooks EntityHooks
}

// NewEntityBackend builds a backend for /<resource>/<id>/.
func NewEntityBackend(api API, resource string, ref cart.ContextRef, hooks EntityHooks) *EntityBackend {
	resource = strings.Trim(resource, "/")
	return &EntityBackend{
		api:   api,
		ref:   ref,
		base:  "/" + resource + "/" + url.PathEscape(ref.ID) + "/",
		hooks: hooks,
	}
}

func (b *EntityBackend) Ref() cart.ContextRef {
	return b.ref
}

func (b *EntityBackend) Availability() Availability {
	if b.hooks.Availability == nil {
		return AvailabilityOpen
	}
	return b.hooks.Availability()
}

func (b *EntityBackend) Open(ctx context.Context, attendantID string) error {
	if err := b.api.Post(ctx, b.base+"abrir/", OpenRequest{AttendantID: attendantID}, nil); err != nil {
		return err
	}
	call(ctx, b.hooks.OnOpened)
	return nil
}

func (b *EntityBackend) AddLine(ctx context.Context, line cart.WireLine) error {
	return b.api.Post(ctx, b.base+"adicionar_pedido/", line, nil)
}

func (b *EntityBackend) RemoveLine(ctx context.Context, itemID string) error {
	return b.api.Post(ctx, b.base+"remover_pedido/", RemoveLineRequest{ItemID: itemID}, nil)
}

func (b *EntityBackend) CloseBill(ctx context.Context, req CloseRequest) (*CloseResponse, error) {
	var resp CloseResponse
	if err := b.api.Post(ctx, b.base+"fechar/", req, &resp); err != nil {
		return nil, err
	}
	call(ctx, b.hooks.OnClosed)
	return &resp, nil
}

func (b *EntityBackend) Release(ctx context.Context) error {
	if err := b.api.Post(ctx, b.base+"liberar/", nil, nil); err != nil {
		return err
	}
	call(ctx, b.hooks.OnReleased)
	return nil
}

// FetchBill reads the current bill. A free context has no bill and is not
// queried; a 404 is an empty bill.
func (b *EntityBackend) FetchBill(ctx context.Context) (*Bill, error) {
	if b.Availability() == AvailabilityNeedsOpen {
		return EmptyBill(b.ref.ID), nil
	}
	var bill Bill
	if err := b.api.Get(ctx, b.base+"conta/", nil, &bill); err != nil {
		if apiclient.StatusOf(err) == http.StatusNotFound {
			return EmptyBill(b.ref.ID), nil
		}
		return nil, err
	}
	bill.EntityID = b.ref.ID
	if bill.Items == nil {
		bill.Items = []BillItem{}
	}
	return &bill, nil
}

func call(ctx context.Context, fn func(context.Context)) {
	if fn != nil {
		fn(ctx)
	}
}
