package tabs

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/pdv-terminal/internal/billing"
	"github.com/angelmondragon/pdv-terminal/internal/cart"
	"github.com/angelmondragon/pdv-terminal/internal/roster"
	"github.com/angelmondragon/pdv-terminal/pkg/enums"
	pkgerrors "github.com/angelmondragon/pdv-terminal/pkg/errors"
	"github.com/angelmondragon/pdv-terminal/pkg/pagination"
)

type Resource struct {
	api    billing.API
	roster *roster.Store[Tab]
}

func NewResource(api billing.API, store *roster.Store[Tab]) (*Resource, error) {
	if api == nil {
		return nil, errors.New("tabs api is required")
	}
	if store == nil {
		return nil, errors.New("tabs roster is required")
	}
	return &Resource{api: api, roster: store}, nil
}

func (r *Resource) List(ctx context.Context, pageSize int) ([]Tab, error) {
	var page pagination.Page[Tab]
	if err := r.api.Get(ctx, "/"+resource+"/", pagination.Query(1, pageSize), &page); err != nil {
		return nil, err
	}
	return page.Results, nil
}

func (r *Resource) Create(ctx context.Context, req CreateRequest) (Tab, error) {
	req.Code = strings.TrimSpace(req.Code)
	if req.Code == "" {
		return Tab{}, pkgerrors.New(pkgerrors.CodeValidation, "tab code is required")
	}
	var created Tab
	if err := r.api.Post(ctx, "/"+resource+"/", req, &created); err != nil {
		return Tab{}, err
	}
	if created.Status == "" {
		created.Status = enums.TabStatusFree
	}
	r.roster.Upsert(ctx, created)
	return created, nil
}

func (r *Resource) Get(id string) (Tab, error) {
	t, ok := r.roster.Get(id)
	if !ok {
		return Tab{}, pkgerrors.New(pkgerrors.CodeNotFound, "tab "+id+" not found")
	}
	return t, nil
}

// FindByCode looks a tab up by the code printed on it.
func (r *Resource) FindByCode(code string) (Tab, bool) {
	code = strings.TrimSpace(code)
	for _, t := range r.roster.List() {
		if strings.EqualFold(t.Code, code) {
			return t, true
		}
	}
	return Tab{}, false
}

func (r *Resource) Roster() *roster.Store[Tab] {
	return r.roster
}

// Backend binds the bill session of one tab. A blocked tab takes no orders.
func (r *Resource) Backend(id string) billing.Backend {
	return billing.NewEntityBackend(r.api, resource, cart.Tab(id), billing.EntityHooks{
		Availability: func() billing.Availability {
			t, ok := r.roster.Get(id)
			switch {
			case !ok || t.Status.NeedsOpening():
				return billing.AvailabilityNeedsOpen
			case t.Status == enums.TabStatusBlocked:
				return billing.AvailabilityUnavailable
			default:
				return billing.AvailabilityOpen
			}
		},
		OnOpened:   r.echo(id, enums.TabStatusInUse),
		OnClosed:   r.echo(id, enums.TabStatusFree),
		OnReleased: r.echo(id, enums.TabStatusFree),
	})
}

func (r *Resource) echo(id string, status enums.TabStatus) func(context.Context) {
	return func(ctx context.Context) {
		r.roster.Patch(ctx, id, func(t *Tab) {
			t.Status = status
			if status == enums.TabStatusFree {
				t.CurrentOrderID = nil
				t.CurrentOrderNumber = nil
				t.BillTotal = nil
			}
		})
	}
}

var _ roster.Lister[Tab] = (*Resource)(nil)
