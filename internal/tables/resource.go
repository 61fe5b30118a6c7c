package tables

import (
	"context"
	"errors"

	"github.com/angelmondragon/pdv-terminal/internal/billing"
	"github.com/angelmondragon/pdv-terminal/internal/cart"
	"github.com/angelmondragon/pdv-terminal/internal/roster"
	"github.com/angelmondragon/pdv-terminal/pkg/enums"
	pkgerrors "github.com/angelmondragon/pdv-terminal/pkg/errors"
	"github.com/angelmondragon/pdv-terminal/pkg/pagination"
)

// Resource talks to /mesas/ and keeps the table roster current.
type Resource struct {
	api    billing.API
	roster *roster.Store[Table]
}

func NewResource(api billing.API, store *roster.Store[Table]) (*Resource, error) {
	if api == nil {
		return nil, errors.New("tables api is required")
	}
	if store == nil {
		return nil, errors.New("tables roster is required")
	}
	return &Resource{api: api, roster: store}, nil
}

// List fetches the first page of tables. It satisfies roster.Lister.
func (r *Resource) List(ctx context.Context, pageSize int) ([]Table, error) {
	var page pagination.Page[Table]
	if err := r.api.Get(ctx, "/"+resource+"/", pagination.Query(1, pageSize), &page); err != nil {
		return nil, err
	}
	return page.Results, nil
}

// Create registers a new table and adds it to the roster.
func (r *Resource) Create(ctx context.Context, req CreateRequest) (Table, error) {
	if req.Number <= 0 {
		return Table{}, pkgerrors.New(pkgerrors.CodeValidation, "table number must be positive")
	}
	var created Table
	if err := r.api.Post(ctx, "/"+resource+"/", req, &created); err != nil {
		return Table{}, err
	}
	if created.Status == "" {
		created.Status = enums.TableStatusFree
	}
	r.roster.Upsert(ctx, created)
	return created, nil
}

// Get returns the cached table with id.
func (r *Resource) Get(id string) (Table, error) {
	t, ok := r.roster.Get(id)
	if !ok {
		return Table{}, pkgerrors.New(pkgerrors.CodeNotFound, "table "+id+" not found")
	}
	return t, nil
}

func (r *Resource) Roster() *roster.Store[Table] {
	return r.roster
}

// Backend binds the bill session of one table. Successful open, close and
// release echo the new status into the roster until the next poll.
func (r *Resource) Backend(id string) billing.Backend {
	return billing.NewEntityBackend(r.api, resource, cart.Table(id), billing.EntityHooks{
		Availability: func() billing.Availability {
			t, ok := r.roster.Get(id)
			if !ok || t.Status.NeedsOpening() {
				return billing.AvailabilityNeedsOpen
			}
			return billing.AvailabilityOpen
		},
		OnOpened:   r.echo(id, enums.TableStatusOccupied),
		OnClosed:   r.echo(id, enums.TableStatusFree),
		OnReleased: r.echo(id, enums.TableStatusFree),
	})
}

func (r *Resource) echo(id string, status enums.TableStatus) func(context.Context) {
	return func(ctx context.Context) {
		r.roster.Patch(ctx, id, func(t *Table) {
			t.Status = status
			if status == enums.TableStatusFree {
				t.CurrentOrderID = nil
				t.CurrentOrderNumber = nil
				t.BillTotal = nil
			}
		})
	}
}

var _ roster.Lister[Table] = (*Resource)(nil)
