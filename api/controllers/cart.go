package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pdv-terminal/api/responses"
	"github.com/angelmondragon/pdv-terminal/api/validators"
	"github.com/angelmondragon/pdv-terminal/internal/cart"
	"github.com/angelmondragon/pdv-terminal/pkg/enums"
	pkgerrors "github.com/angelmondragon/pdv-terminal/pkg/errors"
	"github.com/angelmondragon/pdv-terminal/pkg/logger"
)

type cartResponse struct {
	Context  cart.ContextRef `json:"context"`
	Lines    []cart.Line     `json:"lines"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

func newCartResponse(store *cart.Store) cartResponse {
	lines := store.Lines()
	if lines == nil {
		lines = []cart.Line{}
	}
	return cartResponse{Context: store.Context(), Lines: lines, Subtotal: store.Subtotal()}
}

// CartGet returns the unsent lines of the active context.
func CartGet(store *cart.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, newCartResponse(store))
	}
}

type addItemRequest struct {
	ID        string            `json:"id" validate:"required"`
	Name      string            `json:"name" validate:"required"`
	UnitPrice decimal.Decimal   `json:"unit_price" validate:"gte=0"`
	Kind      enums.ProductKind `json:"kind,omitempty"`
}

// CartAddItem adds one unit of a product picked from the catalog.
func CartAddItem(store *cart.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.Kind != "" && !payload.Kind.IsValid() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid product kind").
				WithDetails(map[string]string{"kind": "is invalid"}))
			return
		}
		store.AddItem(r.Context(), cart.ProductSnapshot{
			ID:        payload.ID,
			Name:      payload.Name,
			UnitPrice: payload.UnitPrice,
			Kind:      payload.Kind,
		})
		responses.WriteSuccessStatus(w, http.StatusCreated, newCartResponse(store))
	}
}

// cartLineAction runs fn on an existing line named by the productID param.
func cartLineAction(store *cart.Store, logg *logger.Logger, fn func(r *http.Request, productID string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID := chi.URLParam(r, "productID")
		if !store.Contains(productID) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product not in cart"))
			return
		}
		if err := fn(r, productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(store))
	}
}

func CartRemoveItem(store *cart.Store, logg *logger.Logger) http.HandlerFunc {
	return cartLineAction(store, logg, func(r *http.Request, productID string) error {
		store.RemoveItem(r.Context(), productID)
		return nil
	})
}

func CartIncrement(store *cart.Store, logg *logger.Logger) http.HandlerFunc {
	return cartLineAction(store, logg, func(r *http.Request, productID string) error {
		store.Increment(r.Context(), productID)
		return nil
	})
}

// CartDecrement drops the line when its last unit is removed.
func CartDecrement(store *cart.Store, logg *logger.Logger) http.HandlerFunc {
	return cartLineAction(store, logg, func(r *http.Request, productID string) error {
		store.Decrement(r.Context(), productID)
		return nil
	})
}

type noteRequest struct {
	Note string `json:"note" validate:"max=255"`
}

func CartUpdateNote(store *cart.Store, logg *logger.Logger) http.HandlerFunc {
	return cartLineAction(store, logg, func(r *http.Request, productID string) error {
		var payload noteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return err
		}
		store.UpdateObservation(r.Context(), productID, payload.Note)
		return nil
	})
}

// CartClear empties the cart and keeps its context.
func CartClear(store *cart.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store.Clear(r.Context())
		responses.WriteSuccess(w, newCartResponse(store))
	}
}
