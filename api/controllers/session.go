package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pdv-terminal/api/responses"
	"github.com/angelmondragon/pdv-terminal/api/validators"
	"github.com/angelmondragon/pdv-terminal/internal/billing"
	"github.com/angelmondragon/pdv-terminal/internal/cart"
	"github.com/angelmondragon/pdv-terminal/internal/confirm"
	"github.com/angelmondragon/pdv-terminal/internal/payment"
	"github.com/angelmondragon/pdv-terminal/internal/terminal"
	"github.com/angelmondragon/pdv-terminal/pkg/enums"
	pkgerrors "github.com/angelmondragon/pdv-terminal/pkg/errors"
	"github.com/angelmondragon/pdv-terminal/pkg/logger"
)

var errNoContext = pkgerrors.New(pkgerrors.CodeStateConflict, "select a table, tab or counter mode first")

type sessionResponse struct {
	Context      cart.ContextRef `json:"context"`
	State        billing.State   `json:"state"`
	Availability string          `json:"availability"`
	Busy         bool            `json:"busy"`
	Polling      bool            `json:"polling"`
	Bill         *billing.Bill   `json:"bill,omitempty"`
	BillError    string          `json:"bill_error,omitempty"`
	Cart         cartResponse    `json:"cart"`
}

func newSessionResponse(ctl *billing.Controller, store *cart.Store) sessionResponse {
	resp := sessionResponse{
		Context:      ctl.Ref(),
		State:        ctl.State(),
		Availability: ctl.Availability().String(),
		Busy:         ctl.Busy(),
		Polling:      ctl.Polling(),
		Bill:         ctl.Bill(),
		Cart:         newCartResponse(store),
	}
	if err := ctl.BillErr(); err != nil {
		resp.BillError = pkgerrors.UserMessage(err)
	}
	return resp
}

func activeController(term *terminal.Terminal) (*billing.Controller, error) {
	ctl := term.Active()
	if ctl == nil {
		return nil, errNoContext
	}
	return ctl, nil
}

// SessionGet returns the active context, its bill and the cart.
func SessionGet(term *terminal.Terminal, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctl, err := activeController(term)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSessionResponse(ctl, term.Cart()))
	}
}

// SessionRefresh refetches the bill on demand.
func SessionRefresh(term *terminal.Terminal, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctl, err := activeController(term)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := ctl.Refresh(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSessionResponse(ctl, term.Cart()))
	}
}

type sendRequest struct {
	AttendantID string `json:"attendant_id,omitempty"`
}

type sendResponse struct {
	Result  billing.SendResult `json:"result"`
	Session sessionResponse    `json:"session"`
}

// SessionSend submits the cart lines to the active bill.
func SessionSend(term *terminal.Terminal, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctl, err := activeController(term)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload sendRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := ctl.SendOrder(r.Context(), billing.SendOptions{AttendantID: payload.AttendantID})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sendResponse{Result: result, Session: newSessionResponse(ctl, term.Cart())})
	}
}

type confirmRequest struct {
	Confirm bool `json:"confirm"`
}

// SessionCancelItem cancels a committed bill item. The body carries the
// operator's answer to the confirmation prompt.
func SessionCancelItem(term *terminal.Terminal, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctl, err := activeController(term)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload confirmRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID := chi.URLParam(r, "itemID")
		if err := ctl.CancelItem(r.Context(), itemID, confirm.Answer(payload.Confirm)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSessionResponse(ctl, term.Cart()))
	}
}

// closeRequest is validated by the bill controller after the cash session
// check, so a closed register is reported before a malformed intent.
type closeRequest struct {
	Method             enums.PaymentMethod `json:"method"`
	WarehouseID        string              `json:"warehouse_id"`
	AmountTendered     decimal.Decimal     `json:"amount_tendered"`
	AttendantID        string              `json:"attendant_id,omitempty"`
	CustomerTaxID      string              `json:"customer_tax_id,omitempty"`
	IssueFiscalReceipt bool                `json:"issue_fiscal_receipt"`
}

func (c closeRequest) intent() payment.Intent {
	return payment.Intent{
		Method:             c.Method,
		WarehouseID:        c.WarehouseID,
		AmountTendered:     c.AmountTendered,
		AttendantID:        c.AttendantID,
		CustomerTaxID:      c.CustomerTaxID,
		IssueFiscalReceipt: c.IssueFiscalReceipt,
	}
}

type closeResponse struct {
	Result      *billing.CloseResult `json:"result"`
	FiscalError string               `json:"fiscal_error,omitempty"`
	Session     sessionResponse      `json:"session"`
}

// SessionClose pays and closes the bill. The body is the payment modal's
// answer; a fiscal failure is reported next to the successful closure.
func SessionClose(term *terminal.Terminal, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctl, err := activeController(term)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload closeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := ctl.CloseBill(r.Context(), payment.Provided(payload.intent()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		resp := closeResponse{Result: result, Session: newSessionResponse(ctl, term.Cart())}
		if result.FiscalErr != nil {
			resp.FiscalError = pkgerrors.UserMessage(result.FiscalErr)
		}
		responses.WriteSuccess(w, resp)
	}
}

// SessionRelease frees an empty table or tab.
func SessionRelease(term *terminal.Terminal, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctl, err := activeController(term)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload confirmRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := ctl.Release(r.Context(), confirm.Answer(payload.Confirm)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSessionResponse(ctl, term.Cart()))
	}
}
