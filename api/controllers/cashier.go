package controllers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pdv-terminal/api/responses"
	"github.com/angelmondragon/pdv-terminal/api/validators"
	"github.com/angelmondragon/pdv-terminal/internal/cashier"
	"github.com/angelmondragon/pdv-terminal/internal/confirm"
	"github.com/angelmondragon/pdv-terminal/pkg/config"
	pkgerrors "github.com/angelmondragon/pdv-terminal/pkg/errors"
	"github.com/angelmondragon/pdv-terminal/pkg/logger"
)

type cashierResponse struct {
	Session *cashier.Session `json:"session"`
	Open    bool             `json:"open"`
	Loading bool             `json:"loading"`
	Error   string           `json:"error,omitempty"`
}

func newCashierResponse(gate *cashier.Gate) cashierResponse {
	session := gate.Session()
	resp := cashierResponse{Session: session, Open: session.IsOpen(), Loading: gate.IsLoading()}
	if err := gate.Err(); err != nil {
		resp.Error = pkgerrors.UserMessage(err)
	}
	return resp
}

func CashierGet(gate *cashier.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, newCashierResponse(gate))
	}
}

// CashierCheck re-reads the open session from the backend.
func CashierCheck(gate *cashier.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gate.CheckSession(r.Context())
		responses.WriteSuccess(w, newCashierResponse(gate))
	}
}

type openRegisterRequest struct {
	RegisterID     string          `json:"register_id,omitempty"`
	OpeningBalance decimal.Decimal `json:"opening_balance" validate:"gte=0"`
}

// CashierOpen opens the register. The terminal's configured register is
// used when the body names none.
func CashierOpen(gate *cashier.Gate, cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload openRegisterRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		registerID := strings.TrimSpace(payload.RegisterID)
		if registerID == "" {
			registerID = cfg.Terminal.RegisterID
		}
		if err := gate.OpenSession(r.Context(), registerID, payload.OpeningBalance); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCashierResponse(gate))
	}
}

type closeRegisterRequest struct {
	ClosingBalance decimal.Decimal `json:"closing_balance" validate:"gte=0"`
	Confirm        bool            `json:"confirm"`
}

func CashierClose(gate *cashier.Gate, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload closeRegisterRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := gate.CloseSession(r.Context(), payload.ClosingBalance, confirm.Answer(payload.Confirm)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCashierResponse(gate))
	}
}
