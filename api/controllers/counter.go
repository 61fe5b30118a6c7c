package controllers

import (
	"net/http"

	"github.com/angelmondragon/pdv-terminal/api/responses"
	"github.com/angelmondragon/pdv-terminal/internal/terminal"
	"github.com/angelmondragon/pdv-terminal/pkg/logger"
)

// CounterSelect switches to direct counter sales.
func CounterSelect(term *terminal.Terminal, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctl, err := term.SelectCounter(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSessionResponse(ctl, term.Cart()))
	}
}
