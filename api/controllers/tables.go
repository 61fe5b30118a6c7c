package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/pdv-terminal/api/responses"
	"github.com/angelmondragon/pdv-terminal/api/validators"
	"github.com/angelmondragon/pdv-terminal/internal/tables"
	"github.com/angelmondragon/pdv-terminal/internal/terminal"
	"github.com/angelmondragon/pdv-terminal/pkg/logger"
)

// TablesList serves the cached table grid. min_capacity filters out
// smaller tables.
func TablesList(term *terminal.Terminal, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		minCapacity, err := validators.ParseQueryInt(r, "min_capacity", 0, 0, 1000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		keep := func(t tables.Table) bool {
			if minCapacity == 0 {
				return true
			}
			return t.Capacity != nil && *t.Capacity >= minCapacity
		}
		responses.WriteSuccess(w, newRosterResponse(term.Tables().Roster(), keep))
	}
}

// TablesRefresh re-polls the grid now. A failure keeps the cached tables.
func TablesRefresh(term *terminal.Terminal, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := term.TableGrid().Retry(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newRosterResponse(term.Tables().Roster(), nil))
	}
}

func TablesCreate(term *terminal.Terminal, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload tables.CreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		created, err := term.Tables().Create(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// TablesSelect makes the table the active bill session.
func TablesSelect(term *terminal.Terminal, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctl, err := term.SelectTable(r.Context(), chi.URLParam(r, "tableID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSessionResponse(ctl, term.Cart()))
	}
}
