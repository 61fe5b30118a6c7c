package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/pdv-terminal/api/responses"
	"github.com/angelmondragon/pdv-terminal/api/validators"
	"github.com/angelmondragon/pdv-terminal/internal/tabs"
	"github.com/angelmondragon/pdv-terminal/internal/terminal"
	"github.com/angelmondragon/pdv-terminal/pkg/logger"
)

// TabsList serves the cached tab grid, optionally narrowed to one code.
func TabsList(term *terminal.Terminal) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := strings.TrimSpace(r.URL.Query().Get("code"))
		var keep func(tabs.Tab) bool
		if code != "" {
			keep = func(t tabs.Tab) bool { return strings.EqualFold(t.Code, code) }
		}
		responses.WriteSuccess(w, newRosterResponse(term.Tabs().Roster(), keep))
	}
}

func TabsRefresh(term *terminal.Terminal, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := term.TabGrid().Retry(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newRosterResponse(term.Tabs().Roster(), nil))
	}
}

func TabsCreate(term *terminal.Terminal, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload tabs.CreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		created, err := term.Tabs().Create(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// TabsSelect accepts a tab id, or a code when the path value is not an id
// in the roster.
func TabsSelect(term *terminal.Terminal, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "tabID")
		if _, err := term.Tabs().Get(key); err != nil {
			if tab, ok := term.Tabs().FindByCode(key); ok {
				key = tab.ID.String()
			}
		}
		ctl, err := term.SelectTab(r.Context(), key)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSessionResponse(ctl, term.Cart()))
	}
}
