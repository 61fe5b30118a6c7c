package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/pdv-terminal/api/controllers"
	"github.com/angelmondragon/pdv-terminal/api/handlers"
	"github.com/angelmondragon/pdv-terminal/api/middleware"
	"github.com/angelmondragon/pdv-terminal/internal/terminal"
	"github.com/angelmondragon/pdv-terminal/pkg/config"
	"github.com/angelmondragon/pdv-terminal/pkg/logger"
)

// NewRouter builds the local HTTP surface the terminal UI drives.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	term *terminal.Terminal,
	gatherer prometheus.Gatherer,
	pingers map[string]controllers.Pinger,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Operator(term.Operator(), logg),
		middleware.Logging(logg),
	)

	r.Get("/healthz", handlers.Healthz(cfg, logg))
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, pingers))
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/tables", func(r chi.Router) {
			r.Get("/", controllers.TablesList(term, logg))
			r.Post("/", controllers.TablesCreate(term, logg))
			r.Post("/refresh", controllers.TablesRefresh(term, logg))
			r.Post("/{tableID}/select", controllers.TablesSelect(term, logg))
		})

		r.Route("/tabs", func(r chi.Router) {
			r.Get("/", controllers.TabsList(term))
			r.Post("/", controllers.TabsCreate(term, logg))
			r.Post("/refresh", controllers.TabsRefresh(term, logg))
			r.Post("/{tabID}/select", controllers.TabsSelect(term, logg))
		})

		r.Post("/counter/select", controllers.CounterSelect(term, logg))

		r.Route("/cart", func(r chi.Router) {
			store := term.Cart()
			r.Get("/", controllers.CartGet(store))
			r.Delete("/", controllers.CartClear(store))
			r.Post("/items", controllers.CartAddItem(store, logg))
			r.Delete("/items/{productID}", controllers.CartRemoveItem(store, logg))
			r.Post("/items/{productID}/increment", controllers.CartIncrement(store, logg))
			r.Post("/items/{productID}/decrement", controllers.CartDecrement(store, logg))
			r.Put("/items/{productID}/note", controllers.CartUpdateNote(store, logg))
		})

		r.Route("/session", func(r chi.Router) {
			r.Get("/", controllers.SessionGet(term, logg))
			r.Post("/refresh", controllers.SessionRefresh(term, logg))
			r.Post("/send", controllers.SessionSend(term, logg))
			r.Post("/items/{itemID}/cancel", controllers.SessionCancelItem(term, logg))
			r.Post("/close", controllers.SessionClose(term, logg))
			r.Post("/release", controllers.SessionRelease(term, logg))
		})

		r.Route("/cashier", func(r chi.Router) {
			gate := term.Cashier()
			r.Get("/", controllers.CashierGet(gate))
			r.Post("/check", controllers.CashierCheck(gate))
			r.Post("/open", controllers.CashierOpen(gate, cfg, logg))
			r.Post("/close", controllers.CashierClose(gate, logg))
		})
	})

	return r
}
