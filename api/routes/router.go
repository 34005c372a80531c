package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tillpoint/pos-engine/api/controllers"
	"github.com/tillpoint/pos-engine/api/middleware"
	"github.com/tillpoint/pos-engine/internal/catalog"
	checkoutsvc "github.com/tillpoint/pos-engine/internal/checkout"
	"github.com/tillpoint/pos-engine/internal/customers"
	"github.com/tillpoint/pos-engine/internal/holds"
	"github.com/tillpoint/pos-engine/internal/quotes"
	registersvc "github.com/tillpoint/pos-engine/internal/register"
	"github.com/tillpoint/pos-engine/internal/sales"
	"github.com/tillpoint/pos-engine/pkg/config"
	"github.com/tillpoint/pos-engine/pkg/logger"
)

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        controllers.Pinger
	Redis     controllers.Pinger
	Sessions  *registersvc.Manager
	Register  registersvc.Service
	Holds     holds.Service
	Quotes    quotes.Service
	Checkout  checkoutsvc.Service
	Sales     sales.Service
	Catalog   catalog.Service
	Customers customers.Service
	Metrics   prometheus.Gatherer
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	logg := deps.Logger

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(deps.Config))
		r.Get("/ready", controllers.HealthReady(deps.Config, logg, deps.DB, deps.Redis))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(deps.Catalog, logg))
			r.Get("/{productId}", controllers.ProductDetail(deps.Catalog, logg))
		})
		r.Get("/customers/search", controllers.CustomerSearch(deps.Customers, logg))

		r.Route("/sales", func(r chi.Router) {
			r.Get("/", controllers.SaleList(deps.Sales, logg))
			r.Get("/{saleId}", controllers.SaleDetail(deps.Sales, logg))
			r.Post("/{saleId}/void", controllers.SaleVoid(deps.Sales, logg))
			r.Post("/{saleId}/return", controllers.SaleReturn(deps.Sales, logg))
		})

		// Everything below operates a specific terminal's live cart.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RegisterSession(deps.Sessions, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(deps.Register, logg))
				r.Delete("/", controllers.CartClear(deps.Register, logg))
				r.Post("/items", controllers.CartAddItem(deps.Register, logg))
				r.Patch("/items", controllers.CartUpdateQuantity(deps.Register, logg))
				r.Delete("/items/{productId}", controllers.CartRemoveItem(deps.Register, logg))
				r.Put("/items/{productId}/override", controllers.CartSetLineOverride(deps.Register, logg))
				r.Put("/customer", controllers.CartSetCustomer(deps.Register, logg))
				r.Put("/discount", controllers.CartSetDiscount(deps.Register, logg))
				r.Delete("/discount", controllers.CartClearDiscount(deps.Register, logg))
				r.Post("/coupon", controllers.CartApplyCoupon(deps.Register, logg))
				r.Put("/notes", controllers.CartSetNotes(deps.Register, logg))
			})

			r.Route("/holds", func(r chi.Router) {
				r.Post("/", controllers.HoldCreate(deps.Holds, logg))
				r.Get("/", controllers.HoldList(deps.Holds, logg))
				r.Post("/{holdId}/resume", controllers.HoldResume(deps.Holds, logg))
				r.Delete("/{holdId}", controllers.HoldDelete(deps.Holds, logg))
			})

			r.Route("/quotes", func(r chi.Router) {
				r.Post("/", controllers.QuoteSave(deps.Quotes, logg))
				r.Get("/", controllers.QuoteList(deps.Quotes, logg))
				r.Get("/{quoteId}", controllers.QuoteDetail(deps.Quotes, logg))
				r.Post("/{quoteId}/convert", controllers.QuoteConvert(deps.Quotes, logg))
				r.Delete("/{quoteId}", controllers.QuoteDelete(deps.Quotes, logg))
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Get("/", controllers.CheckoutStatus(deps.Checkout, logg))
				r.Post("/begin", controllers.CheckoutBegin(deps.Checkout, logg))
				r.Post("/method", controllers.CheckoutSelectMethod(deps.Checkout, logg))
				r.Post("/tender", controllers.CheckoutTenderCash(deps.Checkout, logg))
				r.Post("/cancel", controllers.CheckoutCancel(deps.Checkout, logg))
			})
		})
	})

	return r
}
