// Package api exposes pool operations over HTTP.
//
// The caller identity of every request is taken from the X-Caller header.
// Amounts are decimal strings in the pool currency's major unit ("12.50").
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xraph/rosca"
	"github.com/xraph/rosca/id"
	"github.com/xraph/rosca/journal"
	"github.com/xraph/rosca/pool"
	"github.com/xraph/rosca/types"
)

// CallerHeader carries the identity of the caller.
const CallerHeader = "X-Caller"

// Service is the pool API served over HTTP. *rosca.Engine implements it.
type Service interface {
	CreatePool(ctx context.Context, name string, cfg pool.Config) (*pool.State, error)
	GetPool(ctx context.Context, poolID id.PoolID) (*pool.State, error)
	ListPools(ctx context.Context, opts pool.ListOpts) ([]*pool.State, error)
	DeletePool(ctx context.Context, poolID id.PoolID) error
	View(ctx context.Context, poolID id.PoolID) (*rosca.Ledger, error)
	SetQuota(ctx context.Context, poolID id.PoolID, caller types.Identity, quota uint64) error
	Contribute(ctx context.Context, poolID id.PoolID, caller types.Identity, amount types.Money) error
	RequestPayout(ctx context.Context, poolID id.PoolID, caller types.Identity) (pool.Request, error)
	ApprovePayout(ctx context.Context, poolID id.PoolID, caller, requester types.Identity) (pool.Payout, error)
	NextCycle(ctx context.Context, poolID id.PoolID) (bool, error)
	Journal(ctx context.Context, poolID id.PoolID, opts journal.QueryOpts) ([]*journal.Entry, error)
}

var _ Service = (*rosca.Engine)(nil)

// Handler routes pool requests to a Service.
type Handler struct {
	svc      Service
	router   *chi.Mux
	logger   *slog.Logger
	basePath string
	registry *prometheus.Registry
	metrics  *Metrics
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger used for server-side failures.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// WithBasePath mounts the pool routes under path.
func WithBasePath(path string) Option {
	return func(h *Handler) { h.basePath = path }
}

// WithRegistry records HTTP metrics on reg and serves it on /metrics.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(h *Handler) { h.registry = reg }
}

// New builds a Handler for svc.
func New(svc Service, opts ...Option) *Handler {
	h := &Handler{
		svc:    svc,
		router: chi.NewRouter(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.registry != nil {
		h.metrics = NewMetrics(h.registry)
	}
	h.routes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	h.router.Use(middleware.RequestID)
	h.router.Use(middleware.Recoverer)
	if h.metrics != nil {
		h.router.Use(h.metrics.Middleware)
		h.router.Handle("/metrics", promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}))
	}

	pools := func(r chi.Router) {
		r.Post("/pools", h.createPool)
		r.Get("/pools", h.listPools)
		r.Route("/pools/{poolID}", func(r chi.Router) {
			r.Get("/", h.getPool)
			r.Delete("/", h.deletePool)
			r.Get("/quota", h.getQuota)
			r.Put("/quota", h.setQuota)
			r.Post("/contributions", h.contribute)
			r.Get("/contributors", h.contributors)
			r.Get("/balances/{identity}", h.balance)
			r.Post("/payout-requests", h.requestPayout)
			r.Get("/payout-requests/pending", h.pendingRequest)
			r.Post("/payouts", h.approvePayout)
			r.Get("/payouts", h.payoutHistory)
			r.Post("/cycle", h.nextCycle)
			r.Get("/next-requester", h.nextRequester)
			r.Get("/journal", h.journal)
		})
	}
	if h.basePath == "" || h.basePath == "/" {
		pools(h.router)
		return
	}
	h.router.Route(h.basePath, pools)
}
