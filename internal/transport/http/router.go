// Package httptransport wires the HTTP surface: routing, middleware, and
// the split between anonymous and authenticated endpoints.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	notifhandler "orgportal/internal/notification/handler"
	"orgportal/internal/platform/health"
	"orgportal/internal/platform/middleware"
	reghandler "orgportal/internal/registration/handler"
	tenanthandler "orgportal/internal/tenant/handler"
	"orgportal/pkg/platform/middleware/auth"
)

// Deps carries the wired handlers and settings the router needs.
type Deps struct {
	Registration  *reghandler.Handler
	Tenant        *tenanthandler.Handler
	Notification  *notifhandler.Handler
	Health        *health.Handler
	JWTSigningKey string
	Logger        *slog.Logger
}

// NewRouter assembles the full middleware stack and mounts every endpoint.
// Submission and the form lookups are anonymous; everything that decides,
// deletes, or reads notifications requires a bearer token.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)

	d.Health.Register(r)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		d.Registration.RegisterPublic(r)
		d.Tenant.Register(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireToken(d.JWTSigningKey, d.Logger))
		d.Registration.RegisterProtected(r)
		d.Notification.Register(r)
	})

	return r
}
