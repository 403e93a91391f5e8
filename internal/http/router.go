package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
)

type RouterConfig struct {
	Auth       *AuthHandler
	Sports     *SportHandler
	Schedules  *ScheduleHandler
	Bookings   *BookingHandler
	Users      *UserHandler
	Logger     *slog.Logger
	Middleware []func(http.Handler) http.Handler
}

// NewRouter wires every endpoint with its guard. Route-level guards run
// inside the shared middleware chain, so the principal placed in the
// request context by Authenticate is already visible to them.
func NewRouter(cfg RouterConfig) http.Handler {
	router := httprouter.New()
	router.RedirectTrailingSlash = true
	router.HandleMethodNotAllowed = true

	logger := defaultLogger(cfg.Logger)
	user := RequireUser(logger)
	admin := RequireAdmin(logger)

	if cfg.Auth != nil {
		handle(router, http.MethodPost, "/auth/register", cfg.Auth.Register)
		handle(router, http.MethodPost, "/auth/login", cfg.Auth.Login)
		handle(router, http.MethodPost, "/auth/logout", guarded(user, cfg.Auth.Logout))
		handle(router, http.MethodGet, "/auth/me", guarded(user, cfg.Auth.Me))
		handle(router, http.MethodPut, "/auth/me", guarded(user, cfg.Auth.UpdateProfile))
	}

	if cfg.Sports != nil {
		handle(router, http.MethodGet, "/sports", cfg.Sports.List)
		handle(router, http.MethodGet, "/sports/:id", cfg.Sports.Get)
		handle(router, http.MethodPost, "/sports", guarded(admin, cfg.Sports.Create))
		handle(router, http.MethodPut, "/sports/:id", guarded(admin, cfg.Sports.Update))
		handle(router, http.MethodDelete, "/sports/:id", guarded(admin, cfg.Sports.Delete))
	}

	if cfg.Schedules != nil {
		handle(router, http.MethodGet, "/schedules", cfg.Schedules.List)
		handle(router, http.MethodGet, "/schedules/:id", cfg.Schedules.Get)
		handle(router, http.MethodPost, "/schedules", guarded(admin, cfg.Schedules.Create))
		handle(router, http.MethodPut, "/schedules/:id", guarded(admin, cfg.Schedules.Update))
		handle(router, http.MethodDelete, "/schedules/:id", guarded(admin, cfg.Schedules.Delete))
		handle(router, http.MethodDelete, "/schedules", guarded(admin, cfg.Schedules.DeleteMine))

		handle(router, http.MethodGet, "/venues", cfg.Schedules.SuggestVenues)
		handle(router, http.MethodPut, "/venues", guarded(admin, cfg.Schedules.RenameVenue))
	}

	if cfg.Bookings != nil {
		// Guests join without a token, so the join route carries no guard.
		handle(router, http.MethodPost, "/schedules/:id/bookings", cfg.Bookings.Join)
		handle(router, http.MethodGet, "/schedules/:id/bookings", guarded(admin, cfg.Bookings.Roster))
		handle(router, http.MethodGet, "/bookings", guarded(user, cfg.Bookings.MyBookings))
		handle(router, http.MethodDelete, "/bookings/:id", guarded(user, cfg.Bookings.Cancel))
	}

	if cfg.Users != nil {
		handle(router, http.MethodGet, "/users", guarded(admin, cfg.Users.List))
		handle(router, http.MethodDelete, "/users/:id", guarded(admin, cfg.Users.Delete))
	}

	var handler http.Handler = router
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}

	return handler
}

func handle(router *httprouter.Router, method, path string, fn http.HandlerFunc) {
	router.Handler(method, path, fn)
}

func guarded(guard func(http.Handler) http.Handler, fn http.HandlerFunc) http.HandlerFunc {
	wrapped := guard(fn)
	return func(w http.ResponseWriter, r *http.Request) {
		wrapped.ServeHTTP(w, r)
	}
}

// pathParam reads a named route segment captured by the router.
func pathParam(r *http.Request, name string) string {
	params := httprouter.ParamsFromContext(r.Context())
	return strings.TrimSpace(params.ByName(name))
}
