package router // package router defines how HTTP routes are registered for the API

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/wb-go/wbf/logger"

	"github.com/iliyamo/cinema-ticketing/internal/config"
	"github.com/iliyamo/cinema-ticketing/internal/handler"
	"github.com/iliyamo/cinema-ticketing/internal/middleware"
	"github.com/iliyamo/cinema-ticketing/internal/policy"
)

// Deps is everything the routes need.  Redis may be nil; rate limiting and
// the response cache then switch themselves off.
type Deps struct {
	Cfg      config.Config
	Log      logger.Logger
	Redis    *redis.Client
	Policy   *policy.Table
	Sessions middleware.Sessions
	Auth     *handler.AuthHandler
	Bookings *handler.BookingHandler
	Catalog  *handler.CatalogHandler
}

// New builds the echo instance with the global middleware chain and every
// route registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(d.Log)

	// order matters: request id first so every later log line carries it,
	// recovery inside the logger so panics are logged with their status
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(middleware.Recovery(d.Log))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization, handler.IdempotencyHeader},
		AllowCredentials: false,
	}))
	// the global gate only resolves the caller; AUTH_POLICY is enforced per
	// route by guard so login and health stay reachable under strict
	e.Use(middleware.Authenticate(d.Sessions, authConfig(d, config.PolicyLenient), d.Log))
	e.Use(middleware.RateLimit(d.Cfg.RateLimit, d.Redis, d.Log))

	g := guard(d)
	RegisterRoutes(e)
	RegisterAuth(e, d.Auth, g)
	RegisterBookings(e, d.Bookings, d.Policy, g)
	RegisterCatalog(e, d.Catalog, d.Policy, g, middleware.ResponseCache(d.Cfg.Cache, d.Redis, d.Log),
		middleware.InvalidateCache(d.Cfg.Cache, d.Redis, d.Log, "/movies/list-movie"))
	return e
}

func authConfig(d Deps, p config.AuthPolicy) middleware.AuthConfig {
	return middleware.AuthConfig{
		Policy: p,
		Cookie: middleware.CookieConfig{Secure: d.Cfg.CookieSecure},
	}
}

// guard is the gate for routes that need a caller.  Under the strict
// policy it rejects anonymous requests before the permission checks run.
func guard(d Deps) echo.MiddlewareFunc {
	if d.Cfg.AuthPolicy != config.PolicyStrict {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return middleware.Authenticate(d.Sessions, authConfig(d, config.PolicyStrict), d.Log)
}

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers registration and session endpoints.  Register,
// login and refresh are open; logout and me need a resolved caller.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, gate echo.MiddlewareFunc) {
	e.POST("/register", a.Register)
	e.POST("/login", a.Login)
	e.POST("/refresh", a.Refresh)

	e.POST("/logout", a.Logout, gate, middleware.RequireAuth())
	e.GET("/me", a.Me, gate, middleware.RequireAuth())
}
