package api

import (
	_ "embed"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/runtime/middleware"

	"github.com/jmcleod/pinlock/datastore"
	"github.com/jmcleod/pinlock/internal/logger"
	"github.com/jmcleod/pinlock/session"
)

// API binds the session controller and the guarded data gateway to HTTP.
type API struct {
	ctrl *session.Controller
	data datastore.Gateway
	log  *logger.Logger
}

//go:embed openapi.yaml
var openapiSpec []byte

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the logger for request and error logging.
func WithLogger(l *logger.Logger) Option {
	return func(a *API) {
		a.log = l
	}
}

// New creates a new API instance. gw is wrapped with datastore.Guard, so
// every data call re-checks the controller.
func New(ctrl *session.Controller, gw datastore.Gateway, opts ...Option) *API {
	a := &API{
		ctrl: ctrl,
		data: datastore.Guard(gw, ctrl),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = logger.Nop()
	}
	a.log = a.log.WithComponent("api")
	return a
}

// Router returns a chi.Router with all API routes mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(a.CSRFMiddleware)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})

	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/docs",
	}, nil))

	r.Handle("/redoc*", middleware.Redoc(middleware.RedocOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/redoc",
	}, nil))

	r.Get("/session", a.GetSession)

	r.Post("/pin/register", a.RegisterPin)
	r.Post("/pin/login", a.LoginPin)
	r.Post("/pin/lock", a.LockPin)
	r.Post("/pin/reset", a.ResetPin)

	r.Get("/state", a.ListState)
	r.Get("/state/{name}", a.GetState)
	r.Put("/state/{name}", a.PutState)
	r.Delete("/state/{name}", a.DeleteState)

	r.Post("/auth/sign-in", a.SignIn)
	r.Post("/auth/sign-out", a.SignOut)
	r.Get("/auth/assurance", a.GetAssurance)
	r.Get("/auth/factors", a.ListFactors)
	r.Post("/auth/factors", a.EnrollFactor)
	r.Post("/auth/factors/{factorID}/verify", a.VerifyFactor)

	r.Get("/data/{table}", a.SelectRows)
	r.Post("/data/{table}", a.InsertRow)
	r.Patch("/data/{table}/{id}", a.UpdateRow)
	r.Delete("/data/{table}/{id}", a.DeleteRow)

	return r
}
