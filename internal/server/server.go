// Package server exposes the doctype editor pages and the document JSON API
// over echo.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	doctype "github.com/goliatone/go-doctype"
	"github.com/goliatone/go-doctype/internal/auth"
	"github.com/goliatone/go-doctype/pkg/model"
	"github.com/goliatone/go-doctype/pkg/openapi"
	"github.com/goliatone/go-doctype/pkg/render"
	"github.com/goliatone/go-doctype/pkg/render/pages"
)

// Repository is the storage the handlers need. *store.Store satisfies it.
type Repository interface {
	ListDoctypes(ctx context.Context) ([]model.Doctype, error)
	GetDoctype(ctx context.Context, name string) (model.Doctype, error)
	CreateDoctype(ctx context.Context, dt *model.Doctype) error
	UpdateDoctype(ctx context.Context, name string, dt *model.Doctype) error
	DeleteDoctype(ctx context.Context, name string) error

	ListDocuments(ctx context.Context, doctype string) ([]model.Document, error)
	GetDocument(ctx context.Context, doctype string, id int64) (model.Document, error)
	CreateDocument(ctx context.Context, doc *model.Document) error
	UpdateDocument(ctx context.Context, doc *model.Document) error
	DeleteDocument(ctx context.Context, doctype string, id int64) error
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the access and error logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.log = logger
		}
	}
}

// WithRegistry replaces the export renderer registry.
func WithRegistry(registry *render.Registry) Option {
	return func(s *Server) {
		if registry != nil {
			s.renderers = registry
		}
	}
}

// WithShutdownTimeout bounds graceful shutdown in Start.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// Server wires routes, middleware and handlers.
type Server struct {
	echo            *echo.Echo
	repo            Repository
	auth            *auth.Authenticator
	pages           *pages.Renderer
	renderers       *render.Registry
	log             *zap.Logger
	shutdownTimeout time.Duration
}

// New builds a Server with every route registered.
func New(repo Repository, authn *auth.Authenticator, renderer *pages.Renderer, opts ...Option) *Server {
	s := &Server{
		echo:            echo.New(),
		repo:            repo,
		auth:            authn,
		pages:           renderer,
		log:             zap.NewNop(),
		shutdownTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.renderers == nil {
		s.renderers = render.NewDefaultRegistry()
		s.renderers.MustRegister(openapi.Renderer{})
	}

	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.HTTPErrorHandler = s.handleError
	s.echo.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: newRequestID}))
	s.echo.Use(s.accessLog())
	s.echo.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		DisableStackAll: true,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			s.log.Error("panic",
				zap.String("request_id", requestID(c)),
				zap.String("uri", c.Request().RequestURI),
				zap.Error(err),
				zap.ByteString("stack", stack),
			)
			return err
		},
	}))

	s.routes()
	return s
}

func (s *Server) routes() {
	e := s.echo
	protected := s.auth.RequireLogin()

	e.StaticFS("/static/js", doctype.RuntimeAssetsFS())

	e.GET("/", s.home)
	e.GET("/login", s.loginPage)
	e.POST("/login", s.login)
	e.POST("/logout", s.logout)

	e.GET("/doctypes", s.listDoctypes, protected)

	web := e.Group("/doctype", protected)
	web.GET("/new", s.newDoctype)
	web.POST("/new", s.createDoctype)
	web.GET("/:name", s.viewDoctype)
	web.GET("/:name/edit", s.editDoctype)
	web.POST("/:name/edit", s.updateDoctype)
	web.POST("/:name/delete", s.deleteDoctype)
	web.GET("/:name/documents", s.listDocuments)
	web.GET("/:name/document/:id", s.documentForm)
	web.POST("/:name/document/:id", s.saveDocument)
	web.POST("/:name/document/:id/delete", s.deleteDocument)

	api := e.Group("/api", protected)
	api.POST("/documents", s.apiCreateDocument)
	api.GET("/documents/:doctype", s.apiListDocuments)
	api.GET("/documents/:doctype/:id", s.apiGetDocument)
	api.PUT("/documents/:doctype/:id", s.apiUpdateDocument)
	api.DELETE("/documents/:doctype/:id", s.apiDeleteDocument)
	api.GET("/doctypes/:name/openapi.json", s.apiOpenAPI)
	api.GET("/doctypes/:name/export/:format", s.apiExport)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", addr))
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info("server stopped")
	return nil
}
