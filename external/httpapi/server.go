package httpapi

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"

	alertimpl "github.com/talkcircle/sentinel/external/alert"
	"github.com/talkcircle/sentinel/internal/config"
	"github.com/talkcircle/sentinel/internal/identity"
	"github.com/talkcircle/sentinel/internal/repository"
	"github.com/talkcircle/sentinel/internal/session"
)

// SessionService is the ingestion surface the HTTP layer drives.
type SessionService interface {
	CreateSession(ctx context.Context, ownerID, ownerDisplayName string, input session.CreateSessionInput) (*repository.Session, error)
	AppendSegments(ctx context.Context, callerID, sessionID string, fromIndex int, segments []repository.Segment) (*repository.Session, error)
	GetSession(ctx context.Context, callerID, sessionID string) (*session.SessionDetail, error)
}

// SessionFinalizer drives a session to its terminal state.
type SessionFinalizer interface {
	FinalizeSession(ctx context.Context, callerID, sessionID string, durationSeconds float64, externalRef string) (*repository.Session, error)
}

type Server struct {
	cfg       *config.Config
	app       *fiber.App
	sessions  SessionService
	finalizer SessionFinalizer
	resolver  identity.Resolver
}

func NewServer(cfg *config.Config, sessions SessionService, finalizer SessionFinalizer, resolver identity.Resolver, ws *alertimpl.WebSocketHandler) *Server {
	s := &Server{
		cfg:       cfg,
		sessions:  sessions,
		finalizer: finalizer,
		resolver:  resolver,
	}
	app := fiber.New(fiber.Config{
		AppName:      "sentinel",
		ErrorHandler: errorHandler,
	})
	app.Use(logger.New())

	v1 := app.Group("/v1")
	v1.Post("/sessions", s.requireIdentity, s.handleCreateSession)
	v1.Get("/sessions/:id", s.requireIdentity, s.handleGetSession)
	v1.Post("/sessions/:id/segments", s.requireIdentity, s.handleAppendSegments)
	v1.Post("/sessions/:id/finalize", s.requireIdentity, s.handleFinalizeSession)
	// The websocket route authenticates in its own pre-upgrade middleware.
	v1.Get("/alerts/ws", ws.Middleware, websocket.New(ws.Handle))

	s.app = app
	return s
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.HTTPListenAddr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
