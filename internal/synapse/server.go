package synapse

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/fakenews/internal/config"
	"github.com/tensorplex-labs/fakenews/pkg/signature"
)

type Server struct {
	App  *fiber.App
	port int
}

// NewServer builds the axon app. Requests to every route but the health check
// must be signed.
func NewServer(cfg *config.ServerEnvConfig, verifier signature.SignatureVerifier) *Server {
	port, bodyLimit := 8080, DefaultBodyLimit
	if cfg != nil {
		port = cfg.Port
		if cfg.BodySizeLimit > 0 {
			bodyLimit = cfg.BodySizeLimit
		}
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          fiberErrHandler,
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
		BodyLimit:             bodyLimit,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())

	whitelistedRoutes := []string{HealthRoute}
	app.Use(ZstdMiddleware(whitelistedRoutes))
	app.Use(SignatureMiddleware(verifier, whitelistedRoutes))

	app.Get(HealthRoute, func(c *fiber.Ctx) error {
		return c.JSON(createResponse(map[string]string{"status": "ok"}, nil))
	})

	return &Server{App: app, port: port}
}

func fiberErrHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	log.Error().
		Err(err).
		Int("status_code", code).
		Str("path", c.Path()).
		Str("method", c.Method()).
		Msg("Fiber error handler triggered")

	return c.Status(code).JSON(createResponse(map[string]any{}, err))
}

// ServeArticles routes ArticleSynapse requests to handler.
func (s *Server) ServeArticles(handler Handler) {
	s.App.Post(ArticleSynapseRoute, func(c *fiber.Ctx) error {
		var req ArticleSynapse
		if err := sonic.Unmarshal(c.Body(), &req); err != nil {
			log.Error().Err(err).Str("route", ArticleSynapseRoute).Msg("Failed to parse request body")
			return c.Status(fiber.StatusBadRequest).JSON(createResponse(ArticleSynapse{}, err))
		}

		caller, _ := c.Locals(HotkeyHeader).(string)
		resp, err := handler(c.UserContext(), caller, req)
		if err != nil {
			log.Error().Err(err).Str("route", ArticleSynapseRoute).Msg("Handler returned error")
			return c.Status(fiber.StatusInternalServerError).JSON(createResponse(req, err))
		}
		return c.JSON(createResponse(resp, nil))
	})
}

// Start listens on the configured port until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", s.port, err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("address", ln.Addr().String()).Msg("Axon server listening")
		errCh <- s.App.Listener(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	return s.App.ShutdownWithTimeout(5 * time.Second)
}
