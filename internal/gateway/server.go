package gateway

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"reelsmith/internal/api"
	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/mediastore"
	"reelsmith/internal/ops"
	"reelsmith/internal/queue"
)

// JobStore is the persistence surface the gateway needs.
type JobStore interface {
	Create(ctx context.Context, req queue.NewJob) (*queue.Job, error)
	Enqueue(ctx context.Context, jobID, name string, payload []byte) (int64, error)
	Fail(ctx context.Context, id, message, kind string) error
	Get(ctx context.Context, id string) (*queue.Job, error)
	List(ctx context.Context, limit int, statuses ...queue.Status) ([]*queue.Job, error)
}

// Describer looks up media metadata for submission preflight.
type Describer interface {
	Describe(ctx context.Context, id string) (mediastore.Asset, error)
}

// Waker is told about newly enqueued work.
type Waker interface {
	Notify()
}

// StatusFunc reports daemon status for GET /status.
type StatusFunc func(ctx context.Context) api.DaemonStatus

// Options carries optional collaborators.
type Options struct {
	Describer Describer
	Waker     Waker
	Status    StatusFunc
}

const defaultListLimit = 100

// Server routes gateway requests.
type Server struct {
	cfg       *config.Config
	store     JobStore
	describer Describer
	waker     Waker
	status    StatusFunc
	logger    *slog.Logger
	router    *gin.Engine
}

// New builds the gateway router.
func New(cfg *config.Config, store JobStore, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	_ = router.SetTrustedProxies(nil)

	s := &Server{
		cfg:       cfg,
		store:     store,
		describer: opts.Describer,
		waker:     opts.Waker,
		status:    opts.Status,
		logger:    logging.NewComponentLogger(logger, "gateway"),
		router:    router,
	}

	router.Use(s.recovery(), requestID(), s.accessLog(), limitBody(cfg.Gateway.MaxBodyBytes))
	router.GET("/health", s.handleHealth)

	authed := router.Group("/", bearerAuth(cfg.Paths.APIToken))
	for _, op := range ops.All() {
		authed.POST("/jobs/"+string(op), s.handleSubmit(op))
	}
	authed.GET("/jobs", s.handleList)
	authed.GET("/jobs/:id", s.handleGet)
	authed.GET("/status", s.handleStatus)

	router.NoRoute(func(c *gin.Context) {
		writeError(c, http.StatusNotFound, "not found", "")
	})
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}
