package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/caldew/workdesk/internal/auth"
	"github.com/caldew/workdesk/internal/chat"
	"github.com/caldew/workdesk/internal/config"
	"github.com/caldew/workdesk/internal/files"
	"github.com/caldew/workdesk/internal/llm"
	"github.com/caldew/workdesk/internal/middleware"
	"github.com/caldew/workdesk/internal/service"
)

// Handler holds all dependencies needed by the HTTP endpoints.
type Handler struct {
	cfg          *config.Config
	authService  *auth.Service
	fileService  *files.Service
	sessions     chat.SessionRepository
	orchestrator *chat.Orchestrator
	providers    map[string]llm.Provider
	catalog      *service.ModelCatalog
	redis        *redis.Client
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	Cfg          *config.Config
	AuthService  *auth.Service
	FileService  *files.Service
	Sessions     chat.SessionRepository
	Orchestrator *chat.Orchestrator
	Providers    map[string]llm.Provider
	Catalog      *service.ModelCatalog
	Redis        *redis.Client
}

// New creates a new Handler from the provided dependencies.
func New(deps Deps) *Handler {
	return &Handler{
		cfg:          deps.Cfg,
		authService:  deps.AuthService,
		fileService:  deps.FileService,
		sessions:     deps.Sessions,
		orchestrator: deps.Orchestrator,
		providers:    deps.Providers,
		catalog:      deps.Catalog,
		redis:        deps.Redis,
	}
}

// Register mounts all routes on the engine.
func (h *Handler) Register(r *gin.Engine) {
	r.Use(middleware.Recover(), middleware.Logging())

	r.GET("/healthz", h.Health)
	r.GET("/api/files/signed", h.ServeSignedFile)

	api := r.Group("/api")

	api.POST("/auth/register", h.RegisterUser)
	api.POST("/auth/login", h.Login)

	authed := api.Group("")
	authed.Use(middleware.Auth(h.authService))
	if h.redis != nil {
		authed.Use(middleware.RateLimit(h.redis, h.cfg.RateLimitPerMinute))
	}

	authed.POST("/chat", h.Chat("anthropic"))
	authed.POST("/chat/openai", h.Chat("openai"))
	authed.POST("/chat/cerebras", h.Chat("cerebras"))
	authed.POST("/chat/ollama", h.Chat("ollama"))

	authed.GET("/sessions", h.ListSessions)
	authed.POST("/sessions", h.SaveSession)
	authed.GET("/sessions/:id", h.GetSession)
	authed.DELETE("/sessions/:id", h.DeleteSession)

	authed.POST("/files", h.UploadFile)
	authed.GET("/files", h.ListFiles)
	authed.POST("/files/rename", h.RenameFile)
	authed.DELETE("/files", h.DeleteFile)
	authed.GET("/files/download", h.DownloadFile)
	authed.GET("/files/thumbnail", h.ThumbnailURL)
	authed.GET("/files/preview", h.PreviewURL)

	authed.GET("/models", h.ListModels)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func userID(c *gin.Context) string {
	return c.GetString(middleware.UserIDKey)
}
