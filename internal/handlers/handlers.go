package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"code404/api/internal/config"
	"code404/api/internal/middleware"
	"code404/api/internal/ratelimit"
	"code404/api/internal/repository"
	"code404/api/internal/service"
	"code404/api/internal/storage"
)

type HandlerSet struct {
	log         zerolog.Logger
	cfg         *config.AppConfig
	authService *service.AuthService
	pushService *service.PushService
	db          *pgxpool.Pool
	cache       *redis.Client
	limiter     ratelimit.CounterStore
	avatars     *storage.AvatarStore
	members     *repository.MemberRepository
	sessions    *repository.SessionRepository
	decisions   *repository.DecisionRepository
}

func NewHandlerSet(
	log zerolog.Logger,
	db *pgxpool.Pool,
	cache *redis.Client,
	limiter ratelimit.CounterStore,
	avatars *storage.AvatarStore,
	authService *service.AuthService,
	pushService *service.PushService,
	members *repository.MemberRepository,
	sessions *repository.SessionRepository,
	decisions *repository.DecisionRepository,
	cfg *config.AppConfig,
) HandlerSet {
	return HandlerSet{
		log:         log,
		cfg:         cfg,
		authService: authService,
		pushService: pushService,
		db:          db,
		cache:       cache,
		limiter:     limiter,
		avatars:     avatars,
		members:     members,
		sessions:    sessions,
		decisions:   decisions,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	authLimit := middleware.RateLimit(h.limiter, ratelimit.Limit{
		Name:        "auth",
		MaxRequests: h.cfg.RateLimit.Auth.MaxRequests,
		Window:      h.cfg.RateLimit.Auth.Window,
		Message:     "Too many login attempts. Please try again in 15 minutes.",
	}, h.log)
	apiLimit := middleware.RateLimit(h.limiter, ratelimit.Limit{
		Name:        "api",
		MaxRequests: h.cfg.RateLimit.API.MaxRequests,
		Window:      h.cfg.RateLimit.API.Window,
	}, h.log)
	emailLimit := middleware.RateLimit(h.limiter, ratelimit.Limit{
		Name:        "email",
		MaxRequests: h.cfg.RateLimit.Email.MaxRequests,
		Window:      h.cfg.RateLimit.Email.Window,
		Message:     "Too many email requests. Please try again in 1 hour.",
	}, h.log)

	v1 := router.Group("/v1")
	v1.Use(apiLimit)

	auth := v1.Group("/auth")
	auth.POST("/login", authLimit, h.Login)
	auth.POST("/logout", h.Logout)
	auth.GET("/me", h.Me)

	admin := v1.Group("/admin")
	admin.POST("/auth", authLimit, h.AdminAuth)

	adminProtected := admin.Group("")
	adminProtected.Use(middleware.RequireAdmin(h.cfg, h.log))
	adminProtected.POST("/decision", h.AdminDecision)
	adminProtected.POST("/regenerate-credentials", emailLimit, h.RegenerateCredentials)

	webpush := v1.Group("/webpush")
	webpush.GET("/public-key", h.VAPIDPublicKey)
	webpush.POST("/subscribe", h.Subscribe)
	webpush.DELETE("/subscribe", h.Unsubscribe)

	webpushAdmin := webpush.Group("")
	webpushAdmin.Use(middleware.RequireAdminOrSecret(h.cfg, h.log))
	webpushAdmin.GET("/subscriptions", h.ListSubscriptions)
	webpushAdmin.POST("/send", h.SendNotifications)
	webpushAdmin.POST("/schedule", h.CreateSchedule)
	webpushAdmin.POST("/schedule/retry", h.RetrySchedule)

	profile := v1.Group("/profile")
	profile.Use(middleware.Auth(h.cfg, h.log))
	profile.PUT("/avatar", h.UploadAvatar)

	v1.GET("/sessions", h.ListClubSessions)
}
