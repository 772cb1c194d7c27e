package routes

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"crm-system/internal/authz"
	"crm-system/internal/controllers"
	"crm-system/internal/entities"
	"crm-system/internal/listeners"
	"crm-system/internal/repositories"
	"crm-system/internal/services"
	"crm-system/pkg/config"
	"crm-system/pkg/constants"
	"crm-system/pkg/eventbus"
	"crm-system/pkg/filestorage"
	"crm-system/pkg/metrics"
	"crm-system/pkg/middleware"
	"crm-system/pkg/service"
	"crm-system/pkg/websocket"
)

// Deps are the process-wide components built in main.
type Deps struct {
	DB      *pgxpool.Pool
	Cache   repositories.CacheRepositoryInterface
	Storage filestorage.FileStorageInterface
	Bus     *eventbus.Bus
	Hub     *websocket.Hub
	Metrics *metrics.Metrics
	JWT     service.JWTService
	Config  *config.Config
	Logger  *zap.Logger
}

// Handlers groups every controller mounted by Register.
type Handlers struct {
	Auth       *controllers.AuthController
	Users      *controllers.UserController
	Clients    *controllers.ClientController
	Requests   *controllers.RequestController
	Kanban     *controllers.KanbanController
	Comments   *controllers.CommentController
	Attachment *controllers.AttachmentController
	Banks      *controllers.BankController
	Audit      *controllers.AuditController
	WebSocket  *controllers.WebSocketController
}

func InitRouter(e *echo.Echo, deps Deps) {
	logger := deps.Logger
	logger.Info("InitRouter: building routes")

	cfg := deps.Config
	policy := authz.NewPolicy()
	txManager := repositories.NewTxManager(deps.DB)

	// --- repositories ---
	userRepo := repositories.NewUserRepository(deps.DB)
	clientRepo := repositories.NewClientRepository(deps.DB)
	requestRepo := repositories.NewRequestRepository(deps.DB)
	eventRepo := repositories.NewRequestEventRepository(deps.DB)
	installmentRepo := repositories.NewInstallmentRepository(deps.DB)
	bankRepo := repositories.NewBankRepository(deps.DB)
	commentRepo := repositories.NewCommentRepository(deps.DB)
	attachmentRepo := repositories.NewAttachmentRepository(deps.DB)
	auditRepo := repositories.NewAuditRepository(deps.DB)

	// --- services ---
	teamService := services.NewTeamService(userRepo, deps.Cache, cfg.Redis.TeamCacheTTL, logger)
	userService := services.NewUserService(userRepo, teamService, deps.Bus, logger)
	authService := services.NewAuthService(userRepo, deps.Cache, deps.JWT, cfg.Auth, deps.Bus, logger)
	clientService := services.NewClientService(txManager, clientRepo, requestRepo, policy, deps.Bus, logger)
	requestService := services.NewRequestService(txManager, services.RequestRepositories{
		Requests:    requestRepo,
		Events:      eventRepo,
		Clients:     clientRepo,
		Installment: installmentRepo,
		Users:       userRepo,
		Banks:       bankRepo,
		Attachments: attachmentRepo,
	}, deps.Storage, policy, deps.Bus, deps.Metrics, logger)
	kanbanService := services.NewKanbanService(requestRepo, teamService, policy, logger)
	commentService := services.NewCommentService(txManager, commentRepo, requestRepo, clientRepo, policy, deps.Bus, logger)
	attachmentService := services.NewAttachmentService(attachmentRepo, requestRepo, clientRepo,
		deps.Storage, policy, deps.Bus, cfg.Storage.MaxSizeMB, logger)
	bankService := services.NewBankService(bankRepo, deps.Bus, logger)
	auditService := services.NewAuditService(auditRepo, logger)

	// --- listeners ---
	listeners.NewAuditListener(auditService, logger).Register(deps.Bus)
	listeners.NewBoardListener(deps.Hub, userRepo, logger).Register(deps.Bus)

	// --- controllers ---
	h := Handlers{
		Auth:       controllers.NewAuthController(authService, logger),
		Users:      controllers.NewUserController(userService, logger),
		Clients:    controllers.NewClientController(clientService, logger),
		Requests:   controllers.NewRequestController(requestService, logger),
		Kanban:     controllers.NewKanbanController(kanbanService, logger),
		Comments:   controllers.NewCommentController(commentService, logger),
		Attachment: controllers.NewAttachmentController(attachmentService, logger),
		Banks:      controllers.NewBankController(bankService, logger),
		Audit:      controllers.NewAuditController(auditService, logger),
		WebSocket:  controllers.NewWebSocketController(deps.Hub, cfg.Server.AllowedOrigins, logger),
	}

	authMW := middleware.NewAuthMiddleware(deps.JWT, userService, logger)
	Register(e, h, authMW, logger)
	e.GET("/metrics", echo.WrapHandler(deps.Metrics.Handler()))

	logger.Info("InitRouter: routes ready")
}

// Register mounts the HTTP surface under /api.
func Register(e *echo.Echo, h Handlers, authMW *middleware.AuthMiddleware, logger *zap.Logger) {
	api := e.Group("/api")
	privileged := middleware.RequireRoles(logger, constants.RoleAdmin, constants.RoleManager)
	adminOnly := middleware.RequireRoles(logger, constants.RoleAdmin)

	authGroup := api.Group("/auth")
	authGroup.POST("/login", h.Auth.Login)
	authGroup.POST("/refresh", h.Auth.RefreshToken)

	api.GET("/ws", h.WebSocket.ServeWs, authMW.AuthQueryToken)

	secureGroup := api.Group("", authMW.Auth)

	runRequestRouter(secureGroup, h)
	runClientRouter(secureGroup, h)

	kanban := secureGroup.Group("/kanban")
	kanban.GET("/board", h.Kanban.Board)
	kanban.GET("/stats", h.Kanban.Stats)

	attachments := secureGroup.Group("/attachments")
	attachments.GET("/:id/url", h.Attachment.URL)
	attachments.DELETE("/:id", h.Attachment.Delete)

	users := secureGroup.Group("/users")
	users.GET("/me", h.Users.Me)
	users.GET("", h.Users.List, privileged)
	users.POST("", h.Users.Create, adminOnly)
	users.PUT("/:id", h.Users.Update, adminOnly)

	banks := secureGroup.Group("/banks")
	banks.GET("", h.Banks.List)
	banks.POST("", h.Banks.Create, adminOnly)
	banks.PUT("/:id", h.Banks.Update, adminOnly)

	audit := secureGroup.Group("/audit-logs", privileged)
	audit.GET("", h.Audit.List)
	audit.GET("/stats", h.Audit.Stats)
	audit.GET("/recent", h.Audit.Recent)
	audit.GET("/export", h.Audit.Export)
}

// Deletes are role-checked in the services so a missing id still reports 404.
func runRequestRouter(secureGroup *echo.Group, h Handlers) {
	requests := secureGroup.Group("/requests")
	requests.GET("", h.Requests.List)
	requests.POST("", h.Requests.Create)
	requests.GET("/:id", h.Requests.Get)
	requests.PUT("/:id", h.Requests.Update)
	requests.PATCH("/:id", h.Requests.Update)
	requests.PATCH("/:id/move", h.Requests.Move)
	requests.DELETE("/:id", h.Requests.Delete)
	requests.GET("/:id/events", h.Requests.History)

	requests.GET("/:id/comments", h.Comments.List(entities.OwnerRequest))
	requests.POST("/:id/comments", h.Comments.Create(entities.OwnerRequest))
	requests.GET("/:id/attachments", h.Attachment.List(entities.OwnerRequest))
	requests.POST("/:id/attachments", h.Attachment.Upload(entities.OwnerRequest))
}

func runClientRouter(secureGroup *echo.Group, h Handlers) {
	clients := secureGroup.Group("/clients")
	clients.GET("", h.Clients.List)
	clients.POST("", h.Clients.Create)
	clients.POST("/import", h.Clients.Import)
	clients.GET("/:id", h.Clients.Get)
	clients.PUT("/:id", h.Clients.Update)
	clients.PATCH("/:id", h.Clients.Update)
	clients.DELETE("/:id", h.Clients.Delete)

	clients.GET("/:id/comments", h.Comments.List(entities.OwnerClient))
	clients.POST("/:id/comments", h.Comments.Create(entities.OwnerClient))
	clients.GET("/:id/attachments", h.Attachment.List(entities.OwnerClient))
	clients.POST("/:id/attachments", h.Attachment.Upload(entities.OwnerClient))
}
