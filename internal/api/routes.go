package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"phFolio/internal/api/middleware"
	"phFolio/internal/config"
	"phFolio/internal/database"
	"phFolio/internal/render"
)

// Deps 汇总路由注册所需的依赖。Queue、Objects、Counter、Subscriber 可为 nil，对应功能降级。
type Deps struct {
	Store      *database.Store
	Renderer   *render.Renderer
	Validator  middleware.TokenValidator
	Queue      TaskEnqueuer
	Objects    ObjectStorage
	Counter    redisRateCounter
	Subscriber Subscriber
	Logger     *slog.Logger
	Config     *config.Config
}

// RegisterRoutes 注册 API 路由，不包含 /api 前缀。
func RegisterRoutes(router *gin.Engine, deps Deps) {
	if deps.Renderer == nil {
		deps.Renderer = render.NewRenderer(nil)
	}
	cfg := deps.Config
	if cfg == nil {
		cfg = &config.Config{}
	}

	portfolioHandler := NewPortfolioHandler(
		deps.Store,
		deps.Renderer,
		deps.Queue,
		deps.Objects,
		deps.Counter,
		cfg.API.MaxPortfolios,
		cfg.Export,
	)
	templateHandler := NewTemplateHandler(deps.Store, deps.Queue, deps.Objects, portfolioHandler)
	themeHandler := NewThemeHandler(deps.Renderer.Engine())
	authMiddleware := middleware.AuthMiddleware(deps.Validator)
	userMirror := ensureUserMiddleware(deps.Store)

	v1 := router.Group("/v1")
	{
		if deps.Subscriber != nil {
			wsHandler := NewWsHandler(deps.Subscriber, deps.Validator, deps.Logger, cfg.API.AllowedOrigins)
			v1.GET("/ws", wsHandler.HandleConnection)
		}

		v1.GET("/themes", themeHandler.ListThemes)
		v1.GET("/palette", themeHandler.Palette)
		v1.GET("/p/:slug", portfolioHandler.PublicPreview)

		portfolioGroup := v1.Group("/portfolios")
		portfolioGroup.Use(authMiddleware, userMirror)
		{
			portfolioGroup.GET("", portfolioHandler.ListPortfolios)
			portfolioGroup.POST("", portfolioHandler.CreatePortfolio)
			portfolioGroup.GET("/:id", portfolioHandler.GetPortfolio)
			portfolioGroup.PUT("/:id", portfolioHandler.UpdatePortfolio)
			portfolioGroup.DELETE("/:id", portfolioHandler.DeletePortfolio)
			portfolioGroup.PUT("/:id/slug", portfolioHandler.RenameSlug)
			portfolioGroup.GET("/:id/theme", portfolioHandler.Theme)
			portfolioGroup.PUT("/:id/theme", portfolioHandler.UpdateTheme)
			portfolioGroup.GET("/:id/preview", portfolioHandler.Preview)
			portfolioGroup.POST("/:id/export", portfolioHandler.Export)
			portfolioGroup.GET("/:id/export/link", portfolioHandler.ExportLink)

			portfolioGroup.POST("/:id/sections", portfolioHandler.AddSection)
			portfolioGroup.PUT("/:id/sections/:sid", portfolioHandler.UpdateSection)
			portfolioGroup.DELETE("/:id/sections/:sid", portfolioHandler.RemoveSection)
			portfolioGroup.PATCH("/:id/sections/:sid/move", portfolioHandler.MoveSection)
			portfolioGroup.PATCH("/:id/sections/:sid/visibility", portfolioHandler.SetSectionVisibility)
		}

		templateGroup := v1.Group("/templates")
		templateGroup.Use(authMiddleware, userMirror)
		{
			templateGroup.GET("", templateHandler.ListTemplates)
			templateGroup.POST("", templateHandler.CreateTemplate)
			templateGroup.GET("/:id", templateHandler.GetTemplate)
			templateGroup.POST("/:id/instantiate", templateHandler.Instantiate)
		}
	}
}

// ensureUserMiddleware 在首次访问时为令牌中的用户建立本地镜像记录。
func ensureUserMiddleware(store *database.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			AbortUnauthorized(c)
			return
		}
		if err := store.EnsureUser(c.Request.Context(), userID, middleware.Username(c)); err != nil {
			middleware.LoggerFromContext(c).Error("ensure user failed", slog.Any("error", err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
			return
		}
		c.Next()
	}
}
