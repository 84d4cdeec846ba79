package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"cvbuilder/internal/notify"
	"cvbuilder/internal/workspace"
)

// Deps 汇总路由需要的依赖。Assets 与 Hub 可以为空，对应端点返回 503。
type Deps struct {
	Workspace *workspace.Workspace
	Assets    Uploader
	Hub       notify.Hub
	Logger    *slog.Logger
	// AllowedOrigins 为空时 WebSocket 只接受同源连接。
	AllowedOrigins []string
}

// RegisterRoutes 注册 /v1 下的全部路由。
func RegisterRoutes(router *gin.Engine, deps Deps) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	cvHandler := NewCVHandler(deps.Workspace)
	exportHandler := NewExportHandler(deps.Workspace)
	assetHandler := NewAssetHandler(deps.Assets)
	wsHandler := NewWsHandler(deps.Hub, deps.Logger, deps.AllowedOrigins)

	v1 := router.Group("/v1")
	{
		v1.GET("/ws", wsHandler.HandleConnection)
		v1.GET("/themes", cvHandler.ListThemes)

		cvGroup := v1.Group("/cv")
		{
			cvGroup.GET("", cvHandler.GetDocument)
			cvGroup.PUT("", cvHandler.ImportDocument)
			cvGroup.PATCH("/personal", cvHandler.UpdatePersonal)
			cvGroup.POST("/clear", cvHandler.ClearAll)
			cvGroup.POST("/example", cvHandler.LoadExample)
			cvGroup.POST("/:section", cvHandler.AddItem)
			cvGroup.PATCH("/:section/:id", cvHandler.UpdateItem)
			cvGroup.DELETE("/:section/:id", cvHandler.RemoveItem)
		}

		v1.GET("/settings", cvHandler.GetSettings)
		v1.PUT("/settings", cvHandler.UpdateSettings)

		v1.GET("/preview", exportHandler.Preview)
		v1.POST("/export", exportHandler.Export)

		v1.POST("/assets", assetHandler.UploadAsset)
	}
}
