package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"cvbuilder/internal/api/middleware"
	"cvbuilder/internal/assets"
	"cvbuilder/internal/errcode"
)

// Uploader 由 assets.Processor 实现。
type Uploader interface {
	Upload(ctx context.Context, r io.Reader) (string, error)
}

// AssetHandler 负责处理照片与作品集图片上传。
type AssetHandler struct {
	uploader Uploader
}

func NewAssetHandler(uploader Uploader) *AssetHandler {
	return &AssetHandler{uploader: uploader}
}

// UploadAsset 扫描、缩放并保存图片，返回写入文档的值（asset key 或 data URI）。
func (h *AssetHandler) UploadAsset(c *gin.Context) {
	if h.uploader == nil {
		Unavailable(c, "uploads are disabled")
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing file")
		return
	}
	reader, err := file.Open()
	if err != nil {
		Internal(c, "failed to open file")
		return
	}
	defer reader.Close()

	ref, err := h.uploader.Upload(c.Request.Context(), reader)
	switch {
	case errors.Is(err, assets.ErrTooLarge):
		Error(c, http.StatusRequestEntityTooLarge, errcode.InvalidInput, "file too large")
		return
	case errors.Is(err, assets.ErrUnsupported):
		BadRequest(c, "unsupported image format")
		return
	case errors.Is(err, assets.ErrInfected):
		BadRequest(c, "malicious file detected")
		return
	case err != nil:
		middleware.LoggerFromContext(c).Error("Assets: upload failed", slog.Any("error", err))
		Internal(c, "failed to upload file")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ref": ref, "stored": assets.IsKey(ref)})
}
