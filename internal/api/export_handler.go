package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"cvbuilder/internal/api/middleware"
	"cvbuilder/internal/capture"
	"cvbuilder/internal/metrics"
	"cvbuilder/internal/workspace"
)

// ExportHandler 提供 HTML 预览与同步 PDF 导出。
type ExportHandler struct {
	ws *workspace.Workspace
}

func NewExportHandler(ws *workspace.Workspace) *ExportHandler {
	return &ExportHandler{ws: ws}
}

// Preview 返回与导出时完全相同的 HTML。
func (h *ExportHandler) Preview(c *gin.Context) {
	preview, warnings, err := h.ws.Preview(c.Request.Context())
	if err != nil {
		middleware.LoggerFromContext(c).Error("Preview: render failed", slog.Any("error", err))
		Internal(c, "failed to render preview")
		return
	}
	if len(warnings) > 0 {
		c.Header("X-CV-Warnings", strconv.Itoa(len(warnings)))
	}
	c.Header("X-CV-Pages", strconv.Itoa(len(preview.Pages)))
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(preview.HTML))
}

// Export 生成 PDF 并作为附件返回；已有导出进行中时返回 409。
func (h *ExportHandler) Export(c *gin.Context) {
	logger := middleware.LoggerFromContext(c)
	done := metrics.ExportStarted()
	res, err := h.ws.Export(c.Request.Context(), middleware.GetCorrelationID(c))
	done()
	switch {
	case errors.Is(err, capture.ErrBusy):
		metrics.ExportRejected()
		Conflict(c, "export already in progress")
		return
	case errors.Is(err, capture.ErrCapabilityUnavailable):
		Unavailable(c, "PDF export is not available in this environment")
		return
	case err != nil:
		logger.Error("Export: request failed", slog.Any("error", err))
		Internal(c, "failed to export PDF")
		return
	}

	if res.ArchiveURL != "" {
		c.Header("X-CV-Archive-URL", res.ArchiveURL)
	}
	c.Header("Content-Disposition", attachmentDisposition(res.Filename))
	c.Header("X-CV-Pages", strconv.Itoa(res.Pages))
	c.Data(http.StatusOK, "application/pdf", res.Data)
}

// attachmentDisposition 生成 RFC 6266 头：ASCII 回退名加上 UTF-8 的 filename*。
func attachmentDisposition(filename string) string {
	fallback := strings.Map(func(r rune) rune {
		if r >= utf8.RuneSelf || r < 0x20 || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, filename)
	header := `attachment; filename="` + fallback + `"`
	if fallback == filename {
		return header
	}
	return header + "; filename*=UTF-8''" + encodeExtValue(filename)
}

// encodeExtValue 按 RFC 5987 attr-char 百分号编码。
func encodeExtValue(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if isAttrChar(ch) {
			b.WriteByte(ch)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[ch>>4])
		b.WriteByte(hex[ch&0x0f])
	}
	return b.String()
}

func isAttrChar(ch byte) bool {
	switch {
	case 'a' <= ch && ch <= 'z', 'A' <= ch && ch <= 'Z', '0' <= ch && ch <= '9':
		return true
	}
	return strings.IndexByte("!#$&+-.^_`|~", ch) >= 0
}
