package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"cvbuilder/internal/api/middleware"
	"cvbuilder/internal/cv"
	"cvbuilder/internal/schema"
	"cvbuilder/internal/workspace"
)

const maxImportBytes = 4 << 20

// CVHandler 负责文档的读取、编辑与主题/纸张设置。
type CVHandler struct {
	ws *workspace.Workspace
}

func NewCVHandler(ws *workspace.Workspace) *CVHandler {
	return &CVHandler{ws: ws}
}

type confirmRequest struct {
	Confirm bool `json:"confirm"`
}

type settingsRequest struct {
	Theme string `json:"theme"`
	Paper string `json:"paperSize"`
}

type addItemResponse struct {
	ID       string      `json:"id"`
	Document cv.Document `json:"document"`
}

func (h *CVHandler) GetDocument(c *gin.Context) {
	c.JSON(http.StatusOK, h.ws.Document())
}

// ImportDocument 用请求体整体替换当前文档，先做 schema 校验。
func (h *CVHandler) ImportDocument(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportBytes))
	if err != nil {
		BadRequest(c, "failed to read body")
		return
	}
	doc, err := schema.Decode(raw)
	if err != nil {
		var ve *schema.ValidationError
		if errors.As(err, &ve) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid document", "fields": ve.Errors})
			return
		}
		BadRequest(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, h.ws.Import(c.Request.Context(), doc))
}

func (h *CVHandler) UpdatePersonal(c *gin.Context) {
	var patch cv.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		BadRequest(c, err.Error())
		return
	}
	doc, err := h.ws.UpdatePersonal(c.Request.Context(), patch)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, doc)
}

// AddItem 追加一条记录，请求体可以为空或给出初始字段。
func (h *CVHandler) AddItem(c *gin.Context) {
	section, ok := sectionParam(c)
	if !ok {
		return
	}
	var defaults cv.Patch
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&defaults); err != nil {
			BadRequest(c, err.Error())
			return
		}
	}
	id, doc, err := h.ws.Add(c.Request.Context(), section, defaults)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	c.JSON(http.StatusCreated, addItemResponse{ID: id, Document: doc})
}

func (h *CVHandler) UpdateItem(c *gin.Context) {
	section, ok := sectionParam(c)
	if !ok {
		return
	}
	var patch cv.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		BadRequest(c, err.Error())
		return
	}
	doc, err := h.ws.Update(c.Request.Context(), section, c.Param("id"), patch)
	switch {
	case errors.Is(err, workspace.ErrItemNotFound):
		NotFound(c, "item not found")
	case err != nil:
		BadRequest(c, err.Error())
	default:
		c.JSON(http.StatusOK, doc)
	}
}

// RemoveItem 删除不存在的 id 时文档保持不变并返回 404。
func (h *CVHandler) RemoveItem(c *gin.Context) {
	section, ok := sectionParam(c)
	if !ok {
		return
	}
	doc, err := h.ws.Remove(c.Request.Context(), section, c.Param("id"))
	if errors.Is(err, workspace.ErrItemNotFound) {
		NotFound(c, "item not found")
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *CVHandler) ClearAll(c *gin.Context) {
	h.confirmed(c, h.ws.ClearAll)
}

func (h *CVHandler) LoadExample(c *gin.Context) {
	h.confirmed(c, h.ws.LoadExample)
}

func (h *CVHandler) confirmed(c *gin.Context, op func(ctx context.Context, confirm bool) (cv.Document, error)) {
	var req confirmRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, err.Error())
			return
		}
	}
	doc, err := op(c.Request.Context(), req.Confirm)
	if errors.Is(err, workspace.ErrConfirmationRequired) {
		middleware.LoggerFromContext(c).Info("CV: destructive action declined")
		ConfirmationRequired(c)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *CVHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.ws.Settings())
}

// UpdateSettings 只修改请求中给出的字段，未知主题或纸张返回 400。
func (h *CVHandler) UpdateSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	s := h.ws.Settings()
	if req.Theme != "" {
		theme, err := cv.ParseTheme(req.Theme)
		if err != nil {
			BadRequest(c, err.Error())
			return
		}
		s.Theme = theme
	}
	if req.Paper != "" {
		paper, err := cv.ParsePaperSize(req.Paper)
		if err != nil {
			BadRequest(c, err.Error())
			return
		}
		s.Paper = paper
	}
	c.JSON(http.StatusOK, h.ws.SetSettings(c.Request.Context(), s))
}

func (h *CVHandler) ListThemes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"themes": cv.Themes, "paperSizes": cv.PaperSizes})
}

func sectionParam(c *gin.Context) (cv.Section, bool) {
	section, err := cv.ParseSection(c.Param("section"))
	if err != nil {
		NotFound(c, err.Error())
		return "", false
	}
	return section, true
}
