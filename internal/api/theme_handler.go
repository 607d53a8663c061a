package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"phFolio/internal/palette"
	"phFolio/internal/theme"
)

// ThemeHandler 暴露主题目录与调色板推导。
type ThemeHandler struct {
	engine *theme.Engine
}

func NewThemeHandler(engine *theme.Engine) *ThemeHandler {
	if engine == nil {
		engine = theme.NewEngine(nil)
	}
	return &ThemeHandler{engine: engine}
}

// ListThemes GET /v1/themes
func (h *ThemeHandler) ListThemes(c *gin.Context) {
	catalog := h.engine.Catalog()
	c.JSON(http.StatusOK, gin.H{
		"default": catalog.DefaultID(),
		"themes":  catalog.Themes(),
	})
}

// Palette GET /v1/palette?base=#RRGGBB&steps=5
// 非法基色回退默认值并标记 fallback。
func (h *ThemeHandler) Palette(c *gin.Context) {
	base := c.Query("base")
	steps := 0
	if raw := c.Query("steps"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 12 {
			BadRequest(c, "steps must be between 1 and 12")
			return
		}
		steps = n
	}

	c.JSON(http.StatusOK, gin.H{
		"palette":  palette.DeriveSteps(base, steps),
		"fallback": !palette.Valid(base),
	})
}
