// Package favorites 提供收藏與食譜的查詢 API
package favorites

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"line-recipe-bot/internal/infrastructure/store"
	"line-recipe-bot/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MsgFavoriteDeleted 刪除成功的回應
const MsgFavoriteDeleted = "已刪除收藏"

// Handler 收藏 API
type Handler struct {
	repo    store.Repository
	timeout time.Duration
}

// NewHandler 建立處理器；timeout 為每次資料庫操作的上限
func NewHandler(repo store.Repository, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Handler{repo: repo, timeout: timeout}
}

// Register 註冊路由
func (h *Handler) Register(g *gin.RouterGroup) {
	g.GET("/favorites", h.ListFavorites)
	g.GET("/favorites/:id", h.GetFavorite)
	g.DELETE("/favorites/:id", h.DeleteFavorite)
	g.GET("/recipes/:id", h.GetRecipe)
}

func (h *Handler) ctx(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

// ListFavorites GET /api/favorites?user_id=
func (h *Handler) ListFavorites(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("user_id"))
	if userID == "" {
		common.WriteErrorResponse(c, http.StatusBadRequest, "缺少 user_id 參數")
		return
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	favs, err := h.repo.ListFavorites(ctx, userID)
	if err != nil {
		h.storageError(c, "查詢收藏失敗", err)
		return
	}
	c.JSON(http.StatusOK, favs)
}

// GetFavorite GET /api/favorites/:id
func (h *Handler) GetFavorite(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()

	fav, err := h.repo.GetFavorite(ctx, c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		common.WriteCustomError(c, common.ErrFavoriteNotFound)
		return
	}
	if err != nil {
		h.storageError(c, "讀取收藏失敗", err)
		return
	}
	c.JSON(http.StatusOK, fav)
}

// DeleteFavorite DELETE /api/favorites/:id
func (h *Handler) DeleteFavorite(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()

	id := c.Param("id")
	err := h.repo.DeleteFavorite(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		common.WriteCustomError(c, common.ErrFavoriteNotFound)
		return
	}
	if err != nil {
		h.storageError(c, "刪除收藏失敗", err)
		return
	}

	common.LogInfo("收藏已刪除", zap.String("favorite_id", id))
	c.JSON(http.StatusOK, gin.H{"message": MsgFavoriteDeleted})
}

// GetRecipe GET /api/recipes/:id，供輪播的「查看食譜」連結使用
func (h *Handler) GetRecipe(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()

	r, err := h.repo.GetRecipe(ctx, c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		common.WriteCustomError(c, common.ErrRecipeNotFound)
		return
	}
	if err != nil {
		h.storageError(c, "讀取食譜失敗", err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *Handler) storageError(c *gin.Context, msg string, err error) {
	common.LogError(msg,
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	common.WriteCustomError(c, common.WrapError(common.ErrStorageFailure, err))
}
