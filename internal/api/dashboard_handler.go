package api

import (
	"context"
	"net/http"

	"GameSync/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// DashboardReader 榜单读取（缓存优先）
type DashboardReader interface {
	Get(ctx context.Context, t model.CurationType) ([]model.DashboardItem, error)
}

type DashboardHandler struct {
	reader DashboardReader
	logger *logrus.Logger
}

func NewDashboardHandler(reader DashboardReader, logger *logrus.Logger) *DashboardHandler {
	return &DashboardHandler{reader: reader, logger: logger}
}

// GetDashboard 查询某类榜单的最新一期
// @Param type path string true "榜单类型（weekly_top_seller/monthly_top/yearly_top/concurrent_player/most_played）"
// @Router /api/dashboard/{type} [get]
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	t, ok := model.ParseCurationType(c.Param("type"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid curation type: " + c.Param("type")})
		return
	}
	items, err := h.reader.Get(c.Request.Context(), t)
	if err != nil {
		h.logger.WithError(err).WithField("curation_type", t).Error("查询榜单失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"curationType": t,
		"items":        items,
	})
}
