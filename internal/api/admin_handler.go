package api

import (
	"context"
	"crypto/subtle"
	"net/http"

	"GameSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AdminKeyHeader 管理接口鉴权头
const AdminKeyHeader = "X-ADMIN-KEY"

// adminJobs 管理接口允许触发的初始化任务
var adminJobs = map[string]bool{
	service.JobSteamAppList: true,
	service.JobReviews:      true,
	service.JobDashboard:    true,
	service.JobIGDB:         true,
	service.JobITAD:         true,
	service.JobInitAll:      true,
}

// JobStarter 异步启动同步任务
type JobStarter interface {
	Start(ctx context.Context, name string) bool
}

type AdminHandler struct {
	jobs   JobStarter
	key    string
	ctx    context.Context
	logger *logrus.Logger
}

// NewAdminHandler ctx 为任务运行的生命周期（服务退出时取消），不使用请求的 ctx
func NewAdminHandler(ctx context.Context, jobs JobStarter, key string, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{jobs: jobs, key: key, ctx: ctx, logger: logger}
}

// RequireAdminKey 校验 X-ADMIN-KEY（常量时间比较），未配置密钥时拒绝所有请求
func (h *AdminHandler) RequireAdminKey(c *gin.Context) {
	got := c.GetHeader(AdminKeyHeader)
	if h.key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.key)) != 1 {
		h.logger.WithField("path", c.FullPath()).Warn("管理接口鉴权失败")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Next()
}

// StartInit 触发初始化任务
// @Router /admin/init/{job} [post]
func (h *AdminHandler) StartInit(c *gin.Context) {
	job := c.Param("job")
	if !adminJobs[job] {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown job: " + job})
		return
	}
	if !h.jobs.Start(h.ctx, job) {
		c.JSON(http.StatusConflict, gin.H{"error": job + " is already running"})
		return
	}
	h.logger.WithField("job", job).Info("管理接口触发同步任务")
	c.String(http.StatusOK, "started")
}
