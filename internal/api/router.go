package api

import (
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
)

// NewRouter 注册全部路由
func NewRouter(mode string, admin *AdminHandler, dashboard *DashboardHandler) *gin.Engine {
	if mode != "" {
		gin.SetMode(mode)
	}
	r := gin.Default()

	// 注册pprof 方便调试和监测性能问题
	pprof.Register(r)

	r.GET("/api/dashboard/:type", dashboard.GetDashboard)

	adminGroup := r.Group("/admin", admin.RequireAdminKey)
	adminGroup.POST("/init/:job", admin.StartInit)
	return r
}
