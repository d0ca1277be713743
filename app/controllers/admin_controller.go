package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/location-resolver/app/requests"
	"github.com/location-resolver/app/responses"
	"github.com/location-resolver/app/services"
	"go.uber.org/zap"
)

// AdminController controller xử lý các request admin
type AdminController struct {
	adminService *services.AdminService
	logger       *zap.Logger
}

// NewAdminController tạo mới AdminController
func NewAdminController(adminService *services.AdminService, logger *zap.Logger) *AdminController {
	return &AdminController{
		adminService: adminService,
		logger:       logger,
	}
}

// FlushCache xóa option cache theo prefix
func (ac *AdminController) FlushCache(c *gin.Context) {
	var req requests.FlushCacheRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Request không hợp lệ: "+err.Error())
			return
		}
	}

	startTime := time.Now()
	result, err := ac.adminService.FlushCache(c.Request.Context(), req.Prefix)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "FLUSH_ERROR", "Lỗi flush cache: "+err.Error())
		return
	}

	ac.logger.Info("Flush cache thành công",
		zap.String("prefix", result.Prefix),
		zap.Int("deleted", result.Deleted),
		zap.Duration("duration", time.Since(startTime)))

	c.JSON(http.StatusOK, responses.FlushCacheResponse{
		Prefix:  result.Prefix,
		Deleted: result.Deleted,
	})
}

// GetStats lấy thống kê hệ thống
func (ac *AdminController) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, responses.SystemStatsResponse{
		SystemStats: ac.adminService.GetSystemStats(c.Request.Context()),
		Timestamp:   time.Now().Format(time.RFC3339),
	})
}
