package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/location-resolver/app/models"
	"github.com/location-resolver/app/requests"
	"github.com/location-resolver/app/responses"
	"github.com/location-resolver/app/services"
	"github.com/location-resolver/internal/resolver"
	"go.uber.org/zap"
)

// LocationController controller xử lý các request chọn địa điểm theo session
type LocationController struct {
	sessions    *services.SessionManager
	waitTimeout time.Duration
	startTime   time.Time
	logger      *zap.Logger
}

// NewLocationController tạo mới LocationController
func NewLocationController(sessions *services.SessionManager, waitTimeout time.Duration, logger *zap.Logger) *LocationController {
	if waitTimeout <= 0 {
		waitTimeout = 25 * time.Second
	}
	return &LocationController{
		sessions:    sessions,
		waitTimeout: waitTimeout,
		startTime:   time.Now(),
		logger:      logger,
	}
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, responses.ErrorResponse{
		Error:     code,
		Message:   message,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// session lấy session từ :id, trả về false nếu đã ghi response lỗi
func (lc *LocationController) session(c *gin.Context) (*services.Session, bool) {
	s, err := lc.sessions.Get(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusNotFound, "SESSION_NOT_FOUND", "Không tìm thấy session")
		return nil, false
	}
	return s, true
}

func parseLevel(c *gin.Context, raw string) (models.LocationLevel, bool) {
	level, err := models.ParseLocationLevel(raw)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_LEVEL", err.Error())
		return 0, false
	}
	return level, true
}

// CreateSession tạo session mới, Selection được khôi phục theo client_id
func (lc *LocationController) CreateSession(c *gin.Context) {
	var req requests.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Request không hợp lệ: "+err.Error())
		return
	}

	s, err := lc.sessions.Create(c.Request.Context(), req.ClientID)
	if err != nil {
		lc.logger.Error("Lỗi tạo session", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "SESSION_ERROR", "Không thể tạo session")
		return
	}

	c.JSON(http.StatusCreated, responses.SessionResponse{
		SessionID: s.ID,
		ClientID:  s.ClientID,
		Selection: s.Resolver.Selection(),
	})
}

// GetOptions danh sách option của level; ?wait=1 chờ kết quả thay vì trả pending
func (lc *LocationController) GetOptions(c *gin.Context) {
	s, ok := lc.session(c)
	if !ok {
		return
	}
	level, ok := parseLevel(c, c.Param("level"))
	if !ok {
		return
	}

	sel := s.Resolver.Selection()
	var (
		opts    []models.LocationOption
		pending bool
	)
	if c.Query("wait") == "1" {
		ctx, cancel := context.WithTimeout(c.Request.Context(), lc.waitTimeout)
		defer cancel()
		opts = s.Resolver.Resolve(ctx, level, sel)
	} else {
		opts, pending = s.Resolver.GetOptions(level, sel)
	}

	c.JSON(http.StatusOK, responses.OptionsResponse{
		Level:    level,
		Options:  opts,
		Pending:  pending,
		Disabled: resolver.Disabled(level, sel),
		Search:   s.Resolver.SearchText(level),
	})
}

// Select chọn giá trị cho một cấp, các cấp dưới bị xóa
func (lc *LocationController) Select(c *gin.Context) {
	s, ok := lc.session(c)
	if !ok {
		return
	}
	var req requests.SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Request không hợp lệ: "+err.Error())
		return
	}
	level, ok := parseLevel(c, req.Level)
	if !ok {
		return
	}

	sel := lc.sessions.Select(c.Request.Context(), s, level, req.Value)
	c.JSON(http.StatusOK, responses.SelectionResponse{Selection: sel})
}

// Search ghi nhận text gõ tự do; kết quả tìm kiếm đến sau qua GetOptions
func (lc *LocationController) Search(c *gin.Context) {
	s, ok := lc.session(c)
	if !ok {
		return
	}
	var req requests.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Request không hợp lệ: "+err.Error())
		return
	}
	level, ok := parseLevel(c, req.Level)
	if !ok {
		return
	}
	if !level.AllowsFreeText() {
		respondError(c, http.StatusBadRequest, "FREE_TEXT_NOT_ALLOWED", "Chỉ city và village cho phép gõ tự do")
		return
	}

	sel := lc.sessions.Search(c.Request.Context(), s, level, req.Text)
	c.JSON(http.StatusAccepted, responses.SelectionResponse{Selection: sel})
}

// Suggest gợi ý option gần nhất với text
func (lc *LocationController) Suggest(c *gin.Context) {
	s, ok := lc.session(c)
	if !ok {
		return
	}
	level, ok := parseLevel(c, c.Param("level"))
	if !ok {
		return
	}

	text := c.Query("text")
	resp := responses.SuggestResponse{Level: level, Text: text}
	if opt, found := s.Resolver.Suggest(level, text); found {
		resp.Suggestion = &opt
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteSession đóng session
func (lc *LocationController) DeleteSession(c *gin.Context) {
	if err := lc.sessions.Delete(c.Param("id")); err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			respondError(c, http.StatusNotFound, "SESSION_NOT_FOUND", "Không tìm thấy session")
			return
		}
		respondError(c, http.StatusInternalServerError, "SESSION_ERROR", err.Error())
		return
	}
	c.Status(http.StatusNoContent)
}

// HealthCheck kiểm tra sức khỏe service
func (lc *LocationController) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, responses.HealthCheckResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Uptime:    time.Since(lc.startTime).Round(time.Second).String(),
		Version:   "1.0.0",
		Services: map[string]string{
			"sessions": "ok",
		},
	})
}
