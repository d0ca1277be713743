package responses

import (
	"github.com/location-resolver/app/models"
	"github.com/location-resolver/app/services"
)

// SessionResponse response tạo session
type SessionResponse struct {
	SessionID string           `json:"session_id"` // ID session
	ClientID  string           `json:"client_id"`  // ID client
	Selection models.Selection `json:"selection"`  // Selection đã khôi phục
}

// OptionsResponse response danh sách option của một cấp
type OptionsResponse struct {
	Level    models.LocationLevel    `json:"level"`            // Cấp được hỏi
	Options  []models.LocationOption `json:"options"`          // Danh sách option đã sort
	Pending  bool                    `json:"pending"`          // Còn fetch đang chạy
	Disabled bool                    `json:"disabled"`         // Control bị khóa do thiếu cấp cha
	Search   string                  `json:"search,omitempty"` // Text đang tìm
}

// SelectionResponse response sau select/search
type SelectionResponse struct {
	Selection models.Selection `json:"selection"`
}

// SuggestResponse gợi ý option gần nhất
type SuggestResponse struct {
	Level      models.LocationLevel   `json:"level"`
	Text       string                 `json:"text"`
	Suggestion *models.LocationOption `json:"suggestion"` // null khi không có gợi ý
}

// FlushCacheResponse response flush cache
type FlushCacheResponse struct {
	Prefix  string `json:"prefix"`
	Deleted int    `json:"deleted"`
}

// SystemStatsResponse response thống kê hệ thống
type SystemStatsResponse struct {
	*services.SystemStats
	Timestamp string `json:"timestamp"`
}

// ErrorResponse response lỗi
type ErrorResponse struct {
	Error     string      `json:"error"`               // Mã lỗi
	Message   string      `json:"message"`             // Thông báo lỗi
	Details   interface{} `json:"details,omitempty"`   // Chi tiết lỗi
	Timestamp string      `json:"timestamp,omitempty"` // Thời gian xảy ra lỗi
}

// SuccessResponse response thành công
type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// HealthCheckResponse response kiểm tra sức khỏe
type HealthCheckResponse struct {
	Status    string            `json:"status"`    // Trạng thái sức khỏe
	Timestamp string            `json:"timestamp"` // Thời gian kiểm tra
	Uptime    string            `json:"uptime"`    // Thời gian hoạt động
	Version   string            `json:"version"`   // Phiên bản
	Services  map[string]string `json:"services"`  // Trạng thái các service
}
