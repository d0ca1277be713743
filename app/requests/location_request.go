package requests

// CreateSessionRequest request tạo session chọn địa điểm
type CreateSessionRequest struct {
	ClientID string `json:"client_id" binding:"required"` // ID client, dùng để lưu/khôi phục Selection
}

// SelectRequest request chọn giá trị cho một cấp
type SelectRequest struct {
	Level string `json:"level" binding:"required"` // country | state | city | village
	Value string `json:"value"`                    // Rỗng để xóa cấp này và các cấp dưới
}

// SearchRequest request gõ tự do cho City/Village
type SearchRequest struct {
	Level string `json:"level" binding:"required"`
	Text  string `json:"text"`
}

// FlushCacheRequest request xóa cache theo prefix
type FlushCacheRequest struct {
	Prefix string `json:"prefix"` // Rỗng để xóa toàn bộ option cache
}
