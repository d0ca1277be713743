package models

import "time"

// LocationOption một lựa chọn trong danh sách của một cấp.
// Code chỉ có với Country và State; City/Village định danh bằng Name.
type LocationOption struct {
	Code string `json:"code,omitempty" bson:"code,omitempty"`
	Name string `json:"name" bson:"name"`
}

// Selection lựa chọn hiện tại trên 4 cấp.
// Bất biến: nếu một cấp chưa set thì mọi cấp dưới nó cũng chưa set.
type Selection struct {
	Country string `json:"country"`
	State   string `json:"state"`
	City    string `json:"city"`
	Village string `json:"village"`
}

// Get lấy giá trị của level
func (s Selection) Get(level LocationLevel) string {
	switch level {
	case LevelCountry:
		return s.Country
	case LevelState:
		return s.State
	case LevelCity:
		return s.City
	case LevelVillage:
		return s.Village
	}
	return ""
}

func (s *Selection) set(level LocationLevel, value string) {
	switch level {
	case LevelCountry:
		s.Country = value
	case LevelState:
		s.State = value
	case LevelCity:
		s.City = value
	case LevelVillage:
		s.Village = value
	}
}

// With trả về Selection mới với level = value và mọi cấp dưới bị xóa.
// value rỗng xóa luôn level đó. Nếu còn cấp cha chưa set thì giữ nguyên Selection.
func (s Selection) With(level LocationLevel, value string) Selection {
	if !level.IsValid() {
		return s
	}
	if value != "" && !s.HasAncestors(level) {
		return s
	}
	next := s
	next.set(level, value)
	for _, d := range level.Descendants() {
		next.set(d, "")
	}
	return next
}

// HasAncestors mọi cấp cha của level đã được set
func (s Selection) HasAncestors(level LocationLevel) bool {
	for _, a := range level.Ancestors() {
		if s.Get(a) == "" {
			return false
		}
	}
	return true
}

// AncestorValues giá trị các cấp cha của level
func (s Selection) AncestorValues(level LocationLevel) []string {
	ancestors := level.Ancestors()
	values := make([]string, 0, len(ancestors))
	for _, a := range ancestors {
		values = append(values, s.Get(a))
	}
	return values
}

// IsCoherent kiểm tra bất biến cascade
func (s Selection) IsCoherent() bool {
	unset := false
	for _, level := range Levels {
		v := s.Get(level)
		if v == "" {
			unset = true
			continue
		}
		if unset {
			return false
		}
	}
	return true
}

// Coherent cắt bỏ các cấp mồ côi (dùng khi hydrate từ storage)
func (s Selection) Coherent() Selection {
	var out Selection
	for _, level := range Levels {
		v := s.Get(level)
		if v == "" {
			break
		}
		out.set(level, v)
	}
	return out
}

// IsEmpty chưa chọn gì
func (s Selection) IsEmpty() bool {
	return s.Country == ""
}

// CacheEntry một danh sách option đã cache.
// Hợp lệ khi now - StoredAt < TTL; TTL <= 0 nghĩa là sống hết session.
type CacheEntry struct {
	Key      string           `json:"key"`
	Value    []LocationOption `json:"value"`
	StoredAt time.Time        `json:"stored_at"`
	TTL      time.Duration    `json:"ttl"`
}

// IsValid kiểm tra entry còn hạn tại thời điểm now
func (e *CacheEntry) IsValid(now time.Time) bool {
	if e.TTL <= 0 {
		return true
	}
	return now.Sub(e.StoredAt) < e.TTL
}

// ExpiresAt thời điểm hết hạn (zero nếu không có TTL)
func (e *CacheEntry) ExpiresAt() time.Time {
	if e.TTL <= 0 {
		return time.Time{}
	}
	return e.StoredAt.Add(e.TTL)
}

// CacheTier tầng lưu của CacheEntry
type CacheTier int

const (
	// TierSession sống theo session, không kiểm tra TTL
	TierSession CacheTier = iota
	// TierPersisted dùng chung giữa các session, có hạn dùng
	TierPersisted
)

func (t CacheTier) String() string {
	if t == TierPersisted {
		return "persisted"
	}
	return "session"
}
