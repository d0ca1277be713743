package remote

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/location-resolver/app/models"
	"github.com/location-resolver/internal/metrics"
	"github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"
)

// MeiliConfig cấu hình cho Meilisearch
type MeiliConfig struct {
	Host      string
	APIKey    string
	IndexName string
	Limit     int
}

// MeiliSource nguồn option đọc từ index Meilisearch.
// Mỗi document: {id, level, code, name, country_code, state_code, city_name}.
type MeiliSource struct {
	index  meilisearch.IndexManager
	limit  int
	logger *zap.Logger
}

// NewMeiliSource tạo mới MeiliSource và kiểm tra kết nối
func NewMeiliSource(cfg MeiliConfig, logger *zap.Logger) (*MeiliSource, error) {
	client := meilisearch.New(cfg.Host, meilisearch.WithAPIKey(cfg.APIKey))

	if _, err := client.Health(); err != nil {
		return nil, fmt.Errorf("không thể kết nối Meilisearch: %w", err)
	}
	return NewMeiliSourceWithIndex(client.Index(cfg.IndexName), cfg.Limit, logger), nil
}

// NewMeiliSourceWithIndex dùng index có sẵn
func NewMeiliSourceWithIndex(index meilisearch.IndexManager, limit int, logger *zap.Logger) *MeiliSource {
	if limit <= 0 {
		limit = 1000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MeiliSource{index: index, limit: limit, logger: logger}
}

// Fetch tìm các document của cấp q.Level thuộc các cấp cha trong q
func (s *MeiliSource) Fetch(ctx context.Context, q Query) ([]models.LocationOption, error) {
	level := q.Level.String()
	metrics.RemoteRequestsTotal.WithLabelValues(level).Inc()
	start := time.Now()
	defer func() {
		metrics.RemoteDurationMs.WithLabelValues(level).Observe(float64(time.Since(start).Milliseconds()))
	}()

	if err := ctx.Err(); err != nil {
		metrics.RemoteFailTotal.WithLabelValues(level).Inc()
		return nil, &RemoteError{Level: q.Level, URL: "meilisearch", Err: err}
	}

	limit := q.Limit
	if limit <= 0 {
		limit = s.limit
	}
	filter := FilterFor(q)
	req := &meilisearch.SearchRequest{
		Limit:  int64(limit),
		Filter: filter,
	}

	result, err := s.index.Search(q.Search, req)
	if err != nil {
		metrics.RemoteFailTotal.WithLabelValues(level).Inc()
		return nil, &RemoteError{Level: q.Level, URL: "meilisearch", Err: fmt.Errorf("lỗi tìm kiếm Meilisearch: %w", err)}
	}

	opts := make([]models.LocationOption, 0, len(result.Hits))
	for _, hit := range result.Hits {
		hitMap, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}
		name := firstString(hitMap, nameKeys)
		if name == "" {
			continue
		}
		opt := models.LocationOption{Name: name}
		if q.Level == models.LevelCountry || q.Level == models.LevelState {
			opt.Code = firstString(hitMap, codeKeys)
		}
		opts = append(opts, opt)
	}

	s.logger.Debug("Meilisearch fetch",
		zap.String("level", level),
		zap.String("filter", filter),
		zap.Int("hits", len(opts)))
	return opts, nil
}

// FilterFor tạo filter Meilisearch theo level và các cấp cha
func FilterFor(q Query) string {
	parts := []string{fmt.Sprintf("level = %q", q.Level.String())}
	if q.Level > models.LevelCountry {
		parts = append(parts, fmt.Sprintf("country_code = %q", q.CountryCode))
	}
	if q.Level > models.LevelState {
		parts = append(parts, fmt.Sprintf("state_code = %q", q.StateCode))
	}
	if q.Level > models.LevelCity {
		parts = append(parts, fmt.Sprintf("city_name = %q", q.CityName))
	}
	return strings.Join(parts, " AND ")
}
