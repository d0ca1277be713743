package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/location-resolver/app/models"
	"github.com/location-resolver/internal/metrics"
	"github.com/location-resolver/internal/normalizer"
	"go.uber.org/zap"
)

const maxBodyBytes = 4 << 20

// HTTPConfig cấu hình HTTPSource
type HTTPConfig struct {
	BaseURL          string
	Timeout          time.Duration
	CountryEndpoints []string
	VillageLimit     int
}

// HTTPSource lấy option từ REST API location
type HTTPSource struct {
	baseURL      string
	http         *http.Client
	endpoints    []string
	villageLimit int
	logger       *zap.Logger

	mu              sync.Mutex
	countryEndpoint string // endpoint country đã chạy được lần gần nhất
}

// NewHTTPSource tạo mới HTTPSource
func NewHTTPSource(cfg HTTPConfig, logger *zap.Logger) *HTTPSource {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 25 * time.Second
	}
	if len(cfg.CountryEndpoints) == 0 {
		cfg.CountryEndpoints = []string{"/locations/countries"}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPSource{
		baseURL:      strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		http:         &http.Client{Timeout: cfg.Timeout},
		endpoints:    cfg.CountryEndpoints,
		villageLimit: cfg.VillageLimit,
		logger:       logger,
	}
}

// WithHTTPClient thay http.Client (dùng cho test)
func (s *HTTPSource) WithHTTPClient(c *http.Client) *HTTPSource {
	s.http = c
	return s
}

// Fetch lấy danh sách option cho q.Level
func (s *HTTPSource) Fetch(ctx context.Context, q Query) ([]models.LocationOption, error) {
	level := q.Level.String()
	metrics.RemoteRequestsTotal.WithLabelValues(level).Inc()
	start := time.Now()

	opts, err := s.fetch(ctx, q)

	metrics.RemoteDurationMs.WithLabelValues(level).Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RemoteFailTotal.WithLabelValues(level).Inc()
		return nil, err
	}
	// backend có thể bỏ qua tham số search
	if q.Search != "" && q.Level.AllowsFreeText() {
		opts = normalizer.FilterBySearch(opts, q.Search)
	}
	return opts, nil
}

func (s *HTTPSource) fetch(ctx context.Context, q Query) ([]models.LocationOption, error) {
	switch q.Level {
	case models.LevelCountry:
		return s.fetchCountries(ctx)
	case models.LevelState:
		return s.get(ctx, q.Level, "/locations/states/"+url.PathEscape(q.CountryCode), nil)
	case models.LevelCity:
		return s.fetchCities(ctx, q)
	case models.LevelVillage:
		params := url.Values{}
		params.Set("countryCode", q.CountryCode)
		params.Set("stateCode", q.StateCode)
		params.Set("cityName", q.CityName)
		if q.Search != "" {
			params.Set("search", q.Search)
		}
		limit := q.Limit
		if limit <= 0 {
			limit = s.villageLimit
		}
		if limit > 0 {
			params.Set("limit", strconv.Itoa(limit))
		}
		return s.get(ctx, q.Level, "/locations/villages", params)
	}
	return nil, &RemoteError{Level: q.Level, Err: fmt.Errorf("level không hỗ trợ: %d", int(q.Level))}
}

// fetchCountries thử lần lượt các endpoint, endpoint đầu tiên thành công được nhớ lại
func (s *HTTPSource) fetchCountries(ctx context.Context) ([]models.LocationOption, error) {
	s.mu.Lock()
	known := s.countryEndpoint
	s.mu.Unlock()

	candidates := make([]string, 0, len(s.endpoints)+1)
	if known != "" {
		candidates = append(candidates, known)
	}
	for _, ep := range s.endpoints {
		if ep != known {
			candidates = append(candidates, ep)
		}
	}

	var lastErr error
	for _, ep := range candidates {
		opts, err := s.get(ctx, models.LevelCountry, ep, nil)
		if err != nil {
			lastErr = err
			s.logger.Debug("Country endpoint lỗi, thử endpoint tiếp theo", zap.String("endpoint", ep), zap.Error(err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if ep != known {
			s.mu.Lock()
			s.countryEndpoint = ep
			s.mu.Unlock()
			s.logger.Info("Dùng country endpoint", zap.String("endpoint", ep))
		}
		return opts, nil
	}
	return nil, lastErr
}

// fetchCities thử dạng path /cities/{c}/{s} rồi dạng query ?countryCode=&stateCode=.
// Có search thì đi thẳng dạng query vì dạng path không nhận search.
func (s *HTTPSource) fetchCities(ctx context.Context, q Query) ([]models.LocationOption, error) {
	pathOK := false
	if q.Search == "" {
		path := "/locations/cities/" + url.PathEscape(q.CountryCode) + "/" + url.PathEscape(q.StateCode)
		opts, err := s.get(ctx, q.Level, path, nil)
		if err == nil && len(opts) > 0 {
			return opts, nil
		}
		pathOK = err == nil
	}

	params := url.Values{}
	params.Set("countryCode", q.CountryCode)
	params.Set("stateCode", q.StateCode)
	if q.Search != "" {
		params.Set("search", q.Search)
	}
	opts, queryErr := s.get(ctx, q.Level, "/locations/cities", params)
	if queryErr != nil {
		if pathOK {
			return []models.LocationOption{}, nil
		}
		return nil, queryErr
	}
	return opts, nil
}

func (s *HTTPSource) get(ctx context.Context, level models.LocationLevel, path string, params url.Values) ([]models.LocationOption, error) {
	endpoint := s.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &RemoteError{Level: level, URL: endpoint, Err: err}
	}
	if len(params) > 0 {
		req.URL.RawQuery = params.Encode()
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, &RemoteError{Level: level, URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &RemoteError{
			Level:      level,
			URL:        endpoint,
			StatusCode: resp.StatusCode,
			Err:        errors.New(http.StatusText(resp.StatusCode)),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &RemoteError{Level: level, URL: endpoint, Err: err}
	}
	opts, err := ParseOptions(level, body)
	if err != nil {
		return nil, &RemoteError{Level: level, URL: endpoint, Err: err}
	}
	return opts, nil
}
