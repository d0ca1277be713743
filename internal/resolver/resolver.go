// Package resolver trả lời câu hỏi "các option hợp lệ của cấp L với các cấp cha đã chọn"
// và giữ bất biến cascade của Selection.
package resolver

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/location-resolver/app/models"
	"github.com/location-resolver/internal/debounce"
	"github.com/location-resolver/internal/metrics"
	"github.com/location-resolver/internal/normalizer"
	"github.com/location-resolver/internal/remote"
	"go.uber.org/zap"
)

// Cache hai tier cache mà resolver đọc/ghi
type Cache interface {
	Get(ctx context.Context, key string) (*models.CacheEntry, bool)
	Put(ctx context.Context, key string, value []models.LocationOption, tier models.CacheTier) error
}

// Fallback dữ liệu dự phòng tĩnh
type Fallback interface {
	For(level models.LocationLevel, sel models.Selection) []models.LocationOption
}

// Config cấu hình Resolver
type Config struct {
	SearchDelay   time.Duration
	FetchTimeout  time.Duration
	PersistLevels []models.LocationLevel
	KeyPrefix     string
	Language      string
	// SuggestDistance khoảng cách Levenshtein tối đa cho Suggest
	SuggestDistance int
}

// settled kết quả không được cache (fallback, rỗng, lỗi), trả về đúng một lần
type settled struct {
	key     string
	options []models.LocationOption
}

type levelState struct {
	activeKey  string
	gen        uint64
	options    []models.LocationOption
	fetching   string
	fetchGen   uint64
	pendingKey string // key đang chờ debounce
	settled    *settled
}

// Resolver orchestration cache → remote → fallback cho một session.
// An toàn khi dùng đồng thời.
type Resolver struct {
	cache     Cache
	source    remote.Source
	fallback  Fallback
	debouncer *debounce.Debouncer
	cfg       Config
	logger    *zap.Logger

	mu        sync.Mutex
	selection models.Selection
	search    map[models.LocationLevel]string
	states    map[models.LocationLevel]*levelState
	closed    bool
	onUpdate  func(models.LocationLevel)
	wg        sync.WaitGroup
}

// New tạo mới Resolver
func New(cache Cache, source remote.Source, fallback Fallback, cfg Config, logger *zap.Logger) *Resolver {
	if cfg.SearchDelay <= 0 {
		cfg.SearchDelay = 400 * time.Millisecond
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 25 * time.Second
	}
	if cfg.SuggestDistance <= 0 {
		cfg.SuggestDistance = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Resolver{
		cache:     cache,
		source:    source,
		fallback:  fallback,
		debouncer: debounce.New(),
		cfg:       cfg,
		logger:    logger,
		search:    make(map[models.LocationLevel]string),
		states:    make(map[models.LocationLevel]*levelState),
	}
	for _, level := range models.Levels {
		r.states[level] = &levelState{}
	}
	return r
}

// Key cache key của (level, các cấp cha, search text)
func Key(prefix string, level models.LocationLevel, sel models.Selection, search string) string {
	return prefix + level.String() + ":" + strings.Join(sel.AncestorValues(level), "|") + ":" + normalizer.Fold(search)
}

// Disabled control của level bị khóa khi còn cấp cha chưa chọn
func Disabled(level models.LocationLevel, sel models.Selection) bool {
	return !sel.HasAncestors(level)
}

func (r *Resolver) key(level models.LocationLevel, sel models.Selection, search string) string {
	return Key(r.cfg.KeyPrefix, level, sel, search)
}

func (r *Resolver) tier(level models.LocationLevel) models.CacheTier {
	for _, l := range r.cfg.PersistLevels {
		if l == level {
			return models.TierPersisted
		}
	}
	return models.TierSession
}

// OnUpdate đăng ký hook được gọi khi một kết quả async được áp dụng cho level
func (r *Resolver) OnUpdate(fn func(models.LocationLevel)) {
	r.mu.Lock()
	r.onUpdate = fn
	r.mu.Unlock()
}

// Selection Selection hiện tại
func (r *Resolver) Selection() models.Selection {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selection
}

// Hydrate nạp Selection đã lưu trước đó (các cấp mồ côi bị bỏ)
func (r *Resolver) Hydrate(sel models.Selection) models.Selection {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selection = sel.Coherent()
	return r.selection
}

// SearchText text đang tìm của level
func (r *Resolver) SearchText(level models.LocationLevel) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.search[level]
}

// Disabled áp dụng Disabled cho Selection hiện tại
func (r *Resolver) Disabled(level models.LocationLevel) bool {
	return Disabled(level, r.Selection())
}

// GetOptions danh sách option tốt nhất hiện có cho level; pending = true khi
// đang có fetch mới hơn chưa xong. Không bao giờ chặn trên network.
func (r *Resolver) GetOptions(level models.LocationLevel, sel models.Selection) ([]models.LocationOption, bool) {
	if !level.IsValid() {
		return []models.LocationOption{}, false
	}

	r.mu.Lock()
	search := r.search[level]
	r.mu.Unlock()
	key := r.key(level, sel, search)

	// 1. Cache
	if entry, ok := r.cache.Get(context.Background(), key); ok {
		r.mu.Lock()
		st := r.states[level]
		r.activate(st, key)
		st.options = entry.Value
		r.mu.Unlock()
		return clone(entry.Value), false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.states[level]
	r.activate(st, key)

	// 2. Không fetch khi còn cấp cha chưa chọn
	if !sel.HasAncestors(level) {
		st.options = nil
		return []models.LocationOption{}, false
	}

	// 3. Kết quả không cache của lần fetch trước
	if st.settled != nil && st.settled.key == key {
		opts := st.settled.options
		st.settled = nil
		return clone(opts), false
	}

	// 4. Đang debounce hoặc đang fetch đúng key này
	if st.pendingKey == key || st.inFlight(key) {
		return clone(st.options), true
	}
	if r.closed {
		return clone(st.options), false
	}

	st.fetching = key
	st.fetchGen = st.gen
	r.startFetch(level, sel, search, key, st.gen)
	return clone(st.options), true
}

// inFlight có fetch cho key thuộc generation hiện tại không; fetch của
// generation cũ sẽ bị bỏ ở apply nên không tính
func (st *levelState) inFlight(key string) bool {
	return st.fetching == key && st.fetchGen == st.gen
}

// activate đặt key làm query đang active; đổi key làm mọi fetch cũ thành stale
func (r *Resolver) activate(st *levelState, key string) {
	if st.activeKey == key {
		return
	}
	st.activeKey = key
	st.gen++
	st.settled = nil
}

func (r *Resolver) startFetch(level models.LocationLevel, sel models.Selection, search, key string, gen uint64) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		opts, cacheable := r.load(context.Background(), level, sel, search, key)
		r.apply(level, key, gen, opts, cacheable)
	}()
}

// load remote → normalize → cache, hoặc fallback khi rỗng/lỗi
func (r *Resolver) load(ctx context.Context, level models.LocationLevel, sel models.Selection, search, key string) ([]models.LocationOption, bool) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.FetchTimeout)
	defer cancel()

	raw, err := r.source.Fetch(ctx, remote.QueryFor(level, sel, search))
	if err != nil {
		var remoteErr *remote.RemoteError
		if errors.As(err, &remoteErr) {
			r.logger.Warn("Remote fetch lỗi, dùng fallback",
				zap.String("level", level.String()),
				zap.String("url", remoteErr.URL),
				zap.Int("status", remoteErr.StatusCode),
				zap.Error(err))
		} else {
			r.logger.Warn("Remote fetch lỗi, dùng fallback", zap.String("level", level.String()), zap.Error(err))
		}
		return r.fallbackFor(level, sel, search), false
	}

	opts := normalizer.NormalizeOptions(raw, r.cfg.Language)
	if len(opts) == 0 {
		return r.fallbackFor(level, sel, search), false
	}

	if err := r.cache.Put(ctx, key, opts, r.tier(level)); err != nil {
		r.logger.Warn("Không thể lưu cache", zap.String("key", key), zap.Error(err))
	}
	return opts, true
}

func (r *Resolver) fallbackFor(level models.LocationLevel, sel models.Selection, search string) []models.LocationOption {
	if r.fallback == nil {
		return []models.LocationOption{}
	}
	opts := normalizer.FilterBySearch(r.fallback.For(level, sel), search)
	opts = normalizer.NormalizeOptions(opts, r.cfg.Language)
	if len(opts) > 0 {
		metrics.FallbackServedTotal.WithLabelValues(level.String()).Inc()
	}
	return opts
}

// apply áp dụng kết quả fetch nếu nó vẫn là query active của level
func (r *Resolver) apply(level models.LocationLevel, key string, gen uint64, opts []models.LocationOption, cacheable bool) {
	r.mu.Lock()
	st := r.states[level]
	if st.fetchGen == gen && st.fetching == key {
		st.fetching = ""
	}
	if r.closed || st.gen != gen || st.activeKey != key {
		r.mu.Unlock()
		metrics.StaleDiscardedTotal.WithLabelValues(level.String()).Inc()
		r.logger.Debug("Bỏ kết quả fetch đã cũ", zap.String("level", level.String()), zap.String("key", key))
		return
	}
	st.options = opts
	if !cacheable {
		st.settled = &settled{key: key, options: opts}
	}
	hook := r.onUpdate
	r.mu.Unlock()

	if hook != nil {
		hook(level)
	}
}

// Resolve giống GetOptions nhưng chờ kết quả; dùng cho HTTP ?wait=1 và cache warmer
func (r *Resolver) Resolve(ctx context.Context, level models.LocationLevel, sel models.Selection) []models.LocationOption {
	if !level.IsValid() || !sel.HasAncestors(level) {
		return []models.LocationOption{}
	}

	// Resolve là query mới nhất của level; fetch đang chạy cho cùng key vẫn hợp lệ
	r.mu.Lock()
	search := r.search[level]
	key := r.key(level, sel, search)
	st := r.states[level]
	if !r.closed {
		r.activate(st, key)
	}
	gen := st.gen
	r.mu.Unlock()

	if entry, ok := r.cache.Get(ctx, key); ok {
		r.remember(level, key, gen, entry.Value)
		return clone(entry.Value)
	}

	opts, _ := r.load(ctx, level, sel, search, key)
	r.remember(level, key, gen, opts)
	return clone(opts)
}

// remember ghi kết quả của Resolve nếu level chưa chuyển sang query khác
func (r *Resolver) remember(level models.LocationLevel, key string, gen uint64, opts []models.LocationOption) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.states[level]
	if r.closed || st.gen != gen || st.activeKey != key {
		return
	}
	st.options = opts
}

// Select đặt level = value và xóa mọi cấp dưới; Select(Country, "") xóa toàn bộ
func (r *Resolver) Select(level models.LocationLevel, value string) models.Selection {
	value = strings.TrimSpace(value)

	r.mu.Lock()
	defer r.mu.Unlock()

	if !level.IsValid() {
		return r.selection
	}
	next := r.selection.With(level, value)
	if value != "" && next == r.selection && !r.selection.HasAncestors(level) {
		r.logger.Debug("Bỏ qua select khi cấp cha chưa chọn", zap.String("level", level.String()))
		return r.selection
	}
	r.selection = next

	r.clearSearch(level)
	for _, d := range level.Descendants() {
		r.clearSearch(d)
		r.resetLevel(d)
	}
	return r.selection
}

// Search ghi nhận text gõ tự do cho City/Village và lên lịch một query debounce.
// Text không hợp lệ bị bỏ qua.
func (r *Resolver) Search(level models.LocationLevel, text string) {
	if !level.AllowsFreeText() {
		return
	}
	if err := normalizer.ValidateFreeText(text); err != nil {
		r.logger.Debug("Bỏ qua text không hợp lệ", zap.String("level", level.String()), zap.Error(err))
		return
	}
	value := normalizer.TitleCase(text)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	if !r.selection.HasAncestors(level) {
		r.mu.Unlock()
		r.logger.Debug("Bỏ qua search khi cấp cha chưa chọn", zap.String("level", level.String()))
		return
	}

	r.selection = r.selection.With(level, value)
	for _, d := range level.Descendants() {
		r.clearSearch(d)
		r.resetLevel(d)
	}

	if value == "" {
		delete(r.search, level)
	} else {
		r.search[level] = value
	}
	st := r.states[level]
	key := r.key(level, r.selection, value)
	r.activate(st, key)
	st.pendingKey = key
	r.mu.Unlock()

	r.debouncer.Schedule(level.String(), r.cfg.SearchDelay, func(uint64) {
		r.fireSearch(level)
	})
}

// fireSearch chạy khi debounce kết thúc: query theo text mới nhất của level
func (r *Resolver) fireSearch(level models.LocationLevel) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	st := r.states[level]
	st.pendingKey = ""
	sel := r.selection
	search := r.search[level]
	key := r.key(level, sel, search)
	r.mu.Unlock()

	if entry, ok := r.cache.Get(context.Background(), key); ok {
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return
		}
		r.activate(st, key)
		st.options = entry.Value
		hook := r.onUpdate
		r.mu.Unlock()
		if hook != nil {
			hook(level)
		}
		return
	}

	r.mu.Lock()
	if r.closed || st.inFlight(key) {
		r.mu.Unlock()
		return
	}
	// search luôn bắt đầu query mới, kể cả khi key không đổi
	st.activeKey = key
	st.gen++
	st.settled = nil
	st.fetching = key
	st.fetchGen = st.gen
	gen := st.gen
	r.startFetch(level, sel, search, key, gen)
	r.mu.Unlock()
}

// Suggest option gần nhất với text trong danh sách đã biết của level
func (r *Resolver) Suggest(level models.LocationLevel, text string) (models.LocationOption, bool) {
	if !level.IsValid() {
		return models.LocationOption{}, false
	}
	r.mu.Lock()
	opts := clone(r.states[level].options)
	r.mu.Unlock()
	return normalizer.Closest(opts, text, r.cfg.SuggestDistance)
}

// Close tắt resolver: hủy debounce, kết quả fetch về sau bị bỏ
func (r *Resolver) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()
	r.debouncer.Stop()
}

// Wait chờ các fetch đang chạy kết thúc
func (r *Resolver) Wait() {
	r.wg.Wait()
}

// clearSearch bỏ search text của level; query search đang chạy trở thành stale
func (r *Resolver) clearSearch(level models.LocationLevel) {
	st := r.states[level]
	_, had := r.search[level]
	delete(r.search, level)
	r.debouncer.Cancel(level.String())
	if had || st.pendingKey != "" {
		st.activeKey = ""
		st.gen++
		st.settled = nil
	}
	st.pendingKey = ""
}

func (r *Resolver) resetLevel(level models.LocationLevel) {
	st := r.states[level]
	st.activeKey = ""
	st.gen++
	st.options = nil
	st.fetching = ""
	st.pendingKey = ""
	st.settled = nil
}

func clone(opts []models.LocationOption) []models.LocationOption {
	out := make([]models.LocationOption, len(opts))
	copy(out, opts)
	return out
}
