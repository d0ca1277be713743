package config

import (
	"os"
	"strings"
	"time"

	"github.com/location-resolver/app/models"
	"gopkg.in/yaml.v3"
)

type APICfg struct {
	BaseURL          string        `yaml:"base_url" json:"base_url"`
	Timeout          time.Duration `yaml:"timeout" json:"timeout"`
	CountryEndpoints []string      `yaml:"country_endpoints" json:"country_endpoints"`
	VillageLimit     int           `yaml:"village_limit" json:"village_limit"`
}

type DebounceCfg struct {
	SearchDelay time.Duration `yaml:"search_delay" json:"search_delay"`
}

type CacheCfg struct {
	SessionTTL    time.Duration `yaml:"session_ttl" json:"session_ttl"`
	PersistedTTL  time.Duration `yaml:"persisted_ttl" json:"persisted_ttl"`
	PersistLevels []string      `yaml:"persist_levels" json:"persist_levels"`
	SessionSize   int           `yaml:"session_size" json:"session_size"`
	KeyPrefix     string        `yaml:"key_prefix" json:"key_prefix"`
}

type SelectionCfg struct {
	Key string        `yaml:"key" json:"key"`
	TTL time.Duration `yaml:"ttl" json:"ttl"`
}

type WarmerCfg struct {
	Interval  time.Duration `yaml:"interval" json:"interval"`
	Countries []string      `yaml:"countries" json:"countries"`
}

type ResolverCfg struct {
	API       APICfg       `yaml:"api" json:"api"`
	Debounce  DebounceCfg  `yaml:"debounce" json:"debounce"`
	Cache     CacheCfg     `yaml:"cache" json:"cache"`
	Selection SelectionCfg `yaml:"selection" json:"selection"`
	Warmer    WarmerCfg    `yaml:"warmer" json:"warmer"`
	Collation struct {
		Language string `yaml:"language" json:"language"`
	} `yaml:"collation" json:"collation"`
}

var C = Default()

// Default cấu hình mặc định
func Default() ResolverCfg {
	cfg := ResolverCfg{
		API: APICfg{
			BaseURL: "http://localhost:5000/api/v1",
			Timeout: 25 * time.Second,
			CountryEndpoints: []string{
				"/locations/countries",
				"/api/locations/countries",
				"/api/v1/locations/countries",
				"/countries",
			},
			VillageLimit: 50,
		},
		Debounce: DebounceCfg{SearchDelay: 400 * time.Millisecond},
		Cache: CacheCfg{
			SessionTTL:    0,
			PersistedTTL:  7 * 24 * time.Hour,
			PersistLevels: []string{"country"},
			SessionSize:   2048,
			KeyPrefix:     "loc:v1:",
		},
		Selection: SelectionCfg{Key: "tl_location"},
		Warmer: WarmerCfg{
			Interval:  6 * time.Hour,
			Countries: []string{"IN"},
		},
	}
	cfg.Collation.Language = "en"
	return cfg
}

// Load đọc file YAML đè lên cấu hình mặc định
func Load(path string) error {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return err
	}
	applyEnv(&cfg)
	C = cfg
	return nil
}

func applyEnv(cfg *ResolverCfg) {
	// ENV overrides
	if v := os.Getenv("LOCATION_API_BASE_URL"); v != "" {
		cfg.API.BaseURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("PERSISTED_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.PersistedTTL = d
		}
	}
	if v := os.Getenv("SEARCH_DEBOUNCE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Debounce.SearchDelay = d
		}
	}
}

func RequestTimeout() time.Duration {
	if C.API.Timeout > 0 {
		return C.API.Timeout
	}
	return 25 * time.Second
}

// PersistLevels các cấp lưu ở persisted tier; tên không hợp lệ bị bỏ qua
func PersistLevels() []models.LocationLevel {
	levels := make([]models.LocationLevel, 0, len(C.Cache.PersistLevels))
	for _, name := range C.Cache.PersistLevels {
		level, err := models.ParseLocationLevel(strings.TrimSpace(name))
		if err != nil {
			continue
		}
		levels = append(levels, level)
	}
	return levels
}
