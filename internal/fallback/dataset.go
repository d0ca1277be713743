// Package fallback chứa tập địa điểm tĩnh cho một khu vực, dùng khi remote không trả về gì.
package fallback

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/location-resolver/app/models"
	"github.com/location-resolver/internal/normalizer"
	"gopkg.in/yaml.v3"
)

//go:embed data/fallback.yaml
var fallbackYAML []byte

type fileFormat struct {
	Region  string `yaml:"region"`
	Country struct {
		Code    string   `yaml:"code"`
		Name    string   `yaml:"name"`
		Aliases []string `yaml:"aliases"`
	} `yaml:"country"`
	States   []models.LocationOption `yaml:"states"`
	Villages map[string][]string     `yaml:"villages"`
}

// Dataset bảng tra cứu tĩnh, không network, không cache, không thay đổi sau khi load
type Dataset struct {
	region         string
	country        models.LocationOption
	countryAliases map[string]struct{}
	cities         []cityRef
	states         []models.LocationOption
	table          map[string][]models.LocationOption
}

type cityRef struct {
	state string
	name  string
}

// Record một dòng phẳng của dataset, dùng để seed index tìm kiếm
type Record struct {
	Level       models.LocationLevel `json:"-"`
	Code        string               `json:"code,omitempty"`
	Name        string               `json:"name"`
	CountryCode string               `json:"country_code,omitempty"`
	StateCode   string               `json:"state_code,omitempty"`
	CityName    string               `json:"city_name,omitempty"`
}

// Load dataset nhúng sẵn trong binary
func Load() (*Dataset, error) {
	return Parse(fallbackYAML)
}

// MustLoad giống Load nhưng panic khi dữ liệu nhúng hỏng
func MustLoad() *Dataset {
	ds, err := Load()
	if err != nil {
		panic(err)
	}
	return ds
}

// Parse đọc dataset từ YAML
func Parse(data []byte) (*Dataset, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("lỗi parse fallback dataset: %w", err)
	}

	ds := &Dataset{
		region:         f.Region,
		country:        models.LocationOption{Code: f.Country.Code, Name: f.Country.Name},
		countryAliases: make(map[string]struct{}),
		table:          make(map[string][]models.LocationOption, len(f.Villages)),
	}
	for _, alias := range append(f.Country.Aliases, f.Country.Code) {
		if alias != "" {
			ds.countryAliases[strings.ToLower(alias)] = struct{}{}
		}
	}
	ds.states = normalizer.NormalizeOptions(f.States, "en")

	for key, names := range f.Villages {
		state, city, ok := strings.Cut(key, "|")
		if !ok {
			return nil, fmt.Errorf("key fallback không hợp lệ: %q", key)
		}
		opts := make([]models.LocationOption, 0, len(names))
		for _, n := range names {
			opts = append(opts, models.LocationOption{Name: n})
		}
		ds.table[tableKey(state, city)] = normalizer.NormalizeOptions(opts, "en")
		ds.cities = append(ds.cities, cityRef{state: strings.ToUpper(strings.TrimSpace(state)), name: normalizer.CleanName(city)})
	}
	sort.Slice(ds.cities, func(i, j int) bool {
		if ds.cities[i].state != ds.cities[j].state {
			return ds.cities[i].state < ds.cities[j].state
		}
		return ds.cities[i].name < ds.cities[j].name
	})
	return ds, nil
}

// Records toàn bộ dataset dạng phẳng: country, states, cities, villages
func (d *Dataset) Records() []Record {
	var out []Record
	cc := d.country.Code
	if cc != "" {
		name := d.country.Name
		if name == "" {
			name = cc
		}
		out = append(out, Record{Level: models.LevelCountry, Code: cc, Name: name})
	}
	for _, s := range d.states {
		out = append(out, Record{Level: models.LevelState, Code: s.Code, Name: s.Name, CountryCode: cc})
	}
	for _, c := range d.cities {
		out = append(out, Record{Level: models.LevelCity, Name: c.name, CountryCode: cc, StateCode: c.state})
		for _, v := range d.table[tableKey(c.state, c.name)] {
			out = append(out, Record{Level: models.LevelVillage, Name: v.Name, CountryCode: cc, StateCode: c.state, CityName: c.name})
		}
	}
	return out
}

func tableKey(stateCode, cityName string) string {
	return strings.ToUpper(strings.TrimSpace(stateCode)) + "|" + normalizer.Fold(cityName)
}

// Region mã khu vực của dataset
func (d *Dataset) Region() string { return d.region }

// States danh sách bang dự phòng cho quốc gia (chỉ có với quốc gia của khu vực)
func (d *Dataset) States(countryCode string) []models.LocationOption {
	if _, ok := d.countryAliases[strings.ToLower(strings.TrimSpace(countryCode))]; !ok {
		return nil
	}
	return clone(d.states)
}

// Lookup tra bảng stateCode|cityName. cityName rỗng không bao giờ có dữ liệu.
func (d *Dataset) Lookup(stateCode, cityName string) []models.LocationOption {
	if strings.TrimSpace(cityName) == "" {
		return nil
	}
	return clone(d.table[tableKey(stateCode, cityName)])
}

// For danh sách dự phòng cho level với selection hiện tại
func (d *Dataset) For(level models.LocationLevel, sel models.Selection) []models.LocationOption {
	switch level {
	case models.LevelState:
		return d.States(sel.Country)
	case models.LevelVillage:
		if _, ok := d.countryAliases[strings.ToLower(sel.Country)]; !ok {
			return nil
		}
		return d.Lookup(sel.State, sel.City)
	}
	// Country và City không có dữ liệu dự phòng
	return nil
}

func clone(opts []models.LocationOption) []models.LocationOption {
	if len(opts) == 0 {
		return nil
	}
	out := make([]models.LocationOption, len(opts))
	copy(out, opts)
	return out
}
