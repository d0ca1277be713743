// Package remote lấy danh sách option của một cấp từ nguồn dữ liệu bên ngoài
// và chuẩn hóa các kiểu response khác nhau về []models.LocationOption.
package remote

import (
	"context"
	"fmt"

	"github.com/location-resolver/app/models"
)

// Query truy vấn cho một cấp với giá trị các cấp cha
type Query struct {
	Level       models.LocationLevel
	CountryCode string
	StateCode   string
	CityName    string
	Search      string
	Limit       int
}

// QueryFor tạo Query từ Selection cho level
func QueryFor(level models.LocationLevel, sel models.Selection, search string) Query {
	q := Query{Level: level, Search: search}
	for _, a := range level.Ancestors() {
		switch a {
		case models.LevelCountry:
			q.CountryCode = sel.Country
		case models.LevelState:
			q.StateCode = sel.State
		case models.LevelCity:
			q.CityName = sel.City
		}
	}
	return q
}

// Source nguồn dữ liệu option (HTTP API, Meilisearch...)
type Source interface {
	Fetch(ctx context.Context, q Query) ([]models.LocationOption, error)
}

// RemoteError lỗi transport, status không phải 2xx hoặc body không parse được
type RemoteError struct {
	Level      models.LocationLevel
	URL        string
	StatusCode int
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("remote %s %s: status %d", e.Level, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("remote %s %s: %v", e.Level, e.URL, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }
