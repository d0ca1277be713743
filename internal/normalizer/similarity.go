package normalizer

import (
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/location-resolver/app/models"
	"github.com/xrash/smetrics"
)

// ngưỡng Jaro-Winkler để coi prefix là khớp khi gõ sai chính tả
const prefixSimilarityThreshold = 0.88

// MatchesSearch name có khớp với query người dùng đang gõ không.
// So khớp không dấu, không phân biệt hoa thường: chứa chuỗi, hoặc prefix gần giống.
func MatchesSearch(name, query string) bool {
	q := Fold(query)
	if q == "" {
		return true
	}
	n := Fold(name)
	if strings.Contains(n, q) {
		return true
	}
	if len(q) < 3 {
		return false
	}
	prefix := n
	if len(prefix) > len(q) {
		prefix = prefix[:len(q)]
	}
	return smetrics.JaroWinkler(q, prefix, 0.7, 4) >= prefixSimilarityThreshold
}

// FilterBySearch giữ các option khớp query, thứ tự không đổi
func FilterBySearch(opts []models.LocationOption, query string) []models.LocationOption {
	if Fold(query) == "" {
		return opts
	}
	out := make([]models.LocationOption, 0, len(opts))
	for _, o := range opts {
		if MatchesSearch(o.Name, query) {
			out = append(out, o)
		}
	}
	return out
}

// Closest option gần nhất với text theo khoảng cách Levenshtein trên dạng đã fold.
// Trả về false khi không có option nào trong khoảng maxDistance.
func Closest(opts []models.LocationOption, text string, maxDistance int) (models.LocationOption, bool) {
	q := Fold(text)
	if q == "" {
		return models.LocationOption{}, false
	}
	best := -1
	bestDist := maxDistance + 1
	for i, o := range opts {
		d := levenshtein.ComputeDistance(q, Fold(o.Name))
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return models.LocationOption{}, false
	}
	return opts[best], true
}
