package normalizer

import (
	"sort"
	"strings"

	"github.com/location-resolver/app/models"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// CleanName trim và gộp khoảng trắng liên tiếp
func CleanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeOptions chuẩn hóa danh sách option:
// tên rỗng bị loại, de-dup theo Name (phân biệt hoa thường, giữ bản đầu tiên), sort theo collation của lang.
func NormalizeOptions(opts []models.LocationOption, lang string) []models.LocationOption {
	seen := make(map[string]struct{}, len(opts))
	out := make([]models.LocationOption, 0, len(opts))
	for _, opt := range opts {
		name := CleanName(opt.Name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, models.LocationOption{Code: strings.TrimSpace(opt.Code), Name: name})
	}
	SortOptions(out, lang)
	return out
}

// SortOptions sort tăng dần theo Name với collator của ngôn ngữ
func SortOptions(opts []models.LocationOption, lang string) {
	tag := language.English
	if lang != "" {
		if parsed, err := language.Parse(lang); err == nil {
			tag = parsed
		}
	}
	// collate.Collator không an toàn khi dùng đồng thời, tạo mới cho mỗi lần sort
	c := collate.New(tag)
	sort.SliceStable(opts, func(i, j int) bool {
		if r := c.CompareString(opts[i].Name, opts[j].Name); r != 0 {
			return r < 0
		}
		return opts[i].Name < opts[j].Name
	})
}

// Names danh sách tên
func Names(opts []models.LocationOption) []string {
	names := make([]string, 0, len(opts))
	for _, o := range opts {
		names = append(names, o.Name)
	}
	return names
}
