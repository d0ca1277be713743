package normalizer

import (
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StripDiacritics loại bỏ dấu một cách an toàn (Ludhiāna -> Ludhiana)
func StripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(isMn), norm.NFC)
	out, _, _ := transform.String(t, s)
	return out
}

// isMn kiểm tra xem rune có phải là diacritic mark không
func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}

// RemoveAccentsAndLowercase loại bỏ dấu và chuyển về lowercase
func RemoveAccentsAndLowercase(s string) string {
	return strings.ToLower(StripDiacritics(s))
}

// Fold đưa chuỗi về ascii + lowercase + gọn khoảng trắng, dùng cho cache key và so khớp search
func Fold(s string) string {
	s = strings.ToLower(unidecode.Unidecode(s))
	return strings.Join(strings.Fields(s), " ")
}
