package normalizer

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrValidationRejected text gõ tự do chứa ký tự không cho phép
var ErrValidationRejected = errors.New("validation rejected")

// chỉ chữ cái latin và khoảng trắng, tối đa 50 ký tự
var reFreeText = regexp.MustCompile(`^[A-Za-z\s]{0,50}$`)

// ValidateFreeText kiểm tra tập ký tự của text người dùng gõ cho City/Village
func ValidateFreeText(text string) error {
	if !reFreeText.MatchString(text) {
		return ErrValidationRejected
	}
	return nil
}

// TitleCase gộp khoảng trắng và viết hoa chữ cái đầu mỗi từ, phần còn lại giữ nguyên
func TitleCase(text string) string {
	words := strings.Fields(text)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
