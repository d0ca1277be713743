package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateUUID tạo UUID v4
func GenerateUUID() string {
	return uuid.NewString()
}

// GenerateSessionID tạo ID session (UUID v4 bỏ dấu gạch)
func GenerateSessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// IsValidUUID kiểm tra chuỗi có phải UUID hợp lệ không
func IsValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
