package models

import (
	"fmt"
	"strings"
)

// LocationLevel cấp trong hierarchy địa điểm (quốc gia, bang, thành phố, làng)
type LocationLevel int

// Level constants
const (
	LevelCountry LocationLevel = iota + 1
	LevelState
	LevelCity
	LevelVillage
)

// Levels tất cả các cấp theo thứ tự từ cao xuống thấp
var Levels = []LocationLevel{LevelCountry, LevelState, LevelCity, LevelVillage}

var levelNames = map[LocationLevel]string{
	LevelCountry: "country",
	LevelState:   "state",
	LevelCity:    "city",
	LevelVillage: "village",
}

// String trả về tên cấp dạng lowercase
func (l LocationLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// IsValid kiểm tra level có hợp lệ không
func (l LocationLevel) IsValid() bool {
	return l >= LevelCountry && l <= LevelVillage
}

// AllowsFreeText City và Village cho phép người dùng gõ tự do
func (l LocationLevel) AllowsFreeText() bool {
	return l == LevelCity || l == LevelVillage
}

// Ancestors các cấp nằm trên level, theo thứ tự từ cao xuống
func (l LocationLevel) Ancestors() []LocationLevel {
	if !l.IsValid() {
		return nil
	}
	return Levels[:int(l)-1 : int(l)-1]
}

// Descendants các cấp nằm dưới level
func (l LocationLevel) Descendants() []LocationLevel {
	if !l.IsValid() {
		return nil
	}
	return Levels[int(l):len(Levels):len(Levels)]
}

// ParseLocationLevel parse tên cấp ("country", "State", "3"...)
func ParseLocationLevel(s string) (LocationLevel, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for level, name := range levelNames {
		if name == key || fmt.Sprint(int(level)) == key {
			return level, nil
		}
	}
	return 0, fmt.Errorf("level không hợp lệ: %q", s)
}

// MarshalText encode level thành tên
func (l LocationLevel) MarshalText() ([]byte, error) {
	if !l.IsValid() {
		return nil, fmt.Errorf("level không hợp lệ: %d", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText decode level từ tên
func (l *LocationLevel) UnmarshalText(b []byte) error {
	parsed, err := ParseLocationLevel(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
