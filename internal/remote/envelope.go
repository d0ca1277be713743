package remote

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/location-resolver/app/models"
)

var errUnknownEnvelope = errors.New("không nhận dạng được response envelope")

// extractor thử lấy danh sách item từ một kiểu envelope
type extractor func(body []byte) ([]json.RawMessage, bool)

// envelopes thứ tự thử các kiểu response đã gặp qua các phiên bản API
var envelopes = []extractor{dataEnvelope, rawArray, namedEnvelope}

// listKeys tên field chứa danh sách, ưu tiên theo thứ tự
var listKeys = []string{"countries", "states", "cities", "villages", "locations", "items", "results", "list"}

// nameKeys thứ tự field dùng làm tên hiển thị
var nameKeys = []string{"name", "city", "village", "label", "area", "locality", "district", "value", "state_name", "country"}

// codeKeys thứ tự field dùng làm code
var codeKeys = []string{"code", "country_code", "state_code", "short", "_id"}

// {"data": [...]}
func dataEnvelope(body []byte) ([]json.RawMessage, bool) {
	var env struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil || env.Data == nil {
		return nil, false
	}
	return env.Data, true
}

// [...]
func rawArray(body []byte) ([]json.RawMessage, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, false
	}
	return items, true
}

// {"<tên>": [...]}
func namedEnvelope(body []byte) ([]json.RawMessage, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, false
	}
	for _, k := range listKeys {
		if items, ok := asArray(obj[k]); ok {
			return items, true
		}
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if items, ok := asArray(obj[k]); ok {
			return items, true
		}
	}
	return nil, false
}

func asArray(raw json.RawMessage) ([]json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	return items, true
}

// ParseOptions tách danh sách option từ body JSON theo các envelope đã biết
func ParseOptions(level models.LocationLevel, body []byte) ([]models.LocationOption, error) {
	var items []json.RawMessage
	found := false
	for _, ex := range envelopes {
		if items, found = ex(body); found {
			break
		}
	}
	if !found {
		return nil, errUnknownEnvelope
	}

	opts := make([]models.LocationOption, 0, len(items))
	for _, raw := range items {
		if opt, ok := parseItem(level, raw); ok {
			opts = append(opts, opt)
		}
	}
	return opts, nil
}

func parseItem(level models.LocationLevel, raw json.RawMessage) (models.LocationOption, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		return models.LocationOption{Name: s}, s != ""
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return models.LocationOption{}, false
	}

	code := firstString(obj, codeKeys)
	name := firstString(obj, nameKeys)
	if name == "" {
		name = code
	}
	if name == "" {
		return models.LocationOption{}, false
	}

	switch level {
	case models.LevelCountry, models.LevelState:
		if code == "" {
			code = name
		}
	default:
		// City/Village không có code ổn định
		code = ""
	}
	return models.LocationOption{Code: code, Name: name}, true
}

func firstString(obj map[string]any, keys []string) string {
	for _, k := range keys {
		switch v := obj[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}
