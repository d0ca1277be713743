package remote

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/location-resolver/app/models"
	"github.com/meilisearch/meilisearch-go"
)

// IndexDocument một document trong index locations mà MeiliSource đọc
type IndexDocument struct {
	ID          string `json:"id"`
	Level       string `json:"level"`
	Code        string `json:"code,omitempty"`
	Name        string `json:"name"`
	CountryCode string `json:"country_code,omitempty"`
	StateCode   string `json:"state_code,omitempty"`
	CityName    string `json:"city_name,omitempty"`
}

// NewIndexDocument tạo document; ID sinh từ vị trí trong hierarchy nên seed lại sẽ ghi đè
func NewIndexDocument(level models.LocationLevel, code, name, countryCode, stateCode, cityName string) IndexDocument {
	path := strings.Join([]string{level.String(), countryCode, stateCode, cityName, strings.ToLower(name)}, "|")
	return IndexDocument{
		ID:          uuid.NewSHA1(uuid.NameSpaceURL, []byte(path)).String(),
		Level:       level.String(),
		Code:        code,
		Name:        name,
		CountryCode: countryCode,
		StateCode:   stateCode,
		CityName:    cityName,
	}
}

// IndexSettings cấu hình index locations khớp với FilterFor
func IndexSettings() *meilisearch.Settings {
	return &meilisearch.Settings{
		SearchableAttributes: []string{"name", "code"},
		FilterableAttributes: []string{"level", "country_code", "state_code", "city_name"},
		SortableAttributes:   []string{"name"},
		RankingRules: []string{
			"words",
			"typo",
			"proximity",
			"attribute",
			"sort",
			"exactness",
		},
	}
}

// Batches chia documents thành các batch tối đa size phần tử
func Batches(docs []IndexDocument, size int) [][]IndexDocument {
	if size <= 0 {
		size = 1000
	}
	var out [][]IndexDocument
	for i := 0; i < len(docs); i += size {
		end := i + size
		if end > len(docs) {
			end = len(docs)
		}
		out = append(out, docs[i:end:end])
	}
	return out
}

// AddBatches thêm documents theo batch, trả về task UID của từng batch
func AddBatches(index meilisearch.IndexManager, docs []IndexDocument, size int) ([]int64, error) {
	var tasks []int64
	for i, batch := range Batches(docs, size) {
		task, err := index.AddDocuments(batch, "id")
		if err != nil {
			return tasks, fmt.Errorf("lỗi thêm documents batch %d: %w", i, err)
		}
		tasks = append(tasks, task.TaskUID)
	}
	return tasks, nil
}
