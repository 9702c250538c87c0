package models

import (
	"encoding/json"
	"strconv"
)

// SearchResponse - разобранный ответ поискового движка
type SearchResponse struct {
	Took         int                     `json:"took"`
	Hits         Hits                    `json:"hits"`
	Aggregations map[string]*Aggregation `json:"aggregations,omitempty"`

	// Заполняется аугментером
	ClearAllFacetURL string `json:"clear_all_facet_url,omitempty"`
}

type Hits struct {
	Total    HitsTotal `json:"total"`
	MaxScore *float64  `json:"max_score,omitempty"`
	Hits     []*Hit    `json:"hits"`
}

type HitsTotal struct {
	Value    int64  `json:"value"`
	Relation string `json:"relation,omitempty"`
}

type Hit struct {
	Id     string          `json:"_id,omitempty"`
	Score  *float64        `json:"_score,omitempty"`
	Source json.RawMessage `json:"_source"`
}

// Aggregation - terms/range/date_histogram бакеты либо единичное значение
// (cardinality, min, max). Поля ClearURL/Exclude дописывает аугментер.
type Aggregation struct {
	Buckets  []*Bucket       `json:"buckets,omitempty"`
	Value    *float64        `json:"value,omitempty"`
	ValueStr string          `json:"value_as_string,omitempty"`
	Sub      json.RawMessage `json:"-"`

	ClearURL string `json:"clear_url,omitempty"`
	Exclude  bool   `json:"exclude,omitempty"`
}

type Bucket struct {
	Key         json.RawMessage `json:"key,omitempty"`
	KeyAsString string          `json:"key_as_string,omitempty"`
	DocCount    int64           `json:"doc_count"`
	From        *float64        `json:"from,omitempty"`
	To          *float64        `json:"to,omitempty"`

	// Декорации аугментера
	URL      string `json:"url,omitempty"`
	Selected bool   `json:"selected,omitempty"`
}

// KeyString возвращает ключ бакета как строку: строковый ключ как есть,
// иначе key_as_string, иначе текстовое представление числа
func (b *Bucket) KeyString() string {
	var s string
	if err := json.Unmarshal(b.Key, &s); err == nil {
		return s
	}
	if b.KeyAsString != "" {
		return b.KeyAsString
	}
	var f float64
	if err := json.Unmarshal(b.Key, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return string(b.Key)
}

// SearchResult - результат поиска с разобранными грантами (для простых
// страниц, где агрегации не нужны)
type SearchResult struct {
	Grants     []*Grant `json:"grants"`
	Total      int64    `json:"total"`
	MaxScore   *float64 `json:"max_score,omitempty"`
	SearchTime string   `json:"search_time,omitempty"`
}
