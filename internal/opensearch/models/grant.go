package models

import (
	"encoding/json"
)

// DataType документа в индексе
const (
	DataTypeGrant     = "grant"
	DataTypeFunder    = "funder"
	DataTypeRecipient = "recipient"
)

// Grant - документ гранта. Известные поля типизированы, все остальные
// ключи исходной записи сохраняются в Extra и попадают обратно в JSON
// при индексации без изменений.
type Grant struct {
	Id          string  `json:"id,omitempty"`
	Filename    string  `json:"filename,omitempty"`
	DataType    string  `json:"dataType,omitempty"`
	Title       string  `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Currency    string  `json:"currency,omitempty"`

	AmountAwarded    *float64 `json:"amountAwarded,omitempty"`
	AmountAppliedFor *float64 `json:"amountAppliedFor,omitempty"`
	AmountDisbursed  *float64 `json:"amountDisbursed,omitempty"`

	AwardDate         string `json:"awardDate,omitempty"`
	AwardDateDateOnly string `json:"awardDateDateOnly,omitempty"`

	RegrantType string `json:"regrantType,omitempty"`

	FundingOrganization   []*OrgRef     `json:"fundingOrganization,omitempty"`
	RecipientOrganization []*OrgRef     `json:"recipientOrganization,omitempty"`
	GrantProgramme        []*Programme  `json:"grantProgramme,omitempty"`
	PlannedDates          []*DatePeriod `json:"plannedDates,omitempty"`
	ActualDates           []*DatePeriod `json:"actualDates,omitempty"`

	// Поля, которые пишет обогащение
	TitleAndDescription string `json:"title_and_description,omitempty"`
	SimpleGrantType     string `json:"simple_grant_type,omitempty"`

	// Открытый мешок производных данных. После обогащения никогда не nil.
	AdditionalData map[string]any `json:"additional_data,omitempty"`

	// Неизвестные ключи исходной записи
	Extra map[string]any `json:"-"`
}

// OrgRef - организация, встроенная в грант (не каноническая запись)
type OrgRef struct {
	Id              string `json:"id,omitempty"`
	Name            string `json:"name,omitempty"`
	CharityNumber   string `json:"charityNumber,omitempty"`
	CompanyNumber   string `json:"companyNumber,omitempty"`
	AddressLocality string `json:"addressLocality,omitempty"`
	StreetAddress   string `json:"streetAddress,omitempty"`
	URL             string `json:"url,omitempty"`
	Description     string `json:"description,omitempty"`

	// JSON-текст [каноническое имя, id] - порядок элементов значим,
	// фасеты декодируют имя как [0], id как [1]
	IdAndName string `json:"id_and_name,omitempty"`
}

type Programme struct {
	Code        string `json:"code,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`

	// Дубль title как keyword, чтобы работали и фасеты, и полнотекстовый поиск
	TitleKeyword string `json:"title_keyword,omitempty"`
}

type DatePeriod struct {
	StartDate         string `json:"startDate,omitempty"`
	StartDateDateOnly string `json:"startDateDateOnly,omitempty"`
	EndDate           string `json:"endDate,omitempty"`
	EndDateDateOnly   string `json:"endDateDateOnly,omitempty"`
	Duration          string `json:"duration,omitempty"`
}

// grantKnownKeys - ключи, разобранные в типизированные поля Grant.
// Все прочие уходят в Extra.
var grantKnownKeys = []string{
	"id", "filename", "dataType", "title", "description", "currency",
	"amountAwarded", "amountAppliedFor", "amountDisbursed",
	"awardDate", "awardDateDateOnly", "regrantType",
	"fundingOrganization", "recipientOrganization", "grantProgramme",
	"plannedDates", "actualDates",
	"title_and_description", "simple_grant_type", "additional_data",
}

func (g *Grant) UnmarshalJSON(data []byte) error {
	type alias Grant
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, key := range grantKnownKeys {
		delete(raw, key)
	}
	if len(raw) > 0 {
		a.Extra = make(map[string]any, len(raw))
		for key, value := range raw {
			var v any
			if err := json.Unmarshal(value, &v); err != nil {
				return err
			}
			a.Extra[key] = v
		}
	}

	*g = Grant(a)
	return nil
}

func (g Grant) MarshalJSON() ([]byte, error) {
	type alias Grant
	base, err := json.Marshal(alias(g))
	if err != nil {
		return nil, err
	}
	if len(g.Extra) == 0 {
		return base, nil
	}

	var merged map[string]any
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for key, value := range g.Extra {
		if _, exists := merged[key]; !exists {
			merged[key] = value
		}
	}
	return json.Marshal(merged)
}

// EnsureAdditionalData гарантирует наличие additional_data -
// последующие шаги обогащения пишут в него безусловно
func (g *Grant) EnsureAdditionalData() {
	if g.AdditionalData == nil {
		g.AdditionalData = map[string]any{}
	}
}
