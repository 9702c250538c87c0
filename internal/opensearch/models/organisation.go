package models

import "encoding/json"

// Organisation - каноническая запись организации (funder/recipient)
type Organisation struct {
	Id            string             `json:"id,omitempty"`
	Name          string             `json:"name,omitempty"`
	DataType      string             `json:"dataType,omitempty"`
	PublisherName string             `json:"publisherName,omitempty"`
	FTCData       *FTCData           `json:"ftcData,omitempty"`
	AddData       *OrgAdditionalData `json:"additionalData,omitempty"`
	Aggregate     *OrgAggregate      `json:"aggregate,omitempty"`

	// Поля, которые пишет обогащение при импорте
	Currency         []string `json:"currency,omitempty"`
	OrganizationName string   `json:"organizationName,omitempty"`
	OrgIDs           []string `json:"orgIDs,omitempty"`

	Extra map[string]any `json:"-"`
}

// FTCData - данные организации из Find that Charity
type FTCData struct {
	Name           string   `json:"name,omitempty"`
	OrgIDs         []string `json:"orgIDs,omitempty"`
	DateRegistered string   `json:"dateRegistered,omitempty"`
}

type OrgAdditionalData struct {
	AlternativeNames []string `json:"alternative_names,omitempty"`
}

type OrgAggregate struct {
	Grants     float64                   `json:"grants,omitempty"`
	Currencies map[string]*CurrencyStats `json:"currencies,omitempty"`
}

type CurrencyStats struct {
	Total float64 `json:"total"`
	Avg   float64 `json:"avg"`
	Count int64   `json:"count,omitempty"`
}

var orgKnownKeys = []string{
	"id", "name", "dataType", "publisherName", "ftcData", "additionalData",
	"aggregate", "currency", "organizationName", "orgIDs",
}

func (o *Organisation) UnmarshalJSON(data []byte) error {
	type alias Organisation
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, key := range orgKnownKeys {
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

	*o = Organisation(a)
	return nil
}

func (o Organisation) MarshalJSON() ([]byte, error) {
	type alias Organisation
	base, err := json.Marshal(alias(o))
	if err != nil {
		return nil, err
	}
	if len(o.Extra) == 0 {
		return base, nil
	}

	var merged map[string]any
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for key, value := range o.Extra {
		if _, exists := merged[key]; !exists {
			merged[key] = value
		}
	}
	return json.Marshal(merged)
}

// OrderedNames возвращает имена организации в порядке приоритета:
// издатель, FTC, альтернативные, исходное имя, затем id если список пуст.
// Порядок значим - первый элемент считается лучшим известным именем.
func (o *Organisation) OrderedNames() []string {
	var names []string

	appendName := func(name string) {
		if name == "" {
			return
		}
		for _, existing := range names {
			if existing == name {
				return
			}
		}
		names = append(names, name)
	}

	appendName(o.PublisherName)
	if o.FTCData != nil {
		appendName(o.FTCData.Name)
	}
	if o.AddData != nil {
		for _, alt := range o.AddData.AlternativeNames {
			appendName(alt)
		}
	}
	appendName(o.Name)

	if len(names) == 0 {
		names = []string{o.Id}
	}

	return names
}

// AllOrgIDs возвращает собственный id плюс все id из FTC, без дублей
func (o *Organisation) AllOrgIDs() []string {
	orgIDs := []string{o.Id}

	if o.FTCData != nil {
		for _, id := range o.FTCData.OrgIDs {
			seen := false
			for _, existing := range orgIDs {
				if existing == id {
					seen = true
					break
				}
			}
			if !seen {
				orgIDs = append(orgIDs, id)
			}
		}
	}

	return orgIDs
}
