package mapping

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThreeSixtyGiving/grantnav/pkg/logger"
)

func TestLoadGrantsMapping(t *testing.T) {
	m := NewManager(nil, logger.NewNop())

	raw, err := m.loadGrantsMapping()
	require.NoError(t, err)

	var mapping struct {
		Settings map[string]any `json:"settings"`
		Mappings struct {
			Dynamic    bool           `json:"dynamic"`
			Properties map[string]any `json:"properties"`
		} `json:"mappings"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &mapping))

	// Только перечисленные поля индексируются
	assert.False(t, mapping.Mappings.Dynamic)
	require.NotEmpty(t, mapping.Mappings.Properties)

	// Поля, на которые завязаны фасеты и фильтр типа документа
	for _, field := range []string{
		"dataType", "currency", "amountAwarded", "awardDate",
		"fundingOrganization", "recipientOrganization",
		"additional_data", "simple_grant_type", "title_and_description",
	} {
		assert.Contains(t, mapping.Mappings.Properties, field)
	}
}
