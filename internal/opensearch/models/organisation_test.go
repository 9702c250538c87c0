package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderedNames(t *testing.T) {
	tests := []struct {
		name string
		org  Organisation
		want []string
	}{
		{
			"full priority chain",
			Organisation{
				Id:            "GB-CHC-1",
				Name:          "Original",
				PublisherName: "Publisher",
				FTCData:       &FTCData{Name: "FTC"},
				AddData:       &OrgAdditionalData{AlternativeNames: []string{"Alt one", "Alt two"}},
			},
			[]string{"Publisher", "FTC", "Alt one", "Alt two", "Original"},
		},
		{
			"duplicates collapsed",
			Organisation{
				Name:          "Same",
				PublisherName: "Same",
				FTCData:       &FTCData{Name: "Same"},
			},
			[]string{"Same"},
		},
		{
			"id fallback when nameless",
			Organisation{Id: "GB-CHC-2"},
			[]string{"GB-CHC-2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.org.OrderedNames())
		})
	}
}

func TestAllOrgIDs(t *testing.T) {
	org := Organisation{
		Id: "GB-CHC-1",
		FTCData: &FTCData{
			OrgIDs: []string{"GB-CHC-1", "GB-COH-2", "GB-COH-2"},
		},
	}

	assert.Equal(t, []string{"GB-CHC-1", "GB-COH-2"}, org.AllOrgIDs())

	bare := Organisation{Id: "GB-CHC-3"}
	assert.Equal(t, []string{"GB-CHC-3"}, bare.AllOrgIDs())
}

func TestBucketKeyString(t *testing.T) {
	tests := []struct {
		name   string
		bucket Bucket
		want   string
	}{
		{"string key", Bucket{Key: json.RawMessage(`"GBP"`)}, "GBP"},
		{"numeric key with string form", Bucket{Key: json.RawMessage(`1546300800000`), KeyAsString: "2019"}, "2019"},
		{"bare numeric key", Bucket{Key: json.RawMessage(`42.5`)}, "42.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.bucket.KeyString())
		})
	}
}
