package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProductRecordStatus(t *testing.T) {
	price := int64(1299000)

	withPrice := NewProductRecord(RecordFields{GlobalSeq: 1, CategorySeq: 1, Link: "https://x/1", PriceValue: &price})
	assert.Equal(t, StatusSuccess, withPrice.Status)
	assert.Empty(t, withPrice.Validate())

	withoutPrice := NewProductRecord(RecordFields{GlobalSeq: 2, CategorySeq: 2, Link: "https://x/2"})
	assert.Equal(t, StatusFailed, withoutPrice.Status)
	assert.Equal(t, NotAvailable, withoutPrice.PriceText)
	assert.Empty(t, withoutPrice.Validate())
}

func TestProductRecordSerialisesNulls(t *testing.T) {
	rec := NewProductRecord(RecordFields{GlobalSeq: 1, CategorySeq: 1, Link: "https://x/1"})

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	for _, key := range []string{"price_value", "currency", "size", "rating", "details"} {
		value, present := raw[key]
		assert.True(t, present, "%s should be present", key)
		assert.Nil(t, value, "%s should be null", key)
	}
}

func TestValidateRejectsInconsistentStatus(t *testing.T) {
	rec := &ProductRecord{GlobalSeq: 1, CategorySeq: 1, Link: "https://x/1", Status: StatusSuccess}
	assert.Contains(t, rec.Validate(), "status does not match price value")
}
