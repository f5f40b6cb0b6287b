package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/docsift/docsift/internal/models"
)

func TestRecordID_Deterministic(t *testing.T) {
	a := models.RecordID("manual.pdf", 3, 7)
	b := models.RecordID("manual.pdf", 3, 7)
	assert.Equal(t, a, b)
	assert.Len(t, a, 32)
}

func TestRecordID_DistinguishesComponents(t *testing.T) {
	base := models.RecordID("manual.pdf", 3, 7)
	assert.NotEqual(t, base, models.RecordID("other.pdf", 3, 7))
	assert.NotEqual(t, base, models.RecordID("manual.pdf", 4, 7))
	assert.NotEqual(t, base, models.RecordID("manual.pdf", 3, 8))
}

func TestRecordID_KnownValue(t *testing.T) {
	// md5("doc_1_0")
	assert.Equal(t, "df9b03009487ca779f069c1a381343fa", models.RecordID("doc", 1, 0))
}
