package ulid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	id := Generate()
	assert.Len(t, id, 26, "ULID should be 26 characters")
	assert.True(t, Validate(id), "Generated ULID should validate")
}

func TestGenerateWithPrefix(t *testing.T) {
	id := JobID()
	assert.True(t, strings.HasPrefix(id, "job-"), "Job ID should carry the job prefix")
	assert.True(t, Validate(id), "Prefixed ULID should validate")

	assert.True(t, strings.HasPrefix(ReviewID(), "rev-"))
	assert.True(t, strings.HasPrefix(FindingID(), "find-"))
}

func TestGenerateMonotonic(t *testing.T) {
	a := Generate()
	b := Generate()
	assert.True(t, a < b, "ULIDs generated in sequence should sort in order")
}

func TestValidate(t *testing.T) {
	assert.False(t, Validate("not-a-ulid"))
	assert.False(t, Validate(""))
	assert.True(t, Validate("01HN3V1A2B3C4D5E6F7G8H9JKM"))
}
