package generated

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSwagger(t *testing.T) {
	doc, err := GetSwagger()
	require.NoError(t, err)

	for _, path := range []string{"/jobs", "/jobs/{job}", "/jobs/{job}/history", "/jobs/{job}/builds"} {
		assert.NotNil(t, doc.Paths.Find(path), path)
	}

	history := doc.Paths.Find("/jobs/{job}/history").Get
	require.NotNil(t, history)
	assert.Equal(t, "getJobHistory", history.OperationID)
	assert.NotNil(t, history.Parameters.GetByInAndName("query", "newer-than"))
	assert.NotNil(t, history.Parameters.GetByInAndName("query", "older-than"))

	result := doc.Components.Schemas["CompletedEntry"].Value.Properties["result"].Value
	assert.Len(t, result.Enum, 5)
}
