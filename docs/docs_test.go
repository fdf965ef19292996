package docs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwaggerInfoRendersPaths(t *testing.T) {
	require.NotNil(t, SwaggerInfo)
	assert.Equal(t, "Mindery API", SwaggerInfo.Title)
	assert.Equal(t, "/api", SwaggerInfo.BasePath)

	var doc struct {
		Paths map[string]map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(SwaggerInfo.ReadDoc()), &doc))
	assert.Contains(t, doc.Paths, "/doctors/{id}/available-dates")
	assert.Contains(t, doc.Paths["/appointments"], "post")
	assert.Contains(t, doc.Paths["/doctors/{id}/all-slots"], "patch")
}
