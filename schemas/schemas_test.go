package schemas

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xeipuuv/gojsonschema"
)

func TestAllSchemaFiles_ValidJSON(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			data, err := Files.ReadFile(name)
			require.NoError(t, err, "schema should be embedded")

			var v map[string]any
			assert.NoError(t, json.Unmarshal(data, &v), "schema file should be valid JSON")
			assert.Contains(t, v, "$schema")
		})
	}
}

func TestSchemaFiles_ValidJSONSchema(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			data, err := Files.ReadFile(name)
			require.NoError(t, err)

			_, err = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
			assert.NoError(t, err, "schema should compile")
		})
	}
}
