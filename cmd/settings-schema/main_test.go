package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	santhosh "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_DocumentShape(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(&out))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	assert.Equal(t, draft07, doc["$schema"])
	assert.Equal(t, "#/$defs/ArchivedAtLinkSettings", doc["$ref"])

	defs, ok := doc["$defs"].(map[string]any)
	require.True(t, ok, "missing $defs in %s", out.String())
	def, ok := defs["ArchivedAtLinkSettings"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "object", def["type"])
	assert.Equal(t, []any{"template"}, def["required"])

	props := def["properties"].(map[string]any)
	template := props["template"].(map[string]any)
	assert.Equal(t, "string", template["type"])
	assert.Equal(t, ".+[{]msg-id[}].*", template["pattern"])
	assert.Len(t, template["examples"], 2)
	assert.True(t, strings.HasPrefix(template["description"].(string), "Template for `Archived-At` header value"))

	carets := props["preserve_carets"].(map[string]any)
	assert.Equal(t, "boolean", carets["type"])
	assert.Equal(t, false, carets["default"])
	assert.Equal(t, "Preserve carets of `Message-ID` in generated value", carets["title"])
	assert.NotContains(t, carets, "description")
}

func TestRun_CompilesAndValidates(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(&out))

	doc, err := santhosh.UnmarshalJSON(bytes.NewReader(out.Bytes()))
	require.NoError(t, err)
	compiler := santhosh.NewCompiler()
	require.NoError(t, compiler.AddResource("file:///archivedatlink.json", doc))
	schema, err := compiler.Compile("file:///archivedatlink.json")
	require.NoError(t, err)

	tests := []struct {
		name     string
		instance string
		valid    bool
	}{
		{name: "template only", instance: `{"template": "https://www.example.com/{msg-id}"}`, valid: true},
		{name: "with carets", instance: `{"template": "https://www.example.com/{msg-id}.html", "preserve_carets": true}`, valid: true},
		{name: "template without placeholder", instance: `{"template": "https://www.example.com/"}`, valid: false},
		{name: "missing template", instance: `{"preserve_carets": false}`, valid: false},
		{name: "wrong carets type", instance: `{"template": "x/{msg-id}", "preserve_carets": "yes"}`, valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			instance, err := santhosh.UnmarshalJSON(strings.NewReader(tt.instance))
			require.NoError(t, err)
			err = schema.Validate(instance)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
