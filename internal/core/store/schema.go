package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const itemSchemaJSON = `{
	"type": "object",
	"required": ["url"],
	"properties": {
		"id":        {"type": "string"},
		"url":       {"type": "string"},
		"title":     {"type": ["string", "null"]},
		"icon":      {"type": ["string", "null"]},
		"tags":      {"type": ["array", "null"], "items": {"type": "string"}},
		"notes":     {"type": ["string", "null"]},
		"createdAt": {"type": "number"}
	}
}`

var (
	categoriesSchema = mustCompileSchema("categories.json", `{
		"type": "object",
		"additionalProperties": {"type": "array", "items": `+itemSchemaJSON+`}
	}`)
	legacySchema = mustCompileSchema("links.json", `{
		"type": "array",
		"items": `+itemSchemaJSON+`
	}`)
)

func mustCompileSchema(name, src string) *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(src))
	if err != nil {
		panic(fmt.Sprintf("store: bad schema %s: %v", name, err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, doc); err != nil {
		panic(fmt.Sprintf("store: bad schema %s: %v", name, err))
	}
	return c.MustCompile(name)
}

// validateRaw checks a raw JSON value against schema.
func validateRaw(schema *jsonschema.Schema, raw json.RawMessage) error {
	v, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	return schema.Validate(v)
}
