package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
)

//go:embed schema.json
var embeddedSchema string

// schemaDoc is the part of the generated schema used for verification
type schemaDoc struct {
	Ref  string                   `json:"$ref"`
	Defs map[string]schemaSection `json:"$defs"`
}

type schemaSection struct {
	Ref        string                   `json:"$ref"`
	Properties map[string]schemaSection `json:"properties"`
	Required   []string                 `json:"required"`
}

// VerifyAgainstEmbeddedSchema checks that the config has no fields unknown to the
// embedded JSON schema and that required fields are set
func VerifyAgainstEmbeddedSchema(cfg *Config) error {
	var schema schemaDoc
	if err := json.Unmarshal([]byte(embeddedSchema), &schema); err != nil {
		return fmt.Errorf("parse embedded schema: %w", err)
	}

	// convert config to JSON for validation
	configData, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	var configMap map[string]any
	if err := json.Unmarshal(configData, &configMap); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	root, ok := schema.Defs[defName(schema.Ref)]
	if !ok {
		return fmt.Errorf("schema has no definition for %q", schema.Ref)
	}
	if err := checkSection(schema, root, configMap, ""); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if err := validateRequiredFields(cfg); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// checkSection walks config values against schema properties, nested objects included
func checkSection(schema schemaDoc, section schemaSection, values map[string]any, prefix string) error {
	if section.Ref != "" {
		section = schema.Defs[defName(section.Ref)]
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		prop, ok := section.Properties[k]
		if !ok {
			return fmt.Errorf("unknown field %s%s", prefix, k)
		}
		if nested, ok := values[k].(map[string]any); ok {
			if err := checkSection(schema, prop, nested, prefix+k+"."); err != nil {
				return err
			}
		}
	}
	for _, r := range section.Required {
		if _, ok := values[r]; !ok {
			return fmt.Errorf("%s%s is required", prefix, r)
		}
	}
	return nil
}

func defName(ref string) string {
	return strings.TrimPrefix(ref, "#/$defs/")
}

// validateRequiredFields performs basic validation of required fields
func validateRequiredFields(cfg *Config) error {
	if cfg.Server.Listen == "" {
		return fmt.Errorf("server.listen is required")
	}
	if cfg.Server.Timeout == 0 {
		return fmt.Errorf("server.timeout is required")
	}
	if cfg.Schedule.UpdateInterval == 0 {
		return fmt.Errorf("schedule.update_interval is required")
	}
	return nil
}

// GenerateSchema generates a JSON schema for the Config struct
func GenerateSchema() *jsonschema.Schema {
	return jsonschema.Reflect(&Config{})
}
