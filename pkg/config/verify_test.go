package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyAgainstEmbeddedSchema(t *testing.T) {
	t.Run("default config", func(t *testing.T) {
		require.NoError(t, VerifyAgainstEmbeddedSchema(Default()))
	})

	t.Run("with feeds and proxy", func(t *testing.T) {
		cfg := Default()
		cfg.Fetch.Proxy = "https://allorigins.hexlet.app/get"
		cfg.Feeds = []string{"https://example.com/feed.xml"}
		require.NoError(t, VerifyAgainstEmbeddedSchema(cfg))
	})

	t.Run("missing server listen", func(t *testing.T) {
		cfg := Default()
		cfg.Server.Listen = ""
		err := VerifyAgainstEmbeddedSchema(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "server.listen is required")
	})

	t.Run("missing update interval", func(t *testing.T) {
		cfg := Default()
		cfg.Schedule.UpdateInterval = 0
		err := VerifyAgainstEmbeddedSchema(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "schedule.update_interval is required")
	})
}

func TestCheckSection(t *testing.T) {
	var schema schemaDoc
	require.NoError(t, json.Unmarshal([]byte(embeddedSchema), &schema))
	root := schema.Defs[defName(schema.Ref)]

	t.Run("unknown nested field", func(t *testing.T) {
		values := map[string]any{"server": map[string]any{"listen": ":8080", "timeout": 1, "base_url": "x", "page_size": 10}}
		err := checkSection(schema, root, values, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown field server.page_size")
	})

	t.Run("unknown section", func(t *testing.T) {
		err := checkSection(schema, root, map[string]any{"database": map[string]any{}}, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown field database")
	})

	t.Run("missing required section", func(t *testing.T) {
		values := map[string]any{"server": map[string]any{"listen": ":8080", "timeout": 1, "base_url": "x"}}
		err := checkSection(schema, root, values, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "is required")
	})
}

func TestEmbeddedSchemaMatchesConfig(t *testing.T) {
	generated, err := json.Marshal(GenerateSchema())
	require.NoError(t, err)

	var gen, embedded schemaDoc
	require.NoError(t, json.Unmarshal(generated, &gen))
	require.NoError(t, json.Unmarshal([]byte(embeddedSchema), &embedded))

	require.Equal(t, len(gen.Defs), len(embedded.Defs))
	for name, def := range gen.Defs {
		emb, ok := embedded.Defs[name]
		require.True(t, ok, "definition %s missing in embedded schema, run go generate", name)
		for prop := range def.Properties {
			assert.Contains(t, emb.Properties, prop, "%s.%s missing in embedded schema", name, prop)
		}
	}
}
