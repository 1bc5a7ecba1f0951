// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package manifest

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/nova-telemetry/nova/internal/models"
)

// buildSchemaDocument renders a manifest's allowed-keys declaration as
// a JSON Schema object. additionalProperties stays false: a ui payload
// may omit optional keys but never carry keys the manifest does not
// declare.
func buildSchemaDocument(m *models.Manifest) ([]byte, error) {
	properties := make(map[string]any, len(m.Keys))
	var required []string
	for _, k := range m.Keys {
		prop := map[string]any{"type": k.Type}
		if k.Description != "" {
			prop["description"] = k.Description
		}
		properties[k.Name] = prop
		if k.Required {
			required = append(required, k.Name)
		}
	}

	doc := map[string]any{
		"$schema":              "https://json-schema.org/draft/2020-12/schema",
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		doc["required"] = required
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema document: %w", err)
	}
	return out, nil
}

// compileKeySchema builds and compiles the validation schema for one
// manifest version. Compilation happens once at registration; the
// compiled schema is reused for every ui event referencing the version.
func compileKeySchema(m *models.Manifest) (*jsonschema.Schema, error) {
	doc, err := buildSchemaDocument(m)
	if err != nil {
		return nil, err
	}

	url := "nova://manifest/" + m.ManifestID + "/v" + fmt.Sprint(m.Version)
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(doc)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return schema, nil
}
