// Schema Generator
//
// Generates the JSON Schema for the control envelope the worker accepts on
// its pull socket. Go is the source of truth for the wire contract; the web
// application validates outgoing messages against the generated schema.
//
// Usage:
//
//	go run cmd/schema-gen/main.go
//
// Output:
//
//	docs/schemas/envelope.json
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"
)

func main() {
	outputDir := "docs/schemas"

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	outputPath := filepath.Join(outputDir, "envelope.json")
	if err := writeSchema(envelopeSchema(), outputPath); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", outputPath, err)
		os.Exit(1)
	}

	fmt.Printf("Generated %s\n", outputPath)
	fmt.Println("Schema generation complete!")
}

// envelopeSchema describes one queued job: an object carrying exactly one
// of the job keys.
func envelopeSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Version:     jsonschema.Version,
		ID:          "https://pushkind.com/schemas/envelope.json",
		Title:       "Control Envelope",
		Description: "A queued job for the crawler worker. Exactly one job key is present.",
		Type:        "object",
		OneOf: []*jsonschema.Schema{
			singleKeyObject("Crawler", &jsonschema.Schema{
				Ref:         "#/$defs/CrawlCommand",
				Description: "Crawl one store's catalog.",
			}),
			singleKeyObject("Benchmark", &jsonschema.Schema{
				Type:        "integer",
				Description: "ID of the benchmark to match against crawled products.",
			}),
			singleKeyObject("CategoryMatch", &jsonschema.Schema{
				Type:        "integer",
				Description: "ID of the hub whose products get categories assigned.",
			}),
		},
		Definitions: jsonschema.Definitions{
			"CrawlCommand": crawlCommandSchema(),
		},
	}
}

// crawlCommandSchema covers both crawl forms: a bare selector for a full
// catalog replace, or a selector plus URL list for a targeted patch.
func crawlCommandSchema() *jsonschema.Schema {
	selectorProps := jsonschema.NewProperties()
	selectorProps.Set("Selector", &jsonschema.Schema{
		Type:        "string",
		Description: "Registered store selector, e.g. \"rusteaco\".",
	})

	patchProps := jsonschema.NewProperties()
	patchProps.Set("SelectorProducts", &jsonschema.Schema{
		Type:        "array",
		Description: "Store selector followed by the product page URLs to refresh.",
		PrefixItems: []*jsonschema.Schema{
			{Type: "string", Description: "Registered store selector."},
			{
				Type:        "array",
				Items:       &jsonschema.Schema{Type: "string", Format: "uri"},
				Description: "Product page URLs. An empty list patches nothing but still bumps the crawl timestamp.",
			},
		},
		Items: jsonschema.FalseSchema,
	})

	return &jsonschema.Schema{
		Type: "object",
		OneOf: []*jsonschema.Schema{
			{
				Type:                 "object",
				Properties:           selectorProps,
				Required:             []string{"Selector"},
				AdditionalProperties: jsonschema.FalseSchema,
			},
			{
				Type:                 "object",
				Properties:           patchProps,
				Required:             []string{"SelectorProducts"},
				AdditionalProperties: jsonschema.FalseSchema,
			},
		},
	}
}

// singleKeyObject builds one oneOf branch: an object holding only the given key.
func singleKeyObject(key string, value *jsonschema.Schema) *jsonschema.Schema {
	props := jsonschema.NewProperties()
	props.Set(key, value)

	return &jsonschema.Schema{
		Type:                 "object",
		Properties:           props,
		Required:             []string{key},
		AdditionalProperties: jsonschema.FalseSchema,
	}
}

// writeSchema writes a schema to a JSON file
func writeSchema(schema *jsonschema.Schema, path string) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}
