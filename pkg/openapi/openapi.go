// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package openapi builds the openapi.json document a runner writes during
// its startup handshake, describing the registered predictor's Input and
// Output shapes plus the fixed set of prediction-lifecycle endpoints.
package openapi

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/leseb/prediction-runner/pkg/algebra"
	"github.com/leseb/prediction-runner/pkg/predictor"
)

// Build assembles the full OpenAPI document for info. ctx is threaded
// through to resolve any TypeCustom field's coder when rendering a declared
// default value.
func Build(ctx context.Context, info *predictor.PredictorInfo) (*openapi3.T, error) {
	doc := &openapi3.T{
		OpenAPI: "3.0.2",
		Info: &openapi3.Info{
			Title:   "Cog",
			Version: "0.1.0",
		},
		Paths:      openapi3.NewPaths(),
		Components: &openapi3.Components{Schemas: openapi3.Schemas{}},
	}

	inputSchema, enumSchemas, required, err := buildInputSchema(ctx, info)
	if err != nil {
		return nil, fmt.Errorf("openapi: input schema: %w", err)
	}
	inputSchema.Required = required
	doc.Components.Schemas["Input"] = openapi3.NewSchemaRef("", inputSchema)

	for name, s := range enumSchemas {
		doc.Components.Schemas[name] = openapi3.NewSchemaRef("", s)
	}

	outputSchema := buildOutputSchema(info.Output)
	doc.Components.Schemas["Output"] = openapi3.NewSchemaRef("", outputSchema)

	addPaths(doc)

	normalize(doc)

	return doc, nil
}

func buildInputSchema(ctx context.Context, info *predictor.PredictorInfo) (*openapi3.Schema, map[string]*openapi3.Schema, []string, error) {
	schema := openapi3.NewObjectSchema()
	schema.Title = "Input"
	schema.Properties = openapi3.Schemas{}

	enums := map[string]*openapi3.Schema{}
	var required []string

	for _, f := range info.Inputs() {
		prop := f.Type.JSONSchema()
		if prop.Extensions == nil {
			prop.Extensions = map[string]any{}
		}
		prop.Extensions["x-order"] = f.Order

		if len(f.Choices) > 0 {
			enums[f.Name] = buildChoicesSchema(f)
		} else {
			prop.Title = humanize(f.Name)
		}

		if f.Description != "" {
			prop.Description = f.Description
		}
		if f.Ge != nil {
			prop.Min = f.Ge
		}
		if f.Le != nil {
			prop.Max = f.Le
		}
		if f.MinLength != nil {
			n := uint64(*f.MinLength)
			prop.MinLength = n
		}
		if f.MaxLength != nil {
			n := uint64(*f.MaxLength)
			prop.MaxLength = &n
		}
		if f.Regex != nil {
			prop.Pattern = *f.Regex
		}
		if f.Deprecated {
			prop.Deprecated = true
		}

		if f.Default != nil {
			encoded, err := f.Type.Encode(ctx, *f.Default)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("field %s: encode default: %w", f.Name, err)
			}
			prop.Default = encoded
		} else if f.DefaultFactory == nil && f.Type.Repetition != algebra.Optional {
			required = append(required, f.Name)
		}

		if len(f.Choices) > 0 {
			ref := openapi3.NewSchemaRef("#/components/schemas/"+f.Name, nil)
			wrapper := openapi3.NewSchema()
			wrapper.Extensions = prop.Extensions
			wrapper.AllOf = openapi3.SchemaRefs{ref}
			schema.Properties[f.Name] = openapi3.NewSchemaRef("", wrapper)
		} else {
			schema.Properties[f.Name] = openapi3.NewSchemaRef("", prop)
		}
	}

	sort.Strings(required)
	return schema, enums, required, nil
}

func buildChoicesSchema(f predictor.InputField) *openapi3.Schema {
	s := f.Type.Primitive.JSONSchema()
	s.Title = f.Name
	s.Description = "An enumeration."
	s.Enum = f.Choices
	return s
}

func buildOutputSchema(out predictor.OutputType) *openapi3.Schema {
	switch out.Kind {
	case predictor.Object:
		schema := openapi3.NewObjectSchema()
		schema.Title = "Output"
		schema.Properties = openapi3.Schemas{}
		var required []string
		for _, f := range out.Fields {
			schema.Properties[f.Name] = openapi3.NewSchemaRef("", f.Type.JSONSchema())
			if f.Type.Repetition != algebra.Optional {
				required = append(required, f.Name)
			}
		}
		sort.Strings(required)
		schema.Required = required
		return schema

	case predictor.List:
		arr := openapi3.NewArraySchema()
		arr.Title = "Output"
		arr.Items = openapi3.NewSchemaRef("", scalarSchema(out))
		return arr

	case predictor.Iterator, predictor.ConcatIterator:
		arr := openapi3.NewArraySchema()
		arr.Title = "Output"
		if out.Kind == predictor.ConcatIterator {
			arr.Extensions = map[string]any{"x-cog-concat-iterator": true}
		}
		arr.Items = openapi3.NewSchemaRef("", scalarSchema(out))
		return arr

	default: // Single
		s := scalarSchema(out)
		s.Title = "Output"
		return s
	}
}

func scalarSchema(out predictor.OutputType) *openapi3.Schema {
	ft := algebra.FieldType{Primitive: out.Primitive, Repetition: algebra.Required, Coder: out.Coder}
	return ft.JSONSchema()
}

// humanize renders a snake_case field name the way the original
// "name.replace('_', ' ').title()" convention does, e.g. "max_tokens" ->
// "Max Tokens".
func humanize(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
