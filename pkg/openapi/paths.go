// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package openapi

import "github.com/getkin/kin-openapi/openapi3"

// addPaths documents the fixed prediction-lifecycle surface a front end
// serves on top of this runner (the runner itself never listens on HTTP —
// it is driven entirely by the working-directory protocol and the IPC
// callback). These paths describe that front end's contract for clients
// that only ever see the generated schema, matching the conventional
// root/health-check/predictions/cancel layout.
func addPaths(doc *openapi3.T) {
	doc.Paths.Set("/", &openapi3.PathItem{
		Get: &openapi3.Operation{
			OperationID: "root",
			Summary:     "Root",
			Responses:   okResponsesRef(openapi3.NewSchemaRef("", openapi3.NewObjectSchema())),
		},
	})

	doc.Paths.Set("/health-check", &openapi3.PathItem{
		Get: &openapi3.Operation{
			OperationID: "health_check",
			Summary:     "Health Check",
			Responses:   okResponsesRef(openapi3.NewSchemaRef("", healthCheckSchema())),
		},
	})

	inputRef := openapi3.NewSchemaRef("#/components/schemas/Input", nil)
	requestSchema := openapi3.NewObjectSchema()
	requestSchema.Properties = openapi3.Schemas{
		"input":   inputRef,
		"webhook": openapi3.NewSchemaRef("", openapi3.NewStringSchema().WithFormat("uri")),
	}

	doc.Paths.Set("/predictions", &openapi3.PathItem{
		Post: &openapi3.Operation{
			OperationID: "predict",
			Summary:     "Predict",
			RequestBody: &openapi3.RequestBodyRef{
				Value: openapi3.NewRequestBody().WithJSONSchemaRef(openapi3.NewSchemaRef("", requestSchema)),
			},
			Responses: okResponsesRef(openapi3.NewSchemaRef("#/components/schemas/Output", nil)),
		},
	})

	doc.Paths.Set("/predictions/{prediction_id}/cancel", &openapi3.PathItem{
		Post: &openapi3.Operation{
			OperationID: "cancel",
			Summary:     "Cancel",
			Parameters: openapi3.Parameters{
				{Value: &openapi3.Parameter{
					Name:     "prediction_id",
					In:       "path",
					Required: true,
					Schema:   openapi3.NewSchemaRef("", openapi3.NewStringSchema()),
				}},
			},
			Responses: okResponsesRef(openapi3.NewSchemaRef("", openapi3.NewObjectSchema())),
		},
	})
}

func healthCheckSchema() *openapi3.Schema {
	s := openapi3.NewObjectSchema()
	s.Properties = openapi3.Schemas{
		"status": openapi3.NewSchemaRef("", openapi3.NewStringSchema()),
	}
	return s
}

func okResponsesRef(ref *openapi3.SchemaRef) *openapi3.Responses {
	resp := openapi3.NewResponse().
		WithDescription("Successful Response").
		WithJSONSchemaRef(ref)
	responses := openapi3.NewResponses()
	responses.Set("200", &openapi3.ResponseRef{Value: resp})
	return responses
}
