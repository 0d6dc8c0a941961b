package api

import (
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/dmaia/remora/internal/core/domain"
)

// BuildOpenAPIDocument renders the registered tools as an OpenAPI 3
// document so clients can discover invocation endpoints and parameter
// schemas without reading source.
func BuildOpenAPIDocument(registry *domain.ToolRegistry) ([]byte, error) {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       "Remora Tool API",
			Description: "Background job execution for registered tools.",
			Version:     "1.0.0",
		},
		Paths: openapi3.NewPaths(),
	}

	envelopeSchema := envelopeSchema()

	for _, tool := range registry.List() {
		requestSchema := openapi3.NewObjectSchema()
		for _, p := range tool.Parameters {
			prop := parameterSchema(p)
			requestSchema = requestSchema.WithProperty(p.Name, prop)
			if p.Required {
				requestSchema.Required = append(requestSchema.Required, p.Name)
			}
		}

		invoke := &openapi3.Operation{
			OperationID: "invoke_" + tool.Name,
			Summary:     tool.Description,
			RequestBody: &openapi3.RequestBodyRef{
				Value: openapi3.NewRequestBody().WithJSONSchema(requestSchema),
			},
			Responses: openapi3.NewResponses(
				openapi3.WithStatus(200, &openapi3.ResponseRef{
					Value: openapi3.NewResponse().
						WithDescription("Invocation result envelope").
						WithJSONSchema(envelopeSchema),
				}),
				openapi3.WithStatus(400, &openapi3.ResponseRef{
					Value: openapi3.NewResponse().WithDescription("Invalid parameters"),
				}),
			),
		}
		doc.Paths.Set("/"+tool.Name, &openapi3.PathItem{Post: invoke})

		status := &openapi3.Operation{
			OperationID: "status_" + tool.Name,
			Summary:     "Poll the status of a " + tool.Name + " job",
			Parameters: openapi3.Parameters{
				{Value: openapi3.NewPathParameter("job_id").WithSchema(openapi3.NewStringSchema())},
			},
			Responses: openapi3.NewResponses(
				openapi3.WithStatus(200, &openapi3.ResponseRef{
					Value: openapi3.NewResponse().
						WithDescription("Current job state envelope").
						WithJSONSchema(envelopeSchema),
				}),
				openapi3.WithStatus(404, &openapi3.ResponseRef{
					Value: openapi3.NewResponse().WithDescription("Job not found"),
				}),
			),
		}
		doc.Paths.Set(fmt.Sprintf("/%s/status/{job_id}", tool.Name), &openapi3.PathItem{Get: status})
	}

	return json.Marshal(doc)
}

func parameterSchema(p domain.Parameter) *openapi3.Schema {
	var schema *openapi3.Schema
	switch p.Type {
	case "integer":
		schema = openapi3.NewIntegerSchema()
	case "number":
		schema = openapi3.NewFloat64Schema()
	case "boolean":
		schema = openapi3.NewBoolSchema()
	case "array":
		schema = openapi3.NewArraySchema()
	case "object":
		schema = openapi3.NewObjectSchema()
	default:
		schema = openapi3.NewStringSchema()
	}
	schema.Description = p.Description
	if len(p.Enum) > 0 {
		values := make([]any, len(p.Enum))
		for i, v := range p.Enum {
			values[i] = v
		}
		schema = schema.WithEnum(values...)
	}
	return schema
}

func envelopeSchema() *openapi3.Schema {
	return openapi3.NewObjectSchema().
		WithProperty("tool_name", openapi3.NewStringSchema()).
		WithProperty("status", openapi3.NewStringSchema().
			WithEnum("pending", "running", "success", "failed", "cancelled", "expired")).
		WithProperty("terminal", openapi3.NewBoolSchema()).
		WithProperty("job_id", openapi3.NewStringSchema()).
		WithProperty("input", openapi3.NewObjectSchema()).
		WithProperty("result", openapi3.NewObjectSchema()).
		WithProperty("error", openapi3.NewStringSchema().WithNullable()).
		WithProperty("status_message", openapi3.NewStringSchema()).
		WithProperty("created_at", openapi3.NewStringSchema()).
		WithProperty("updated_at", openapi3.NewStringSchema())
}
