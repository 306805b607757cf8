package openapi

import (
	"github.com/getkin/kin-openapi/openapi3"
)

// Options holds the inputs that vary between deployments.
type Options struct {
	BaseURL string
	Version string
	// Sources, when set, becomes the enum of the "source" parameter.
	Sources []string
}

// Generate builds the OpenAPI 3.1 document for the trialq HTTP API.
func Generate(opts Options) *openapi3.T {
	version := opts.Version
	if version == "" {
		version = "1.0.0"
	}

	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "trialq API",
			Description: "Natural-language querying over clinical trial data. Questions are translated to SQL, executed read-only and repaired on failure.",
			Version:     version,
		},
	}
	if opts.BaseURL != "" {
		doc.Servers = openapi3.Servers{{URL: opts.BaseURL}}
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{
		"ErrorResponse":   errorResponseSchema(),
		"QueryRequest":    queryRequestSchema(opts.Sources),
		"QueryResponse":   queryResponseSchema(),
		"ReportRequest":   reportRequestSchema(),
		"ReportResponse":  reportResponseSchema(),
		"SchemaResponse":  schemaResponseSchema(),
		"HistoryEntry":    historyEntrySchema(),
		"SourcesResponse": sourcesResponseSchema(),
	}
	doc.Components = &components
	doc.Paths = openapi3.NewPaths()

	sourceParam := sourceParameter(opts.Sources)

	doc.Paths.Set("/api/v1/query", &openapi3.PathItem{
		Post: &openapi3.Operation{
			Tags:        []string{"query"},
			Summary:     "Answer a natural-language question",
			Description: `Translates the question to SQL and executes it, refining the SQL after a failed execution. The questions "schema" and "stats" return the schema description and table row counts instead.`,
			OperationID: "query",
			RequestBody: jsonBody("Question and optional source", ref("QueryRequest")),
			Responses: newResponses(
				"200", "Query answer, or an error after the repair budget is spent", ref("QueryResponse"),
			),
		},
	})

	doc.Paths.Set("/api/v1/schema", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"schema"},
			Summary:     "Describe the trial database",
			OperationID: "get_schema",
			Parameters:  openapi3.Parameters{sourceParam},
			Responses:   newResponses("200", "Schema description", ref("SchemaResponse")),
		},
	})

	doc.Paths.Set("/api/v1/stats", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"schema"},
			Summary:     "Row counts per table",
			OperationID: "get_stats",
			Parameters:  openapi3.Parameters{sourceParam},
			Responses: newResponses("200", "Table row counts", &openapi3.SchemaRef{
				Value: &openapi3.Schema{
					Type: &openapi3.Types{"object"},
					AdditionalProperties: openapi3.AdditionalProperties{
						Schema: &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int64"}},
					},
				},
			}),
		},
	})

	doc.Paths.Set("/api/v1/report", &openapi3.PathItem{
		Post: &openapi3.Operation{
			Tags:        []string{"report"},
			Summary:     "Render a report from query results",
			Description: "Renders the supplied rows as a PDF (default), CSV, JSON or Parquet report and stores it in the configured sink.",
			OperationID: "create_report",
			RequestBody: jsonBody("Rows to render", ref("ReportRequest")),
			Responses:   newResponses("200", "Generated report", ref("ReportResponse")),
		},
	})

	doc.Paths.Set("/api/v1/history", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"history"},
			Summary:     "List answered questions",
			Description: "Returns recorded questions, newest first.",
			OperationID: "list_history",
			Parameters:  pageParameters(),
			Responses: newResponses("200", "History page", &openapi3.SchemaRef{
				Value: &openapi3.Schema{
					Type: &openapi3.Types{"object"},
					Properties: openapi3.Schemas{
						"resource": &openapi3.SchemaRef{
							Value: &openapi3.Schema{
								Type:  &openapi3.Types{"array"},
								Items: ref("HistoryEntry"),
							},
						},
						"meta": metaSchema(),
					},
				},
			}),
		},
	})

	doc.Paths.Set("/api/v1/history/{id}", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"history"},
			Summary:     "Get one history entry",
			OperationID: "get_history",
			Parameters: openapi3.Parameters{
				&openapi3.ParameterRef{
					Value: openapi3.NewPathParameter("id").
						WithDescription("History entry ID.").
						WithSchema(&openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int64"}),
				},
			},
			Responses: newResponses("200", "History entry", ref("HistoryEntry")),
		},
	})

	doc.Paths.Set("/api/v1/sources", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"system"},
			Summary:     "List trial sources",
			OperationID: "list_sources",
			Responses:   newResponses("200", "Registered sources", ref("SourcesResponse")),
		},
	})

	for _, p := range []struct{ path, id, summary string }{
		{"/healthz", "healthz", "Liveness probe"},
		{"/readyz", "readyz", "Readiness probe; pings every source"},
	} {
		desc := p.summary
		responses := openapi3.NewResponses()
		responses.Set("200", &openapi3.ResponseRef{Value: &openapi3.Response{Description: &desc}})
		unavailable := "One or more sources unreachable"
		responses.Set("503", &openapi3.ResponseRef{Value: &openapi3.Response{Description: &unavailable}})
		doc.Paths.Set(p.path, &openapi3.PathItem{
			Get: &openapi3.Operation{
				Tags:        []string{"system"},
				Summary:     p.summary,
				OperationID: p.id,
				Responses:   responses,
			},
		})
	}

	return doc
}

func ref(name string) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef("#/components/schemas/"+name, nil)
}

func jsonBody(description string, schema *openapi3.SchemaRef) *openapi3.RequestBodyRef {
	return &openapi3.RequestBodyRef{
		Value: &openapi3.RequestBody{
			Description: description,
			Required:    true,
			Content:     openapi3.NewContentWithJSONSchemaRef(schema),
		},
	}
}

func stringProp(description string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Description: description}}
}

func intProp(description string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32", Description: description}}
}

func rowsSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:  &openapi3.Types{"array"},
			Items: &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}},
		},
	}
}

func stringArray(description string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:        &openapi3.Types{"array"},
			Items:       &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
			Description: description,
		},
	}
}

func sourceParameter(sources []string) *openapi3.ParameterRef {
	s := openapi3.NewStringSchema()
	for _, name := range sources {
		s.Enum = append(s.Enum, name)
	}
	return &openapi3.ParameterRef{
		Value: openapi3.NewQueryParameter("source").
			WithDescription("Trial source name. Defaults to the server's default source.").
			WithSchema(s),
	}
}

func pageParameters() openapi3.Parameters {
	return openapi3.Parameters{
		&openapi3.ParameterRef{
			Value: openapi3.NewQueryParameter("limit").
				WithDescription("Maximum number of entries to return.").
				WithSchema(&openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}),
		},
		&openapi3.ParameterRef{
			Value: openapi3.NewQueryParameter("offset").
				WithDescription("Number of entries to skip.").
				WithSchema(&openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}),
		},
	}
}

func errorResponseSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"error": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type: &openapi3.Types{"object"},
						Properties: openapi3.Schemas{
							"code":    &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}},
							"message": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
							"context": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}},
						},
					},
				},
			},
		},
	}
}

func queryRequestSchema(sources []string) *openapi3.SchemaRef {
	src := stringProp("Trial source name.")
	for _, name := range sources {
		src.Value.Enum = append(src.Value.Enum, name)
	}
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:     &openapi3.Types{"object"},
			Required: []string{"query"},
			Properties: openapi3.Schemas{
				"query":  stringProp("Natural-language question, or \"schema\" / \"stats\"."),
				"source": src,
			},
		},
	}
}

func queryResponseSchema() *openapi3.SchemaRef {
	typ := stringProp("Response kind.")
	typ.Value.Enum = []interface{}{"success", "error", "schema", "stats"}
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"type":      typ,
				"sql":       stringProp("Final SQL that was executed."),
				"rowCount":  intProp("Number of rows returned in data."),
				"totalRows": intProp("Number of rows the query produced."),
				"attempts":  intProp("Number of executions used."),
				"columns":   stringArray("Result columns in order."),
				"data":      &openapi3.SchemaRef{Value: &openapi3.Schema{Description: "Rows, schema text or stats map depending on type."}},
				"error":     stringProp("Last execution error when type is \"error\"."),
			},
		},
	}
}

func reportRequestSchema() *openapi3.SchemaRef {
	format := stringProp("Report format.")
	format.Value.Enum = []interface{}{"pdf", "csv", "json", "parquet"}
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:     &openapi3.Types{"object"},
			Required: []string{"data"},
			Properties: openapi3.Schemas{
				"query":   stringProp("Question shown in the report header."),
				"columns": stringArray("Column order. Defaults to the keys of the first row."),
				"data":    rowsSchema(),
				"format":  format,
			},
		},
	}
}

func reportResponseSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"success":  &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}},
				"filename": stringProp("Generated file name."),
				"url":      stringProp("Download URL."),
				"format":   stringProp("Report format."),
				"location": stringProp("Sink location of the artifact."),
			},
		},
	}
}

func schemaResponseSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"source": stringProp("Source that was described."),
				"text":   stringProp("Schema description as handed to the model."),
				"tables": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type: &openapi3.Types{"array"},
						Items: &openapi3.SchemaRef{
							Value: &openapi3.Schema{
								Type: &openapi3.Types{"object"},
								Properties: openapi3.Schemas{
									"name":          stringProp("Table name."),
									"columns":       stringArray("Leading column names."),
									"total_columns": intProp("Total column count."),
									"row_count":     &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int64"}},
								},
							},
						},
					},
				},
			},
		},
	}
}

func historyEntrySchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"id":          &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int64"}},
				"source":      stringProp("Source the question ran against."),
				"question":    stringProp("Question as asked."),
				"final_sql":   stringProp("Last SQL executed."),
				"success":     &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}},
				"row_count":   intProp("Rows returned."),
				"attempts":    intProp("Executions used."),
				"error":       stringProp("Failure message."),
				"duration_ms": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int64"}},
				"created_at":  &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "date-time"}},
			},
		},
	}
}

func sourcesResponseSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"default": stringProp("Default source name."),
				"sources": stringArray("Registered source names."),
			},
		},
	}
}

// newResponses builds a Responses map with a success response and standard error responses.
func newResponses(statusCode, description string, schema *openapi3.SchemaRef) *openapi3.Responses {
	responses := openapi3.NewResponses()

	successDesc := description
	responses.Set(statusCode, &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &successDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(schema),
		},
	})

	errorRef := ref("ErrorResponse")
	for _, e := range []struct{ code, desc string }{
		{"400", "Bad request"},
		{"404", "Not found"},
		{"500", "Internal server error"},
		{"502", "Language model unavailable"},
	} {
		desc := e.desc
		responses.Set(e.code, &openapi3.ResponseRef{
			Value: &openapi3.Response{
				Description: &desc,
				Content:     openapi3.NewContentWithJSONSchemaRef(errorRef),
			},
		})
	}

	return responses
}

// metaSchema returns the schema for the "meta" field in list responses.
func metaSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"count": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:        &openapi3.Types{"integer"},
						Format:      "int64",
						Description: "Total number of entries.",
					},
				},
				"limit": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:        &openapi3.Types{"integer"},
						Format:      "int32",
						Description: "Maximum entries returned per page.",
					},
				},
				"offset": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:        &openapi3.Types{"integer"},
						Format:      "int32",
						Description: "Number of entries skipped.",
					},
				},
			},
		},
	}
}
