package llm

import (
	"fmt"
	"strings"
)

// ExtractionSchema defines the structure for LLM-based content extraction.
type ExtractionSchema struct {
	Name        string        // Schema name (e.g., "JobMetadata")
	Description string        // System prompt preamble describing the extraction task
	Fields      []SchemaField // Expected output fields
}

// SchemaField defines a single field in the extraction output.
type SchemaField struct {
	Name        string // JSON field name
	Type        string // Type hint shown to the model
	Description string
	Required    bool
}

// BuildExtractionPrompt constructs the LLM prompt from schema and input text.
// The input is expected to be quoted by the caller already.
func BuildExtractionPrompt(schema ExtractionSchema, inputText string) string {
	var sb strings.Builder

	sb.WriteString(schema.Description)
	sb.WriteString("\n\n")

	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = "\"string\""
		}
		requiredHint := ""
		if field.Required {
			requiredHint = " (required)"
		}
		fmt.Fprintf(&sb, "  \"%s\": %s%s", field.Name, typeHint, requiredHint)
		if field.Description != "" {
			fmt.Fprintf(&sb, " // %s", field.Description)
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n\n")

	sb.WriteString("IMPORTANT:\n")
	sb.WriteString("- Use null for numbers the text does not state; do not guess.\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n\n")

	sb.WriteString(inputText)
	sb.WriteString("\n")

	return sb.String()
}

// JobMetadataSchema returns the extraction schema for job description metadata
// used by the semantic Summary checks.
func JobMetadataSchema() ExtractionSchema {
	return ExtractionSchema{
		Name: "JobMetadata",
		Description: `You analyze job descriptions for a resume tailoring tool.
Identify who is hiring, how senior the role is and what experience it asks for.`,
		Fields: []SchemaField{
			{
				Name:        "company_names",
				Type:        "[\"string\"]",
				Description: "Names of the hiring company and its brands, never the candidate's past employers",
				Required:    true,
			},
			{
				Name:        "role_level",
				Type:        "\"Junior|Mid|Senior|Staff|Lead\"",
				Description: "Seniority of the advertised role",
				Required:    true,
			},
			{
				Name:        "experience_years_min",
				Type:        "number|null",
				Description: "Minimum years of experience asked for",
			},
			{
				Name:        "experience_years_max",
				Type:        "number|null",
				Description: "Maximum years of experience, when a range is given",
			},
			{
				Name:        "key_responsibilities",
				Type:        "[\"string\"]",
				Description: "Up to five main duties, copied verbatim",
				Required:    true,
			},
			{
				Name:        "leadership_required",
				Type:        "boolean",
				Description: "True only when the role manages people or leads a team",
				Required:    true,
			},
		},
	}
}
