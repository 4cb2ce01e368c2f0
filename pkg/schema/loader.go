package schema

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// rawSchema mirrors the JSON Schema subset the banking contracts use, plus
// the two contract extensions: "condition" and "dictionary".
type rawSchema struct {
	Title      string                `json:"title"`
	Type       string                `json:"type"`
	Format     string                `json:"format"`
	Properties map[string]*rawSchema `json:"properties"`
	Items      *rawSchema            `json:"items"`
	Required   []string              `json:"required"`

	MinLength *int     `json:"minLength"`
	MaxLength *int     `json:"maxLength"`
	Minimum   *float64 `json:"minimum"`
	Maximum   *float64 `json:"maximum"`

	Condition  *rawCondition `json:"condition"`
	Dictionary string        `json:"dictionary"`
}

type rawCondition struct {
	Expression string `json:"expression"`
	Message    string `json:"message"`
	DQCode     int    `json:"dqCode"`
}

// Parse reads a schema document from r
func Parse(r io.Reader) (*Schema, error) {
	var raw rawSchema
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding schema: %w", err)
	}
	if raw.Type != "" && raw.Type != "object" {
		return nil, fmt.Errorf("schema root must be an object, got %q", raw.Type)
	}

	s := &Schema{
		Title:  raw.Title,
		Fields: make(map[string]*Field),
	}
	s.Root = s.buildField(&raw, "", "")
	return s, nil
}

// Load reads a schema file
func Load(path string) (*Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening schema: %w", err)
	}
	defer f.Close()

	s, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// buildField converts a raw node into a Field, indexes it by path, and
// recurses. Array elements are indexed under path/*.
func (s *Schema) buildField(raw *rawSchema, name, path string) *Field {
	field := &Field{
		Path:       path,
		Name:       name,
		Type:       raw.Type,
		Format:     raw.Format,
		Dictionary: raw.Dictionary,
		Constraints: Constraints{
			MinLength: raw.MinLength,
			MaxLength: raw.MaxLength,
			Minimum:   raw.Minimum,
			Maximum:   raw.Maximum,
		},
	}

	if raw.Condition != nil {
		field.Condition = &Condition{
			Expression: raw.Condition.Expression,
			Message:    raw.Condition.Message,
			DQCode:     raw.Condition.DQCode,
		}
		if field.Condition.Message == "" {
			field.Condition.Message = deriveMessage(name, raw.Condition.Expression)
		}
	}

	if path != "" {
		s.Fields[path] = field
	}

	if len(raw.Properties) > 0 {
		required := make(map[string]bool, len(raw.Required))
		for _, r := range raw.Required {
			required[r] = true
		}

		field.Properties = make(map[string]*Field, len(raw.Properties))
		for childName, childRaw := range raw.Properties {
			child := s.buildField(childRaw, childName, joinPath(path, childName))
			child.Required = required[childName]
			field.Properties[childName] = child
		}
	}

	if raw.Items != nil {
		field.Items = s.buildField(raw.Items, name, joinPath(path, "*"))
	}

	return field
}

// deriveMessage produces the default violation text for conditions whose
// authors did not write one.
func deriveMessage(name, expression string) string {
	return fmt.Sprintf("%s is required when %s", name, expression)
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}
