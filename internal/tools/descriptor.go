package tools

import (
	"strings"

	pollytools "github.com/alexschlessinger/pollytool/tools"
	"github.com/google/jsonschema-go/jsonschema"
)

// Descriptor is the immutable, model-facing view of one registered tool.
type Descriptor struct {
	Name        string
	Description string
	Server      string
	Schema      *jsonschema.Schema

	tool pollytools.Tool
}

func newDescriptor(tool pollytools.Tool) Descriptor {
	d := Descriptor{
		Name:   tool.GetName(),
		Server: tool.GetSource(),
		Schema: tool.GetSchema(),
		tool:   tool,
	}
	if d.Schema != nil {
		d.Description = d.Schema.Description
	}
	return d
}

// Parameters maps each declared input parameter to its JSON type.
// Parameters without a declared type map to "any".
func (d Descriptor) Parameters() map[string]string {
	params := map[string]string{}
	if d.Schema == nil {
		return params
	}
	for name, prop := range d.Schema.Properties {
		params[name] = schemaType(prop)
	}
	return params
}

// Required lists the parameters the schema marks as mandatory.
func (d Descriptor) Required() []string {
	if d.Schema == nil {
		return nil
	}
	return append([]string(nil), d.Schema.Required...)
}

// Tool exposes the bound implementation, as the provider layer expects it.
func (d Descriptor) Tool() pollytools.Tool {
	return d.tool
}

func schemaType(s *jsonschema.Schema) string {
	switch {
	case s == nil:
		return "any"
	case s.Type != "":
		return s.Type
	case len(s.Types) > 0:
		return strings.Join(s.Types, "|")
	default:
		return "any"
	}
}
