package models

// FieldKind identifies the editor input used for a schema field.
type FieldKind string

const (
	KindText      FieldKind = "text"
	KindMultiline FieldKind = "multiline-text"
	KindURL       FieldKind = "url"
	KindColor     FieldKind = "color"
)

// Valid reports whether the kind is one of the known editor input kinds.
func (k FieldKind) Valid() bool {
	switch k {
	case KindText, KindMultiline, KindURL, KindColor:
		return true
	}
	return false
}

// Field describes one editable variable of a template.
type Field struct {
	Key      string    `yaml:"key" json:"key"`
	Label    string    `yaml:"label,omitempty" json:"label,omitempty"`
	Kind     FieldKind `yaml:"kind" json:"kind"`
	Required bool      `yaml:"required,omitempty" json:"required"`
	Default  string    `yaml:"default,omitempty" json:"default,omitempty"`
}

// Schema is the ordered field metadata for a template. It drives editor UI
// generation and default values; it is descriptive only and never restricts
// which variables a template may reference.
type Schema struct {
	TemplateKey string  `yaml:"-" json:"template"`
	Fields      []Field `yaml:"fields" json:"fields"`
}

// Field returns the descriptor for key, or nil if the schema does not
// declare it.
func (s *Schema) Field(key string) *Field {
	for i := range s.Fields {
		if s.Fields[i].Key == key {
			return &s.Fields[i]
		}
	}
	return nil
}
