package models

// Template represents a reusable email template. The markup carries two
// disjoint placeholder syntaxes: {{name}} variables substituted at render
// time, and [NAME] placeholders left untouched for downstream mail systems.
type Template struct {
	// Frontmatter fields
	Subject     string `yaml:"subject,omitempty" json:"subject,omitempty"`
	Name        string `yaml:"name,omitempty" json:"name,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Content fields
	Key    string `yaml:"-" json:"key"`    // Storage key (filename stem or row key)
	Markup string `yaml:"-" json:"markup"` // The HTML markup after frontmatter
}

// DisplayName returns the human-readable name, falling back to the key.
func (t *Template) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.Key
}
