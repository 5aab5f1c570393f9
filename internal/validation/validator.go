// Package validation checks a variable mapping against a template's declared
// schema.
//
// The check is advisory: the schema drives the editing UI, not the render
// pipeline, so nothing here gates a save or a render. The editor calls it to
// surface problems (missing required fields, values that do not fit their
// declared input kind) before an operator commits a record.
package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/venuehub/mailforge/internal/models"
)

// Problem describes one advisory finding for a schema field.
type Problem struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	CodeRequired     = "required"
	CodeInvalidURL   = "invalid_url"
	CodeInvalidColor = "invalid_color"
)

var colorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Check returns the problems found when vars is read through schema. A nil
// schema yields no problems; keys in vars that the schema does not declare
// are ignored, since a schema never restricts which variables exist.
func Check(schema *models.Schema, vars models.Vars) []Problem {
	if schema == nil {
		return nil
	}

	var problems []Problem
	for _, field := range schema.Fields {
		value, present := vars[field.Key]

		if field.Required && (!present || strings.TrimSpace(value) == "") {
			problems = append(problems, Problem{
				Field:   field.Key,
				Code:    CodeRequired,
				Message: fmt.Sprintf("field %q is required", field.Key),
			})
			continue
		}
		if !present || value == "" {
			continue
		}

		switch field.Kind {
		case models.KindURL:
			if !isHTTPURL(value) {
				problems = append(problems, Problem{
					Field:   field.Key,
					Code:    CodeInvalidURL,
					Message: fmt.Sprintf("field %q must be an absolute http(s) URL", field.Key),
				})
			}
		case models.KindColor:
			if !colorPattern.MatchString(value) {
				problems = append(problems, Problem{
					Field:   field.Key,
					Code:    CodeInvalidColor,
					Message: fmt.Sprintf("field %q must be a hex color like #rrggbb", field.Key),
				})
			}
		}
	}

	return problems
}

func isHTTPURL(value string) bool {
	u, err := url.Parse(value)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
