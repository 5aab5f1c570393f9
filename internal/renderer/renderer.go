// Package renderer compiles template markup against an effective variable
// mapping.
//
// Template markup embeds two disjoint micro-languages:
//
//	{{name}}  resolved variables, substituted here from the mapping
//	[NAME]    deferred placeholders, passed through byte-exact for the
//	          downstream mail system to fill in
//
// The two namespaces are independent even when textually similar: a {{name}}
// substitution never touches a [NAME] token and vice versa. Substitution is a
// single explicit scan rather than a general template engine, so nothing can
// leak between the syntaxes.
//
// Values are substituted unescaped. That is a deliberate trust decision:
// variable values are operator-authored content (and may intentionally embed
// markup such as styled spans), not user input arriving at render time.
package renderer

import (
	"fmt"
	"strings"

	"github.com/venuehub/mailforge/internal/errors"
	"github.com/venuehub/mailforge/internal/models"
)

// Compile substitutes every {{name}} occurrence in markup with the mapped
// value. A name absent from vars renders as the empty string — templates may
// reference optional variables, and a missing key is never an error. [NAME]
// placeholders and all other text pass through verbatim.
//
// An opening {{ with no closing }} before end of input, or an empty variable
// name, is malformed markup and fails with a TemplateSyntax error naming the
// template key. A stray }} is literal text.
func Compile(templateKey, markup string, vars models.Vars) (string, error) {
	var b strings.Builder
	b.Grow(len(markup))

	rest := markup
	for {
		open := strings.Index(rest, "{{")
		if open < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:open])

		offset := len(markup) - len(rest) + open
		end := strings.Index(rest[open+2:], "}}")
		if end < 0 {
			return "", errors.TemplateSyntax(templateKey,
				fmt.Sprintf("unterminated {{ delimiter at offset %d", offset))
		}

		name := strings.TrimSpace(rest[open+2 : open+2+end])
		if name == "" {
			return "", errors.TemplateSyntax(templateKey,
				fmt.Sprintf("empty variable name at offset %d", offset))
		}

		b.WriteString(vars[name])
		rest = rest[open+2+end+2:]
	}

	return b.String(), nil
}
