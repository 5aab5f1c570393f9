// Package inliner rewrites <style> rules into inline style attributes for
// email-client compatibility.
//
// Mail clients disagree about <style> support, so the compiled document gets
// both presentations: every rule that can be expressed inline is copied onto
// the elements it matches, and the original <style> blocks are retained for
// the clients that do honor them. Inlining is best effort — unparseable
// sheets, at-rules, and selectors that cannot hold statically (pseudo
// elements, unsupported pseudo classes) are skipped silently and stay
// functional through the retained blocks. The transformation is a pure
// function over the document text and is idempotent.
package inliner

import (
	"bytes"
	"log"
	"sort"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
	"golang.org/x/net/html"

	"github.com/venuehub/mailforge/internal/errors"
)

// styleRule is one inlinable selector with its declarations, tagged with
// enough ordering information to apply the cascade: specificity first, then
// appearance order in the document's sheets.
type styleRule struct {
	selector     cascadia.Sel
	specificity  cascadia.Specificity
	order        int
	declarations []*css.Declaration
}

// Inline moves <style> declarations onto matching elements' style attributes.
// Existing inline declarations win per property over computed ones; among
// computed rules the more specific (then later) selector wins. The <style>
// blocks themselves are left in place.
func Inline(doc string) (string, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternalError, "failed to parse HTML")
	}

	rules := collectRules(root)
	if len(rules) > 0 {
		applyRules(root, rules)
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternalError, "failed to render HTML")
	}
	return buf.String(), nil
}

// collectRules gathers every inlinable rule from the document's <style>
// elements, in document order.
func collectRules(root *html.Node) []styleRule {
	var rules []styleRule
	order := 0

	walk(root, func(n *html.Node) {
		if n.Type != html.ElementNode || n.Data != "style" {
			return
		}

		sheet, err := parser.Parse(textContent(n))
		if err != nil {
			// Best effort: a sheet we cannot parse stays in the output
			// untouched and is simply not inlined.
			log.Printf("inliner: skipping unparseable style block: %v", err)
			return
		}

		for _, rule := range sheet.Rules {
			if rule.Kind != css.QualifiedRule || len(rule.Declarations) == 0 {
				continue // at-rules (@media etc.) cannot be inlined
			}
			for _, sel := range rule.Selectors {
				parsed, err := cascadia.Parse(sel)
				if err != nil {
					continue // e.g. dynamic pseudo classes like :hover
				}
				if parsed.PseudoElement() != "" {
					continue
				}
				rules = append(rules, styleRule{
					selector:     parsed,
					specificity:  parsed.Specificity(),
					order:        order,
					declarations: rule.Declarations,
				})
				order++
			}
		}
	})

	return rules
}

// applyRules merges matching declarations into each element's style
// attribute.
func applyRules(root *html.Node, rules []styleRule) {
	walk(root, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}

		var matched []styleRule
		for _, rule := range rules {
			if rule.selector.Match(n) {
				matched = append(matched, rule)
			}
		}
		if len(matched) == 0 {
			return
		}

		// Lowest specificity first so later application overwrites it;
		// document order breaks ties.
		sort.SliceStable(matched, func(i, j int) bool {
			if matched[i].specificity == matched[j].specificity {
				return matched[i].order < matched[j].order
			}
			return matched[i].specificity.Less(matched[j].specificity)
		})

		var computed []*css.Declaration
		for _, rule := range matched {
			computed = append(computed, rule.declarations...)
		}

		setStyle(n, mergeStyle(getAttr(n, "style"), computed))
	})
}

// mergeStyle combines an element's existing style attribute with computed
// declarations. Existing declarations keep their position and win on property
// collisions; computed properties are appended in application order, later
// values replacing earlier ones for the same property.
func mergeStyle(existing string, computed []*css.Declaration) string {
	type entry struct {
		property string
		value    string
	}

	var entries []entry
	index := make(map[string]int)

	add := func(property, value string) {
		key := strings.ToLower(property)
		if i, ok := index[key]; ok {
			entries[i].value = value
			return
		}
		index[key] = len(entries)
		entries = append(entries, entry{property: property, value: value})
	}

	// Computed declarations first, so every existing inline declaration
	// overwrites them afterwards.
	for _, d := range computed {
		value := d.Value
		if d.Important {
			value += " !important"
		}
		add(d.Property, value)
	}

	if existing != "" {
		// douceur drops the value of the last declaration when the input
		// has no trailing semicolon, so terminate before parsing.
		src := existing
		if !strings.HasSuffix(strings.TrimRight(src, " \t"), ";") {
			src += ";"
		}
		decls, err := parser.ParseDeclarations(src)
		if err != nil {
			// Unparseable inline style: leave it exactly as authored.
			return existing
		}
		for _, d := range decls {
			value := d.Value
			if d.Important {
				value += " !important"
			}
			add(d.Property, value)
		}
	}

	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = e.property + ":" + e.value
	}
	return strings.Join(parts, ";")
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func setStyle(n *html.Node, value string) {
	for i := range n.Attr {
		if n.Attr[i].Key == "style" {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: "style", Val: value})
}

func textContent(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}
