package models

import (
	"fmt"
	"strconv"
)

// Vars is a venue's flat variable mapping. Values are operator-authored
// strings (text, URLs, colors, multi-line text); non-string JSON scalars are
// normalized to strings at the store boundary.
type Vars map[string]string

// Clone returns a shallow copy of the mapping.
func (v Vars) Clone() Vars {
	out := make(Vars, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Merge returns a copy of v with every key from overrides set or replaced.
// Overrides may introduce keys absent from v; on collision the override wins.
func (v Vars) Merge(overrides Vars) Vars {
	out := v.Clone()
	for k, val := range overrides {
		out[k] = val
	}
	return out
}

// NormalizeVars converts a decoded JSON object into a Vars mapping, rendering
// scalar values as strings. Nulls become empty strings; non-scalar values are
// rejected so a malformed record fails loudly at the boundary instead of
// leaking into a render.
func NormalizeVars(raw map[string]any) (Vars, error) {
	vars := make(Vars, len(raw))
	for k, val := range raw {
		switch tv := val.(type) {
		case nil:
			vars[k] = ""
		case string:
			vars[k] = tv
		case bool:
			vars[k] = strconv.FormatBool(tv)
		case float64:
			vars[k] = strconv.FormatFloat(tv, 'f', -1, 64)
		default:
			return nil, fmt.Errorf("variable %q has non-scalar value of type %T", k, val)
		}
	}
	return vars, nil
}
