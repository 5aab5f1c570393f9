// Package resolver builds the effective variable mapping for a render or
// preview call: the persisted venue record merged with caller-supplied
// overrides, then topped up with schema-declared defaults.
//
// The merge is right-biased and shallow — on a key collision the override
// wins, and overrides may introduce keys the venue record never had. Schema
// defaults are a separate, later step so that merging with no overrides is
// exactly the venue record. No coercion or required-field enforcement happens
// here: the schema is advisory metadata for the editing UI, and a render must
// never fail because a schema changed after a venue record was saved.
package resolver

import "github.com/venuehub/mailforge/internal/models"

// Resolve merges the venue record with overrides into a fresh mapping. Both
// inputs are left untouched; a nil venue behaves as an empty record.
func Resolve(venue, overrides models.Vars) models.Vars {
	return venue.Merge(overrides)
}

// ApplyDefaults returns vars with schema field defaults filled in for keys
// the mapping does not carry at all. Present keys keep their value even when
// empty: an editor clearing a field is an explicit choice, not an absence.
// A nil schema is a no-op.
func ApplyDefaults(schema *models.Schema, vars models.Vars) models.Vars {
	if schema == nil {
		return vars
	}

	out := vars.Clone()
	for _, field := range schema.Fields {
		if field.Default == "" {
			continue
		}
		if _, ok := out[field.Key]; !ok {
			out[field.Key] = field.Default
		}
	}
	return out
}
