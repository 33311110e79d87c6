package convoskills

import (
	"golang.org/x/text/cases"

	"github.com/convodesk/convoskills-go/spec"
)

// MatchOption tests a normalized input against an option list: it matches
// an entry when it equals the entry's value exactly, or the entry's label
// case-insensitively. First match wins; no match means the input is
// invalid for the slot.
func MatchOption(options []spec.EntityOption, normalized string) (spec.EntityOption, bool) {
	fold := cases.Fold()
	folded := fold.String(normalized)
	for _, opt := range options {
		if normalized == opt.Value || folded == fold.String(opt.Label) {
			return opt, true
		}
	}
	return spec.EntityOption{}, false
}
