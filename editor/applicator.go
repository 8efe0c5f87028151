package editor

import (
	"github.com/stencilworks/redline/domtext"
)

// Applicator is one matching strategy over a parsed document. Apply
// evaluates every edit independently, mutates matched nodes in place and
// returns a fully populated result; per-edit problems degrade to
// FailedEdits and never abort the run. The only error surface is
// re-serialization of the tree.
type Applicator interface {
	Apply(tree *domtext.Tree) (*ApplicationResult, error)
}

// finalize serializes the mutated tree and assembles the result contract.
func finalize(tree *domtext.Tree, applied []AppliedEdit, failed []FailedEdit) (*ApplicationResult, error) {
	out, err := tree.Render()
	if err != nil {
		return nil, err
	}
	if applied == nil {
		applied = []AppliedEdit{}
	}
	if failed == nil {
		failed = []FailedEdit{}
	}
	return &ApplicationResult{
		HTML:         out,
		AppliedEdits: applied,
		FailedEdits:  failed,
		Stats: Stats{
			Total:   len(applied) + len(failed),
			Applied: len(applied),
			Failed:  len(failed),
		},
	}, nil
}
