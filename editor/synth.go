package editor

import (
	"strings"

	"github.com/stencilworks/redline/domtext"
)

// SynthesizeRecords builds tag-keyed correction records from
// caller-supplied edits by bare substring containment per node, with no
// context verification. One edit can match several unrelated nodes that
// share the same phrase and will then be applied in each of them; callers
// wanting context-scoped, first-global-match discipline use the
// context-scan applicator instead.
func SynthesizeRecords(tree *domtext.Tree, edits []ProposedEdit) []CorrectionRecord {
	var records []CorrectionRecord
	for _, node := range tree.Nodes() {
		var changes []ProposedEdit
		for _, e := range edits {
			if e.Find != "" && strings.Contains(node.Text, e.Find) {
				changes = append(changes, e)
			}
		}
		if len(changes) > 0 {
			records = append(records, CorrectionRecord{
				ID:       node.ID,
				Tag:      node.Tag,
				Original: node.Text,
				Changes:  changes,
			})
		}
	}
	return records
}
