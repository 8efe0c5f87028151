package editor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/stencilworks/redline/domtext"
)

// NewKeyed returns the tag-keyed applicator. Corrections are correlated
// to text nodes by extraction ID; all changes for one node are folded
// into a single accumulator and written back with one DOM mutation.
func NewKeyed(cfg Config, records []CorrectionRecord) Applicator {
	cfg.defaults()
	return &keyedApplicator{cfg: cfg, records: records}
}

type keyedApplicator struct {
	cfg     Config
	records []CorrectionRecord
}

func (k *keyedApplicator) Apply(tree *domtext.Tree) (*ApplicationResult, error) {
	byID := make(map[int]CorrectionRecord, len(k.records))
	for _, rec := range k.records {
		if prev, ok := byID[rec.ID]; ok {
			prev.Changes = append(prev.Changes, rec.Changes...)
			byID[rec.ID] = prev
			continue
		}
		byID[rec.ID] = rec
	}

	var applied []AppliedEdit
	var failed []FailedEdit
	visited := make(map[int]bool, len(byID))

	for _, node := range tree.Nodes() {
		rec, ok := byID[node.ID]
		if !ok {
			continue
		}
		visited[node.ID] = true
		if len(rec.Changes) == 0 {
			continue
		}

		// The live value is authoritative, not the extraction-time
		// snapshot. One accumulator per node across all its changes.
		current := node.Live()
		original := current
		for _, ch := range rec.Changes {
			mutated, a, f := k.evalChange(current, ch, node.Tag)
			current = mutated
			if a != nil {
				applied = append(applied, *a)
			}
			if f != nil {
				failed = append(failed, *f)
			}
		}
		if current != original {
			tree.SetText(node, current)
		}
	}

	// Records whose ID matches no extracted node still count as
	// attempted edits.
	var stale []int
	for id := range byID {
		if !visited[id] {
			stale = append(stale, id)
		}
	}
	sort.Ints(stale)
	for _, id := range stale {
		for _, ch := range byID[id].Changes {
			failed = append(failed, FailedEdit{
				ProposedEdit: ch,
				Status:       StatusSkipped,
				Error:        fmt.Sprintf("no text node with id %d", id),
			})
		}
	}

	return finalize(tree, applied, failed)
}

// evalChange evaluates one change against the accumulated text. It
// returns the (possibly mutated) text plus exactly one of an applied or a
// failed record.
func (k *keyedApplicator) evalChange(current string, ch ProposedEdit, tag string) (string, *AppliedEdit, *FailedEdit) {
	if ch.Find == "" {
		return current, nil, &FailedEdit{ProposedEdit: ch, Status: StatusSkipped, Error: "edit has no find text"}
	}
	if ch.Find == ch.Replace {
		return current, nil, &FailedEdit{ProposedEdit: ch, Status: StatusAlreadyCorrect, Error: "text already matches the proposed replacement"}
	}

	idx := strings.Index(current, ch.Find)
	if idx < 0 {
		return current, nil, &FailedEdit{ProposedEdit: ch, Status: StatusNotFound, Error: "word not found in text"}
	}

	if k.cfg.protectedTag(tag) {
		return current, nil, &FailedEdit{ProposedEdit: ch, Status: StatusBlocked, Error: fmt.Sprintf("text inside <%s> is protected", tag)}
	}
	if overlapsMergeTag(current, idx, idx+len(ch.Find)) {
		return current, nil, &FailedEdit{ProposedEdit: ch, Status: StatusBlocked, Error: "match overlaps merge-tag syntax"}
	}

	// Snippet and offsets come from the pre-mutation text. Replacement is
	// first-occurrence only, so duplicate occurrences are fixed one run
	// at a time.
	sentence, hs, he := snippet(current, idx, len(ch.Find), k.cfg.SnippetRadius)
	mutated := current[:idx] + plainText(ch.Replace) + current[idx+len(ch.Find):]

	return mutated, &AppliedEdit{
		ProposedEdit:   ch,
		Status:         StatusApplied,
		FullSentence:   sentence,
		HighlightStart: hs,
		HighlightEnd:   he,
	}, nil
}
