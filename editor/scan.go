package editor

import (
	"fmt"
	"strings"

	"github.com/stencilworks/redline/domtext"
)

// NewContextScan returns the context-scan applicator. Each edit carries
// its own before/after context; nodes are scanned in extraction order and
// the first one passing a loose containment test in both directions wins.
// This mode does not support multiple occurrences of the same edit.
func NewContextScan(cfg Config, edits []ProposedEdit) Applicator {
	cfg.defaults()
	return &scanApplicator{cfg: cfg, edits: edits}
}

type scanApplicator struct {
	cfg   Config
	edits []ProposedEdit
}

func (s *scanApplicator) Apply(tree *domtext.Tree) (*ApplicationResult, error) {
	var applied []AppliedEdit
	var failed []FailedEdit

	for _, edit := range s.edits {
		a, f := s.evalEdit(tree, edit)
		if a != nil {
			applied = append(applied, *a)
		}
		if f != nil {
			failed = append(failed, *f)
		}
	}

	return finalize(tree, applied, failed)
}

func (s *scanApplicator) evalEdit(tree *domtext.Tree, edit ProposedEdit) (*AppliedEdit, *FailedEdit) {
	if edit.Find == "" {
		return nil, &FailedEdit{ProposedEdit: edit, Status: StatusSkipped, Error: "edit has no find text"}
	}
	if edit.Find == edit.Replace {
		return nil, &FailedEdit{ProposedEdit: edit, Status: StatusAlreadyCorrect, Error: "text already matches the proposed replacement"}
	}

	sawText := false
	for _, node := range tree.Nodes() {
		current := node.Live()
		idx := strings.Index(current, edit.Find)
		if idx < 0 {
			continue
		}
		sawText = true

		end := idx + len(edit.Find)
		before := current[runeFloor(current, max(0, idx-s.cfg.ContextRadius)):idx]
		after := current[end:runeCeil(current, min(len(current), end+s.cfg.ContextRadius))]
		if !looseMatch(edit.BeforeContext, before) || !looseMatch(edit.AfterContext, after) {
			continue
		}

		if s.cfg.protectedTag(node.Tag) {
			return nil, &FailedEdit{ProposedEdit: edit, Status: StatusBlocked, Error: fmt.Sprintf("text inside <%s> is protected", node.Tag)}
		}
		if overlapsMergeTag(current, idx, end) {
			return nil, &FailedEdit{ProposedEdit: edit, Status: StatusBlocked, Error: "match overlaps merge-tag syntax"}
		}

		sentence, hs, he := snippet(current, idx, len(edit.Find), s.cfg.SnippetRadius)
		tree.SetText(node, current[:idx]+plainText(edit.Replace)+current[end:])

		// First global match wins; stop scanning further nodes.
		return &AppliedEdit{
			ProposedEdit:   edit,
			Status:         StatusApplied,
			FullSentence:   sentence,
			HighlightStart: hs,
			HighlightEnd:   he,
		}, nil
	}

	if sawText {
		return nil, &FailedEdit{ProposedEdit: edit, Status: StatusContextMismatch, Error: "text found but its surrounding context does not match"}
	}
	if strings.Contains(tree.VisibleText(), edit.Find) {
		return nil, &FailedEdit{ProposedEdit: edit, Status: StatusBoundaryIssue, Error: "text spans across element boundaries or cannot be safely modified"}
	}
	return nil, &FailedEdit{ProposedEdit: edit, Status: StatusNotFound, Error: "text not found in document"}
}

// looseMatch accepts when either string contains the other, tolerating a
// recorded context slightly shorter or longer than the actual text. An
// empty recorded context always passes.
func looseMatch(recorded, actual string) bool {
	if recorded == "" {
		return true
	}
	return strings.Contains(actual, recorded) || strings.Contains(recorded, actual)
}
