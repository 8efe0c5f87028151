// Package editor applies proposed textual edits to a parsed HTML document.
//
// Two matching strategies implement the same Applicator contract: the
// tag-keyed applicator correlates pre-grouped corrections to nodes by ID,
// the context-scan applicator locates each edit by its recorded
// surrounding text. Both classify every edit independently, never abort a
// run on a per-edit problem, and mutate the document through the owning
// domtext.Tree so markup structure is never touched.
package editor

// Status classifies the outcome of one proposed edit.
type Status string

const (
	StatusApplied         Status = "applied"
	StatusNotFound        Status = "not_found"
	StatusContextMismatch Status = "context_mismatch"
	StatusBoundaryIssue   Status = "boundary_issue"
	StatusBlocked         Status = "blocked"
	StatusSkipped         Status = "skipped"
	StatusAlreadyCorrect  Status = "already_correct"
)

// ProposedEdit is one candidate find/replace pair. Immutable input;
// Find must be non-empty, Find == Replace is tolerated.
type ProposedEdit struct {
	Find          string `json:"find"`
	Replace       string `json:"replace"`
	BeforeContext string `json:"before_context,omitempty"`
	AfterContext  string `json:"after_context,omitempty"`
	Reason        string `json:"reason,omitempty"`
	ChangeType    string `json:"changeType,omitempty"`
	Idea          string `json:"idea,omitempty"`
}

// CorrectionRecord groups the proposed changes for one text node,
// correlated by the node's extraction ID. Nodes without issues have no
// record.
type CorrectionRecord struct {
	ID        int            `json:"id"`
	Tag       string         `json:"tag,omitempty"`
	Original  string         `json:"original,omitempty"`
	Corrected string         `json:"corrected,omitempty"`
	Changes   []ProposedEdit `json:"changes"`
}

// AppliedEdit records one successfully applied change together with a
// context snippet captured before mutation. FullSentence[HighlightStart:
// HighlightEnd] reproduces the error text as it appeared before the
// correction.
type AppliedEdit struct {
	ProposedEdit
	Status         Status `json:"status"`
	FullSentence   string `json:"fullSentence"`
	HighlightStart int    `json:"highlightStart"`
	HighlightEnd   int    `json:"highlightEnd"`
}

// FailedEdit records one rejected change with a non-empty explanation.
type FailedEdit struct {
	ProposedEdit
	Status Status `json:"status"`
	Error  string `json:"error"`
}

// Stats summarizes a run. Total always equals Applied + Failed.
type Stats struct {
	Total   int `json:"total"`
	Applied int `json:"applied"`
	Failed  int `json:"failed"`
}

// ApplicationResult is the contract consumed by both call sites.
type ApplicationResult struct {
	HTML         string        `json:"html"`
	AppliedEdits []AppliedEdit `json:"appliedEdits"`
	FailedEdits  []FailedEdit  `json:"failedEdits"`
	Stats        Stats         `json:"stats"`
}
