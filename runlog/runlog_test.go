package runlog

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stencilworks/redline/editor"
)

func openTestDB(t *testing.T) *Store {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	s := NewStore(db, nil)
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestNewRunID(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	if !strings.HasPrefix(a, "run_") {
		t.Errorf("id = %q", a)
	}
	if a == b {
		t.Error("ids must be unique")
	}
}

func TestLogAndFetchRun(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()

	res := &editor.ApplicationResult{
		HTML: "<p>fixed</p>",
		AppliedEdits: []editor.AppliedEdit{{
			ProposedEdit: editor.ProposedEdit{Find: "teh", Replace: "the"},
			Status:       editor.StatusApplied,
			FullSentence: "a teh test",
		}},
		FailedEdits: []editor.FailedEdit{{
			ProposedEdit: editor.ProposedEdit{Find: "ghost", Replace: "x"},
			Status:       editor.StatusNotFound,
			Error:        "word not found in text",
		}},
		Stats: editor.Stats{Total: 2, Applied: 1, Failed: 1},
	}

	id := NewRunID()
	s.LogRun(ctx, RunRecord{
		RunID:     id,
		Mode:      "keyed",
		HTMLBytes: len(res.HTML),
		Duration:  42 * time.Millisecond,
	}, res)

	rec, err := s.Run(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Mode != "keyed" || rec.Stats.Total != 2 || rec.Stats.Applied != 1 {
		t.Errorf("record = %+v", rec)
	}
	if len(rec.Outcomes) != 2 {
		t.Fatalf("outcomes = %+v", rec.Outcomes)
	}
	if rec.Outcomes[0].Status != "applied" || rec.Outcomes[0].Snippet != "a teh test" {
		t.Errorf("outcome 0 = %+v", rec.Outcomes[0])
	}
	if rec.Outcomes[1].Status != "not_found" || rec.Outcomes[1].Error == "" {
		t.Errorf("outcome 1 = %+v", rec.Outcomes[1])
	}
}

func TestRunNotFound(t *testing.T) {
	s := openTestDB(t)
	_, err := s.Run(context.Background(), "run_missing")
	if !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("err = %v", err)
	}
	// The package sentinel must not leak database/sql semantics.
	if errors.Is(err, sql.ErrNoRows) {
		t.Error("ErrRunNotFound must be distinct from sql.ErrNoRows")
	}
}

func TestIdeasDedup(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "ideas.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	ideas := NewIdeas(db)
	if err := ideas.Init(); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	seen, err := ideas.Seen(ctx, "tmpl-1", "shorter subject")
	if err != nil || seen {
		t.Fatalf("seen = %v, err = %v", seen, err)
	}

	if err := ideas.Mark(ctx, "tmpl-1", "shorter subject"); err != nil {
		t.Fatal(err)
	}
	if err := ideas.Mark(ctx, "tmpl-1", "shorter subject"); err != nil {
		t.Fatalf("double mark: %v", err)
	}

	seen, err = ideas.Seen(ctx, "tmpl-1", "shorter subject")
	if err != nil || !seen {
		t.Fatalf("seen = %v, err = %v", seen, err)
	}

	// Scoping: same idea under a different key is unseen.
	seen, err = ideas.Seen(ctx, "tmpl-2", "shorter subject")
	if err != nil || seen {
		t.Fatalf("cross-key seen = %v, err = %v", seen, err)
	}
}
