// Package service exposes the edit application engine over HTTP and MCP.
//
// Two call sites consume the engine: the grammar-check endpoint runs the
// full extract → propose → apply pipeline against the external
// collaborator, the variant endpoints apply caller-supplied edits
// directly. Both receive the same ApplicationResult contract and every
// run is audited to the runlog store.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"

	"github.com/stencilworks/redline/domtext"
	"github.com/stencilworks/redline/editor"
	"github.com/stencilworks/redline/proposal"
	"github.com/stencilworks/redline/runlog"
)

// ErrNoProposer is returned when grammar checking is requested but no
// proposal collaborator is configured.
var ErrNoProposer = errors.New("proposal collaborator not configured")

// Service wires the engine, the proposal collaborator and the audit store.
type Service struct {
	cfg      Config
	logger   *slog.Logger
	store    *runlog.Store
	ideas    *runlog.Ideas
	proposer proposal.Proposer
	md       *converter.Converter
}

// New creates the service and initializes its store schemas. proposer may
// be nil; grammar checking then fails with ErrNoProposer while the direct
// apply paths keep working.
func New(cfg Config, db *sql.DB, proposer proposal.Proposer, logger *slog.Logger) (*Service, error) {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}

	store := runlog.NewStore(db, logger)
	if err := store.Init(); err != nil {
		return nil, fmt.Errorf("init run store: %w", err)
	}
	ideas := runlog.NewIdeas(db)
	if err := ideas.Init(); err != nil {
		return nil, fmt.Errorf("init ideas store: %w", err)
	}

	return &Service{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		ideas:    ideas,
		proposer: proposer,
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}, nil
}

// CheckGrammar runs the full pipeline: extract text nodes, fan out to the
// proposal collaborator in chunks, apply the returned corrections in
// tag-keyed mode. Returns the result and the audit run ID.
func (s *Service) CheckGrammar(ctx context.Context, html string) (*editor.ApplicationResult, string, error) {
	if s.proposer == nil {
		return nil, "", ErrNoProposer
	}
	tree, err := domtext.ParseString(html)
	if err != nil {
		return nil, "", err
	}

	start := time.Now()
	nodes := nodeTexts(tree)
	records := proposal.Dispatch(ctx, s.proposer, nodes, s.cfg.ChunkSize, s.logger)

	res, err := editor.NewKeyed(s.cfg.Editor, records).Apply(tree)
	if err != nil {
		return nil, "", err
	}
	runID := s.audit(ctx, "grammar_check", html, res, start)
	return res, runID, nil
}

// ApplyEdits applies caller-supplied edits directly. Strategy "keyed"
// (the default) synthesizes per-node corrections by containment and may
// apply one edit in several nodes; "context" scans for the first
// context-verified match.
func (s *Service) ApplyEdits(ctx context.Context, html string, edits []editor.ProposedEdit, strategy string) (*editor.ApplicationResult, string, error) {
	tree, err := domtext.ParseString(html)
	if err != nil {
		return nil, "", err
	}

	start := time.Now()
	var app editor.Applicator
	switch strategy {
	case "", "keyed":
		strategy = "keyed"
		app = editor.NewKeyed(s.cfg.Editor, editor.SynthesizeRecords(tree, edits))
	case "context":
		app = editor.NewContextScan(s.cfg.Editor, edits)
	default:
		return nil, "", fmt.Errorf("unknown strategy %q", strategy)
	}

	res, err := app.Apply(tree)
	if err != nil {
		return nil, "", err
	}
	runID := s.audit(ctx, strategy, html, res, start)
	return res, runID, nil
}

// ApplyVariants is the SEO-variant call site: tag-keyed application of
// caller edits with used-idea dedup across rounds, scoped by key.
func (s *Service) ApplyVariants(ctx context.Context, html, key string, edits []editor.ProposedEdit) (*editor.ApplicationResult, string, error) {
	tree, err := domtext.ParseString(html)
	if err != nil {
		return nil, "", err
	}

	start := time.Now()
	var fresh []editor.ProposedEdit
	var dropped []editor.FailedEdit
	for _, e := range edits {
		if e.Idea != "" {
			seen, err := s.ideas.Seen(ctx, key, e.Idea)
			if err != nil {
				return nil, "", err
			}
			if seen {
				dropped = append(dropped, editor.FailedEdit{
					ProposedEdit: e,
					Status:       editor.StatusSkipped,
					Error:        "idea already used in an earlier variant round",
				})
				continue
			}
		}
		fresh = append(fresh, e)
	}

	res, err := editor.NewKeyed(s.cfg.Editor, editor.SynthesizeRecords(tree, fresh)).Apply(tree)
	if err != nil {
		return nil, "", err
	}

	res.FailedEdits = append(res.FailedEdits, dropped...)
	res.Stats = editor.Stats{
		Total:   len(res.AppliedEdits) + len(res.FailedEdits),
		Applied: len(res.AppliedEdits),
		Failed:  len(res.FailedEdits),
	}

	for _, a := range res.AppliedEdits {
		if a.Idea == "" {
			continue
		}
		if err := s.ideas.Mark(ctx, key, a.Idea); err != nil {
			s.logger.Error("mark idea failed", "key", key, "idea", a.Idea, "error", err)
		}
	}

	runID := s.audit(ctx, "variants", html, res, start)
	return res, runID, nil
}

// Run retrieves an audited run.
func (s *Service) Run(ctx context.Context, runID string) (*runlog.RunRecord, error) {
	return s.store.Run(ctx, runID)
}

// Markdown renders a plain-text preview of an HTML document for UI
// display. Conversion problems degrade to an empty preview.
func (s *Service) Markdown(html string) string {
	out, err := s.md.ConvertString(html)
	if err != nil {
		s.logger.Warn("markdown preview failed", "error", err)
		return ""
	}
	return out
}

func (s *Service) audit(ctx context.Context, mode, html string, res *editor.ApplicationResult, start time.Time) string {
	runID := runlog.NewRunID()
	s.store.LogRun(ctx, runlog.RunRecord{
		RunID:     runID,
		Mode:      mode,
		HTMLBytes: len(html),
		Duration:  time.Since(start),
	}, res)
	return runID
}

func nodeTexts(tree *domtext.Tree) []proposal.NodeText {
	nodes := tree.Nodes()
	out := make([]proposal.NodeText, len(nodes))
	for i, n := range nodes {
		out[i] = proposal.NodeText{ID: n.ID, Tag: n.Tag, Text: n.Text}
	}
	return out
}
