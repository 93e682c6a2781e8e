// Package pipeline orchestrates one repository change event end to end:
// incremental knowledge base update, context retrieval, documentation
// drafting, and the docs pull request.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/halcyonlabs/docsentry/internal/config"
	"github.com/halcyonlabs/docsentry/internal/generation"
	"github.com/halcyonlabs/docsentry/internal/ingest"
	"github.com/halcyonlabs/docsentry/internal/knowledge"
	"github.com/halcyonlabs/docsentry/internal/logging"
	"github.com/halcyonlabs/docsentry/internal/metrics"
)

// DocsClient is the documentation-repository boundary consumed by the
// pipeline. Implemented by gh.Client.
type DocsClient interface {
	ListDocPages(ctx context.Context) ([]string, error)
	GetPageContent(ctx context.Context, path string) (string, error)
	OpenDocsPR(ctx context.Context, branch, title, body string, pages map[string]string) (string, error)
}

// Event describes one repository change delivery.
type Event struct {
	// Ref is the pushed ref (e.g. "refs/heads/main").
	Ref string

	// HeadSHA identifies the head commit, used for idempotent branch names.
	HeadSHA string

	// Paths are the repository-relative changed file paths.
	Paths []string
}

// Pipeline processes change events sequentially: one delivery runs to
// completion before the next mutates the knowledge base.
type Pipeline struct {
	mu sync.Mutex

	store     *knowledge.Store
	ingestor  *ingest.Ingestor
	retriever *knowledge.Retriever
	generator generation.Generator
	docs      DocsClient

	repoPath     string
	snapshotPath string
	topK         int

	logger *logging.Logger
}

// New wires a pipeline from its collaborators.
func New(
	store *knowledge.Store,
	ingestor *ingest.Ingestor,
	retriever *knowledge.Retriever,
	generator generation.Generator,
	docs DocsClient,
	cfg *config.Config,
	logger *logging.Logger,
) *Pipeline {
	return &Pipeline{
		store:        store,
		ingestor:     ingestor,
		retriever:    retriever,
		generator:    generator,
		docs:         docs,
		repoPath:     cfg.Repo.Path,
		snapshotPath: cfg.Knowledge.SnapshotPath,
		topK:         cfg.Knowledge.TopK,
		logger:       logger.Named("pipeline"),
	}
}

// Bootstrap initializes the knowledge base: restore the persisted snapshot
// when one exists, otherwise run a full ingestion pass and persist it.
func (p *Pipeline) Bootstrap(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.store.Restore(p.snapshotPath)
	if err == nil {
		return nil
	}
	if !errors.Is(err, knowledge.ErrSnapshotNotFound) {
		p.logger.Warn(ctx, "snapshot unusable, rebuilding from repository", zap.Error(err))
	}

	stats, err := p.ingestor.Ingest(ctx, p.repoPath)
	if err != nil {
		return fmt.Errorf("bootstrap ingest: %w", err)
	}
	p.logger.Info(ctx, "knowledge base built",
		zap.Int("files", stats.Files),
		zap.Int("chunks", stats.Chunks),
		zap.Int("errors", stats.Errors))

	return p.store.Persist(p.snapshotPath)
}

// Reindex rebuilds the knowledge base from scratch and persists the result.
// Used by the scheduler as a staleness backstop: it is the one place stale
// chunks from deleted or rewritten files actually leave the store.
func (p *Pipeline) Reindex(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.store.Reset()
	stats, err := p.ingestor.Ingest(ctx, p.repoPath)
	if err != nil {
		return fmt.Errorf("reindex: %w", err)
	}
	p.logger.Info(ctx, "scheduled reindex complete",
		zap.Int("files", stats.Files),
		zap.Int("chunks", stats.Chunks))
	return p.store.Persist(p.snapshotPath)
}

// HandleEvent processes one change event: refresh the knowledge base, then
// draft and open a docs pull request for affected pages. Drafting failures
// degrade to log output; the knowledge base update is still kept.
func (p *Pipeline) HandleEvent(ctx context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(event.Paths) == 0 {
		p.logger.Debug(ctx, "event carried no changed paths")
		return nil
	}

	updated, err := p.ingestor.Update(ctx, p.repoPath, event.Paths)
	if err != nil {
		return fmt.Errorf("incremental update: %w", err)
	}
	if updated {
		if err := p.store.Persist(p.snapshotPath); err != nil {
			p.logger.Error(ctx, "persisting snapshot failed", zap.Error(err))
		}
	}

	if err := p.updateDocs(ctx, event); err != nil {
		p.logger.Error(ctx, "documentation update failed", zap.Error(err))
		return err
	}
	return nil
}

// UpdatePaths refreshes the knowledge base for changed paths without the
// documentation drafting step. Used by the local watch mode.
func (p *Pipeline) UpdatePaths(ctx context.Context, paths []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	updated, err := p.ingestor.Update(ctx, p.repoPath, paths)
	if err != nil {
		return err
	}
	if updated {
		return p.store.Persist(p.snapshotPath)
	}
	return nil
}

// updateDocs runs the drafting half of the pipeline for one event.
func (p *Pipeline) updateDocs(ctx context.Context, event Event) error {
	codeContext, err := p.retriever.Retrieve(ctx, strings.Join(event.Paths, " "), p.topK, knowledge.TypeCode)
	if err != nil {
		return fmt.Errorf("retrieving context: %w", err)
	}
	if codeContext == knowledge.NoKnowledgeBase {
		codeContext = ""
	}

	docPages, err := p.docs.ListDocPages(ctx)
	if err != nil {
		return fmt.Errorf("listing doc pages: %w", err)
	}
	if len(docPages) == 0 {
		p.logger.Info(ctx, "docs repository has no pages, nothing to update")
		return nil
	}

	system, prompt := generation.BuildSelectPagesPrompt(event.Paths, docPages, codeContext)
	response, err := p.generator.Complete(ctx, system, prompt)
	if err != nil {
		return fmt.Errorf("selecting affected pages: %w", err)
	}

	affected := generation.ParseSelectedPages(response, docPages)
	if len(affected) == 0 {
		p.logger.Info(ctx, "no documentation pages affected",
			zap.Int("changed_files", len(event.Paths)))
		return nil
	}

	drafts := make(map[string]string, len(affected))
	for _, page := range affected {
		current, err := p.docs.GetPageContent(ctx, page)
		if err != nil {
			p.logger.Warn(ctx, "skipping unreadable page",
				zap.String("page", page), zap.Error(err))
			continue
		}

		system, prompt := generation.BuildDraftPagePrompt(page, current, event.Paths, codeContext)
		draft, err := p.generator.Complete(ctx, system, prompt)
		if err != nil {
			p.logger.Warn(ctx, "skipping page after drafting failure",
				zap.String("page", page), zap.Error(err))
			continue
		}
		if strings.TrimSpace(draft) == "" || draft == current {
			continue
		}
		drafts[page] = draft
	}
	if len(drafts) == 0 {
		p.logger.Info(ctx, "no drafts produced, skipping pull request")
		return nil
	}

	branch := prBranchName(event.HeadSHA)
	title := fmt.Sprintf("docs: sync with source changes (%s)", shortSHA(event.HeadSHA))
	body := prBody(event, drafts)

	url, err := p.docs.OpenDocsPR(ctx, branch, title, body, drafts)
	if err != nil {
		return fmt.Errorf("opening docs PR: %w", err)
	}
	metrics.DocPRsOpened.Inc()
	p.logger.Info(ctx, "documentation pull request opened",
		zap.String("url", url),
		zap.Int("pages", len(drafts)))
	return nil
}

func prBranchName(headSHA string) string {
	return "docsentry/update-" + shortSHA(headSHA)
}

func shortSHA(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	if sha == "" {
		return "manual"
	}
	return sha
}

func prBody(event Event, drafts map[string]string) string {
	var b strings.Builder
	b.WriteString("Automated documentation update for source changes.\n\nChanged source files:\n")
	for _, p := range event.Paths {
		fmt.Fprintf(&b, "- `%s`\n", p)
	}
	b.WriteString("\nUpdated pages:\n")
	for page := range drafts {
		fmt.Fprintf(&b, "- `%s`\n", page)
	}
	return b.String()
}
