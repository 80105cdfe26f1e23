package builtin

import (
	"context"
	"log/slog"

	"publisher/internal/hooks"
	"publisher/internal/logging"
	"publisher/internal/plugin"
	"publisher/internal/tree"
)

// PostPhase logs a summary after each phase. It never vetoes validation.
type PostPhase struct {
	logger *slog.Logger
}

var (
	_ plugin.PostValidator = (*PostPhase)(nil)
	_ plugin.PostPublisher = (*PostPhase)(nil)
	_ plugin.PostFinalizer = (*PostPhase)(nil)
)

func NewPostPhase(env hooks.Env) *PostPhase {
	return &PostPhase{logger: logging.NewComponentLogger(env.Logger, PostPhaseName)}
}

func (p *PostPhase) PostValidate(ctx context.Context, _ *tree.Tree, failed []plugin.ItemFailures) (plugin.Verdict, error) {
	logger := logging.WithContext(ctx, p.logger)
	if len(failed) == 0 {
		logger.Info("validation passed")
		return plugin.Abstain, nil
	}
	for _, group := range failed {
		for _, f := range group.Failures {
			attrs := []logging.Attr{
				logging.String(logging.FieldItem, group.Item.Name()),
				logging.String(logging.FieldTask, f.Task.Name()),
			}
			if f.Err != nil {
				attrs = append(attrs, logging.Error(f.Err))
			}
			logger.Warn("validation failed", logging.Args(attrs...)...)
		}
	}
	logger.Warn("validation summary", logging.Int("failed_items", len(failed)))
	return plugin.Abstain, nil
}

func (p *PostPhase) PostPublish(ctx context.Context, t *tree.Tree) error {
	published := 0
	for item := range t.All() {
		if item.Properties().Has(PublishDataKey) {
			published++
		}
	}
	logging.WithContext(ctx, p.logger).Info("publish phase complete", logging.Int("published_items", published))
	return nil
}

func (p *PostPhase) PostFinalize(ctx context.Context, t *tree.Tree) error {
	tasks := 0
	for range t.Tasks() {
		tasks++
	}
	logging.WithContext(ctx, p.logger).Info("finalize phase complete",
		logging.Int("items", t.Len()),
		logging.Int("tasks", tasks),
	)
	return nil
}
