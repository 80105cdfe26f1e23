package plugin

import (
	"context"
	"log/slog"

	"publisher/internal/faults"
	"publisher/internal/logging"
	"publisher/internal/tree"
)

// PostPhaseInstance wraps the hook consulted after each phase. Members the
// hook lacks are treated as abstaining observers.
type PostPhaseInstance struct {
	path   string
	logger *slog.Logger

	validate PostValidator
	publish  PostPublisher
	finalize PostFinalizer
}

func NewPostPhaseInstance(path string, hook any, logger *slog.Logger) (*PostPhaseInstance, error) {
	if hook == nil {
		return nil, faults.Wrap(faults.ErrConfiguration, "post_phase", path, "hook did not load", nil)
	}
	p := &PostPhaseInstance{
		path:   path,
		logger: logging.NewComponentLogger(logger, "post_phase").With(logging.String(logging.FieldHook, path)),
	}
	p.validate, _ = capability[PostValidator](hook, MemberPostValidate)
	p.publish, _ = capability[PostPublisher](hook, MemberPostPublish)
	p.finalize, _ = capability[PostFinalizer](hook, MemberPostFinalize)
	return p, nil
}

func (p *PostPhaseInstance) Path() string { return p.path }

// PostValidate hands the failures, grouped by item, to the hook.
func (p *PostPhaseInstance) PostValidate(ctx context.Context, t *tree.Tree, failed []ItemFailures) (Verdict, error) {
	if p.validate == nil {
		return Abstain, nil
	}
	var verdict Verdict
	err := guard(p.path, MemberPostValidate, func() error {
		var err error
		verdict, err = p.validate.PostValidate(ctx, t, failed)
		return err
	})
	if err != nil {
		logging.WithContext(ctx, p.logger).Error("post_validate failed", logging.Error(err))
		return Abstain, err
	}
	return verdict, nil
}

func (p *PostPhaseInstance) PostPublish(ctx context.Context, t *tree.Tree) error {
	if p.publish == nil {
		return nil
	}
	err := guard(p.path, MemberPostPublish, func() error { return p.publish.PostPublish(ctx, t) })
	if err != nil {
		logging.WithContext(ctx, p.logger).Error("post_publish failed", logging.Error(err))
	}
	return err
}

func (p *PostPhaseInstance) PostFinalize(ctx context.Context, t *tree.Tree) error {
	if p.finalize == nil {
		return nil
	}
	err := guard(p.path, MemberPostFinalize, func() error { return p.finalize.PostFinalize(ctx, t) })
	if err != nil {
		logging.WithContext(ctx, p.logger).Error("post_finalize failed", logging.Error(err))
	}
	return err
}
