package builtin

import "publisher/internal/hooks"

// Names the hooks register under.
const (
	CollectorName     = "basic_collector"
	PublishFileName   = "publish_file"
	UploadVersionName = "upload_version"
	PostPhaseName     = "post_phase"
)

// Register makes every builtin hook loadable through loader.
func Register(loader *hooks.Loader) {
	loader.Register(CollectorName, func(env hooks.Env) any { return NewCollector(env) })
	loader.Register(PublishFileName, func(env hooks.Env) any { return NewPublishFile(env) })
	loader.Register(UploadVersionName, func(env hooks.Env) any { return NewUploadVersion(env) })
	loader.Register(PostPhaseName, func(env hooks.Env) any { return NewPostPhase(env) })
}
