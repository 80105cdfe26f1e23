package builtin

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"publisher/internal/config"
	"publisher/internal/faults"
	"publisher/internal/fileutil"
	"publisher/internal/hooks"
	"publisher/internal/logging"
	"publisher/internal/plugin"
	"publisher/internal/properties"
	"publisher/internal/schema"
	"publisher/internal/tracking"
	"publisher/internal/tree"
)

// PublishDataKey is the item property publish_file stores the registered
// publish under. Later tasks on the item read it to link their records.
const PublishDataKey = "publish_data"

const (
	settingFileTypes   = "File Types"
	settingPublishRoot = "Publish Root"
	settingOverwrite   = "Overwrite"
)

var defaultFileTypes = []any{
	[]any{"Alias File", "wire"},
	[]any{"Alembic Cache", "abc"},
	[]any{"3dsmax Scene", "max"},
	[]any{"NukeStudio Project", "hrox"},
	[]any{"Houdini Scene", "hip", "hipnc"},
	[]any{"Maya Scene", "ma", "mb"},
	[]any{"Motion Builder FBX", "fbx"},
	[]any{"Nuke Script", "nk"},
	[]any{"Photoshop Image", "psd", "psb"},
	[]any{"VRED Scene", "vpb", "vpe", "osb"},
	[]any{"Rendered Image", "dpx", "exr"},
	[]any{"Texture", "tiff", "tx", "tga", "dds"},
	[]any{"Image", "jpeg", "jpg", "png"},
	[]any{"Movie", "mov", "mp4"},
	[]any{"PDF", "pdf"},
}

// PublishFile copies an item's file into the publish root and registers it
// with tracking. Items may steer the publish through the publish_name,
// publish_type, publish_version, and publish_path properties; with no
// publish root configured the file is registered in place.
type PublishFile struct {
	cfg      *config.Config
	tracking tracking.Client
	logger   *slog.Logger
	title    cases.Caser
}

var (
	_ plugin.Accepter  = (*PublishFile)(nil)
	_ plugin.Validator = (*PublishFile)(nil)
	_ plugin.Publisher = (*PublishFile)(nil)
	_ plugin.Finalizer = (*PublishFile)(nil)
)

func NewPublishFile(env hooks.Env) *PublishFile {
	return &PublishFile{
		cfg:      env.Config,
		tracking: env.Tracking,
		logger:   logging.NewComponentLogger(env.Logger, PublishFileName),
		title:    cases.Title(language.English),
	}
}

func (p *PublishFile) Name() string { return "Publish to Tracking" }

func (p *PublishFile) Description() string {
	return "Copies the file into the publish area and registers a published file " +
		"in tracking. Version numbers in file names such as name.v001.ext are " +
		"kept; files without one get the next free version."
}

func (p *PublishFile) Icon() string { return iconPath("publish") }

func (p *PublishFile) ItemFilters() []string { return []string{"file.*"} }

func (p *PublishFile) SettingsSchema() (map[string]schema.Definition, error) {
	return map[string]schema.Definition{
		settingFileTypes: {
			Type:        schema.TypeList,
			Default:     defaultFileTypes,
			Description: "Published file types: each entry is the type name followed by its extensions.",
		},
		settingPublishRoot: {
			Type:        schema.TypeString,
			Default:     "",
			Description: "Destination root; empty uses paths.publish_root.",
		},
		settingOverwrite: {
			Type:        schema.TypeBool,
			Default:     false,
			Description: "Replace files already present at the destination.",
		},
	}, nil
}

func (p *PublishFile) Accept(ctx context.Context, _ schema.Settings, item *tree.Item) (plugin.Acceptance, error) {
	path, err := requirePath(item.Properties(), PublishFileName)
	if err != nil {
		return plugin.Reject(), err
	}
	logging.WithContext(ctx, p.logger).Debug("file publisher accepted item", logging.String("path", path))
	return plugin.Accept(), nil
}

// Validate checks that the source exists and the destination volume can
// hold it. Earlier publishes under the same name only produce a warning.
func (p *PublishFile) Validate(ctx context.Context, settings schema.Settings, item *tree.Item) (bool, error) {
	logger := p.itemLogger(ctx, item)
	props := viewFor(ctx, item)
	path, err := requirePath(props, PublishFileName)
	if err != nil {
		return false, err
	}
	sources, err := sourceFiles(props, path)
	if err != nil {
		return false, err
	}

	root := p.publishRoot(settings)
	if root != "" {
		var need int64
		for _, src := range sources {
			size, err := fileutil.Size(src)
			if err != nil {
				return false, faults.Wrap(faults.ErrValidation, PublishFileName, "validate", "measure source", err)
			}
			need += size
		}
		if err := fileutil.EnsureSpace(root, need); err != nil {
			return false, faults.Wrap(faults.ErrValidation, PublishFileName, "validate", "check free space", err)
		}
	}

	if p.tracking != nil {
		name := p.publishName(props, path)
		next, err := p.tracking.NextVersionNumber(ctx, entityName(item.Context().Project), name)
		if err != nil {
			return false, faults.Wrap(faults.ErrHook, PublishFileName, "validate", "query earlier publishes", err)
		}
		if next > 1 {
			logger.Warn("earlier publishes exist under this name",
				logging.String("publish_name", name),
				logging.Int("existing_versions", next-1),
			)
		}
	}
	logger.Info("publish will be registered", logging.String("path", path))
	return true, nil
}

// Publish copies the sources and registers the publish. The registered
// record lands in the item's global properties under PublishDataKey.
func (p *PublishFile) Publish(ctx context.Context, settings schema.Settings, item *tree.Item) error {
	if p.tracking == nil {
		return faults.Wrap(faults.ErrConfiguration, PublishFileName, "publish", "tracking is not configured", nil)
	}
	logger := p.itemLogger(ctx, item)
	props := viewFor(ctx, item)
	path, err := requirePath(props, PublishFileName)
	if err != nil {
		return err
	}
	sources, err := sourceFiles(props, path)
	if err != nil {
		return err
	}

	itemCtx := item.Context()
	project := entityName(itemCtx.Project)
	name := p.publishName(props, path)
	version, err := p.publishVersion(ctx, props, project, name, path)
	if err != nil {
		return err
	}

	publishPath := stringProp(props, "publish_path")
	if publishPath == "" {
		publishPath, err = p.copyToPublish(ctx, settings, item, path, sources, version)
		if err != nil {
			return err
		}
	}

	var user string
	if itemCtx.User != nil {
		user = itemCtx.User.Name
	}
	record, err := p.tracking.RegisterPublish(ctx, tracking.PublishedFile{
		Project:       project,
		EntityType:    entityType(itemCtx.Entity),
		EntityID:      entityID(itemCtx.Entity),
		Task:          entityName(itemCtx.Task),
		Name:          name,
		Path:          publishPath,
		FileType:      p.publishType(settings, props, path),
		VersionNumber: version,
		Comment:       item.Description(),
		User:          user,
	})
	if err != nil {
		return faults.Wrap(faults.ErrHook, PublishFileName, "publish", "register publish", err)
	}

	item.Properties().Set(PublishDataKey, map[string]any{
		"id":                  record.ID,
		"name":                record.Name,
		"path":                record.Path,
		"published_file_type": record.FileType,
		"version_number":      record.VersionNumber,
	})
	logger.Info("publish registered",
		logging.Int64("publish_id", record.ID),
		logging.String("publish_path", record.Path),
		logging.Int("version", record.VersionNumber),
	)
	return nil
}

func (p *PublishFile) Finalize(ctx context.Context, _ schema.Settings, item *tree.Item) error {
	raw, ok := item.Properties().Lookup(PublishDataKey)
	if !ok {
		return faults.Wrap(faults.ErrHook, PublishFileName, "finalize", "item was not published", nil)
	}
	data, _ := raw.(map[string]any)
	path, _ := data["path"].(string)
	p.itemLogger(ctx, item).Info("publish created", logging.String("publish_path", path))
	return nil
}

func (p *PublishFile) copyToPublish(ctx context.Context, settings schema.Settings, item *tree.Item, path string, sources []string, version int) (string, error) {
	root := p.publishRoot(settings)
	if root == "" {
		return path, nil
	}
	itemCtx := item.Context()
	dir := root
	for _, part := range []string{entityName(itemCtx.Project), entityName(itemCtx.Entity), entityName(itemCtx.Step)} {
		if part = sanitize(part); part != "" {
			dir = filepath.Join(dir, part)
		}
	}
	dir = filepath.Join(dir, fmt.Sprintf("v%03d", version))
	overwrite := settings.Bool(settingOverwrite, false)
	logger := p.itemLogger(ctx, item)

	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		copied, err := fileutil.PublishDir(path, filepath.Join(dir, filepath.Base(path)), overwrite)
		if err != nil {
			return "", p.copyError(err)
		}
		logger.Info("published folder", logging.Int("files", len(copied)), logging.String("destination", dir))
		return filepath.Join(dir, filepath.Base(path)), nil
	case len(sources) > 1 || path != sources[0]:
		for _, src := range sources {
			if err := fileutil.PublishFile(src, filepath.Join(dir, filepath.Base(src)), overwrite); err != nil {
				return "", p.copyError(err)
			}
		}
		logger.Info("published sequence", logging.Int("frames", len(sources)), logging.String("destination", dir))
		return filepath.Join(dir, filepath.Base(path)), nil
	default:
		dst := filepath.Join(dir, filepath.Base(path))
		if err := fileutil.PublishFile(path, dst, overwrite); err != nil {
			return "", p.copyError(err)
		}
		logger.Info("published file", logging.String("destination", dst))
		return dst, nil
	}
}

func (p *PublishFile) copyError(err error) error {
	if errors.Is(err, fileutil.ErrExists) {
		return faults.Wrap(faults.ErrValidation, PublishFileName, "copy", "destination already published; enable Overwrite to replace it", err)
	}
	return faults.Wrap(faults.ErrHook, PublishFileName, "copy", "copy into publish area", err)
}

func (p *PublishFile) publishRoot(settings schema.Settings) string {
	if root := strings.TrimSpace(settings.String(settingPublishRoot, "")); root != "" {
		return root
	}
	if p.cfg != nil {
		return p.cfg.Paths.PublishRoot
	}
	return ""
}

func (p *PublishFile) publishName(props properties.View, path string) string {
	if name := stringProp(props, "publish_name"); name != "" {
		return name
	}
	return PublishName(path)
}

// publishType resolves the published file type: the publish_type property,
// then the File Types setting, then "<Ext> File", then "Folder".
func (p *PublishFile) publishType(settings schema.Settings, props properties.View, path string) string {
	if t := stringProp(props, "publish_type"); t != "" {
		return t
	}
	ext := Extension(path)
	if ext == "" {
		return "Folder"
	}
	types, _ := settings.Value(settingFileTypes).([]any)
	for _, entry := range types {
		def, ok := entry.([]any)
		if !ok || len(def) < 2 {
			continue
		}
		for _, candidate := range def[1:] {
			if s, ok := candidate.(string); ok && strings.EqualFold(strings.TrimPrefix(s, "."), ext) {
				if name, ok := def[0].(string); ok {
					return name
				}
			}
		}
	}
	return p.title.String(ext) + " File"
}

func (p *PublishFile) publishVersion(ctx context.Context, props properties.View, project, name, path string) (int, error) {
	if raw, ok := props.Lookup("publish_version"); ok {
		if n, ok := intValue(raw); ok && n > 0 {
			return int(n), nil
		}
	}
	if n, ok := VersionNumber(path); ok {
		return n, nil
	}
	next, err := p.tracking.NextVersionNumber(ctx, project, name)
	if err != nil {
		return 0, faults.Wrap(faults.ErrHook, PublishFileName, "publish", "resolve version", err)
	}
	return next, nil
}

func (p *PublishFile) itemLogger(ctx context.Context, item *tree.Item) *slog.Logger {
	return logging.WithContext(ctx, p.logger).With(logging.String(logging.FieldItem, item.Name()))
}

// sourceFiles returns the files a publish copies: the sequence frames when
// the item has them, otherwise path itself, which must exist.
func sourceFiles(props properties.View, path string) ([]string, error) {
	if frames := sequenceFrames(props); len(frames) > 0 {
		for _, frame := range frames {
			if _, err := os.Stat(frame); err != nil {
				return nil, missingSource(frame, err)
			}
		}
		return frames, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, missingSource(path, err)
	}
	return []string{path}, nil
}

func missingSource(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return faults.Wrap(faults.ErrValidation, PublishFileName, "validate", fmt.Sprintf("source %s does not exist", path), err)
	}
	return faults.Wrap(faults.ErrValidation, PublishFileName, "validate", fmt.Sprintf("stat %s", path), err)
}

// viewFor returns the running plugin's view of the item's properties, or the
// global bag outside a plugin call.
func viewFor(ctx context.Context, item *tree.Item) properties.View {
	if local, err := item.LocalProperties(ctx); err == nil {
		return local
	}
	return item.Properties()
}

func sanitize(part string) string {
	part = strings.TrimSpace(part)
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, part)
}
