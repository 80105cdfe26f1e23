package builtin

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"publisher/internal/faults"
	"publisher/internal/hooks"
	"publisher/internal/logging"
	"publisher/internal/plugin"
	"publisher/internal/schema"
	"publisher/internal/tracking"
	"publisher/internal/tree"
)

// VersionDataKey is the item property upload_version stores the created
// version under.
const VersionDataKey = "version_data"

const (
	settingFileExtensions = "File Extensions"
	settingUpload         = "Upload"
	settingLinkLocalFile  = "Link Local File"
)

// UploadVersion creates a review version for an item. When the item was
// published first, the version links to that publish.
type UploadVersion struct {
	tracking tracking.Client
	logger   *slog.Logger
}

var (
	_ plugin.Accepter  = (*UploadVersion)(nil)
	_ plugin.Publisher = (*UploadVersion)(nil)
	_ plugin.Finalizer = (*UploadVersion)(nil)
)

func NewUploadVersion(env hooks.Env) *UploadVersion {
	return &UploadVersion{
		tracking: env.Tracking,
		logger:   logging.NewComponentLogger(env.Logger, UploadVersionName),
	}
}

func (u *UploadVersion) Name() string { return "Upload for review" }

func (u *UploadVersion) Description() string {
	return "Creates a review version in tracking for the file and uploads the " +
		"file itself or, when content upload is off, the item's thumbnail."
}

func (u *UploadVersion) Icon() string { return iconPath("review") }

func (u *UploadVersion) ItemFilters() []string { return []string{"file.*"} }

func (u *UploadVersion) SettingsSchema() (map[string]schema.Definition, error) {
	return map[string]schema.Definition{
		settingFileExtensions: {
			Type:        schema.TypeString,
			Default:     "jpeg, jpg, png, mov, mp4, pdf",
			Description: "Comma separated extensions to create versions for.",
		},
		settingUpload: {
			Type:        schema.TypeBool,
			Default:     false,
			Description: "Upload the file content to the version.",
		},
		settingLinkLocalFile: {
			Type:        schema.TypeBool,
			Default:     true,
			Description: "Record the local path on the version.",
		},
	}, nil
}

// Accept takes items whose extension is listed in File Extensions.
func (u *UploadVersion) Accept(ctx context.Context, settings schema.Settings, item *tree.Item) (plugin.Acceptance, error) {
	path, err := requirePath(item.Properties(), UploadVersionName)
	if err != nil {
		return plugin.Reject(), err
	}
	ext := Extension(path)
	if !slices.Contains(extensionList(settings.String(settingFileExtensions, "")), ext) {
		logging.WithContext(ctx, u.logger).Debug("extension not configured for versions", logging.String("extension", ext))
		return plugin.Reject(), nil
	}
	return plugin.Accept(), nil
}

func (u *UploadVersion) Publish(ctx context.Context, settings schema.Settings, item *tree.Item) error {
	if u.tracking == nil {
		return faults.Wrap(faults.ErrConfiguration, UploadVersionName, "publish", "tracking is not configured", nil)
	}
	logger := logging.WithContext(ctx, u.logger).With(logging.String(logging.FieldItem, item.Name()))
	props := viewFor(ctx, item)
	path, err := requirePath(props, UploadVersionName)
	if err != nil {
		return err
	}
	code := stringProp(props, "publish_name")
	if code == "" {
		code = PublishName(path)
	}

	itemCtx := item.Context()
	version := tracking.Version{
		Project:     entityName(itemCtx.Project),
		EntityType:  entityType(itemCtx.Entity),
		EntityID:    entityID(itemCtx.Entity),
		Code:        code,
		Description: item.Description(),
	}
	if itemCtx.User != nil {
		version.User = itemCtx.User.Name
	}
	if raw, ok := item.Properties().Lookup(PublishDataKey); ok {
		if data, ok := raw.(map[string]any); ok {
			version.PublishedFileID, _ = intValue(data["id"])
		}
	}
	if settings.Bool(settingLinkLocalFile, true) {
		if frames := sequenceFrames(props); len(frames) > 0 {
			version.PathToFrames = path
		} else {
			version.PathToMovie = path
		}
	}

	created, err := u.tracking.CreateVersion(ctx, version)
	if err != nil {
		return faults.Wrap(faults.ErrHook, UploadVersionName, "publish", "create version", err)
	}
	item.Properties().Set(VersionDataKey, map[string]any{
		"id":                created.ID,
		"code":              created.Code,
		"published_file_id": created.PublishedFileID,
	})
	logger.Info("version created", logging.Int64("version_id", created.ID), logging.String("code", created.Code))

	upload := tracking.Upload{EntityKind: "Version", EntityID: created.ID}
	switch thumb := item.GetThumbnailAsPath(); {
	case settings.Bool(settingUpload, false):
		upload.Field, upload.Path = "uploaded_movie", path
	case thumb != "":
		upload.Field, upload.Path = "image", thumb
	default:
		return nil
	}
	if _, err := u.tracking.Upload(ctx, upload); err != nil {
		return faults.Wrap(faults.ErrHook, UploadVersionName, "publish", "upload "+upload.Field, err)
	}
	logger.Info("upload complete", logging.String("field", upload.Field), logging.String("path", upload.Path))
	return nil
}

func (u *UploadVersion) Finalize(ctx context.Context, _ schema.Settings, item *tree.Item) error {
	raw, ok := item.Properties().Lookup(VersionDataKey)
	if !ok {
		return faults.Wrap(faults.ErrHook, UploadVersionName, "finalize", "no version was created for the item", nil)
	}
	data, _ := raw.(map[string]any)
	code, _ := data["code"].(string)
	logging.WithContext(ctx, u.logger).Info("version uploaded",
		logging.String(logging.FieldItem, item.Name()),
		logging.String("code", code),
	)
	return nil
}

func extensionList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(part), "."))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
