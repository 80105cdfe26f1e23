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

	"publisher/internal/faults"
	"publisher/internal/hooks"
	"publisher/internal/logging"
	"publisher/internal/plugin"
	"publisher/internal/schema"
	"publisher/internal/tree"
)

// fileKind describes how files with a set of extensions are collected.
type fileKind struct {
	itemType   string
	display    string
	icon       string
	extensions []string
	thumbnail  bool
}

var fileKinds = []fileKind{
	{itemType: "file.alias", display: "Alias File", icon: "alias", extensions: []string{"wire"}},
	{itemType: "file.alembic", display: "Alembic Cache", icon: "alembic", extensions: []string{"abc"}},
	{itemType: "file.3dsmax", display: "3dsmax Scene", icon: "3dsmax", extensions: []string{"max"}},
	{itemType: "file.hiero", display: "NukeStudio Project", icon: "hiero", extensions: []string{"hrox"}},
	{itemType: "file.houdini", display: "Houdini Scene", icon: "houdini", extensions: []string{"hip", "hipnc"}},
	{itemType: "file.maya", display: "Maya Scene", icon: "maya", extensions: []string{"ma", "mb"}},
	{itemType: "file.motionbuilder", display: "Motion Builder FBX", icon: "motionbuilder", extensions: []string{"fbx"}},
	{itemType: "file.nuke", display: "Nuke Script", icon: "nuke", extensions: []string{"nk"}},
	{itemType: "file.photoshop", display: "Photoshop Image", icon: "photoshop", extensions: []string{"psd", "psb"}},
	{itemType: "file.vred", display: "VRED Scene", icon: "vred", extensions: []string{"vpb", "vpe", "osb"}},
	{itemType: "file.image", display: "Rendered Image", icon: "image_sequence", extensions: []string{"dpx", "exr"}},
	{itemType: "file.texture", display: "Texture Image", icon: "texture", extensions: []string{"tiff", "tx", "tga", "dds", "rat"}},
	{itemType: "file.image", display: "Image", icon: "image", extensions: []string{"jpeg", "jpg", "png"}, thumbnail: true},
	{itemType: "file.video", display: "Movie", icon: "video", extensions: []string{"mov", "mp4"}},
	{itemType: "file.pdf", display: "PDF", icon: "file", extensions: []string{"pdf"}},
}

func kindFor(ext string, title cases.Caser) fileKind {
	for _, kind := range fileKinds {
		for _, candidate := range kind.extensions {
			if candidate == ext {
				return kind
			}
		}
	}
	if ext == "" {
		return fileKind{itemType: "file", display: "File", icon: "file"}
	}
	return fileKind{itemType: "file." + ext, display: title.String(ext) + " File", icon: "file"}
}

func iconPath(name string) string {
	return "builtin:icons/" + name + ".png"
}

// Collector creates one item per collected file and one item per frame
// sequence found in a collected folder.
type Collector struct {
	logger *slog.Logger
	title  cases.Caser
}

var (
	_ plugin.SessionProcessor  = (*Collector)(nil)
	_ plugin.FileArgsProcessor = (*Collector)(nil)
)

func NewCollector(env hooks.Env) *Collector {
	return &Collector{
		logger: logging.NewComponentLogger(env.Logger, CollectorName),
		title:  cases.Title(language.English),
	}
}

func (c *Collector) SettingsSchema() (map[string]schema.Definition, error) {
	return map[string]schema.Definition{
		"Session Paths": {
			Type:        schema.TypeList,
			Default:     []any{},
			Description: "Files and folders collected as the current session.",
		},
	}, nil
}

// ProcessCurrentSession collects the configured session paths. Paths that no
// longer exist are skipped with a warning.
func (c *Collector) ProcessCurrentSession(ctx context.Context, settings schema.Settings, parent *tree.Item) error {
	paths, _ := settings.Value("Session Paths").([]any)
	logger := logging.WithContext(ctx, c.logger)
	for _, raw := range paths {
		path, ok := raw.(string)
		if !ok || strings.TrimSpace(path) == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			logger.Warn("session path unavailable", logging.String("path", path), logging.Error(err))
			continue
		}
		if err := c.ProcessFile(ctx, settings, parent, path, nil); err != nil {
			return err
		}
	}
	return nil
}

// ProcessFile adds an item for path under parent. args may carry a
// "description" for the new item.
func (c *Collector) ProcessFile(ctx context.Context, _ schema.Settings, parent *tree.Item, path string, args map[string]any) error {
	logger := logging.WithContext(ctx, c.logger)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return faults.Wrap(faults.ErrNotFound, "collector", "process file", fmt.Sprintf("%s does not exist", path), err)
		}
		return faults.Wrap(faults.ErrHook, "collector", "process file", "stat path", err)
	}
	description, _ := args["description"].(string)

	if info.IsDir() {
		return c.collectFolder(logger, parent, path, description)
	}

	ext := Extension(path)
	kind := kindFor(ext, c.title)
	item := parent.CreateItem(kind.itemType, kind.display, PublishName(path))
	item.SetIconFromPath(iconPath(kind.icon))
	item.SetDescription(description)
	if kind.thumbnail {
		item.SetThumbnailFromPath(path)
	}
	props := item.Properties()
	props.Set("path", path)
	props.Set("extension", ext)
	logger.Info("collected file",
		logging.String("path", path),
		logging.String(logging.FieldItemType, kind.itemType),
	)
	return nil
}

func (c *Collector) collectFolder(logger *slog.Logger, parent *tree.Item, folder, description string) error {
	sequences, err := FindSequences(folder)
	if err != nil {
		return faults.Wrap(faults.ErrHook, "collector", "process folder", folder, err)
	}
	if len(sequences) == 0 {
		logger.Warn("no frame sequences found in folder", logging.String("path", folder))
		return nil
	}
	for _, seq := range sequences {
		ext := Extension(seq.Path)
		kind := kindFor(ext, c.title)
		item := parent.CreateItem(kind.itemType+".sequence", kind.display+" Sequence", PublishName(seq.Path))
		item.SetIconFromPath(iconPath("image_sequence"))
		item.SetDescription(description)
		if kind.thumbnail {
			item.SetThumbnailFromPath(seq.Frames[0])
		}
		frames := make([]any, len(seq.Frames))
		for i, frame := range seq.Frames {
			frames[i] = frame
		}
		props := item.Properties()
		props.Set("path", seq.Path)
		props.Set("extension", ext)
		props.Set("sequence_paths", frames)
		logger.Info("collected sequence",
			logging.String("path", seq.Path),
			logging.Int("frames", len(frames)),
			logging.String("folder", filepath.Base(folder)),
		)
	}
	return nil
}
