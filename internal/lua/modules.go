package lua

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"
	luajson "layeh.com/gopher-json"

	"publisher/internal/logging"
	"publisher/internal/tracking"
)

// Env is what scripts can reach beyond their own state.
type Env struct {
	Logger   *slog.Logger
	Tracking tracking.Client
}

func installModules(s *State, env Env) {
	logger := env.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	s.Preload("log", logModule(logger))
	s.Preload("fs", fsModule)
	s.Preload("properties", propertiesModule)
	s.Preload("tracking", trackingModule(env.Tracking))
	s.mu.Lock()
	luajson.Preload(s.L)
	s.mu.Unlock()
}

func logModule(logger *slog.Logger) lua.LGFunction {
	emit := func(level slog.Level) lua.LGFunction {
		return func(L *lua.LState) int {
			msg := L.CheckString(1)
			var args []any
			if fields, ok := L.Get(2).(*lua.LTable); ok {
				converted, err := ToGoValue(fields)
				if err != nil {
					L.RaiseError("log fields: %s", err.Error())
					return 0
				}
				values, _ := converted.(map[string]any)
				keys := make([]string, 0, len(values))
				for k := range values {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					args = append(args, logging.Any(k, values[k]))
				}
			}
			ctx := L.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			logging.WithContext(ctx, logger).Log(ctx, level, msg, args...)
			return 0
		}
	}
	return func(L *lua.LState) int {
		L.Push(L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
			"debug": emit(slog.LevelDebug),
			"info":  emit(slog.LevelInfo),
			"warn":  emit(slog.LevelWarn),
			"error": emit(slog.LevelError),
		}))
		return 1
	}
}

func fsModule(L *lua.LState) int {
	L.Push(L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"exists": func(L *lua.LState) int {
			_, err := os.Stat(L.CheckString(1))
			L.Push(lua.LBool(err == nil))
			return 1
		},
		"is_dir": func(L *lua.LState) int {
			info, err := os.Stat(L.CheckString(1))
			L.Push(lua.LBool(err == nil && info.IsDir()))
			return 1
		},
		"size": func(L *lua.LState) int {
			info, err := os.Stat(L.CheckString(1))
			if err != nil {
				L.Push(lua.LNil)
				L.Push(lua.LString(err.Error()))
				return 2
			}
			L.Push(lua.LNumber(info.Size()))
			return 1
		},
		"list": func(L *lua.LState) int {
			entries, err := os.ReadDir(L.CheckString(1))
			if err != nil {
				L.Push(lua.LNil)
				L.Push(lua.LString(err.Error()))
				return 2
			}
			table := L.NewTable()
			for i, entry := range entries {
				table.RawSetInt(i+1, lua.LString(entry.Name()))
			}
			L.Push(table)
			return 1
		},
		"basename": func(L *lua.LState) int {
			L.Push(lua.LString(filepath.Base(L.CheckString(1))))
			return 1
		},
		"dirname": func(L *lua.LState) int {
			L.Push(lua.LString(filepath.Dir(L.CheckString(1))))
			return 1
		},
		"ext": func(L *lua.LState) int {
			L.Push(lua.LString(strings.TrimPrefix(filepath.Ext(L.CheckString(1)), ".")))
			return 1
		},
		"join": func(L *lua.LState) int {
			parts := make([]string, 0, L.GetTop())
			for i := 1; i <= L.GetTop(); i++ {
				parts = append(parts, L.CheckString(i))
			}
			L.Push(lua.LString(filepath.Join(parts...)))
			return 1
		},
	}))
	return 1
}

func propertiesModule(L *lua.LState) int {
	L.Push(L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"keys": func(L *lua.LState) int {
			table := L.NewTable()
			for i, key := range checkBag(L, 1).Keys() {
				table.RawSetInt(i+1, lua.LString(key))
			}
			L.Push(table)
			return 1
		},
		"has": func(L *lua.LState) int {
			L.Push(lua.LBool(checkBag(L, 1).Has(L.CheckString(2))))
			return 1
		},
		"get": func(L *lua.LState) int {
			value, err := checkBag(L, 1).Get(L.CheckString(2))
			if err != nil {
				L.RaiseError("%s", err.Error())
				return 0
			}
			L.Push(ToLuaValue(L, value))
			return 1
		},
		"delete": func(L *lua.LState) int {
			if err := checkBag(L, 1).Delete(L.CheckString(2)); err != nil {
				L.RaiseError("%s", err.Error())
			}
			return 0
		},
	}))
	return 1
}

func trackingModule(client tracking.Client) lua.LGFunction {
	require := func(L *lua.LState) bool {
		if client == nil {
			L.RaiseError("tracking is not configured")
			return false
		}
		return true
	}
	callCtx := func(L *lua.LState) context.Context {
		if ctx := L.Context(); ctx != nil {
			return ctx
		}
		return context.Background()
	}
	return func(L *lua.LState) int {
		L.Push(L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
			"register_publish": func(L *lua.LState) int {
				if !require(L) {
					return 0
				}
				fields := L.CheckTable(1)
				file, err := client.RegisterPublish(callCtx(L), tracking.PublishedFile{
					Project:       lua.LVAsString(fields.RawGetString("project")),
					EntityType:    lua.LVAsString(fields.RawGetString("entity_type")),
					EntityID:      int64(lua.LVAsNumber(fields.RawGetString("entity_id"))),
					Task:          lua.LVAsString(fields.RawGetString("task")),
					Name:          lua.LVAsString(fields.RawGetString("name")),
					Path:          lua.LVAsString(fields.RawGetString("path")),
					FileType:      lua.LVAsString(fields.RawGetString("published_file_type")),
					VersionNumber: int(lua.LVAsNumber(fields.RawGetString("version_number"))),
					Comment:       lua.LVAsString(fields.RawGetString("comment")),
					User:          lua.LVAsString(fields.RawGetString("user")),
				})
				if err != nil {
					L.RaiseError("%s", err.Error())
					return 0
				}
				L.Push(lua.LNumber(file.ID))
				L.Push(lua.LNumber(file.VersionNumber))
				return 2
			},
			"create_version": func(L *lua.LState) int {
				if !require(L) {
					return 0
				}
				fields := L.CheckTable(1)
				version, err := client.CreateVersion(callCtx(L), tracking.Version{
					Project:         lua.LVAsString(fields.RawGetString("project")),
					EntityType:      lua.LVAsString(fields.RawGetString("entity_type")),
					EntityID:        int64(lua.LVAsNumber(fields.RawGetString("entity_id"))),
					Code:            lua.LVAsString(fields.RawGetString("code")),
					Description:     lua.LVAsString(fields.RawGetString("description")),
					PublishedFileID: int64(lua.LVAsNumber(fields.RawGetString("published_file_id"))),
					PathToMovie:     lua.LVAsString(fields.RawGetString("path_to_movie")),
					PathToFrames:    lua.LVAsString(fields.RawGetString("path_to_frames")),
					User:            lua.LVAsString(fields.RawGetString("user")),
				})
				if err != nil {
					L.RaiseError("%s", err.Error())
					return 0
				}
				L.Push(lua.LNumber(version.ID))
				return 1
			},
			"upload": func(L *lua.LState) int {
				if !require(L) {
					return 0
				}
				upload, err := client.Upload(callCtx(L), tracking.Upload{
					EntityKind: L.CheckString(1),
					EntityID:   int64(L.CheckNumber(2)),
					Field:      L.CheckString(3),
					Path:       L.CheckString(4),
				})
				if err != nil {
					L.RaiseError("%s", err.Error())
					return 0
				}
				L.Push(lua.LNumber(upload.ID))
				return 1
			},
			"next_version": func(L *lua.LState) int {
				if !require(L) {
					return 0
				}
				next, err := client.NextVersionNumber(callCtx(L), L.CheckString(1), L.CheckString(2))
				if err != nil {
					L.RaiseError("%s", err.Error())
					return 0
				}
				L.Push(lua.LNumber(next))
				return 1
			},
		}))
		return 1
	}
}
