package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
)

func TestNewFanoutHandlerCollapses(t *testing.T) {
	if _, ok := newFanoutHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every handler is nil")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := newFanoutHandler(nil, inner); h != inner {
		t.Fatalf("expected the single handler back, got %T", h)
	}
}

func TestFanoutHandlerRespectsEachLevel(t *testing.T) {
	var infoBuf, debugBuf bytes.Buffer
	info := slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	debug := slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug})

	h := newFanoutHandler(info, debug)
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug to be enabled through the debug handler")
	}

	logger := slog.New(h)
	logger.Debug("debug only")
	logger.Info("both")

	if bytes.Contains(infoBuf.Bytes(), []byte("debug only")) {
		t.Fatalf("info handler received a debug record: %s", infoBuf.String())
	}
	if !bytes.Contains(debugBuf.Bytes(), []byte("debug only")) || !bytes.Contains(debugBuf.Bytes(), []byte("both")) {
		t.Fatalf("debug handler missing records: %s", debugBuf.String())
	}
	if !bytes.Contains(infoBuf.Bytes(), []byte("both")) {
		t.Fatalf("info handler missing record: %s", infoBuf.String())
	}
}

func TestFanoutHandlerCarriesAttrsAndGroups(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h := newFanoutHandler(slog.NewJSONHandler(&buf1, nil), slog.NewJSONHandler(&buf2, nil))

	slog.New(h.WithAttrs([]slog.Attr{slog.String("item", "scene.ma")}).WithGroup("task")).
		Info("ran", slog.String("name", "Publish"))

	for i, buf := range []*bytes.Buffer{&buf1, &buf2} {
		out := buf.Bytes()
		if !bytes.Contains(out, []byte(`"item":"scene.ma"`)) || !bytes.Contains(out, []byte(`"task":{"name":"Publish"}`)) {
			t.Fatalf("handler %d output missing attrs: %s", i, out)
		}
	}
}

func TestTeeLoggerNilBase(t *testing.T) {
	var buf bytes.Buffer
	TeeLogger(nil, slog.NewJSONHandler(&buf, nil)).Info("no base")
	if buf.Len() == 0 {
		t.Fatal("expected output in tee buffer")
	}
}
