package properties_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"publisher/internal/faults"
	"publisher/internal/properties"
)

func TestBagKeepsInsertionOrder(t *testing.T) {
	b := properties.New()
	b.Set("zeta", 1)
	b.Set("alpha", 2)
	b.Set("mid", 3)
	b.Set("zeta", 4)

	if diff := cmp.Diff([]string{"zeta", "alpha", "mid"}, b.Keys()); diff != "" {
		t.Fatalf("unexpected key order (-want +got):\n%s", diff)
	}
	if b.Len() != 3 {
		t.Fatalf("expected 3 keys, got %d", b.Len())
	}
	v, err := b.Get("zeta")
	if err != nil || v != 4 {
		t.Fatalf("expected replaced value 4, got %v (%v)", v, err)
	}
}

func TestBagMissingKeys(t *testing.T) {
	b := properties.New()
	b.Set("path", "/tmp/a.ma")

	_, err := b.Get("nope")
	var keyErr *properties.KeyError
	if !errors.As(err, &keyErr) || keyErr.Key != "nope" {
		t.Fatalf("expected KeyError naming the key, got %v", err)
	}
	if !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected not found marker, got %v", err)
	}

	if err := b.Delete("nope"); !errors.As(err, &keyErr) {
		t.Fatalf("expected KeyError deleting absent key, got %v", err)
	}
	if err := b.Delete("path"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if b.Has("path") {
		t.Fatal("expected key to be absent after delete")
	}
}

func TestBagDictRoundTrip(t *testing.T) {
	b := properties.New()
	b.Set("name", "shot010")
	b.Set("frames", []int{1001, 1002})
	b.Set("meta", map[string]any{"artist": "jo", "rev": 3})
	b.Set("published", time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC))
	b.Set("empty", nil)

	dict, err := b.ToDict()
	if err != nil {
		t.Fatalf("ToDict returned error: %v", err)
	}
	restored := properties.FromDict(dict)
	if !restored.Equal(b) {
		t.Fatalf("round trip mismatch:\n%s", cmp.Diff(b.Plain(), restored.Plain()))
	}

	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	decoded := properties.New()
	if err := json.Unmarshal(data, decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !decoded.Equal(b) {
		t.Fatalf("json round trip mismatch:\n%s", cmp.Diff(b.Plain(), decoded.Plain()))
	}
	if diff := cmp.Diff(b.Keys(), decoded.Keys()); diff != "" {
		t.Fatalf("json round trip lost key order:\n%s", diff)
	}
	if _, ok := mustGet(t, decoded, "published").(time.Time); !ok {
		t.Fatal("expected datetime to decode back into time.Time")
	}
}

func TestBagRejectsUnserializableValues(t *testing.T) {
	b := properties.New()
	b.Set("ok", "fine")
	b.Set("callback", func() {})

	_, err := b.ToDict()
	var serErr *properties.SerializationError
	if !errors.As(err, &serErr) {
		t.Fatalf("expected SerializationError, got %v", err)
	}
	if serErr.Key != "callback" {
		t.Fatalf("expected error to name the key, got %q", serErr.Key)
	}
	if !errors.Is(err, faults.ErrSerialization) {
		t.Fatalf("expected serialization marker, got %v", err)
	}

	nested := properties.New()
	nested.Set("ch", make(chan int))
	if _, err := nested.ToDict(); err == nil {
		t.Fatal("expected channel value to fail serialization")
	}
}

func TestBagEqualIgnoresOrderAndNumericKind(t *testing.T) {
	a := properties.New()
	a.Set("x", 1)
	a.Set("y", []string{"a"})
	b := properties.New()
	b.Set("y", []any{"a"})
	b.Set("x", 1.0)
	if !a.Equal(b) {
		t.Fatal("expected bags to be structurally equal")
	}
	b.Set("x", 2)
	if a.Equal(b) {
		t.Fatal("expected bags with different values to differ")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	a := properties.New()
	a.Set("list", []any{"one"})
	clone := a.Clone()
	list := mustGet(t, clone, "list").([]any)
	list[0] = "changed"
	if mustGet(t, a, "list").([]any)[0] != "one" {
		t.Fatal("expected clone to deep copy slices")
	}
}

func mustGet(t *testing.T, b properties.View, key string) any {
	t.Helper()
	v, err := b.Get(key)
	if err != nil {
		t.Fatalf("Get(%q): %v", key, err)
	}
	return v
}
