package properties

import (
	"encoding/json"
	"fmt"
	"iter"
	"reflect"
	"strings"

	"github.com/google/go-cmp/cmp"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Dict is the serialized form of a Bag.
type Dict = orderedmap.OrderedMap[string, any]

// View is the access surface shared by Bag and Overlay.
type View interface {
	Get(key string) (any, error)
	Lookup(key string) (any, bool)
	Set(key string, value any)
	Delete(key string) error
	Has(key string) bool
	Len() int
	Keys() []string
}

// Bag is an insertion-ordered set of named values. The zero value is not
// usable; construct bags with New.
type Bag struct {
	values *orderedmap.OrderedMap[string, any]
}

var _ View = (*Bag)(nil)

func New() *Bag {
	return &Bag{values: orderedmap.New[string, any]()}
}

// FromMap builds a bag from an unordered map. Keys are inserted in the order
// the slice of names gives, then any remaining keys in map iteration order.
func FromMap(values map[string]any, order ...string) *Bag {
	b := New()
	for _, key := range order {
		if v, ok := values[key]; ok {
			b.Set(key, v)
		}
	}
	for key, v := range values {
		if !b.Has(key) {
			b.Set(key, v)
		}
	}
	return b
}

// Get returns the value stored under key or a *KeyError.
func (b *Bag) Get(key string) (any, error) {
	v, ok := b.values.Get(key)
	if !ok {
		return nil, &KeyError{Key: key}
	}
	return v, nil
}

func (b *Bag) Lookup(key string) (any, bool) {
	return b.values.Get(key)
}

// Set stores value under key. Replacing a value keeps the key's position.
func (b *Bag) Set(key string, value any) {
	b.values.Set(key, value)
}

// Delete removes key or returns a *KeyError if it is absent.
func (b *Bag) Delete(key string) error {
	if _, ok := b.values.Delete(key); !ok {
		return &KeyError{Key: key}
	}
	return nil
}

func (b *Bag) Has(key string) bool {
	_, ok := b.values.Get(key)
	return ok
}

func (b *Bag) Len() int {
	return b.values.Len()
}

func (b *Bag) Keys() []string {
	keys := make([]string, 0, b.values.Len())
	for pair := b.values.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// All yields key/value pairs in insertion order.
func (b *Bag) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		for pair := b.values.Oldest(); pair != nil; pair = pair.Next() {
			if !yield(pair.Key, pair.Value) {
				return
			}
		}
	}
}

// Clone returns a bag with the same keys whose values are deep copies of
// nested maps and slices.
func (b *Bag) Clone() *Bag {
	out := New()
	for key, value := range b.All() {
		out.Set(key, cloneValue(value))
	}
	return out
}

// ToDict converts the bag into its serialized form, failing on the first value
// that is not JSON-compatible.
func (b *Bag) ToDict() (*Dict, error) {
	out := orderedmap.New[string, any]()
	for key, value := range b.All() {
		encoded, err := encodeValue(key, value)
		if err != nil {
			return nil, err
		}
		out.Set(key, encoded)
	}
	return out, nil
}

// FromDict rebuilds a bag from its serialized form.
func FromDict(dict *Dict) *Bag {
	b := New()
	if dict == nil {
		return b
	}
	for pair := dict.Oldest(); pair != nil; pair = pair.Next() {
		b.Set(pair.Key, decodeValue(pair.Value))
	}
	return b
}

// Equal reports structural equality: same keys with equal values, ignoring
// key order and numeric representation.
func (b *Bag) Equal(other *Bag) bool {
	if b == nil || other == nil {
		return b == other
	}
	return cmp.Equal(b.Plain(), other.Plain(), exportAll)
}

var exportAll = cmp.Exporter(func(reflect.Type) bool { return true })

// Plain returns the bag as a map with normalized values, suitable for
// comparisons and diffs.
func (b *Bag) Plain() map[string]any {
	out := make(map[string]any, b.Len())
	for key, value := range b.All() {
		out[key] = normalize(value)
	}
	return out
}

func (b *Bag) MarshalJSON() ([]byte, error) {
	dict, err := b.ToDict()
	if err != nil {
		return nil, err
	}
	return json.Marshal(dict)
}

func (b *Bag) UnmarshalJSON(data []byte) error {
	dict := orderedmap.New[string, any]()
	if err := json.Unmarshal(data, dict); err != nil {
		return err
	}
	*b = *FromDict(dict)
	return nil
}

func (b *Bag) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	i := 0
	for key, value := range b.All() {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %v", key, value)
		i++
	}
	sb.WriteByte('}')
	return sb.String()
}
