package properties

// Overlay presents a local bag layered over a shared global bag. Lookups
// check the local bag first; writes and deletes only touch the local bag.
type Overlay struct {
	local  *Bag
	global *Bag
}

var _ View = (*Overlay)(nil)

func NewOverlay(local, global *Bag) *Overlay {
	if local == nil {
		local = New()
	}
	if global == nil {
		global = New()
	}
	return &Overlay{local: local, global: global}
}

func (o *Overlay) Local() *Bag { return o.local }
func (o *Overlay) Global() *Bag { return o.global }

func (o *Overlay) Get(key string) (any, error) {
	if v, ok := o.Lookup(key); ok {
		return v, nil
	}
	return nil, &KeyError{Key: key}
}

func (o *Overlay) Lookup(key string) (any, bool) {
	if v, ok := o.local.Lookup(key); ok {
		return v, true
	}
	return o.global.Lookup(key)
}

func (o *Overlay) Set(key string, value any) {
	o.local.Set(key, value)
}

// Delete removes a local key. Keys that only exist in the global bag are
// reported as absent.
func (o *Overlay) Delete(key string) error {
	return o.local.Delete(key)
}

func (o *Overlay) Has(key string) bool {
	return o.local.Has(key) || o.global.Has(key)
}

func (o *Overlay) Len() int {
	return len(o.Keys())
}

// Keys lists local keys followed by global keys the local bag does not shadow.
func (o *Overlay) Keys() []string {
	keys := o.local.Keys()
	for _, key := range o.global.Keys() {
		if !o.local.Has(key) {
			keys = append(keys, key)
		}
	}
	return keys
}
