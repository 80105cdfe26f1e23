package plugin

// Acceptance is a plugin's answer to "should this item get a task?". The
// zero value rejects; the flag fields are phrased so their zero values give
// the defaults: required, enabled, visible, and checked.
type Acceptance struct {
	Accepted  bool
	Optional  bool
	Disabled  bool
	Hidden    bool
	Unchecked bool
}

// Accept returns an acceptance with every default in place.
func Accept() Acceptance { return Acceptance{Accepted: true} }

// Reject returns an acceptance that declines the item.
func Reject() Acceptance { return Acceptance{} }

func (a Acceptance) Required() bool { return !a.Optional }
func (a Acceptance) Enabled() bool { return !a.Disabled }
func (a Acceptance) Visible() bool { return !a.Hidden }
func (a Acceptance) Checked() bool { return !a.Unchecked }

// AcceptanceFromMap reads the mapping form hooks written in scripts return.
// Missing optional keys default to true.
func AcceptanceFromMap(m map[string]any) Acceptance {
	flag := func(key string) bool {
		v, ok := m[key].(bool)
		return !ok || v
	}
	accepted, _ := m["accepted"].(bool)
	return Acceptance{
		Accepted:  accepted,
		Optional:  !flag("required"),
		Disabled:  !flag("enabled"),
		Hidden:    !flag("visible"),
		Unchecked: !flag("checked"),
	}
}
