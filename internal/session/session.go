// Package session carries the explicit engine and tracking context that the
// manager, the tree, and every hook invocation receive.
package session

import (
	"fmt"
	"sort"
	"strings"

	"publisher/internal/config"
)

// Entity identifies a record in the production tracking system.
type Entity struct {
	Type string `json:"type"`
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
}

func (e *Entity) String() string {
	if e == nil {
		return ""
	}
	if e.Name != "" {
		return fmt.Sprintf("%s %s", e.Type, e.Name)
	}
	return fmt.Sprintf("%s #%d", e.Type, e.ID)
}

// Context is the tracking context an item is published into.
type Context struct {
	Project            *Entity  `json:"project,omitempty"`
	Entity             *Entity  `json:"entity,omitempty"`
	Step               *Entity  `json:"step,omitempty"`
	Task               *Entity  `json:"task,omitempty"`
	User               *Entity  `json:"user,omitempty"`
	AdditionalEntities []Entity `json:"additional_entities,omitempty"`
	SourceEntity       *Entity  `json:"source_entity,omitempty"`
}

// Key is a stable identity for caching per-context state.
func (c Context) Key() string {
	parts := []string{
		entityKey(c.Project), entityKey(c.Entity), entityKey(c.Step),
		entityKey(c.Task), entityKey(c.User), entityKey(c.SourceEntity),
	}
	extra := make([]string, 0, len(c.AdditionalEntities))
	for i := range c.AdditionalEntities {
		extra = append(extra, entityKey(&c.AdditionalEntities[i]))
	}
	sort.Strings(extra)
	return strings.Join(append(parts, extra...), "|")
}

// IsZero reports whether the context names nothing.
func (c Context) IsZero() bool {
	return c.Key() == strings.Repeat("|", 5)
}

// EntityType returns the type of the context entity, or "".
func (c Context) EntityType() string {
	if c.Entity == nil {
		return ""
	}
	return c.Entity.Type
}

// StepName returns the name of the context step, or "".
func (c Context) StepName() string {
	if c.Step == nil {
		return ""
	}
	return c.Step.Name
}

func (c Context) String() string {
	switch {
	case c.Entity != nil && c.Step != nil:
		return c.Entity.String() + ", " + c.Step.Name
	case c.Entity != nil:
		return c.Entity.String()
	case c.Project != nil:
		return c.Project.String()
	default:
		return "no context"
	}
}

func entityKey(e *Entity) string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s:%d:%s", e.Type, e.ID, e.Name)
}

// Session describes the host engine the publisher runs inside.
type Session struct {
	Engine  string
	HasUI   bool
	Context Context
}

// FromConfig builds the starting session from configuration.
func FromConfig(cfg *config.Config) Session {
	s := Session{Engine: cfg.Session.Engine}
	c := cfg.Session
	if c.Project != "" {
		s.Context.Project = &Entity{Type: "Project", Name: c.Project}
	}
	if c.EntityType != "" {
		s.Context.Entity = &Entity{Type: c.EntityType, ID: c.EntityID, Name: c.EntityName}
	}
	if c.Step != "" {
		s.Context.Step = &Entity{Type: "Step", Name: c.Step}
	}
	if c.Task != "" {
		s.Context.Task = &Entity{Type: "Task", Name: c.Task}
	}
	if c.User != "" {
		s.Context.User = &Entity{Type: "HumanUser", Name: c.User}
	}
	return s
}
