// Package permission holds the process-wide permission catalog: the full
// enumeration of permissions and the default set for each participant type.
package permission

import (
	"errors"
	"sync"

	"interviewer/roomhub/internal/model"
)

var (
	ErrUnknownPermission      = errors.New("unknown permission")
	ErrUnknownParticipantType = errors.New("unknown participant type")
)

// Catalog is immutable after construction. Every accessor hands out copies.
type Catalog struct {
	byID     []model.Permission // index = id; slot 0 unused
	byName   map[string]model.PermissionID
	defaults map[model.ParticipantType]Set
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the catalog built from the compiled-in tables.
func Default() *Catalog {
	defaultOnce.Do(func() {
		defaultCatalog = newCatalog()
	})
	return defaultCatalog
}

func newCatalog() *Catalog {
	var maxID model.PermissionID
	for id := range names {
		maxID = max(maxID, id)
	}

	c := &Catalog{
		byID:     make([]model.Permission, maxID+1),
		byName:   make(map[string]model.PermissionID, len(names)),
		defaults: make(map[model.ParticipantType]Set, len(model.ParticipantTypes)),
	}
	for id, name := range names {
		c.byID[id] = model.Permission{ID: id, Name: name}
		c.byName[name] = id
	}

	viewer := NewSet(viewerDefaults...)
	examinee := viewer.Clone()
	for _, id := range examineeExtras {
		examinee.Add(id)
	}
	expert := NewSet()
	for id := RoomFindByID; id <= RoomTimerStop; id++ {
		expert.Add(id)
	}

	c.defaults[model.ParticipantTypeViewer] = viewer
	c.defaults[model.ParticipantTypeExaminee] = examinee
	c.defaults[model.ParticipantTypeExpert] = expert
	return c
}

// All returns every permission in id order.
func (c *Catalog) All() []model.Permission {
	out := make([]model.Permission, 0, len(c.byName))
	for _, p := range c.byID {
		if p.ID != 0 {
			out = append(out, p)
		}
	}
	return out
}

func (c *Catalog) Lookup(id model.PermissionID) (model.Permission, bool) {
	if id <= 0 || int(id) >= len(c.byID) || c.byID[id].ID == 0 {
		return model.Permission{}, false
	}
	return c.byID[id], true
}

func (c *Catalog) ByName(name string) (model.Permission, error) {
	id, ok := c.byName[name]
	if !ok {
		return model.Permission{}, ErrUnknownPermission
	}
	return c.byID[id], nil
}

// Name returns the permission name, or "" when the id is unknown.
func (c *Catalog) Name(id model.PermissionID) string {
	p, _ := c.Lookup(id)
	return p.Name
}

// DefaultsFor returns a fresh copy of the default set for t.
func (c *Catalog) DefaultsFor(t model.ParticipantType) (Set, error) {
	set, ok := c.defaults[t]
	if !ok {
		return nil, ErrUnknownParticipantType
	}
	return set.Clone(), nil
}

// Names maps ids to names, skipping unknown ids.
func (c *Catalog) Names(ids []model.PermissionID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if name := c.Name(id); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// ParticipantTypes returns the types that have a default set, in stable order.
func (c *Catalog) ParticipantTypes() []model.ParticipantType {
	out := make([]model.ParticipantType, 0, len(c.defaults))
	for _, t := range model.ParticipantTypes {
		if _, ok := c.defaults[t]; ok {
			out = append(out, t)
		}
	}
	return out
}
