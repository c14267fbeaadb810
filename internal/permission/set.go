package permission

import (
	"slices"

	"interviewer/roomhub/internal/model"
)

// Set is an owned set of permission ids. Copies never share storage.
type Set map[model.PermissionID]struct{}

func NewSet(ids ...model.PermissionID) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s Set) Has(id model.PermissionID) bool {
	_, ok := s[id]
	return ok
}

func (s Set) Add(id model.PermissionID)    { s[id] = struct{}{} }
func (s Set) Remove(id model.PermissionID) { delete(s, id) }

func (s Set) Clone() Set {
	out := make(Set, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// IDs returns the members in ascending order.
func (s Set) IDs() []model.PermissionID {
	ids := make([]model.PermissionID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Has(id) {
			return false
		}
	}
	return true
}
