// Package team defines the built-in member profiles and the roster that
// selects a member for each task.
package team

import (
	"strings"

	"github.com/ShayCichocki/squad/pkg/models"
)

// GeneralistID is the roster's designated fallback member.
const GeneralistID = "generalist"

// Roster holds the immutable set of members available to a coordinator.
// Order is significant: selection is deterministic in roster order.
type Roster struct {
	members []*models.Member
	byID    map[string]*models.Member
}

// NewRoster creates a roster from the given members, preserving order.
func NewRoster(members []*models.Member) *Roster {
	r := &Roster{
		members: append([]*models.Member(nil), members...),
		byID:    make(map[string]*models.Member, len(members)),
	}
	for _, m := range r.members {
		r.byID[m.ID] = m
	}
	return r
}

// Members returns the roster in stable order.
func (r *Roster) Members() []*models.Member {
	return r.members
}

// Get returns the member with the given ID, or nil.
func (r *Roster) Get(id string) *models.Member {
	return r.byID[id]
}

// SelectFor chooses the member for a task. Members whose specializations
// or role mention the task kind are preferred, first match in roster
// order; otherwise the generalist; otherwise the first member. Returns
// nil only for an empty roster. Selection is deterministic.
func (r *Roster) SelectFor(task *models.Task) *models.Member {
	if len(r.members) == 0 {
		return nil
	}

	kind := string(task.Kind)
	for _, m := range r.members {
		if m.SpecializesIn(task.Kind) || strings.Contains(strings.ToLower(m.Role), kind) {
			return m
		}
	}

	if g := r.byID[GeneralistID]; g != nil {
		return g
	}
	return r.members[0]
}
