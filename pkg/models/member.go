package models

// Member is the capability profile of one team member. Members are
// created at coordinator configuration time and never mutated.
type Member struct {
	// ID is the unique identifier for this member.
	ID string `json:"id"`
	// Name is the human-readable display name.
	Name string `json:"name"`
	// Role describes the member's function on the team.
	Role string `json:"role"`
	// Specializations lists the task kinds this member is suited for.
	Specializations []string `json:"specializations"`
	// AllowedTools lists the operation kinds the member may use.
	AllowedTools []string `json:"allowed_tools"`
	// Directive is the system prompt that defines the member's behavior.
	Directive string `json:"directive"`
}

// CanUse returns true if the member is permitted to use the named tool.
func (m *Member) CanUse(tool string) bool {
	for _, t := range m.AllowedTools {
		if t == tool {
			return true
		}
	}
	return false
}

// SpecializesIn returns true if the member lists the given task kind
// as a specialization.
func (m *Member) SpecializesIn(kind TaskKind) bool {
	for _, s := range m.Specializations {
		if s == string(kind) {
			return true
		}
	}
	return false
}
