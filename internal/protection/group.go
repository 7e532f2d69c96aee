package protection

import "strings"

// RegionGroup selects the actors a flag value applies to.
type RegionGroup uint8

const (
	GroupUnset RegionGroup = iota
	GroupMembers
	GroupOwners
	GroupNonMembers
	GroupNonOwners
	GroupAll
	GroupNone
)

func (g RegionGroup) String() string {
	switch g {
	case GroupMembers:
		return "members"
	case GroupOwners:
		return "owners"
	case GroupNonMembers:
		return "nonmembers"
	case GroupNonOwners:
		return "nonowners"
	case GroupAll:
		return "all"
	case GroupNone:
		return "none"
	default:
		return ""
	}
}

func detectGroup(input string) (RegionGroup, bool) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "member", "members":
		return GroupMembers, true
	case "owner", "owners":
		return GroupOwners, true
	case "nonmember", "nonmembers", "non_members", "non-members":
		return GroupNonMembers, true
	case "nonowner", "nonowners", "non_owners", "non-owners":
		return GroupNonOwners, true
	case "all", "everyone", "anyone":
		return GroupAll, true
	case "none", "noone", "deny":
		return GroupNone, true
	}
	return GroupUnset, false
}

// GroupFlag is the qualifier companion of another flag. It has no
// qualifier of its own.
type GroupFlag struct {
	name string
	def  RegionGroup
}

func NewGroupFlag(name string, def RegionGroup) *GroupFlag {
	return &GroupFlag{name: name, def: def}
}

func (f *GroupFlag) Name() string          { return f.name }
func (f *GroupFlag) GroupFlag() *GroupFlag { return nil }

func (f *GroupFlag) Default() any {
	if f.def == GroupUnset {
		return nil
	}
	return f.def
}

func (f *GroupFlag) Parse(input string) (any, error) {
	g, ok := detectGroup(input)
	if !ok {
		return nil, invalid(f.name, "a region group (members, owners, nonmembers, nonowners, all, none)", input)
	}
	return g, nil
}

func (f *GroupFlag) Marshal(v any) string {
	if g, ok := v.(RegionGroup); ok {
		return g.String()
	}
	return ""
}
