package protection

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidFlagFormat is wrapped by every flag input parse failure.
var ErrInvalidFlagFormat = errors.New("invalid flag format")

// Flag is a typed region attribute. Parse turns user input into the typed
// value stored on a Region; a nil value with a nil error means "unset".
type Flag interface {
	Name() string
	Parse(input string) (any, error)
	Marshal(v any) string
	// GroupFlag returns the qualifier flag selecting which actors a value
	// applies to, or nil when the flag has none.
	GroupFlag() *GroupFlag
	Default() any
}

type flagBase struct {
	name  string
	group *GroupFlag
}

func newFlagBase(name string, defaultGroup RegionGroup) flagBase {
	b := flagBase{name: name}
	if defaultGroup != GroupUnset {
		b.group = NewGroupFlag(name+"-group", defaultGroup)
	}
	return b
}

func (b flagBase) Name() string          { return b.name }
func (b flagBase) GroupFlag() *GroupFlag { return b.group }

func invalid(flag, want, got string) error {
	return fmt.Errorf("%w: %s expects %s, got %q", ErrInvalidFlagFormat, flag, want, got)
}

type State uint8

const (
	Allow State = iota + 1
	Deny
)

func (s State) String() string {
	switch s {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	default:
		return "none"
	}
}

type StateFlag struct {
	flagBase
	def State
}

func NewStateFlag(name string, def State, defaultGroup RegionGroup) *StateFlag {
	return &StateFlag{flagBase: newFlagBase(name, defaultGroup), def: def}
}

func (f *StateFlag) Parse(input string) (any, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "allow":
		return Allow, nil
	case "deny":
		return Deny, nil
	case "none":
		return nil, nil
	}
	return nil, invalid(f.name, "allow/deny/none", input)
}

func (f *StateFlag) Marshal(v any) string {
	if s, ok := v.(State); ok {
		return s.String()
	}
	return ""
}

func (f *StateFlag) Default() any {
	if f.def == 0 {
		return nil
	}
	return f.def
}

type BooleanFlag struct{ flagBase }

func NewBooleanFlag(name string, defaultGroup RegionGroup) *BooleanFlag {
	return &BooleanFlag{flagBase: newFlagBase(name, defaultGroup)}
}

func (f *BooleanFlag) Parse(input string) (any, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "true", "yes", "on", "allow":
		return true, nil
	case "false", "no", "off", "deny":
		return false, nil
	}
	return nil, invalid(f.name, "true/false", input)
}

func (f *BooleanFlag) Marshal(v any) string {
	if b, ok := v.(bool); ok {
		return strconv.FormatBool(b)
	}
	return ""
}

func (f *BooleanFlag) Default() any { return nil }

type StringFlag struct{ flagBase }

func NewStringFlag(name string, defaultGroup RegionGroup) *StringFlag {
	return &StringFlag{flagBase: newFlagBase(name, defaultGroup)}
}

func (f *StringFlag) Parse(input string) (any, error) {
	return strings.ReplaceAll(input, `\n`, "\n"), nil
}

func (f *StringFlag) Marshal(v any) string {
	s, _ := v.(string)
	return strings.ReplaceAll(s, "\n", `\n`)
}

func (f *StringFlag) Default() any { return nil }

type IntegerFlag struct{ flagBase }

func NewIntegerFlag(name string, defaultGroup RegionGroup) *IntegerFlag {
	return &IntegerFlag{flagBase: newFlagBase(name, defaultGroup)}
}

func (f *IntegerFlag) Parse(input string) (any, error) {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return nil, invalid(f.name, "an integer", input)
	}
	return n, nil
}

func (f *IntegerFlag) Marshal(v any) string {
	if n, ok := v.(int); ok {
		return strconv.Itoa(n)
	}
	return ""
}

func (f *IntegerFlag) Default() any { return nil }
