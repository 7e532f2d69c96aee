package flaggroups

import (
	"strings"
	"unicode"

	"github.com/jhooc77/advanced-region-market/internal/market/selltype"
	"github.com/jhooc77/advanced-region-market/internal/protection"
)

// FlagSettings is one configured flag rule of a group. It is immutable.
type FlagSettings struct {
	flag           protection.Flag
	editable       bool
	settings       string
	applyTo        selltype.Set
	guiDescription []string
	editPermission string
}

// NewFlagSettings builds a rule. An empty applyTo means every sell type;
// an edit permission containing whitespace is dropped.
func NewFlagSettings(flag protection.Flag, editable bool, settings string, applyTo selltype.Set, guiDescription []string, editPermission string) FlagSettings {
	if applyTo.Empty() {
		applyTo = selltype.All()
	}
	if strings.IndexFunc(editPermission, unicode.IsSpace) >= 0 {
		editPermission = ""
	}
	return FlagSettings{
		flag:           flag,
		editable:       editable,
		settings:       settings,
		applyTo:        applyTo,
		guiDescription: append([]string{}, guiDescription...),
		editPermission: editPermission,
	}
}

func (s FlagSettings) Flag() protection.Flag { return s.flag }
func (s FlagSettings) IsEditable() bool      { return s.editable }

// Settings is the raw settings string. Empty means "remove the flag".
func (s FlagSettings) Settings() string         { return s.settings }
func (s FlagSettings) ApplyTo() selltype.Set    { return s.applyTo }
func (s FlagSettings) EditPermission() string   { return s.editPermission }
func (s FlagSettings) RequiresPermission() bool { return s.editPermission != "" }

func (s FlagSettings) RawGuiDescription() []string {
	return append([]string{}, s.guiDescription...)
}

// GuiDescription renders every description line through convert.
func (s FlagSettings) GuiDescription(convert func(string) string) []string {
	out := make([]string, 0, len(s.guiDescription))
	for _, line := range s.guiDescription {
		if convert != nil {
			line = convert(line)
		}
		out = append(out, line)
	}
	return out
}
