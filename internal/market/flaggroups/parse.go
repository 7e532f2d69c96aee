package flaggroups

import (
	"log"

	"github.com/jhooc77/advanced-region-market/internal/config/section"
	"github.com/jhooc77/advanced-region-market/internal/market/selltype"
)

// Parser builds flag groups from configuration sections.
type Parser struct {
	Flags  FlagResolver
	Logger *log.Logger
}

func (p Parser) logger() *log.Logger {
	if p.Logger == nil {
		return defaultLogger()
	}
	return p.Logger
}

// Parse reads one group. Missing "sold" or "available" sections yield
// empty lists; entries naming unknown flags are logged and skipped.
func (p Parser) Parse(sec *section.Section, name string) *FlagGroup {
	sold := []FlagSettings{}
	if s := sec.Section("sold"); s != nil {
		sold = p.parseFlags(name, "sold", s)
	}
	available := []FlagSettings{}
	if s := sec.Section("available"); s != nil {
		available = p.parseFlags(name, "available", s)
	}
	g := New(name, sec.GetInt("priority"), sold, available)
	g.SetLogger(p.logger())
	return g
}

func (p Parser) parseFlags(group, state string, sec *section.Section) []FlagSettings {
	out := make([]FlagSettings, 0, sec.Len())
	for _, id := range sec.Keys() {
		entry := sec.Child(id)

		settings, _ := entry.GetString("setting")
		flagName, _ := entry.GetString("flag")
		editPermission, _ := entry.GetString("editPermission")
		editable := entry.GetBool("editable")
		guiDescription := entry.GetStringList("guidescription")

		var applyTo selltype.Set
		for _, name := range entry.GetStringList("applyto") {
			if st, ok := selltype.Lookup(name); ok {
				applyTo = applyTo.Add(st)
			}
		}

		flag, ok := p.Flags.FuzzyMatch(flagName)
		if !ok {
			p.logger().Printf("group %s %s/%s: could not find flag %q, entry skipped; check your flag groups file", group, state, id, flagName)
			continue
		}
		out = append(out, NewFlagSettings(flag, editable, settings, applyTo, guiDescription, editPermission))
	}
	return out
}
