package flaggroups

import (
	"strconv"

	"github.com/jhooc77/advanced-region-market/internal/config/section"
)

// ToSection serializes the group in the shape Parser.Parse reads.
func (g *FlagGroup) ToSection() *section.Section {
	s := section.New()
	s.Set("priority", g.priority)
	s.Set("available", flagSettingsSection(g.available))
	s.Set("sold", flagSettingsSection(g.sold))
	return s
}

func flagSettingsSection(list []FlagSettings) *section.Section {
	out := section.New()
	for i, fs := range list {
		e := section.New()
		if fs.settings != "" {
			e.Set("setting", fs.settings)
		}
		e.Set("editable", fs.editable)
		e.Set("flag", fs.flag.Name())
		e.Set("editPermission", fs.editPermission)
		e.Set("guidescription", fs.RawGuiDescription())
		// The full set is written as [] and read back as "all".
		applyTo := []string{}
		if !fs.applyTo.IsAll() {
			applyTo = fs.applyTo.Names()
		}
		e.Set("applyto", applyTo)
		out.Set(strconv.Itoa(i), e)
	}
	return out
}
