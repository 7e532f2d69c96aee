package flaggroups

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/jhooc77/advanced-region-market/internal/util/stringreplacer"
)

var placeholderToken = regexp.MustCompile(`%[A-Za-z0-9_-]+%`)

// UnknownPlaceholders lists %name% tokens in settings and GUI descriptions
// that neither the group nor regional know. Such tokens reach the flag
// parser verbatim.
func (g *FlagGroup) UnknownPlaceholders(regional *stringreplacer.Replacer) []string {
	known := g.replacer.Merge(regional).Placeholders()
	var out []string
	check := func(state string, i int, fs FlagSettings) {
		texts := append([]string{fs.settings}, fs.guiDescription...)
		for _, text := range texts {
			for _, tok := range placeholderToken.FindAllString(text, -1) {
				if !slices.Contains(known, tok) {
					out = append(out, fmt.Sprintf("%s/%s/%d %s: unknown placeholder %s", g.name, state, i, fs.flag.Name(), tok))
				}
			}
		}
	}
	for i, fs := range g.sold {
		check("sold", i, fs)
	}
	for i, fs := range g.available {
		check("available", i, fs)
	}
	return out
}
