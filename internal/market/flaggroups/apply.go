package flaggroups

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/jhooc77/advanced-region-market/internal/protection"
)

const qualifierPrefix = "g:"

// ApplyReport summarizes one ApplyToRegion call.
type ApplyReport struct {
	Group       string
	Mode        ResetMode
	Sold        bool
	Wiped       bool
	Set         []string
	Deleted     []string
	// Skipped lists flags whose setting failed to parse.
	Skipped     []string
	// Kept lists editable flags left alone by a non-editable reset.
	Kept        []string
	PrioritySet bool
	Priority    int
}

// ApplyToRegion writes the sold or available rules onto the region's flag
// store. Malformed entries are logged and skipped; it never fails.
func (g *FlagGroup) ApplyToRegion(r Region, mode ResetMode) ApplyReport {
	if r.IsSold() {
		return g.applyFlagMap(g.sold, r, mode)
	}
	return g.applyFlagMap(g.available, r, mode)
}

func (g *FlagGroup) applyFlagMap(list []FlagSettings, r Region, mode ResetMode) ApplyReport {
	rep := ApplyReport{Group: g.name, Mode: mode, Sold: r.IsSold()}
	store := r.FlagStore()

	if mode == ResetComplete {
		store.DeleteAllFlags()
		rep.Wiped = true
	}

	st := r.SellType()
	for _, fs := range list {
		if !fs.applyTo.Has(st) {
			continue
		}
		if mode == ResetNonEditable && fs.editable {
			rep.Kept = append(rep.Kept, fs.flag.Name())
			continue
		}
		if isRemove(fs.settings) {
			store.DeleteFlag(fs.flag)
			rep.Deleted = append(rep.Deleted, fs.flag.Name())
			continue
		}
		g.applySetting(fs, r, store, &rep)
	}

	if !r.IsSubregion() {
		store.SetPriority(g.priority)
		rep.PrioritySet = true
		rep.Priority = g.priority
	}
	return rep
}

func isRemove(settings string) bool {
	s := strings.TrimSpace(settings)
	return s == "" || cases.Fold().String(s) == "remove"
}

func (g *FlagGroup) applySetting(fs FlagSettings, r Region, store FlagStore, rep *ApplyReport) {
	flag := fs.flag
	groupFlag := flag.GroupFlag()

	var tok settingTokens
	if groupFlag == nil {
		tok = settingTokens{primary: []string{fs.settings}}
	} else {
		tok = tokenizeSettings(fs.settings)
	}

	var qualifier any
	hasQualifier := false
	if groupFlag != nil && tok.qualifier != "" {
		v, err := groupFlag.Parse(tok.qualifier)
		if err != nil {
			g.log.Printf("group %s: could not parse group setting %q for %s, qualifier ignored: %v", g.name, tok.qualifier, groupFlag.Name(), err)
		} else {
			qualifier = v
			hasQualifier = true
		}
	}

	if primary, ok := tok.primaryValue(); ok {
		input := r.ConvertedMessage(g.replacer.Replace(primary))
		v, err := flag.Parse(input)
		if err != nil {
			g.log.Printf("group %s: could not parse setting %q for flag %s, flag ignored: %v", g.name, input, flag.Name(), err)
			rep.Skipped = append(rep.Skipped, flag.Name())
			return
		}
		if v == nil {
			// "none" and its kin parse to no value; the flag is unset.
			store.DeleteFlag(flag)
			rep.Deleted = append(rep.Deleted, flag.Name())
		} else {
			store.SetFlag(flag, v)
			rep.Set = append(rep.Set, flag.Name())
		}
	}

	if hasQualifier {
		if qualifier == groupFlag.Default() {
			store.DeleteFlag(groupFlag)
			rep.Deleted = append(rep.Deleted, groupFlag.Name())
		} else {
			store.SetFlag(groupFlag, qualifier)
			rep.Set = append(rep.Set, groupFlag.Name())
		}
	}
}

// settingTokens is a settings string split into its value tokens and an
// optional g:<group> qualifier.
type settingTokens struct {
	primary   []string
	qualifier string
}

// tokenizeSettings scans space separated tokens. A "g:" token carries the
// qualifier (the last non-empty one wins); every other token belongs to the
// primary value in order.
func tokenizeSettings(s string) settingTokens {
	var out settingTokens
	for _, tok := range strings.Fields(s) {
		if strings.HasPrefix(tok, qualifierPrefix) {
			if q := tok[len(qualifierPrefix):]; q != "" {
				out.qualifier = q
			}
			continue
		}
		out.primary = append(out.primary, tok)
	}
	return out
}

func (t settingTokens) primaryValue() (string, bool) {
	if len(t.primary) == 0 {
		return "", false
	}
	return strings.Join(t.primary, " "), true
}

var _ FlagStore = (*protection.Region)(nil)
