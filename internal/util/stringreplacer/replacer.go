package stringreplacer

import (
	"sort"
	"strings"
)

// Replacer substitutes %placeholder% tokens with values produced at call time.
type Replacer struct {
	producers map[string]func() string
	order     []string
	maxPasses int
}

func New(replacements map[string]func() string, maxPasses int) *Replacer {
	if maxPasses <= 0 {
		maxPasses = 1
	}
	r := &Replacer{
		producers: make(map[string]func() string, len(replacements)),
		maxPasses: maxPasses,
	}
	for k, fn := range replacements {
		r.set(k, fn)
	}
	return r
}

func (r *Replacer) set(token string, fn func() string) {
	if token == "" || fn == nil {
		return
	}
	if _, ok := r.producers[token]; !ok {
		r.order = append(r.order, token)
		// Longer tokens first so a token never shadows one it prefixes.
		sort.Slice(r.order, func(i, j int) bool {
			if len(r.order[i]) != len(r.order[j]) {
				return len(r.order[i]) > len(r.order[j])
			}
			return r.order[i] < r.order[j]
		})
	}
	r.producers[token] = fn
}

// Merge returns a replacer holding the placeholders of both r and other.
// Entries of other win on conflicts.
func (r *Replacer) Merge(other *Replacer) *Replacer {
	out := New(nil, r.maxPasses)
	for _, k := range r.order {
		out.set(k, r.producers[k])
	}
	if other != nil {
		for _, k := range other.order {
			out.set(k, other.producers[k])
		}
	}
	return out
}

func (r *Replacer) Placeholders() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Replace runs substitution passes until nothing changes or the pass limit
// is reached. Tokens still present after the last pass stay in the output.
func (r *Replacer) Replace(s string) string {
	if r == nil || len(r.order) == 0 {
		return s
	}
	for pass := 0; pass < r.maxPasses; pass++ {
		changed := false
		for _, token := range r.order {
			if !strings.Contains(s, token) {
				continue
			}
			s = strings.ReplaceAll(s, token, r.producers[token]())
			changed = true
		}
		if !changed {
			break
		}
	}
	return s
}
