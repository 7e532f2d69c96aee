// Package section is an insertion-ordered nested key/value document backed
// by YAML. Paths use '.' to address nested sections.
package section

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Section struct {
	keys   []string
	values map[string]any
}

func New() *Section {
	return &Section{values: map[string]any{}}
}

// Keys returns the direct child keys in insertion order.
func (s *Section) Keys() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

func (s *Section) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

func (s *Section) Contains(path string) bool {
	_, ok := s.Get(path)
	return ok
}

func (s *Section) Get(path string) (any, bool) {
	if s == nil {
		return nil, false
	}
	parent, key := s.walk(path, false)
	if parent == nil {
		return nil, false
	}
	v, ok := parent.values[key]
	return v, ok
}

// Set stores v at path, creating intermediate sections. A nil v removes
// the key.
func (s *Section) Set(path string, v any) {
	parent, key := s.walk(path, v != nil)
	if parent == nil {
		return
	}
	if v == nil {
		parent.remove(key)
		return
	}
	if _, ok := parent.values[key]; !ok {
		parent.keys = append(parent.keys, key)
	}
	parent.values[key] = v
}

func (s *Section) remove(key string) {
	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	for i, k := range s.keys {
		if k == key {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
}

// walk returns the section holding the last path element.
func (s *Section) walk(path string, create bool) (*Section, string) {
	parts := strings.Split(path, ".")
	cur := s
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur.values[p].(*Section)
		if !ok {
			if !create {
				return nil, ""
			}
			next = New()
			if _, exists := cur.values[p]; !exists {
				cur.keys = append(cur.keys, p)
			}
			cur.values[p] = next
		}
		cur = next
	}
	return cur, parts[len(parts)-1]
}

// SetKey stores v under a direct child key without path splitting.
func (s *Section) SetKey(key string, v any) {
	if v == nil {
		s.remove(key)
		return
	}
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = v
}

// Child returns the direct child section named key or nil.
func (s *Section) Child(key string) *Section {
	if s == nil {
		return nil
	}
	sub, _ := s.values[key].(*Section)
	return sub
}

// Section returns the nested section at path or nil.
func (s *Section) Section(path string) *Section {
	v, ok := s.Get(path)
	if !ok {
		return nil
	}
	sub, _ := v.(*Section)
	return sub
}

// GetString renders any scalar at path as a string.
func (s *Section) GetString(path string) (string, bool) {
	v, ok := s.Get(path)
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case *Section, []any, []string:
		return "", false
	default:
		return fmt.Sprint(t), true
	}
}

func (s *Section) GetInt(path string) int {
	v, _ := s.Get(path)
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case uint64:
		return int(t)
	case float64:
		return int(t)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err == nil {
			return n
		}
	}
	return 0
}

func (s *Section) GetBool(path string) bool {
	v, _ := s.Get(path)
	switch t := v.(type) {
	case bool:
		return t
	case string:
		// yaml.v3 leaves the YAML 1.1 spellings as strings.
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "yes", "y", "on":
			return true
		case "no", "n", "off":
			return false
		}
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return err == nil && b
	}
	return false
}

// GetStringList returns the list at path with scalar elements rendered as
// strings. Missing keys and non-list values yield an empty list.
func (s *Section) GetStringList(path string) []string {
	v, _ := s.Get(path)
	switch t := v.(type) {
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			switch e.(type) {
			case nil, *Section, []any:
				continue
			}
			out = append(out, fmt.Sprint(e))
		}
		return out
	}
	return []string{}
}

// ToMap converts the section into plain maps and slices.
func (s *Section) ToMap() map[string]any {
	out := make(map[string]any, len(s.keys))
	for _, k := range s.keys {
		out[k] = plain(s.values[k])
	}
	return out
}

func plain(v any) any {
	switch t := v.(type) {
	case *Section:
		return t.ToMap()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plain(e)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out
	}
	return v
}

func Load(path string) (*Section, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Section, error) {
	s := New()
	if err := yaml.Unmarshal(raw, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Section) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}

func (s *Section) Save(path string) error {
	b, err := s.Marshal()
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *Section) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	if n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		return nil
	}
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", n.Line)
	}
	if s.values == nil {
		s.values = map[string]any{}
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, vn := n.Content[i], n.Content[i+1]
		v, err := decodeNode(vn)
		if err != nil {
			return err
		}
		// Keys are stored verbatim; explicit nulls keep their key.
		if _, ok := s.values[k.Value]; !ok {
			s.keys = append(s.keys, k.Value)
		}
		s.values[k.Value] = v
	}
	return nil
}

func decodeNode(n *yaml.Node) (any, error) {
	if n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	switch n.Kind {
	case yaml.MappingNode:
		sub := New()
		if err := sub.UnmarshalYAML(n); err != nil {
			return nil, err
		}
		return sub, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := decodeNode(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	default:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return v, nil
	}
}

func (s *Section) MarshalYAML() (any, error) {
	out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range s.keys {
		kn := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}
		vn := &yaml.Node{}
		if err := vn.Encode(s.values[k]); err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out.Content = append(out.Content, kn, vn)
	}
	return out, nil
}
