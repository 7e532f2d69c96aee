// Package schema lints flag group documents against a JSON schema.
package schema

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jhooc77/advanced-region-market/internal/config/section"
)

//go:embed flaggroups.schema.json
var flagGroupsSchema string

const flagGroupsURL = "flaggroups.schema.json"

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func flagGroups() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource(flagGroupsURL, strings.NewReader(flagGroupsSchema)); err != nil {
			compileErr = err
			return
		}
		compiled, compileErr = c.Compile(flagGroupsURL)
	})
	return compiled, compileErr
}

// Violation is one schema failure at a JSON pointer location.
type Violation struct {
	Location string
	Message  string
}

func (v Violation) String() string {
	loc := v.Location
	if loc == "" {
		loc = "/"
	}
	return fmt.Sprintf("%s: %s", loc, v.Message)
}

// ValidateFlagGroups checks a parsed flag groups document. A nil slice
// means the document is valid.
func ValidateFlagGroups(doc *section.Section) ([]Violation, error) {
	s, err := flagGroups()
	if err != nil {
		return nil, fmt.Errorf("compile flag groups schema: %w", err)
	}
	// Round-trip through JSON so numbers and maps have the shapes the
	// validator expects.
	raw, err := json.Marshal(doc.ToMap())
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	err = s.Validate(v)
	if err == nil {
		return nil, nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return nil, err
	}
	var out []Violation
	collect(ve, &out)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Location < out[j].Location })
	return out, nil
}

func collect(ve *jsonschema.ValidationError, out *[]Violation) {
	if len(ve.Causes) == 0 {
		*out = append(*out, Violation{Location: ve.InstanceLocation, Message: ve.Message})
		return
	}
	for _, c := range ve.Causes {
		collect(c, out)
	}
}
