package flaggroups

import (
	"bytes"
	"fmt"
	"log"

	"github.com/jhooc77/advanced-region-market/internal/market/selltype"
	"github.com/jhooc77/advanced-region-market/internal/protection"
)

// recordingStore captures FlagStore calls in order.
type recordingStore struct {
	calls []string
}

func (s *recordingStore) DeleteAllFlags() { s.calls = append(s.calls, "wipe") }

func (s *recordingStore) DeleteFlag(f protection.Flag) {
	s.calls = append(s.calls, "delete "+f.Name())
}

func (s *recordingStore) SetFlag(f protection.Flag, v any) {
	s.calls = append(s.calls, fmt.Sprintf("set %s=%v", f.Name(), v))
}

func (s *recordingStore) SetPriority(p int) {
	s.calls = append(s.calls, fmt.Sprintf("priority %d", p))
}

type fakeRegion struct {
	sold      bool
	subregion bool
	sellType  selltype.SellType
	store     *recordingStore
	convert   func(string) string
}

func newFakeRegion(sold bool, st selltype.SellType) *fakeRegion {
	return &fakeRegion{sold: sold, sellType: st, store: &recordingStore{}}
}

func (r *fakeRegion) IsSold() bool                { return r.sold }
func (r *fakeRegion) IsSubregion() bool           { return r.subregion }
func (r *fakeRegion) SellType() selltype.SellType { return r.sellType }
func (r *fakeRegion) FlagStore() FlagStore        { return r.store }

func (r *fakeRegion) ConvertedMessage(msg string) string {
	if r.convert == nil {
		return msg
	}
	return r.convert(msg)
}

// testRegistry holds the built-in flags plus "tag", a string flag whose
// qualifier defaults to members.
func testRegistry() *protection.Registry {
	reg := protection.DefaultRegistry()
	_ = reg.Register(protection.NewStringFlag("tag", protection.GroupMembers))
	return reg
}

func mustFlag(reg *protection.Registry, name string) protection.Flag {
	f, ok := reg.Get(name)
	if !ok {
		panic("unknown flag " + name)
	}
	return f
}

func bufferLogger() (*log.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return log.New(&buf, "", 0), &buf
}
