package selltype

import "strings"

// SellType is the transaction category a region is offered under.
type SellType uint8

const (
	Sell SellType = iota + 1
	Rent
	Contract
)

var ordered = [...]SellType{Sell, Rent, Contract}

func (t SellType) Name() string {
	switch t {
	case Sell:
		return "sell"
	case Rent:
		return "rent"
	case Contract:
		return "contract"
	default:
		return ""
	}
}

func (t SellType) String() string { return t.Name() }

func (t SellType) Valid() bool { return t >= Sell && t <= Contract }

func Lookup(name string) (SellType, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sell":
		return Sell, true
	case "rent":
		return Rent, true
	case "contract":
		return Contract, true
	}
	return 0, false
}

// Values returns every sell type in natural order.
func Values() []SellType {
	out := make([]SellType, len(ordered))
	copy(out, ordered[:])
	return out
}

// Set is an ordered set of sell types. The zero value is empty.
type Set uint8

func All() Set {
	var s Set
	for _, t := range ordered {
		s = s.Add(t)
	}
	return s
}

func SetOf(types ...SellType) Set {
	var s Set
	for _, t := range types {
		s = s.Add(t)
	}
	return s
}

func (s Set) Add(t SellType) Set {
	if !t.Valid() {
		return s
	}
	return s | 1<<(t-1)
}

func (s Set) Has(t SellType) bool {
	if !t.Valid() {
		return false
	}
	return s&(1<<(t-1)) != 0
}

func (s Set) Empty() bool { return s == 0 }

func (s Set) IsAll() bool { return s == All() }

func (s Set) Slice() []SellType {
	out := make([]SellType, 0, len(ordered))
	for _, t := range ordered {
		if s.Has(t) {
			out = append(out, t)
		}
	}
	return out
}

func (s Set) Names() []string {
	types := s.Slice()
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, t.Name())
	}
	return out
}
