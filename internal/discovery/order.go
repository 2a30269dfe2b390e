package discovery

import (
	"time"
)

// Inversion is a pair of adjacent records whose dates descend.
type Inversion struct {
	Index      int // index of the later record
	Prev, Next time.Time
	PrevRaw    string
	NextRaw    string
}

// CheckOrder returns every adjacent pair whose parsed dates go backwards.
// Records with unparseable dates are skipped over rather than compared.
func CheckOrder(raws []string, parse func(string) (time.Time, bool)) []Inversion {
	var (
		out      []Inversion
		prev     time.Time
		prevRaw  string
		havePrev bool
	)
	for i, raw := range raws {
		t, ok := parse(raw)
		if !ok {
			continue
		}
		if havePrev && t.Before(prev) {
			out = append(out, Inversion{Index: i, Prev: prev, Next: t, PrevRaw: prevRaw, NextRaw: raw})
		}
		prev, prevRaw, havePrev = t, raw, true
	}
	return out
}
