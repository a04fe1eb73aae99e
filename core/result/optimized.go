package result

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"strings"
)

// OptimizedFileName is the optional scratch file holding the initial
// set-points of the HVDC lines and phase shifters the solver may optimize.
const OptimizedFileName = "input_optimized_time_series.json"

// InitialSeries holds initial values on the global variant axis. A nil
// value means no initial value for that variant.
type InitialSeries struct {
	Name   string            `json:"name"`
	Tags   map[string]string `json:"tags"`
	Values []*float64        `json:"values"`
}

// ReadInitialSeries decodes a JSON array of InitialSeries.
func ReadInitialSeries(r io.Reader) ([]InitialSeries, error) {
	var out []InitialSeries
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadInitialSeries reads path. A missing file yields no series and no error.
func LoadInitialSeries(path string) ([]InitialSeries, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ReadInitialSeries(f)
}

func (s InitialSeries) at(v int) (float64, bool) {
	if v < 0 || v >= len(s.Values) || s.Values[v] == nil {
		return 0, false
	}
	return *s.Values[v], true
}

// CompleteOptimized fills the gaps of optimized equipment channels: basecase
// HVDC/PST channels take the initial value where the solver wrote nothing,
// then curative channels of the same equipment take the basecase value.
func (rs *ResultSet) CompleteOptimized(initial []InitialSeries) {
	if len(initial) == 0 {
		return
	}
	for _, s := range initial {
		rs.completePreventive(s)
	}
	for _, s := range initial {
		prev, ok := rs.numbers[s.Name]
		if !ok {
			continue
		}
		for name, c := range rs.numbers {
			if !isCurative(s.Name, s.Tags, name, c.tags) {
				continue
			}
			for i := range c.set {
				if !c.set[i] && prev.set[i] {
					c.put(i, prev.values[i])
				}
			}
		}
	}
}

func (rs *ResultSet) completePreventive(s InitialSeries) {
	c, ok := rs.numbers[s.Name]
	if !ok {
		typ, id := equipment(s.Tags)
		prefix := optimizedPrefix(s.Name, s.Tags)
		if prefix == "" {
			return
		}
		name := prefix + id
		if c, ok = rs.numbers[name]; !ok {
			c = newColumn[float64](rs.length, map[string]string{typ: id, TagContingency: Basecase})
			rs.numbers[name] = c
		}
	}
	for i := range c.set {
		if c.set[i] {
			continue
		}
		if x, ok := s.at(i + rs.offset); ok {
			c.put(i, x)
		}
	}
}

func equipment(tags map[string]string) (typ, id string) {
	if id, ok := tags[TagHVDC]; ok {
		return TagHVDC, id
	}
	if id, ok := tags[TagPST]; ok {
		return TagPST, id
	}
	return "", ""
}

func optimizedPrefix(name string, tags map[string]string) string {
	typ, _ := equipment(tags)
	switch typ {
	case TagHVDC:
		return PrefixHVDC
	case TagPST:
		for _, p := range []string{PrefixPSTCurTap, PrefixPSTCur, PrefixPSTTap, PrefixPST} {
			if strings.HasPrefix(name, p) {
				return p
			}
		}
	}
	return ""
}

func isCurative(prevName string, prevTags map[string]string, name string, tags map[string]string) bool {
	prevType, prevID := equipment(prevTags)
	typ, id := equipment(tags)
	if typ == "" || prevType != typ || id == "" || id != prevID {
		return false
	}
	contingency, ok := tags[TagContingency]
	if !ok || contingency == Basecase {
		return false
	}
	if typ == TagPST {
		switch {
		case strings.HasPrefix(prevName, PrefixPSTTap):
			return strings.HasPrefix(name, PrefixPSTCurTap)
		case strings.HasPrefix(prevName, PrefixPST):
			return strings.HasPrefix(name, PrefixPSTCur) && !strings.HasPrefix(name, PrefixPSTCurTap)
		}
	}
	return true
}
