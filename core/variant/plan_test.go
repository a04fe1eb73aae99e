package variant

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNewSinglePlan(t *testing.T) {
	p, err := NewSinglePlan(3, 12, 4)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	want := []Range{{3, 6}, {7, 10}, {11, 12}}
	if p.ChunkCount() != len(want) {
		t.Fatalf("expected %d chunks got %d", len(want), p.ChunkCount())
	}
	for i, w := range want {
		got, err := p.ChunkRange(i)
		if err != nil {
			t.Fatalf("chunk %d: %v", i, err)
		}
		if got != w {
			t.Errorf("chunk %d: expected %s got %s", i, w, got)
		}
	}
}

// TestPlanCoverage checks that chunks are ordered, bounded and cover the
// input ranges exactly for many (ranges, size) combinations.
func TestPlanCoverage(t *testing.T) {
	inputs := [][]Range{
		{{0, 0}},
		{{0, 9}},
		{{5, 104}},
		{{10, 19}, {0, 9}},
		{{0, 3}, {4, 4}, {20, 33}},
	}
	for _, ranges := range inputs {
		for size := 1; size <= 12; size++ {
			p, err := NewPlan(ranges, size)
			if err != nil {
				t.Fatalf("plan %v/%d: %v", ranges, size, err)
			}
			covered := map[int]int{}
			ri := 0
			prevLast := -1
			for i := 0; i < p.ChunkCount(); i++ {
				c, _ := p.ChunkRange(i)
				if c.Len() > size || c.Len() == 0 {
					t.Fatalf("chunk %s has bad length for size %d", c, size)
				}
				for ri < len(ranges) && !ranges[ri].Contains(c.First) {
					ri++
					prevLast = -1
				}
				if ri == len(ranges) || !ranges[ri].Contains(c.Last) {
					t.Fatalf("chunk %s not inside a single range of %v", c, ranges)
				}
				if prevLast >= 0 && c.First != prevLast+1 {
					t.Fatalf("gap or overlap before chunk %s", c)
				}
				prevLast = c.Last
				for v := c.First; v <= c.Last; v++ {
					covered[v]++
				}
			}
			total := 0
			for _, r := range ranges {
				for v := r.First; v <= r.Last; v++ {
					if covered[v] != 1 {
						t.Fatalf("variant %d covered %d times", v, covered[v])
					}
				}
				total += r.Len()
			}
			if len(covered) != total || p.VariantCount() != total {
				t.Fatalf("expected %d variants covered got %d", total, len(covered))
			}
			if want := expectedCount(ranges, size); p.ChunkCount() != want {
				t.Fatalf("expected %d chunks got %d", want, p.ChunkCount())
			}
		}
	}
}

func expectedCount(ranges []Range, size int) int {
	n := 0
	for _, r := range ranges {
		n += (r.Len() + size - 1) / size
	}
	return n
}

func TestMultiRangeKeepsInputOrder(t *testing.T) {
	p, err := NewPlan([]Range{{10, 14}, {0, 4}}, 10)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	c0, _ := p.ChunkRange(0)
	c1, _ := p.ChunkRange(1)
	if c0 != (Range{10, 14}) || c1 != (Range{0, 4}) {
		t.Fatalf("unexpected chunks %s %s", c0, c1)
	}
}

func TestAdjacentRangesNotMerged(t *testing.T) {
	p, err := NewPlan([]Range{{0, 2}, {3, 5}}, 10)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if p.ChunkCount() != 2 {
		t.Fatalf("expected 2 chunks got %d", p.ChunkCount())
	}
}

func TestChunkRangeSentinel(t *testing.T) {
	p, err := NewSinglePlan(0, 99, 7)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	r, err := p.ChunkRange(-1)
	if err != nil {
		t.Fatalf("sentinel returned error: %v", err)
	}
	if r != EmptyRange || !r.IsEmpty() || r.Len() != 0 {
		t.Fatalf("expected empty marker got %s", r)
	}
	for _, i := range []int{-2, p.ChunkCount(), 1000} {
		if _, err := p.ChunkRange(i); !errors.Is(err, ErrChunkOutOfRange) {
			t.Errorf("index %d: expected ErrChunkOutOfRange got %v", i, err)
		}
	}
}

func TestNewPlanErrors(t *testing.T) {
	cases := []struct {
		name   string
		ranges []Range
		size   int
		want   error
	}{
		{"zero size", []Range{{0, 1}}, 0, ErrInvalidChunkSize},
		{"negative size", []Range{{0, 1}}, -3, ErrInvalidChunkSize},
		{"negative first", []Range{{-1, 4}}, 2, ErrInvalidRange},
		{"inverted", []Range{{5, 4}}, 2, ErrInvalidRange},
		{"no range", nil, 2, ErrInvalidRange},
		{"overlap", []Range{{0, 5}, {5, 9}}, 2, ErrOverlappingRanges},
	}
	for _, c := range cases {
		p, err := NewPlan(c.ranges, c.size)
		if !errors.Is(err, c.want) {
			t.Errorf("%s: expected %v got %v", c.name, c.want, err)
		}
		if p != nil {
			t.Errorf("%s: expected no partial plan", c.name)
		}
	}
	var re *RangeError
	if _, err := NewSinglePlan(4, 2, 1); !errors.As(err, &re) || re.Range.First != 4 {
		t.Fatalf("expected RangeError got %v", err)
	}
}

func TestChunkFromIndex(t *testing.T) {
	p, err := NewPlan([]Range{{0, 9}, {20, 29}}, 5)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if c, ok := p.ChunkFromIndex(22); !ok || c != 2 {
		t.Fatalf("expected chunk 2 got %d %v", c, ok)
	}
	if _, ok := p.ChunkFromIndex(15); ok {
		t.Fatalf("variant 15 should not belong to a chunk")
	}
}

func TestDecodeRanges(t *testing.T) {
	y := "ranges:\n  - first: 0\n    last: 9\n  - first: 20\n    last: 25\n"
	got, err := DecodeRanges(bytes.NewBufferString(y), "yaml")
	if err != nil {
		t.Fatalf("decode yaml: %v", err)
	}
	if len(got) != 2 || got[1] != (Range{20, 25}) {
		t.Fatalf("unexpected ranges %v", got)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "ranges.json")
	if err := os.WriteFile(path, []byte(`{"ranges":[{"first":3,"last":4}]}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err = LoadRanges(path)
	if err != nil {
		t.Fatalf("load json: %v", err)
	}
	if len(got) != 1 || got[0] != (Range{3, 4}) {
		t.Fatalf("unexpected ranges %v", got)
	}

	if _, err := DecodeRanges(bytes.NewBufferString(`{"ranges":[{"first":3,"last":1}]}`), "json"); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected invalid range error got %v", err)
	}
	if _, err := DecodeRanges(bytes.NewBufferString(""), "toml"); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}
