package variant

import "fmt"

// Plan splits one or several disjoint ranges into chunks of at most ChunkSize
// variants. Chunks keep the input order of the ranges and never span two
// ranges, even adjacent ones.
type Plan struct {
	size   int
	ranges []Range
	chunks []Range
}

// NewPlan validates the ranges and cuts them into chunks.
func NewPlan(ranges []Range, chunkSize int) (*Plan, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: %d must be at least 1", ErrInvalidChunkSize, chunkSize)
	}
	if len(ranges) == 0 {
		return nil, fmt.Errorf("%w: no range given", ErrInvalidRange)
	}
	for _, r := range ranges {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}
	for i := range ranges {
		for j := i + 1; j < len(ranges); j++ {
			if ranges[i].Overlaps(ranges[j]) {
				return nil, fmt.Errorf("%w: %s and %s", ErrOverlappingRanges, ranges[i], ranges[j])
			}
		}
	}
	p := &Plan{size: chunkSize, ranges: append([]Range(nil), ranges...)}
	for _, r := range ranges {
		p.chunks = append(p.chunks, split(r, chunkSize)...)
	}
	return p, nil
}

// NewSinglePlan is a shorthand for a plan over [first, last].
func NewSinglePlan(first, last, chunkSize int) (*Plan, error) {
	return NewPlan([]Range{{First: first, Last: last}}, chunkSize)
}

func split(r Range, size int) []Range {
	out := make([]Range, 0, (r.Len()+size-1)/size)
	lo := r.First
	for {
		hi := lo + size - 1
		// hi < lo guards against int overflow with very large sizes
		if hi > r.Last || hi < lo {
			hi = r.Last
		}
		out = append(out, Range{First: lo, Last: hi})
		if hi == r.Last {
			return out
		}
		lo = hi + 1
	}
}

// ChunkSize returns the maximum number of variants per chunk.
func (p *Plan) ChunkSize() int { return p.size }

// ChunkOffset returns the index of the first chunk to run.
func (p *Plan) ChunkOffset() int { return 0 }

// ChunkCount returns the number of chunks.
func (p *Plan) ChunkCount() int { return len(p.chunks) }

// ChunkRange returns the variants covered by chunk i. Index -1 yields
// EmptyRange without error.
func (p *Plan) ChunkRange(i int) (Range, error) {
	if i == -1 {
		return EmptyRange, nil
	}
	if i < -1 || i >= len(p.chunks) {
		return EmptyRange, fmt.Errorf("%w: %d not in [0, %d)", ErrChunkOutOfRange, i, len(p.chunks))
	}
	return p.chunks[i], nil
}

// ChunkFromIndex returns the chunk holding variant v.
func (p *Plan) ChunkFromIndex(v int) (int, bool) {
	for i, c := range p.chunks {
		if c.Contains(v) {
			return i, true
		}
	}
	return -1, false
}

// VariantCount returns the total number of variants across all ranges.
func (p *Plan) VariantCount() int {
	n := 0
	for _, r := range p.ranges {
		n += r.Len()
	}
	return n
}

// Ranges returns a copy of the input ranges.
func (p *Plan) Ranges() []Range { return append([]Range(nil), p.ranges...) }

// Chunks returns a copy of every chunk range in index order.
func (p *Plan) Chunks() []Range { return append([]Range(nil), p.chunks...) }
