package result

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kilianp07/gridsim/core/logger"
	"github.com/kilianp07/gridsim/core/variant"
)

const fieldSeparator = ";"

// FileName returns the name of the result file written for variant v.
func FileName(v int) string { return "result_s" + strconv.Itoa(v) }

// VariantStatus tells how a variant's result file was handled. Missing and
// Invalid variants both end up with the ERROR_CODE sentinel; the status only
// keeps the cause apart for logs and metrics.
type VariantStatus int

const (
	VariantDecoded VariantStatus = iota
	VariantMissing
	VariantInvalid
)

func (s VariantStatus) String() string {
	switch s {
	case VariantDecoded:
		return "decoded"
	case VariantMissing:
		return "missing"
	case VariantInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("VariantStatus(%d)", int(s))
	}
}

// DecodeStats counts what a decode pass saw.
type DecodeStats struct {
	Lines   int
	Headers int
	Unknown int
	Values  int
}

// VariantResult is the outcome of reading one variant file.
type VariantResult struct {
	Variant int
	Status  VariantStatus
	Stats   DecodeStats
	Err     error
}

// ChunkStats aggregates the variant results of a chunk.
type ChunkStats struct {
	Decoded int
	Missing int
	Invalid int
	Values  int
}

func (s *ChunkStats) add(r VariantResult) {
	switch r.Status {
	case VariantDecoded:
		s.Decoded++
	case VariantMissing:
		s.Missing++
	default:
		s.Invalid++
	}
	s.Values += r.Stats.Values
}

// Decoder turns result files into ResultSet writes.
type Decoder struct {
	log logger.Logger
}

// NewDecoder returns a Decoder logging through log (nil discards).
func NewDecoder(log logger.Logger) *Decoder {
	return &Decoder{log: logger.OrNop(log)}
}

type write struct {
	name  string
	tags  map[string]string
	isStr bool
	num   float64
	str   string
}

// staging buffers the writes of a file so that a failing file leaves the
// ResultSet untouched.
type staging []write

func (s *staging) number(name string, tags map[string]string, v float64) {
	*s = append(*s, write{name: name, tags: tags, num: v})
}

func (s *staging) text(name string, tags map[string]string, v string) {
	*s = append(*s, write{name: name, tags: tags, isStr: true, str: v})
}

func (s staging) commit(rs *ResultSet, v int) error {
	for _, w := range s {
		var err error
		if w.isStr {
			err = rs.SetString(w.name, w.tags, v, w.str)
		} else {
			err = rs.SetNumber(w.name, w.tags, v, w.num)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Decode parses the lines of one result file for variant v and writes the
// values into rs. On error nothing is written.
func (d *Decoder) Decode(r io.Reader, v int, rs *ResultSet) error {
	_, err := d.decode(r, v, rs)
	return err
}

func (d *Decoder) decode(r io.Reader, v int, rs *ResultSet) (DecodeStats, error) {
	var stats DecodeStats
	if _, err := rs.position(v); err != nil {
		return stats, err
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	outages := NewOutageTable()
	var st staging
	for sc.Scan() {
		stats.Lines++
		line := sc.Text()
		f := strings.Split(line, fieldSeparator)
		kind, ok := records[f[0]]
		if !ok {
			stats.Unknown++
			d.log.Warnf("unexpected content for variant %d line %d: %q", v, stats.Lines, line)
			continue
		}
		if len(f) > headerField && f[headerField] == kind.header {
			stats.Headers++
			continue
		}
		before := len(st)
		if err := kind.decode(f, outages, &st); err != nil {
			return stats, lineError(err, stats.Lines, f[0])
		}
		stats.Values += len(st) - before
	}
	if err := sc.Err(); err != nil {
		return stats, fmt.Errorf("read variant %d: %w", v, err)
	}
	if stats.Lines == 0 {
		d.log.Warnf("empty result file for variant %d", v)
	}
	return stats, st.commit(rs, v)
}

func lineError(err error, line int, code string) error {
	var uo *UnknownOutageError
	if errors.As(err, &uo) {
		uo.Line, uo.Code = line, code
		return uo
	}
	var mr *MalformedRecordError
	if errors.As(err, &mr) {
		mr.Line, mr.Code = line, code
		return mr
	}
	return err
}

func (s recordSpec) decode(f []string, outages *OutageTable, st *staging) error {
	if len(f) < s.minFields {
		return &MalformedRecordError{Field: -1, Reason: fmt.Sprintf("expected at least %d fields, got %d", s.minFields, len(f))}
	}
	if s.roster {
		id, err := parseInt(f, rosterIDField)
		if err != nil {
			return err
		}
		outages.Register(id, f[rosterNameField])
		return nil
	}
	outage, hasOutage, err := s.resolveOutage(f, outages)
	if err != nil {
		return err
	}
	for _, vs := range s.values {
		if err := vs.decode(f, outage, hasOutage, outages, st); err != nil {
			return err
		}
	}
	if s.maxThreat {
		return decodeMaxThreats(f, outages, st)
	}
	return nil
}

func (s recordSpec) resolveOutage(f []string, outages *OutageTable) (string, bool, error) {
	switch s.mode {
	case outageLiteral:
		return f[s.outage], true, nil
	case outageRef, outageRefOrBasecase:
		id, err := parseInt(f, s.outage)
		if err != nil {
			return "", false, err
		}
		if id == 0 && s.mode == outageRefOrBasecase {
			return "", false, nil
		}
		name, err := outages.Resolve(id)
		return name, err == nil, err
	default:
		return "", false, nil
	}
}

func (vs valueSpec) decode(f []string, outage string, hasOutage bool, outages *OutageTable, st *staging) error {
	if vs.optional && f[vs.field] == "" {
		return nil
	}
	if vs.guard > 0 && f[vs.guard] == "" {
		return nil
	}
	name, tags := vs.channel(f, outage, hasOutage)
	switch vs.kind {
	case text:
		st.text(name, tags, f[vs.field])
	case outageName:
		id, err := parseInt(f, vs.field)
		if err != nil {
			return err
		}
		n, err := outages.Resolve(id)
		if err != nil {
			return err
		}
		st.text(name, tags, n)
	case integer:
		n, err := parseInt(f, vs.field)
		if err != nil {
			return err
		}
		st.number(name, tags, float64(n))
	default:
		x, err := parseFloat(f, vs.field)
		if err != nil {
			return err
		}
		st.number(name, tags, x)
	}
	return nil
}

func (vs valueSpec) channel(f []string, outage string, hasOutage bool) (string, map[string]string) {
	switch vs.naming {
	case untagged:
		if vs.id > 0 {
			return vs.prefix + f[vs.id], nil
		}
		return vs.prefix, nil
	case plain:
		id := f[vs.id]
		return vs.prefix + id, map[string]string{vs.typ: id}
	}
	id := f[vs.id]
	name := vs.prefix + id
	contingency := Basecase
	if hasOutage {
		name += "_" + outage
		contingency = outage
	}
	if vs.naming == detailed {
		element := f[vs.element]
		return name + "_" + element, map[string]string{TagBranch: id, TagAction: element, TagContingency: contingency}
	}
	return name, map[string]string{vs.typ: id, TagContingency: contingency}
}

// decodeMaxThreats reads the (outage id, flow) pairs trailing an R3B line up
// to the first empty field. Ranks start at 1.
func decodeMaxThreats(f []string, outages *OutageTable, st *staging) error {
	branch := f[threatIDField]
	tags := map[string]string{TagBranch: branch}
	rank := 0
	for i := threatStart; i < len(f) && f[i] != ""; i += 2 {
		rank++
		id, err := parseInt(f, i)
		if err != nil {
			return err
		}
		name, err := outages.Resolve(id)
		if err != nil {
			return err
		}
		if i+1 >= len(f) {
			return &MalformedRecordError{Field: i + 1, Reason: fmt.Sprintf("max threat %d has no flow", rank)}
		}
		flow, err := parseFloat(f, i+1)
		if err != nil {
			return err
		}
		st.text(fmt.Sprintf("%s%d_NAME_%s", PrefixMaxThreat, rank, branch), tags, name)
		st.number(fmt.Sprintf("%s%d_%s%s", PrefixMaxThreat, rank, PrefixFlow, branch), tags, flow)
	}
	return nil
}

func parseFloat(f []string, i int) (float64, error) {
	x, err := strconv.ParseFloat(strings.TrimSpace(f[i]), 64)
	if err != nil {
		return 0, &MalformedRecordError{Field: i, Reason: "invalid number", Err: err}
	}
	return x, nil
}

func parseInt(f []string, i int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(f[i]))
	if err != nil {
		return 0, &MalformedRecordError{Field: i, Reason: "invalid integer", Err: err}
	}
	return n, nil
}

// ReadVariant decodes the result file of variant v found in dir. A missing
// or undecodable file is logged and recorded as the ERROR_CODE sentinel; it
// never aborts the caller.
func (d *Decoder) ReadVariant(dir string, v int, rs *ResultSet) VariantResult {
	res := VariantResult{Variant: v}
	file, err := os.Open(filepath.Join(dir, FileName(v)))
	if err != nil {
		res.Err = err
		res.Status = VariantInvalid
		if errors.Is(err, fs.ErrNotExist) {
			res.Status = VariantMissing
			d.log.Errorf("result file not found for variant %d", v)
		} else {
			d.log.Errorf("cannot open result file for variant %d: %v", v, err)
		}
		d.sentinel(rs, v)
		return res
	}
	defer func() { _ = file.Close() }()
	res.Stats, err = d.decode(file, v, rs)
	if err != nil {
		d.log.Errorf("error while reading results for variant %d: %v", v, err)
		res.Err = err
		res.Status = VariantInvalid
		d.sentinel(rs, v)
	}
	return res
}

func (d *Decoder) sentinel(rs *ResultSet, v int) {
	if err := rs.RecordError(v); err != nil {
		d.log.Errorf("cannot record error code: %v", err)
	}
}

// ReadChunk decodes every variant of r in increasing order.
func (d *Decoder) ReadChunk(dir string, r variant.Range, rs *ResultSet) ChunkStats {
	var stats ChunkStats
	if r.IsEmpty() {
		return stats
	}
	for v := r.First; v <= r.Last; v++ {
		stats.add(d.ReadVariant(dir, v, rs))
	}
	return stats
}
