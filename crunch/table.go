package crunch

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
)

// MovieIdx locates one movie's rows inside the flat arrays of a
// Table: [ROffs, ROffs+RLen) in the read array and [SOffs,
// SOffs+SLen) in the subread array. Immutable once the table is
// built.
type MovieIdx struct {
	Name string
	// Read array indices.
	ROffs, RLen int
	// Subread array indices.
	SOffs, SLen int
}

// Matches Springfield-era movie names; Astro names pass through as is.
var springfieldRE = regexp.MustCompile(`m\d+_\d+_\w+_(c\d+_s\d_p\d)`)

// ShortName returns the cell id of a Springfield movie name, or the
// full name when it does not follow that convention. The short form
// is what reports display to users.
func (m *MovieIdx) ShortName() string {
	if match := springfieldRE.FindStringSubmatch(m.Name); match != nil {
		return match[1]
	}
	return m.Name
}

func (m *MovieIdx) String() string {
	return fmt.Sprintf("<MovieIdx name:%s>", m.Name)
}

// Table holds crunched alignment data partitioned by movie, ready for
// reporting and plotting. The read-span lengths and the subread
// statistics rows each live in one contiguous float64 array ordered
// by movie; per-movie access returns subslices of those arrays.
//
// A Table is immutable after Build and safe for unsynchronized
// concurrent reads.
type Table struct {
	cols     []string
	width    int
	movies   []MovieIdx
	reads    []float64
	subreads []float64 // row-major, stride == width
}

// zmwIDsByHole orders a movie's reads for deterministic layout.
type zmwIDsByHole []ZmwID

func (z zmwIDsByHole) Len() int           { return len(z) }
func (z zmwIDsByHole) Swap(i, j int)      { z[i], z[j] = z[j], z[i] }
func (z zmwIDsByHole) Less(i, j int) bool { return z[i].Hole < z[j].Hole }

// subreadIDsByCoord orders a movie's subreads for deterministic
// layout.
type subreadIDsByCoord []SubreadID

func (s subreadIDsByCoord) Len() int      { return len(s) }
func (s subreadIDsByCoord) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s subreadIDsByCoord) Less(i, j int) bool {
	a, b := s[i], s[j]
	if a.Hole != b.Hole {
		return a.Hole < b.Hole
	}
	if a.QStart != b.QStart {
		return a.QStart < b.QStart
	}
	return a.QEnd < b.QEnd
}

// Build partitions the crunched mappings into a movie-indexed Table.
//
// Movies are laid out in the order given by movies; the caller owns
// that order and must keep it stable to get identical layouts across
// runs. Within one movie, reads are ordered by hole number and
// subreads by (hole, qStart, qEnd), so two Build calls over equal
// inputs yield identical arrays and indices.
//
// cols describes the subread row schema. A width mismatch between
// cols and the first appended row is fatal: a partially built table
// would silently misalign every downstream column lookup. An empty
// selection is not an error and yields a table with empty arrays and
// no movie index entries.
func Build(movies []string, spans map[ZmwID]Span, subreads map[SubreadID]SubreadRow, cols []string) (*Table, error) {
	t := &Table{
		cols:  append([]string(nil), cols...),
		width: len(cols),
	}

	// Bucket keys by movie up front instead of rescanning both maps
	// once per movie.
	spansByMovie := make(map[string][]ZmwID)
	for id := range spans {
		spansByMovie[id.Movie] = append(spansByMovie[id.Movie], id)
	}
	subreadsByMovie := make(map[string][]SubreadID)
	for id := range subreads {
		subreadsByMovie[id.Movie] = append(subreadsByMovie[id.Movie], id)
	}

	rOffs, sOffs := 0, 0
	checkedWidth := false
	for _, name := range movies {
		m := MovieIdx{Name: name, ROffs: rOffs, SOffs: sOffs}

		zmws := spansByMovie[name]
		sort.Sort(zmwIDsByHole(zmws))
		for _, id := range zmws {
			t.reads = append(t.reads, float64(spans[id].Length()))
		}
		m.RLen = len(zmws)
		rOffs += m.RLen

		subs := subreadsByMovie[name]
		sort.Sort(subreadIDsByCoord(subs))
		for _, id := range subs {
			row := subreads[id]
			if !checkedWidth {
				if len(row) != t.width {
					return nil, errors.E(fmt.Sprintf(
						"subread row width %d is incompatible with %d columns", len(row), t.width))
				}
				checkedWidth = true
			}
			t.subreads = append(t.subreads, row...)
		}
		m.SLen = len(subs)
		sOffs += m.SLen

		t.movies = append(t.movies, m)
	}
	return t, nil
}

// Movies returns the per-movie index descriptors in construction
// order.
func (t *Table) Movies() []MovieIdx { return t.movies }

// Cols returns the subread column names in row order.
func (t *Table) Cols() []string { return t.cols }

// Reads returns the read-span length array, restricted to m when m is
// non-nil. The returned slice is a view into the table, not a copy.
func (t *Table) Reads(m *MovieIdx) []float64 {
	if m == nil {
		return t.reads
	}
	return t.reads[m.ROffs : m.ROffs+m.RLen]
}

// Subreads returns the subread statistics rows, restricted to m when
// m is non-nil. The view shares the table's backing array.
func (t *Table) Subreads(m *MovieIdx) SubreadView {
	if m == nil {
		return SubreadView{cols: t.cols, width: t.width, data: t.subreads}
	}
	return SubreadView{
		cols:  t.cols,
		width: t.width,
		data:  t.subreads[m.SOffs*t.width : (m.SOffs+m.SLen)*t.width],
	}
}

// SubreadView is a windowed, read-only view over a table's subread
// rows.
type SubreadView struct {
	cols  []string
	width int
	data  []float64
}

// Len returns the number of rows in the view.
func (v SubreadView) Len() int {
	if v.width == 0 {
		return 0
	}
	return len(v.data) / v.width
}

// Row returns the i'th row as a view into the backing array.
func (v SubreadView) Row(i int) []float64 {
	return v.data[i*v.width : (i+1)*v.width]
}

// Column extracts the named column into a freshly allocated slice.
func (v SubreadView) Column(col string) ([]float64, error) {
	ci := -1
	for i, c := range v.cols {
		if c == col {
			ci = i
			break
		}
	}
	if ci < 0 {
		return nil, errors.E("no such subread column:", col)
	}
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.data[i*v.width+ci]
	}
	return out, nil
}

// WriteTSV dumps the subread rows to w, one line per subread,
// prefixed with the owning movie name. Intended for debugging and for
// feeding external plotting scripts.
func (t *Table) WriteTSV(w io.Writer) error {
	out := tsv.NewWriter(w)
	out.WriteString("movie")
	for _, col := range t.cols {
		out.WriteString(col)
	}
	if err := out.EndLine(); err != nil {
		return err
	}
	for mi := range t.movies {
		m := &t.movies[mi]
		v := t.Subreads(m)
		for i := 0; i < v.Len(); i++ {
			out.WriteString(m.Name)
			for _, x := range v.Row(i) {
				out.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
			}
			if err := out.EndLine(); err != nil {
				return err
			}
		}
	}
	return out.Flush()
}
