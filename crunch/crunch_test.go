package crunch

import (
	"testing"

	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecord struct {
	movie        string
	hole         int
	qStart, qEnd int
	aStart, aEnd int
	identity     float64
	readQual     float64
}

type fakeSource []fakeRecord

func (s fakeSource) NumRecords() int            { return len(s) }
func (s fakeSource) MovieName(i int) string     { return s[i].movie }
func (s fakeSource) HoleNumber(i int) int       { return s[i].hole }
func (s fakeSource) Query(i int) (int, int)     { return s[i].qStart, s[i].qEnd }
func (s fakeSource) Alignment(i int) (int, int) { return s[i].aStart, s[i].aEnd }
func (s fakeSource) Identity(i int) float64     { return s[i].identity }
func (s fakeSource) ReadQual(i int) float64     { return s[i].readQual }

func rec(movie string, hole, qStart, qEnd, aStart, aEnd int) fakeRecord {
	return fakeRecord{
		movie: movie, hole: hole,
		qStart: qStart, qEnd: qEnd,
		aStart: aStart, aEnd: aEnd,
		identity: 0.9, readQual: 0.8,
	}
}

func TestCrunchMovieDiscovery(t *testing.T) {
	src := fakeSource{
		rec("m2", 1, 0, 100, 50, 150),
		rec("m1", 1, 0, 100, 50, 150),
		rec("m3", 1, 0, 100, 50, 150),
		rec("m2", 2, 0, 100, 50, 150),
	}
	c, err := Crunch(src, "m1")
	require.NoError(t, err)
	// The whole container is scanned, so all movies are discovered
	// even though only m1 was selected.
	assert.Equal(t, 3, len(c.Movies))
	assert.Equal(t, []string{"m1", "m2", "m3"}, c.SortedMovieNames())
	assert.Equal(t, 1, len(c.Subreads))
	assert.Equal(t, 1, len(c.Spans))
}

func TestCrunchMissingMovie(t *testing.T) {
	src := fakeSource{rec("m1", 1, 0, 100, 50, 150)}
	_, err := Crunch(src, "nosuchmovie")
	assert.Error(t, err)
}

func TestCrunchIsFirst(t *testing.T) {
	// ZmwID sequence A, A, B must yield isFirst 1, 0, 1.
	src := fakeSource{
		rec("m1", 7, 0, 100, 50, 150),
		rec("m1", 7, 100, 200, 150, 250),
		rec("m1", 8, 0, 100, 50, 150),
	}
	c, err := Crunch(src, "m1")
	require.NoError(t, err)

	col := colIndex(t, "isFirst")
	expect.EQ(t, c.Subreads[SubreadID{"m1", 7, 0, 100}][col], 1.0)
	expect.EQ(t, c.Subreads[SubreadID{"m1", 7, 100, 200}][col], 0.0)
	expect.EQ(t, c.Subreads[SubreadID{"m1", 8, 0, 100}][col], 1.0)
}

func TestCrunchIsFirstIgnoresOtherMovies(t *testing.T) {
	// A record from another movie between two subreads of the same
	// read does not reset the accumulator.
	src := fakeSource{
		rec("m1", 7, 0, 100, 50, 150),
		rec("m2", 7, 0, 100, 50, 150),
		rec("m1", 7, 100, 200, 150, 250),
	}
	c, err := Crunch(src, "m1")
	require.NoError(t, err)

	col := colIndex(t, "isFirst")
	expect.EQ(t, c.Subreads[SubreadID{"m1", 7, 100, 200}][col], 0.0)
}

func TestCrunchDuplicateSubreadKeepsLatest(t *testing.T) {
	src := fakeSource{
		rec("m1", 7, 0, 100, 50, 150), // length 100
		rec("m1", 7, 0, 100, 50, 200), // same SubreadID, length 150
	}
	c, err := Crunch(src, "m1")
	require.NoError(t, err)

	assert.Equal(t, 1, c.DuplicateSubreads)
	assert.Equal(t, 1, len(c.Subreads))
	col := colIndex(t, "Length")
	expect.EQ(t, c.Subreads[SubreadID{"m1", 7, 0, 100}][col], 150.0)
}

func TestCrunchUnclippedSentinel(t *testing.T) {
	src := fakeSource{rec("m1", 7, -1, -1, 100, 250)}
	c, err := Crunch(src, "m1")
	require.NoError(t, err)

	// (-1, -1) keys the subread as (0, aEnd-aStart).
	_, ok := c.Subreads[SubreadID{"m1", 7, 0, 150}]
	assert.True(t, ok)
}

func TestCrunchSpans(t *testing.T) {
	src := fakeSource{
		rec("m1", 7, 0, 100, 500, 600),
		rec("m1", 7, 100, 200, 300, 450),
		rec("m1", 7, 200, 300, 550, 900),
	}
	c, err := Crunch(src, "m1")
	require.NoError(t, err)

	span := c.Spans[ZmwID{"m1", 7}]
	assert.Equal(t, 300, span.Start)
	assert.Equal(t, 900, span.End)
	assert.True(t, span.Start <= span.End)
	assert.Equal(t, 600, span.Length())
}

func TestCrunchMaxSubread(t *testing.T) {
	src := fakeSource{
		rec("m1", 7, 0, 100, 50, 150),    // length 100
		rec("m1", 7, 100, 300, 150, 350), // length 200, the winner
		rec("m1", 7, 300, 500, 400, 600), // length 200 again; tie keeps first
	}
	c, err := Crunch(src, "m1")
	require.NoError(t, err)

	max := c.MaxSubread[ZmwID{"m1", 7}]
	assert.Equal(t, 200, max.Length)
	assert.Equal(t, SubreadID{"m1", 7, 100, 300}, max.ID)
}

func TestCrunchRowSchema(t *testing.T) {
	src := fakeSource{{
		movie: "m1", hole: 7,
		qStart: 0, qEnd: 100,
		aStart: 50, aEnd: 170,
		identity: 0.95, readQual: 0.87,
	}}
	c, err := Crunch(src, "m1")
	require.NoError(t, err)

	row := c.Subreads[SubreadID{"m1", 7, 0, 100}]
	require.Equal(t, len(Columns), len(row))
	expect.EQ(t, row[colIndex(t, "Length")], 120.0)
	expect.EQ(t, row[colIndex(t, "Accuracy")], 0.95)
	expect.EQ(t, row[colIndex(t, "Read quality")], 0.87)
	expect.EQ(t, row[colIndex(t, "modStart")], ModStartFiller)
}

func colIndex(t *testing.T, name string) int {
	for i, c := range Columns {
		if c == name {
			return i
		}
	}
	t.Fatalf("no column %q", name)
	return -1
}
