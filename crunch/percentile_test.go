package crunch

import (
	"math"
	"testing"

	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		p      float64
		values []float64
		want   float64
	}{
		// ceil(0.5 * 4) = 2, the third smallest.
		{50, []float64{1, 2, 3, 4}, 3},
		// Index reaches N and clamps to the last element.
		{100, []float64{1, 2, 3, 4}, 4},
		{0, []float64{1, 2, 3, 4}, 1},
		{95, []float64{1, 2, 3, 4}, 4},
		// Input order does not matter.
		{50, []float64{4, 1, 3, 2}, 3},
		{50, []float64{7}, 7},
	}
	for _, test := range tests {
		expect.EQ(t, Percentile(test.p, test.values), test.want)
	}
}

func TestPercentileEmpty(t *testing.T) {
	assert.True(t, math.IsNaN(Percentile(50, nil)))
}

func TestPercentileLeavesInputUnsorted(t *testing.T) {
	values := []float64{4, 1, 3, 2}
	Percentile(50, values)
	assert.Equal(t, []float64{4, 1, 3, 2}, values)
}
