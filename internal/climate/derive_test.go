package climate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func flatNormals(mean, low float64) Normals {
	var n Normals
	for i := range n.Mean {
		n.Mean[i] = mean
		n.Min[i] = low
	}
	return n
}

func TestDesignTempFromNormals(t *testing.T) {
	n := flatNormals(8, 4)
	n.Min[11], n.Min[0], n.Min[1] = -1.0, -2.4, -1.5

	assert.Equal(t, -4.0, DesignTempFromNormals(n, 0))
	// -2.4 - 2 - 0.65 = -5.05
	assert.Equal(t, -5.0, DesignTempFromNormals(n, 100))
	// -2.5 - 2 = -4.5 rounds up
	n.Min[0] = -2.5
	assert.Equal(t, -4.0, DesignTempFromNormals(n, 0))
}

func TestDesignTempIgnoresNonWinterMonths(t *testing.T) {
	n := flatNormals(8, 2)
	n.Min[6] = -20
	assert.Equal(t, 0.0, DesignTempFromNormals(n, 0))
}

func TestHDDFromNormals(t *testing.T) {
	assert.Equal(t, 3650.0, HDDFromNormals(flatNormals(5.5, 0)))
	assert.Equal(t, 0.0, HDDFromNormals(flatNormals(20, 10)))

	n := flatNormals(20, 10)
	n.Mean[1] = 10.5 // February: 5 degrees × 28 days
	assert.Equal(t, 140.0, HDDFromNormals(n))
}

func TestRoundHalfUp(t *testing.T) {
	assert.Equal(t, -3.0, roundHalfUp(-3.5))
	assert.Equal(t, 4.0, roundHalfUp(3.5))
	assert.Equal(t, -4.0, roundHalfUp(-3.51))
}
