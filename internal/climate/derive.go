package climate

import "math"

const (
	// HDDBase is the base temperature for heating degree days.
	HDDBase = 15.5
	// DesignMargin is subtracted from the coldest winter monthly minimum.
	DesignMargin = 2.0
	// LapseRate is the temperature drop per metre of elevation.
	LapseRate = 0.0065
)

var daysInMonth = [12]float64{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// Normals are monthly climate normals, January first, in °C.
type Normals struct {
	Mean      [12]float64
	Min       [12]float64
	Elevation *float64 // metres, when the source reports it
}

// DesignTempFromNormals takes the coldest of the December, January and
// February minima, subtracts the safety margin and the altitude correction,
// and rounds to the nearest degree.
func DesignTempFromNormals(n Normals, elevation float64) float64 {
	coldest := math.Min(n.Min[11], math.Min(n.Min[0], n.Min[1]))
	return roundHalfUp(coldest - DesignMargin - LapseRate*elevation)
}

// HDDFromNormals sums max(0, base - mean) × days over the year.
func HDDFromNormals(n Normals) float64 {
	var sum float64
	for m, mean := range n.Mean {
		sum += math.Max(0, HDDBase-mean) * daysInMonth[m]
	}
	return roundHalfUp(sum)
}

// roundHalfUp rounds .5 towards +∞, so -3.5 becomes -3.
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}
