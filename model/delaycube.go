package model

// DelayCube holds simulated slant TEC per line of sight, indexed as
// [time][station][direction]. Values are in TECU.
type DelayCube struct {
	ObservationID string

	TimesMJDSeconds []float64
	StationIDs      []string
	DirectionIDs    []string

	Values [][][]float64
}

// NewDelayCube allocates a cube with the given axes, zero filled.
func NewDelayCube(obsID string, times []float64, stationIDs, directionIDs []string) *DelayCube {
	values := make([][][]float64, len(times))
	for t := range values {
		values[t] = make([][]float64, len(stationIDs))
		for s := range values[t] {
			values[t][s] = make([]float64, len(directionIDs))
		}
	}
	return &DelayCube{
		ObservationID:   obsID,
		TimesMJDSeconds: append([]float64(nil), times...),
		StationIDs:      append([]string(nil), stationIDs...),
		DirectionIDs:    append([]string(nil), directionIDs...),
		Values:          values,
	}
}

// At returns the TEC value for the given time, station and direction indices.
func (c *DelayCube) At(t, s, d int) float64 { return c.Values[t][s][d] }

// Set stores a TEC value for the given time, station and direction indices.
func (c *DelayCube) Set(t, s, d int, v float64) { c.Values[t][s][d] = v }
