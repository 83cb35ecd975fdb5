package danmaku

// Occupancy records, per lane, the rightmost pixel still claimed by the last
// comment placed there during the current render pass. It is rebuilt for
// every pass.
type Occupancy struct {
	ends []float64
	set  []bool
}

// NewOccupancy returns an empty table of n lanes (at least one).
func NewOccupancy(n int) *Occupancy {
	if n < 1 {
		n = 1
	}
	return &Occupancy{
		ends: make([]float64, n),
		set:  make([]bool, n),
	}
}

// Len returns the number of lanes.
func (o *Occupancy) Len() int {
	return len(o.ends)
}

// End returns the occupied extent of lane and whether anything claimed it.
func (o *Occupancy) End(lane int) (float64, bool) {
	if lane < 0 || lane >= len(o.ends) {
		return 0, false
	}
	return o.ends[lane], o.set[lane]
}

// Allocate picks a lane for a comment entering at x: the lowest lane that is
// empty or whose extent ends strictly left of x. When every lane is busy the
// comment shares the lane with the smallest extent, lowest index on ties.
func (o *Occupancy) Allocate(x float64) int {
	for lane := range o.ends {
		if !o.set[lane] || o.ends[lane] < x {
			return lane
		}
	}

	best := 0
	for lane := 1; lane < len(o.ends); lane++ {
		if o.ends[lane] < o.ends[best] {
			best = lane
		}
	}
	return best
}

// Extend raises lane's extent to end if it is further right. Lanes outside
// the table are ignored and reported as false.
func (o *Occupancy) Extend(lane int, end float64) bool {
	if lane < 0 || lane >= len(o.ends) {
		return false
	}
	if !o.set[lane] || end > o.ends[lane] {
		o.ends[lane] = end
		o.set[lane] = true
	}
	return true
}
