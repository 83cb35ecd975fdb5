package danmaku

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNewOccupancy_AtLeastOneLane(t *testing.T) {
	require.Equal(t, 1, NewOccupancy(0).Len())
	require.Equal(t, 1, NewOccupancy(-3).Len())
	require.Equal(t, 24, NewOccupancy(24).Len())
}

func TestAllocate_EmptyTablePicksLaneZero(t *testing.T) {
	require.Equal(t, 0, NewOccupancy(5).Allocate(1920))
}

func TestAllocate_SkipsLanesEndingAtOrPastX(t *testing.T) {
	o := NewOccupancy(3)
	o.Extend(0, 2000)
	o.Extend(1, 1920)

	// Lane 1 ends exactly at x, which is not strictly left of it.
	require.Equal(t, 2, o.Allocate(1920))
}

func TestAllocate_ReusesLaneClearOfX(t *testing.T) {
	o := NewOccupancy(3)
	o.Extend(0, 2000)
	o.Extend(1, 500)

	require.Equal(t, 1, o.Allocate(1920))
}

func TestAllocate_CrowdingPicksSmallestExtent(t *testing.T) {
	o := NewOccupancy(3)
	o.Extend(0, 2100)
	o.Extend(1, 2050)
	o.Extend(2, 2080)

	require.Equal(t, 1, o.Allocate(1920))
}

func TestAllocate_CrowdingTieBreaksOnLowestIndex(t *testing.T) {
	o := NewOccupancy(4)
	o.Extend(0, 2100)
	o.Extend(1, 2000)
	o.Extend(2, 2000)
	o.Extend(3, 2050)

	require.Equal(t, 1, o.Allocate(1920))
}

func TestExtend_KeepsMaximum(t *testing.T) {
	o := NewOccupancy(2)
	require.True(t, o.Extend(0, 100))
	require.True(t, o.Extend(0, 50))

	end, ok := o.End(0)
	require.True(t, ok)
	require.Equal(t, 100.0, end)

	_, ok = o.End(1)
	require.False(t, ok)
}

func TestExtend_IgnoresOutOfRangeLane(t *testing.T) {
	o := NewOccupancy(2)

	require.False(t, o.Extend(2, 10))
	require.False(t, o.Extend(-1, 10))
	_, ok := o.End(2)
	require.False(t, ok)
}

// TestProperty_AllocatePolicy checks the allocator against its definition for
// arbitrary tables: a free lane wins when one exists, else the smallest
// extent with the lowest index.
func TestProperty_AllocatePolicy(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 12).Draw(t, "lanes")
		o := NewOccupancy(n)
		for lane := 0; lane < n; lane++ {
			if rapid.Bool().Draw(t, "used") {
				o.Extend(lane, rapid.Float64Range(-500, 2500).Draw(t, "end"))
			}
		}
		x := rapid.Float64Range(-500, 2500).Draw(t, "x")

		got := o.Allocate(x)
		if got < 0 || got >= n {
			t.Fatalf("lane %d out of range [0,%d)", got, n)
		}

		free := -1
		for lane := 0; lane < n; lane++ {
			end, ok := o.End(lane)
			if !ok || end < x {
				free = lane
				break
			}
		}
		if free >= 0 {
			if got != free {
				t.Fatalf("expected first free lane %d, got %d", free, got)
			}
			return
		}

		best := 0
		for lane := 1; lane < n; lane++ {
			a, _ := o.End(lane)
			b, _ := o.End(best)
			if a < b {
				best = lane
			}
		}
		if got != best {
			t.Fatalf("expected least occupied lane %d, got %d", best, got)
		}
	})
}
