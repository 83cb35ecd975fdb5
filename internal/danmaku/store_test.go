package danmaku

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewStore_SortsByTimeStable(t *testing.T) {
	s := NewStore([]Record{
		{Time: 5, Text: "c"},
		{Time: 1, Text: "a"},
		{Time: 5, Text: "d"},
		{Time: 2.5, Text: "b"},
	})

	require.Equal(t, 4, s.Len())
	var texts []string
	for i := 0; i < s.Len(); i++ {
		texts = append(texts, s.At(i).Message)
	}
	require.Equal(t, []string{"a", "b", "c", "d"}, texts)
}

func TestNewStore_Empty(t *testing.T) {
	s := NewStore(nil)

	require.Equal(t, 0, s.Len())
	require.Empty(t, NewEngine(DefaultLayout()).Render(s, Frame{Width: 1920, Height: 1080}))
}

func TestStore_ResetUnplacesAll(t *testing.T) {
	s := NewStore([]Record{{Time: 0, Text: "a"}, {Time: 1, Text: "b"}})
	NewEngine(DefaultLayout()).Render(s, Frame{Width: 1920, Height: 1080, Pos: 1, Speed: 1})
	require.Equal(t, 2, s.Placed())

	s.Reset()

	require.Equal(t, 0, s.Placed())
	require.Equal(t, uint64(1), s.Epoch())
}

func TestStore_AtReturnsCopy(t *testing.T) {
	s := NewStore([]Record{{Time: 0, Text: "a"}})
	NewEngine(DefaultLayout()).Render(s, Frame{Width: 100, Height: 100, Speed: 1})

	c := s.At(0)
	c.placement.X = -999

	p, ok := s.At(0).Placement()
	require.True(t, ok)
	require.NotEqual(t, -999.0, p.X)
}

func TestStore_AtExposesPlacement(t *testing.T) {
	s := NewStore([]Record{{Time: 0, Text: "a"}, {Time: 100, Text: "b"}})
	NewEngine(DefaultLayout()).Render(s, Frame{Width: 1920, Height: 1080, Speed: 1})

	require.True(t, s.At(0).Placed())
	p, ok := s.At(0).Placement()
	require.True(t, ok)
	require.Equal(t, 0, p.Lane)

	require.False(t, s.At(1).Placed(), "beyond the lookahead")
	_, ok = s.At(1).Placement()
	require.False(t, ok)
}
