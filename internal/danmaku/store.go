package danmaku

import (
	"slices"
)

// Store is the time-sorted comment collection of one loaded media item.
// Order is fixed at construction; only placements change afterwards.
// A Store is not safe for concurrent use; the session guards it with a lock.
type Store struct {
	comments []Comment
	epoch    uint64
}

// NewStore builds a store from records, sorting them by appear time. Records
// with equal times keep their source order.
func NewStore(records []Record) *Store {
	comments := make([]Comment, 0, len(records))
	for _, r := range records {
		comments = append(comments, NewComment(r))
	}
	slices.SortStableFunc(comments, func(a, b Comment) int {
		switch {
		case a.Time < b.Time:
			return -1
		case a.Time > b.Time:
			return 1
		default:
			return 0
		}
	})
	return &Store{comments: comments}
}

// Len returns the number of comments.
func (s *Store) Len() int {
	return len(s.comments)
}

// At returns a copy of the i-th comment in time order.
func (s *Store) At(i int) Comment {
	c := s.comments[i]
	if c.placement != nil {
		p := *c.placement
		c.placement = &p
	}
	return c
}

// Reset unplaces every comment and starts a new epoch, so positions and
// lanes are recomputed from the playback position of the next render.
func (s *Store) Reset() {
	for i := range s.comments {
		s.comments[i].placement = nil
	}
	s.epoch++
}

// Epoch counts resets since construction.
func (s *Store) Epoch() uint64 {
	return s.epoch
}

// Placed returns how many comments currently hold a placement.
func (s *Store) Placed() int {
	n := 0
	for i := range s.comments {
		if s.comments[i].placement != nil {
			n++
		}
	}
	return n
}
