// Package segment numbers the utterances of a dictation session.
//
// A segment is one stretch of recognized speech that ends in a finalized
// transcript event. Every interim hypothesis published while the utterance is
// still open carries the ID of that segment, and so does the final event that
// closes it, which lets subscribers fold partial results into the final text.
package segment

import (
	"fmt"
	"sync/atomic"
)

// Tracker hands out segment IDs of the form "<sessionID>-seg-<n>" for a single
// session. Numbering starts at 1 and never repeats within the session.
type Tracker struct {
	sessionID string
	n         atomic.Uint64
}

// New returns a Tracker whose first open segment is number 1.
func New(sessionID string) *Tracker {
	t := &Tracker{sessionID: sessionID}
	t.n.Store(1)
	return t
}

// Current returns the ID of the segment that interim results belong to.
func (t *Tracker) Current() string {
	return t.id(t.n.Load())
}

// Finalize closes the open segment and returns its ID. Results that arrive
// afterwards belong to the next segment.
func (t *Tracker) Finalize() string {
	return t.id(t.n.Add(1) - 1)
}

func (t *Tracker) id(n uint64) string {
	return fmt.Sprintf("%s-seg-%d", t.sessionID, n)
}
