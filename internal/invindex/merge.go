package invindex

import (
	"container/heap"
	"errors"
	"io"
)

// mergeSource is anything the k-way merge can pull an ordered tuple stream
// from: a spill file on disk, or the final in-memory buffer left over
// after the last flush.
type mergeSource interface {
	next() (tuple, error) // io.EOF when exhausted
	close() error
}

// sliceSource adapts an in-memory sorted slice to mergeSource, so the
// trailing partial buffer doesn't need a throwaway spill file just to
// participate in the merge.
type sliceSource struct {
	tuples []tuple
	pos    int
}

func (s *sliceSource) next() (tuple, error) {
	if s.pos >= len(s.tuples) {
		return tuple{}, io.EOF
	}
	t := s.tuples[s.pos]
	s.pos++
	return t, nil
}

func (s *sliceSource) close() error { return nil }

// heapItem is one source's current head tuple, ordered by (Term, ID) so
// the merge heap always pops the globally next tuple.
type heapItem struct {
	t      tuple
	src    mergeSource
	srcIdx int
}

type mergeHeap []*heapItem

func (h mergeHeap) Len() int { return len(h) }
func (h mergeHeap) Less(i, j int) bool {
	if h[i].t.Term != h[j].t.Term {
		return h[i].t.Term < h[j].t.Term
	}
	return h[i].t.ID < h[j].t.ID
}
func (h mergeHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *mergeHeap) Push(x any)        { *h = append(*h, x.(*heapItem)) }
func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// postingEntry is one collapsed (id, tf) pair within a single term's
// posting list, in ascending id order (spec.md §4.4 invariant b).
type postingEntry struct {
	ID uint32
	TF int
}

// mergedTerm is one term's complete collapsed posting list, yielded by
// mergeAll in ascending term order.
type mergedTerm struct {
	Term     string
	Postings []postingEntry
}

// mergeAll performs the Stage 2 k-way merge: it reads the next tuple from
// every source in term order, summing tf across sources for duplicate
// (term, id) pairs, and invokes fn once per distinct term with that
// term's complete posting list. fn is called in ascending term order.
func mergeAll(sources []mergeSource, fn func(mergedTerm) error) error {
	h := make(mergeHeap, 0, len(sources))
	for i, s := range sources {
		t, err := s.next()
		if errors.Is(err, io.EOF) {
			continue
		}
		if err != nil {
			return err
		}
		heap.Push(&h, &heapItem{t: t, src: s, srcIdx: i})
	}
	heap.Init(&h)

	var curTerm string
	var curPostings []postingEntry
	haveCur := false

	flush := func() error {
		if !haveCur {
			return nil
		}
		return fn(mergedTerm{Term: curTerm, Postings: curPostings})
	}

	for h.Len() > 0 {
		item := heap.Pop(&h).(*heapItem)
		t := item.t

		if !haveCur || t.Term != curTerm {
			if err := flush(); err != nil {
				return err
			}
			curTerm = t.Term
			curPostings = curPostings[:0]
			haveCur = true
		}
		if n := len(curPostings); n > 0 && curPostings[n-1].ID == t.ID {
			curPostings[n-1].TF += t.TF
		} else {
			curPostings = append(curPostings, postingEntry{ID: t.ID, TF: t.TF})
		}

		next, err := item.src.next()
		if errors.Is(err, io.EOF) {
			continue
		}
		if err != nil {
			return err
		}
		item.t = next
		heap.Push(&h, item)
	}
	return flush()
}
