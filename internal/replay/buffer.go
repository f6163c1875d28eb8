package replay

import (
	"fmt"
	"math/rand/v2"

	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/marl"
)

// #region buffer
// Buffer is a fixed-capacity ring of transitions. Once full, each Store evicts
// the oldest entry. The buffer owns what it stores: inputs are deep-copied.
type Buffer struct {
	items []marl.Transition
	next  int
	full  bool
}

// NewBuffer creates an empty buffer holding at most capacity transitions.
func NewBuffer(capacity int) (*Buffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("replay capacity must be positive, got %d", capacity)
	}
	return &Buffer{items: make([]marl.Transition, capacity)}, nil
}

// #endregion buffer

// #region store
// Store appends one transition.
func (b *Buffer) Store(state marl.State, action marl.Action, reward []float64, nextState marl.State) error {
	s, err := marl.CopyState(state)
	if err != nil {
		return err
	}
	a, err := marl.CopyAction(action)
	if err != nil {
		return err
	}
	ns, err := marl.CopyState(nextState)
	if err != nil {
		return err
	}
	r := make([]float64, len(reward))
	copy(r, reward)

	b.items[b.next] = marl.Transition{State: s, Action: a, Reward: r, NextState: ns}
	b.next++
	if b.next == len(b.items) {
		b.next = 0
		b.full = true
	}
	return nil
}

// Len returns the number of stored transitions.
func (b *Buffer) Len() int {
	if b.full {
		return len(b.items)
	}
	return b.next
}

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int {
	return len(b.items)
}

// #endregion store

// #region sample
// Sample draws n distinct transitions uniformly at random (Floyd's algorithm).
// The returned transitions are shared with the buffer and must not be modified.
func (b *Buffer) Sample(n int, rng *rand.Rand) ([]marl.Transition, error) {
	size := b.Len()
	if n <= 0 {
		return nil, fmt.Errorf("sample size must be positive, got %d", n)
	}
	if n > size {
		return nil, fmt.Errorf("sample %d from %d stored transitions", n, size)
	}

	picked := make(map[int]struct{}, n)
	out := make([]marl.Transition, 0, n)
	for j := size - n; j < size; j++ {
		t := rng.IntN(j + 1)
		if _, dup := picked[t]; dup {
			t = j
		}
		picked[t] = struct{}{}
		out = append(out, b.items[t])
	}
	return out, nil
}

// #endregion sample
