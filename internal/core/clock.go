package core

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrClockRegression is returned when a BlockClock is moved backwards.
var ErrClockRegression = errors.New("block height cannot decrease")

// BlockClock is a host-driven block height. It is safe for concurrent use.
type BlockClock struct {
	height atomic.Uint64
}

// NewBlockClock returns a clock positioned at start.
func NewBlockClock(start BlockNumber) *BlockClock {
	c := &BlockClock{}
	c.height.Store(uint64(start))
	return c
}

// CurrentBlock implements Clock.
func (c *BlockClock) CurrentBlock() BlockNumber {
	return BlockNumber(c.height.Load())
}

// Advance moves the clock forward by n blocks and returns the new height.
func (c *BlockClock) Advance(n uint64) BlockNumber {
	return BlockNumber(c.height.Add(n))
}

// Set moves the clock to height. Lower heights are rejected.
func (c *BlockClock) Set(height BlockNumber) error {
	for {
		cur := c.height.Load()
		if uint64(height) < cur {
			return fmt.Errorf("%w: %d < %d", ErrClockRegression, height, cur)
		}
		if c.height.CompareAndSwap(cur, uint64(height)) {
			return nil
		}
	}
}
