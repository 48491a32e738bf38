package brackets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWinnerSlot(t *testing.T) {
	assert.Equal(t, SlotA, WinnerSlot(1))
	assert.Equal(t, SlotB, WinnerSlot(2))
	assert.Equal(t, SlotA, WinnerSlot(3))
	assert.Equal(t, SlotB, WinnerSlot(8))
}

func TestLoserSlotInvertsParity(t *testing.T) {
	for p := 1; p <= 16; p++ {
		assert.NotEqual(t, WinnerSlot(p), LoserSlot(p), "position %d", p)
	}
}
