package mcpserver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pagebuilder/internal/domain"
)

func TestNextSlot_EmptyParent(t *testing.T) {
	pl := NewPlacer()
	bounds := domain.Units{XU: 4, YU: 2, WU: 40, HU: 20}

	got, ok := pl.NextSlot(bounds, nil, 10, 4)
	assert.True(t, ok)
	assert.Equal(t, domain.Units{XU: 4, YU: 2, WU: 10, HU: 4}, got)
}

func TestNextSlot_AvoidsSiblings(t *testing.T) {
	pl := NewPlacer()
	bounds := domain.Units{WU: 40, HU: 20}
	occupied := []domain.Units{
		{XU: 0, YU: 0, WU: 10, HU: 4},
		{XU: 11, YU: 0, WU: 10, HU: 4},
	}

	got, ok := pl.NextSlot(bounds, occupied, 10, 4)
	assert.True(t, ok)
	for _, o := range occupied {
		padded := domain.Units{XU: o.XU - Gap, YU: o.YU - Gap, WU: o.WU + 2*Gap, HU: o.HU + 2*Gap}
		assert.False(t, intersects(got, padded), "%v overlaps %v", got, o)
	}
	assert.Equal(t, 0, got.YU, "same row still has room")
	assert.LessOrEqual(t, got.XU+got.WU, bounds.WU)
}

func TestNextSlot_FullParentFallsBelow(t *testing.T) {
	pl := NewPlacer()
	bounds := domain.Units{WU: 10, HU: 4}
	occupied := []domain.Units{{WU: 10, HU: 4}}

	got, ok := pl.NextSlot(bounds, occupied, 5, 2)
	assert.False(t, ok)
	assert.Equal(t, domain.Units{XU: 0, YU: 4 + Gap, WU: 5, HU: 2}, got)
}

func TestNextSlot_SizeLimitedToBounds(t *testing.T) {
	got, ok := NewPlacer().NextSlot(domain.Units{WU: 8, HU: 3}, nil, 20, 0)
	assert.True(t, ok)
	assert.Equal(t, domain.Units{WU: 8, HU: 1}, got)
}
