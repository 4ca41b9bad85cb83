package grid_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/grid"
)

func TestNew_Geometry(t *testing.T) {
	tr, err := grid.New(1200, 64, 16, 9)
	require.NoError(t, err)
	assert.Equal(t, 18.75, tr.CellPx)
	assert.Equal(t, 36, tr.Rows)
	assert.Equal(t, 675.0, tr.VirtualHeight())
	assert.Equal(t, domain.Units{WU: 64, HU: 36}, tr.Bounds())
}

func TestNew_InvalidGeometry(t *testing.T) {
	cases := []struct {
		name           string
		width          float64
		cols, num, den int
	}{
		{"zero width", 0, 64, 16, 9},
		{"negative width", -10, 64, 16, 9},
		{"zero cols", 800, 0, 16, 9},
		{"zero num", 800, 64, 0, 9},
		{"zero den", 800, 64, 16, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := grid.New(tc.width, tc.cols, tc.num, tc.den)
			assert.ErrorIs(t, err, domain.ErrInvalidGeometry)

			fb, err := grid.NewOrFallback(tc.width, tc.cols, tc.num, tc.den)
			assert.ErrorIs(t, err, domain.ErrInvalidGeometry)
			assert.Equal(t, 1.0, fb.CellPx)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	widths := []float64{1, 37.5, 320, 777.77, 1200, 1920, 3841}
	for i := 0; i < 5000; i++ {
		cols := domain.MinCols + rng.Intn(domain.MaxCols-domain.MinCols+1)
		num := 1 + rng.Intn(32)
		den := 1 + rng.Intn(32)
		width := widths[rng.Intn(len(widths))]
		tr, err := grid.New(width, cols, num, den)
		require.NoError(t, err)

		u := domain.Units{XU: rng.Intn(200), YU: rng.Intn(200), WU: 1 + rng.Intn(200), HU: 1 + rng.Intn(200)}
		require.Equal(t, u, tr.ToUnits(tr.ToPx(u)), "cols=%d aspect=%d:%d width=%v", cols, num, den, width)
	}
}

func TestToUnits_MinimumSize(t *testing.T) {
	tr, err := grid.New(1000, 100, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.Units{XU: 0, YU: 1, WU: 1, HU: 1}, tr.ToUnits(grid.Rect{X: 4, Y: 5, W: 0, H: 2}))
}

func TestDeltaUnits_RoundsHalfUp(t *testing.T) {
	tr, err := grid.New(1000, 100, 1, 1)
	require.NoError(t, err)
	dx, dy := tr.DeltaUnits(15, -15)
	assert.Equal(t, 2, dx)
	assert.Equal(t, -1, dy)
}

func TestGridChangeKeepsPixels(t *testing.T) {
	before, err := grid.New(1200, 64, 16, 9)
	require.NoError(t, err)
	u := domain.Units{XU: 8, YU: 6, WU: 16, HU: 4}
	px := before.ToPx(u)
	assert.Equal(t, grid.Rect{X: 150, Y: 112.5, W: 300, H: 75}, px)

	after, err := grid.New(1200, 96, 16, 9)
	require.NoError(t, err)
	nu := after.ToUnits(px)
	assert.Equal(t, domain.Units{XU: 12, YU: 9, WU: 24, HU: 6}, nu)
	assert.Equal(t, px, after.ToPx(nu))
}

func TestCache(t *testing.T) {
	c := grid.NewCache(2)
	a, err := c.Get(1200, 64, 16, 9)
	require.NoError(t, err)
	b, err := c.Get(1200, 64, 16, 9)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, 1, c.Len())

	_, err = c.Get(0, 64, 16, 9)
	assert.Error(t, err)
	assert.Equal(t, 1, c.Len())

	_, _ = c.Get(800, 64, 16, 9)
	_, _ = c.Get(600, 64, 16, 9)
	assert.Equal(t, 2, c.Len())
}
