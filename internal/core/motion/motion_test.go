package motion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracksync/tracksync/internal/core/geometry"
)

func linearConfig(easing Easing) Config {
	return Config{
		Duration: 2 * time.Second,
		Start:    geometry.NewPosition(0, 0, 0),
		End:      geometry.NewPosition(10, 5, 2),
		Easing:   easing,
	}
}

func TestLinearEndpoints(t *testing.T) {
	for _, easing := range []Easing{EasingLinear, EasingIn, EasingOut, EasingInOut} {
		t.Run(easing.String(), func(t *testing.T) {
			m, err := NewLinear(linearConfig(easing))
			require.NoError(t, err)

			assert.Equal(t, m.Start(), m.At(0))
			assert.Equal(t, m.End(), m.At(2*time.Second))
			// Clamped past the duration.
			assert.Equal(t, m.End(), m.At(5*time.Second))
		})
	}
}

func TestLinearMidpoint(t *testing.T) {
	m, err := NewLinear(linearConfig(EasingLinear))
	require.NoError(t, err)

	mid := m.At(time.Second)
	assert.InDelta(t, 5.0, mid.X, 1e-9)
	assert.InDelta(t, 2.5, mid.Y, 1e-9)
	assert.InDelta(t, 1.0, mid.Z, 1e-9)

	// Ease-in-out is symmetric: halfway in time is halfway in space.
	eased, err := NewLinear(linearConfig(EasingInOut))
	require.NoError(t, err)
	assert.InDelta(t, 5.0, eased.At(time.Second).X, 1e-9)
	// But a quarter of the way in time lags behind a quarter of the distance.
	assert.Less(t, eased.At(500*time.Millisecond).X, 2.5)
}

func TestLinearRejectsBadConfig(t *testing.T) {
	_, err := NewLinear(Config{Duration: 0, End: geometry.NewPosition(1, 0, 0)})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	bad := linearConfig(EasingLinear)
	bad.Start = geometry.Position{X: nan()}
	_, err = NewLinear(bad)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func nan() float64 {
	var zero float64
	return zero / zero
}

func TestCircularPeriodicity(t *testing.T) {
	m, err := NewCircular(geometry.NewPosition(1, 1, 1), 2, 0.5, geometry.PlaneXY)
	require.NoError(t, err)
	require.True(t, m.Periodic())
	require.Equal(t, 2*time.Second, m.Cycle())

	for _, elapsed := range []time.Duration{0, 300 * time.Millisecond, time.Second, 1700 * time.Millisecond} {
		a := m.At(elapsed)
		b := m.At(elapsed + m.Cycle())
		assert.InDelta(t, a.X, b.X, 1e-9)
		assert.InDelta(t, a.Y, b.Y, 1e-9)
		assert.InDelta(t, a.Z, b.Z, 1e-9)
	}
}

func TestCircularQuadrants(t *testing.T) {
	center := geometry.NewPosition(1, 1, 1)
	m, err := NewCircular(center, 2, 0.5, geometry.PlaneXY)
	require.NoError(t, err)

	at := m.At(0)
	assert.InDelta(t, center.X+2, at.X, 1e-9)
	assert.InDelta(t, center.Y, at.Y, 1e-9)

	quarter := m.At(500 * time.Millisecond)
	assert.InDelta(t, center.X, quarter.X, 1e-9)
	assert.InDelta(t, center.Y+2, quarter.Y, 1e-9)

	half := m.At(time.Second)
	assert.InDelta(t, center.X-2, half.X, 1e-9)
	assert.InDelta(t, center.Y, half.Y, 1e-9)
}

func TestCircularPlanes(t *testing.T) {
	for _, plane := range []geometry.Plane{geometry.PlaneXY, geometry.PlaneXZ, geometry.PlaneYZ} {
		m, err := NewCircular(geometry.Position{}, 1, 1, plane)
		require.NoError(t, err)

		at := m.At(0)
		switch plane {
		case geometry.PlaneYZ:
			assert.InDelta(t, 1.0, at.Y, 1e-9)
			assert.Zero(t, at.X)
		default:
			assert.InDelta(t, 1.0, at.X, 1e-9)
		}
	}
}

func TestCircularBounded(t *testing.T) {
	m, err := NewCircular(geometry.Position{}, 1, 1, geometry.PlaneXY, WithBound(1500*time.Millisecond))
	require.NoError(t, err)

	assert.False(t, m.Periodic())
	assert.Equal(t, 1500*time.Millisecond, m.Cycle())
	// Past the bound the angle stops advancing.
	assert.Equal(t, m.At(1500*time.Millisecond), m.At(3*time.Second))
}

func TestCircularRejectsBadConfig(t *testing.T) {
	_, err := NewCircular(geometry.Position{}, -1, 1, geometry.PlaneXY)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewCircular(geometry.Position{}, 1, 0, geometry.PlaneXY)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestElliptical(t *testing.T) {
	m, err := NewElliptical(geometry.Position{}, 4, 2, 1, geometry.PlaneXY)
	require.NoError(t, err)

	at := m.At(0)
	assert.InDelta(t, 4.0, at.X, 1e-9)
	assert.InDelta(t, 0.0, at.Y, 1e-9)

	quarter := m.At(250 * time.Millisecond)
	assert.InDelta(t, 0.0, quarter.X, 1e-9)
	assert.InDelta(t, 2.0, quarter.Y, 1e-9)
}

func TestSpiralRadiusRamp(t *testing.T) {
	m, err := NewSpiral(geometry.Position{}, 1, 3, 1, 2*time.Second, geometry.PlaneXY, GrowthLinear)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, m.At(0).Distance(geometry.Position{}), 1e-9)
	assert.InDelta(t, 2.0, m.At(time.Second).Distance(geometry.Position{}), 1e-9)
	assert.InDelta(t, 3.0, m.At(2*time.Second).Distance(geometry.Position{}), 1e-9)
	// Radius clamps past the duration.
	assert.InDelta(t, 3.0, m.At(4*time.Second).Distance(geometry.Position{}), 1e-9)
}

func TestSpiralExponential(t *testing.T) {
	m, err := NewSpiral(geometry.Position{}, 1, 4, 1, 2*time.Second, geometry.PlaneXY, GrowthExponential)
	require.NoError(t, err)

	assert.InDelta(t, 2.0, m.At(time.Second).Distance(geometry.Position{}), 1e-9)
}

func TestSpiralRejectsBadConfig(t *testing.T) {
	_, err := NewSpiral(geometry.Position{}, -1, 2, 1, time.Second, geometry.PlaneXY, GrowthLinear)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewSpiral(geometry.Position{}, 0, 2, 1, time.Second, geometry.PlaneXY, GrowthExponential)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewSpiral(geometry.Position{}, 1, 2, 1, 0, geometry.PlaneXY, GrowthLinear)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func mustLinear(t *testing.T, start, end geometry.Position, d time.Duration) *Linear {
	t.Helper()
	m, err := NewLinear(Config{Duration: d, Start: start, End: end})
	require.NoError(t, err)
	return m
}

func TestCompositeSequential(t *testing.T) {
	first := mustLinear(t, geometry.NewPosition(0, 0, 0), geometry.NewPosition(10, 0, 0), time.Second)
	second := mustLinear(t, geometry.NewPosition(10, 0, 0), geometry.NewPosition(10, 10, 0), time.Second)

	c, err := NewComposite(Sequential, []Segment{
		{Model: first, Start: 0, End: time.Second},
		{Model: second, Start: time.Second, End: 2 * time.Second},
	})
	require.NoError(t, err)

	assert.InDelta(t, 5.0, c.At(500*time.Millisecond).X, 1e-9)
	// Window-relative time: at 1.5s the second segment is halfway.
	at := c.At(1500 * time.Millisecond)
	assert.InDelta(t, 10.0, at.X, 1e-9)
	assert.InDelta(t, 5.0, at.Y, 1e-9)
	// Clamps at the composite end.
	end := c.At(5 * time.Second)
	assert.InDelta(t, 10.0, end.Y, 1e-9)
	assert.Equal(t, 2*time.Second, c.Cycle())
}

func TestCompositeSequentialRejectsGapsAndOverlaps(t *testing.T) {
	m := mustLinear(t, geometry.Position{}, geometry.NewPosition(1, 0, 0), time.Second)

	_, err := NewComposite(Sequential, []Segment{
		{Model: m, Start: 0, End: time.Second},
		{Model: m, Start: 2 * time.Second, End: 3 * time.Second},
	})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewComposite(Sequential, []Segment{
		{Model: m, Start: 0, End: 2 * time.Second},
		{Model: m, Start: time.Second, End: 3 * time.Second},
	})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewComposite(Sequential, []Segment{
		{Model: m, Start: time.Second, End: 2 * time.Second},
	})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestCompositeBlended(t *testing.T) {
	a := mustLinear(t, geometry.NewPosition(2, 0, 0), geometry.NewPosition(2, 0, 0), 2*time.Second)
	b := mustLinear(t, geometry.NewPosition(0, 4, 0), geometry.NewPosition(0, 4, 0), 2*time.Second)

	c, err := NewComposite(Blended, []Segment{
		{Model: a, Start: 0, End: 2 * time.Second},
		{Model: b, Start: 0, End: 2 * time.Second},
	})
	require.NoError(t, err)

	at := c.At(time.Second)
	assert.InDelta(t, 2.0, at.X, 1e-9)
	assert.InDelta(t, 4.0, at.Y, 1e-9)
}

func TestCompositeBlendedBoundaryInstant(t *testing.T) {
	a := mustLinear(t, geometry.NewPosition(1, 0, 0), geometry.NewPosition(1, 0, 0), time.Second)
	b := mustLinear(t, geometry.NewPosition(10, 0, 0), geometry.NewPosition(10, 0, 0), time.Second)

	c, err := NewComposite(Blended, []Segment{
		{Model: a, Start: 0, End: time.Second},
		{Model: b, Start: time.Second, End: 2 * time.Second},
	})
	require.NoError(t, err)

	// At a shared boundary only the window that starts there contributes;
	// adjacent windows never double up.
	assert.InDelta(t, 10.0, c.At(time.Second).X, 1e-9)
	// The window closing the composite owns the final instant.
	assert.InDelta(t, 10.0, c.At(2*time.Second).X, 1e-9)
}

func TestCompositeBlendCurve(t *testing.T) {
	a := mustLinear(t, geometry.NewPosition(2, 0, 0), geometry.NewPosition(2, 0, 0), 2*time.Second)

	c, err := NewComposite(Blended, []Segment{
		{Model: a, Start: 0, End: 2 * time.Second, Blend: CrossfadeBlend},
	})
	require.NoError(t, err)

	// Full weight at the window midpoint, half weight a quarter in.
	assert.InDelta(t, 2.0, c.At(time.Second).X, 1e-9)
	assert.InDelta(t, 1.0, c.At(500*time.Millisecond).X, 1e-9)
}

func TestCompositeDeterministicForNonMonotonicTimes(t *testing.T) {
	first := mustLinear(t, geometry.Position{}, geometry.NewPosition(10, 0, 0), time.Second)
	second := mustLinear(t, geometry.NewPosition(10, 0, 0), geometry.NewPosition(20, 0, 0), time.Second)

	c, err := NewComposite(Sequential, []Segment{
		{Model: first, Start: 0, End: time.Second},
		{Model: second, Start: time.Second, End: 2 * time.Second},
	})
	require.NoError(t, err)

	late := c.At(1800 * time.Millisecond)
	early := c.At(200 * time.Millisecond)
	lateAgain := c.At(1800 * time.Millisecond)

	assert.Equal(t, late, lateAgain)
	assert.InDelta(t, 2.0, early.X, 1e-9)
}

func TestResetThenUpdateReturnsInitialPosition(t *testing.T) {
	models := []Model{
		mustLinear(t, geometry.NewPosition(1, 2, 3), geometry.NewPosition(9, 9, 9), time.Second),
	}
	circ, err := NewCircular(geometry.NewPosition(0, 0, 0), 1, 1, geometry.PlaneXY)
	require.NoError(t, err)
	models = append(models, circ)

	for _, m := range models {
		initial := m.At(0)
		_ = m.At(700 * time.Millisecond)
		m.Reset()
		assert.Equal(t, initial, m.At(0))
	}
}

func TestParseEasing(t *testing.T) {
	for s, want := range map[string]Easing{
		"linear": EasingLinear, "ease-in": EasingIn, "ease-out": EasingOut, "ease-in-out": EasingInOut, "": EasingLinear,
	} {
		got, err := ParseEasing(s)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseEasing("bounce")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
