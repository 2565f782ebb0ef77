package analysis

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/conservation/internal/ecology"
	"github.com/san-kum/conservation/internal/growth"
)

func rickerParams(r float64) ecology.Params {
	p := growth.DefaultParams(growth.Ricker)
	p.R = r
	return p
}

func TestSweepValues(t *testing.T) {
	assert.Equal(t, []float64{0, 0.5, 1}, Sweep{Min: 0, Max: 1, Steps: 3}.Values())
	assert.Equal(t, []float64{2}, Sweep{Min: 2, Max: 5, Steps: 1}.Values())
}

func TestBifurcationPeriodDoubling(t *testing.T) {
	data, err := BifurcationDiagram(growth.Ricker, rickerParams(0.3),
		Sweep{Name: "r", Min: 1.5, Max: 2.3, Steps: 2}, 0.5, 500, 64)
	require.NoError(t, err)
	require.Len(t, data, 2)

	// r = 1.5 has a stable fixed point at K, r = 2.3 a stable 2-cycle.
	require.Len(t, data[0].Values, 1)
	assert.InDelta(t, 1.0, data[0].Values[0], 1e-3)
	assert.Len(t, data[1].Values, 2)

	ascii := BifurcationToASCII(data, 20, 10)
	assert.Equal(t, 10, strings.Count(ascii, "\n"))
	assert.Contains(t, ascii, "•")
}

func TestBifurcationUnknownParam(t *testing.T) {
	_, err := BifurcationDiagram(growth.Ricker, rickerParams(0.3),
		Sweep{Name: "gamma", Min: 0, Max: 1, Steps: 3}, 0.5, 10, 10)
	assert.ErrorIs(t, err, ecology.ErrUnknownParam)
}

func TestTippingPoint(t *testing.T) {
	p := growth.DefaultParams(growth.May)

	a, found, err := TippingPoint(growth.May, p, Sweep{Name: "a", Min: 0, Max: 1, Steps: 101}, 1.5, 2000, 0.3)
	require.NoError(t, err)
	require.True(t, found)
	assert.Greater(t, a, 0.0)
	assert.LessOrEqual(t, a, 1.0)

	eq, err := Equilibria(growth.May, p, Sweep{Name: "a", Min: a - 0.01, Max: a - 0.01, Steps: 1}, 1.5, 2000)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, eq[0].State, 0.3)

	_, found, err = TippingPoint(growth.May, p, Sweep{Name: "a", Min: 0, Max: 0.01, Steps: 3}, 1.5, 2000, 0.3)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLyapunovStableFixedPoint(t *testing.T) {
	// f'(K) = 1 - r for the Ricker map.
	lambda := LyapunovExponent(growth.Ricker, rickerParams(0.3), 0.5, 200, 500)
	assert.InDelta(t, math.Log(0.7), lambda, 1e-3)
}

func TestLyapunovChaos(t *testing.T) {
	p := rickerParams(3.0)
	assert.Greater(t, LyapunovExponent(growth.Ricker, p, 0.5, 200, 2000), 0.0)
	assert.Greater(t, TrajectoryDivergence(growth.Ricker, p, 0.5, 1e-9, 2000), 0.0)
}

func TestReturnMap(t *testing.T) {
	pts := ReturnMap([]float64{1, 2, 3})
	assert.Equal(t, []Point{{1, 2}, {2, 3}}, pts)
	assert.Nil(t, ReturnMap([]float64{1}))

	orbit := Orbit(growth.Ricker, rickerParams(0.3), 0.75, 3)
	require.Len(t, orbit, 4)
	assert.InDelta(t, 0.75*math.Exp(0.075), orbit[1], 1e-12)

	cob := Cobweb(growth.Ricker, rickerParams(0.3), 2, 5)
	assert.Len(t, cob, 5)
	assert.Equal(t, 0.0, cob[0].Y)

	ascii := ReturnMapToASCII(ReturnMap(orbit), 30, 10)
	assert.Contains(t, ascii, "•")
}

func TestPowerSpectrumFindsCycle(t *testing.T) {
	data := make([]float64, 60)
	for i := range data {
		data[i] = math.Sin(2 * math.Pi * float64(i) / 6)
	}
	assert.InDelta(t, 6.0, DominantPeriod(data), 1e-9)
	assert.Len(t, PowerSpectrum(data), 30)

	flat := []float64{1, 1, 1, 1}
	assert.Equal(t, 0.0, DominantPeriod(flat))
	assert.Nil(t, PowerSpectrum([]float64{1}))
}
