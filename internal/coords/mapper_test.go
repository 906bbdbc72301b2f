package coords

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/san-kum/msmseg/internal/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestPrototypeConvention(t *testing.T) {
	// 512x512 image stack with 133 slices; seed (112, 229, 83) from the
	// bottom-left corner in acquisition order.
	m := New(512, 512, 133)

	idx, err := m.ToVoxel(r3.Vec{X: 112, Y: 229, Z: 83})
	require.NoError(t, err)
	assert.Equal(t, Index{I: 112, J: 512 - 229, K: 133 - 83}, idx)
	assert.Equal(t, 133-83, m.SliceOf(83))
}

func TestIdentityMapping(t *testing.T) {
	m := New(10, 10, 10, WithFlips(false, false))
	idx, err := m.ToVoxel(r3.Vec{X: 1.4, Y: 2.6, Z: 3})
	require.NoError(t, err)
	assert.Equal(t, Index{I: 1, J: 3, K: 3}, idx)
	assert.Equal(t, r3.Vec{X: 1, Y: 3, Z: 3}, m.ToWorld(idx))
}

func TestRoundTripWithinHalfVoxel(t *testing.T) {
	for _, flips := range [][2]bool{{true, true}, {false, false}, {true, false}, {false, true}} {
		m := New(32, 24, 16, WithFlips(flips[0], flips[1]))
		rng := rand.New(rand.NewSource(1))
		for n := 0; n < 500; n++ {
			ci := r3.Vec{
				X: rng.Float64() * 31,
				Y: rng.Float64() * 23,
				Z: rng.Float64() * 15,
			}
			p := m.IndexToWorld(ci)
			idx, err := m.ToVoxel(p)
			require.NoError(t, err, "flips %v pos %v", flips, p)
			back := m.ToWorld(idx)
			assert.LessOrEqual(t, math.Abs(back.X-p.X), 0.5)
			assert.LessOrEqual(t, math.Abs(back.Y-p.Y), 0.5)
			assert.LessOrEqual(t, math.Abs(back.Z-p.Z), 0.5)
		}
	}
}

func TestContinuousIndexInverse(t *testing.T) {
	m := New(20, 30, 40)
	p := r3.Vec{X: 3.25, Y: 7.5, Z: 11.75}
	assert.Equal(t, p, m.IndexToWorld(m.ContinuousIndex(p)))
}

func TestOutOfBounds(t *testing.T) {
	m := New(8, 8, 8)
	cases := []r3.Vec{
		{X: -1, Y: 4, Z: 4},
		{X: 9, Y: 4, Z: 4},
		{X: 4, Y: 0, Z: 4}, // row 8
		{X: 4, Y: 4, Z: 0}, // slice 8
		{X: math.NaN(), Y: 4, Z: 4},
	}
	for _, p := range cases {
		_, err := m.ToVoxel(p)
		require.Error(t, err, "pos %v", p)
		assert.True(t, errors.Is(err, volume.ErrOutOfBounds))
		var oob *OutOfBoundsError
		assert.True(t, errors.As(err, &oob))
	}
}

func TestDirectionToWorld(t *testing.T) {
	m := New(8, 8, 8)
	assert.Equal(t, r3.Vec{X: 1, Y: -2, Z: -3}, m.DirectionToWorld(r3.Vec{X: 1, Y: 2, Z: 3}))

	id := New(8, 8, 8, WithFlips(false, false))
	assert.Equal(t, r3.Vec{X: 1, Y: 2, Z: 3}, id.DirectionToWorld(r3.Vec{X: 1, Y: 2, Z: 3}))
}

func TestFromAccessor(t *testing.T) {
	v, err := volume.New(3, 4, 5)
	require.NoError(t, err)
	m := FromAccessor(v)
	assert.Equal(t, 3, m.Width)
	assert.Equal(t, 4, m.Height)
	assert.Equal(t, 5, m.Depth)
}
