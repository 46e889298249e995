package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRectContainsEdges(t *testing.T) {
	r := NewRect(10, 20, 30, 40)

	assert.True(t, r.Contains(NewPoint2D(10, 20)))
	assert.True(t, r.Contains(NewPoint2D(40, 60)))
	assert.True(t, r.Contains(r.Center()))
	assert.False(t, r.Contains(NewPoint2D(9.9, 30)))
	assert.False(t, r.Contains(NewPoint2D(20, 60.1)))
}

func TestRectInflate(t *testing.T) {
	r := NewRect(10, 10, 20, 5).Inflate(1)
	assert.Equal(t, NewRect(9, 9, 22, 7), r)

	shrunk := NewRect(10, 10, 20, 6).Inflate(-3)
	assert.True(t, shrunk.IsEmpty())
}

func TestAffineComposeAppliesRightFirst(t *testing.T) {
	tr := Translation(5, 7).Compose(Scale(2, 3))
	p := tr.Apply(NewPoint2D(1, 1))
	assert.Equal(t, NewPoint2D(7, 10), p)
}

func TestApplyRectNormalises(t *testing.T) {
	r := Scale(-1, 2).ApplyRect(NewRect(2, 3, 4, 5))
	assert.Equal(t, NewRect(-6, 6, 4, 10), r)
}

func TestSize(t *testing.T) {
	assert.True(t, NewSize(0, 10).IsEmpty())
	assert.True(t, NewSize(10, -1).IsEmpty())
	assert.False(t, NewSize(1, 1).IsEmpty())
	assert.Equal(t, NewSize(5, 10), NewSize(10, 20).Scale(0.5))
}
