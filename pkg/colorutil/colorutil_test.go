package colorutil

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlend(t *testing.T) {
	dst := color.RGBA{R: 0, G: 0, B: 0, A: 255}

	assert.Equal(t, White, Blend(dst, White))
	assert.Equal(t, dst, Blend(dst, WithAlpha(White, 0)))

	half := Blend(dst, color.RGBA{R: 200, G: 100, B: 50, A: 128})
	assert.InDelta(t, 100, int(half.R), 1)
	assert.InDelta(t, 50, int(half.G), 1)
	assert.InDelta(t, 25, int(half.B), 1)
	assert.Equal(t, uint8(255), half.A)
}

func TestWithAlpha(t *testing.T) {
	c := WithAlpha(Accent, 26)
	assert.Equal(t, Accent.R, c.R)
	assert.Equal(t, uint8(26), c.A)
}
