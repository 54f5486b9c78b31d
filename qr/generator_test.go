package qr

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_Generate(t *testing.T) {
	img, err := NewGenerator().Generate("hello")
	require.NoError(t, err)

	assert.Equal(t, LevelHigh, img.Level)
	assert.Equal(t, 21, img.Modules)
	assert.Equal(t, 8, img.Scale)
	assert.Equal(t, (21+2*DefaultBorder)*8, img.Pixels)

	decoded, err := png.Decode(bytes.NewReader(img.PNG))
	require.NoError(t, err)
	assert.Equal(t, img.Pixels, decoded.Bounds().Dx())
	assert.Equal(t, img.Pixels, decoded.Bounds().Dy())

	// Quiet zone is light, top-left finder module is dark.
	r, _, _, _ := decoded.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	r, _, _, _ = decoded.At(DefaultBorder*8, DefaultBorder*8).RGBA()
	assert.Equal(t, uint32(0), r)
}

func TestGenerator_Overrides(t *testing.T) {
	g := &Generator{Border: -1, Scale: 2}

	img, err := g.Generate("hello")
	require.NoError(t, err)
	assert.Equal(t, 2, img.Scale)
	assert.Equal(t, img.Modules*2, img.Pixels)
}

func TestGenerator_PropagatesInputErrors(t *testing.T) {
	_, err := NewGenerator().Generate("")
	assert.ErrorIs(t, err, ErrEmptyText)
}
