package screenshot

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ashu11-A/BetScraper-API-sub000/internal/model"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/scan-worker/browser"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/scan-worker/browser/browsertest"
)

// banner é um retângulo preto sobre fundo branco
func banner(t *testing.T, level png.CompressionLevel) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 60, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 60; x++ {
			c := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
			if x >= 20 && x < 40 && y >= 15 && y < 25 {
				c = color.NRGBA{A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: level}
	require.NoError(t, enc.Encode(&buf, img))
	return buf.Bytes()
}

func TestGetScreenshots_SkipsAndIndexesByInput(t *testing.T) {
	good := browsertest.NewElement("18+")
	good.Box = &model.Box{Width: 60, Height: 40}
	good.Shot = banner(t, png.DefaultCompression)

	noBox := browsertest.NewElement("18+")

	flat := browsertest.NewElement("18+")
	flat.Box = &model.Box{Width: 0, Height: 10}
	flat.Shot = good.Shot

	big := browsertest.NewElement("18+")
	big.Box = &model.Box{Width: 10, Height: 10}
	big.Shot = make([]byte, 2048)

	stale := browsertest.NewElement("18+")
	stale.Err = model.ErrElementStale

	last := browsertest.NewElement("18+")
	last.Box = &model.Box{Y: 300, Width: 60, Height: 40}
	last.Shot = good.Shot

	c := New(zap.NewNop(), 1024)
	shots, err := c.GetScreenshots(context.Background(), []browser.Element{good, noBox, flat, big, stale, last})
	require.NoError(t, err)

	require.Len(t, shots, 2)
	assert.Equal(t, 0, shots[0].Index)
	assert.Equal(t, 5, shots[1].Index)
	assert.Equal(t, 300.0, shots[1].Box.Y)
	assert.Equal(t, last.Key(), shots[1].Element.Key())
}

func TestCapture_TooLargeIsTyped(t *testing.T) {
	el := browsertest.NewElement("x")
	el.Box = &model.Box{Width: 1, Height: 1}
	el.Shot = make([]byte, DefaultMaxBytes+1)

	_, err := New(zap.NewNop(), 0).capture(context.Background(), el)
	assert.True(t, errors.Is(err, model.ErrScreenshotTooLarge))
}

func TestHash_PixelIdentity(t *testing.T) {
	a := banner(t, png.BestSpeed)
	b := banner(t, png.BestCompression)

	ha, err := Hash(a)
	require.NoError(t, err)
	hb, err := Hash(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
	assert.Len(t, ha, 64)

	img := image.NewNRGBA(image.Rect(0, 0, 60, 40))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	hc, err := Hash(buf.Bytes())
	require.NoError(t, err)
	assert.NotEqual(t, ha, hc)

	_, err = Hash([]byte("not an image"))
	assert.Error(t, err)
}

func TestNormalize_GrayAndTrimmed(t *testing.T) {
	out, err := Normalize(banner(t, png.DefaultCompression))
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	b := img.Bounds()
	assert.Less(t, b.Dx(), 60)
	assert.Less(t, b.Dy(), 40)

	r, g, bl, _ := img.At(b.Dx()/2, b.Dy()/2).RGBA()
	assert.Equal(t, r, g)
	assert.Equal(t, g, bl)
}
