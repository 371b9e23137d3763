package screenshot

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// borderTolerance é a diferença de cinza aceita como "mesma cor" no trim
const borderTolerance = 10

// Hash endereça o screenshot pelo conteúdo em pixels, não pelos bytes do arquivo
func Hash(data []byte) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode screenshot: %w", err)
	}
	px := imaging.Clone(img)
	h := sha256.New()
	var dims [8]byte
	binary.BigEndian.PutUint32(dims[:4], uint32(px.Rect.Dx()))
	binary.BigEndian.PutUint32(dims[4:], uint32(px.Rect.Dy()))
	h.Write(dims[:])
	h.Write(px.Pix)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Normalize prepara o recorte para OCR: cinza, blur 2, esticamento de níveis,
// nitidez e remoção da borda uniforme. Devolve PNG.
func Normalize(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	gray := imaging.Grayscale(img)
	gray = imaging.Blur(gray, 2)
	gray = stretchLevels(gray)
	gray = imaging.Sharpen(gray, 1)
	out := trimBorder(gray)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode normalized: %w", err)
	}
	return buf.Bytes(), nil
}

// stretchLevels leva o menor cinza a 0 e o maior a 255
func stretchLevels(img *image.NRGBA) *image.NRGBA {
	lo, hi := uint8(255), uint8(0)
	for i := 0; i < len(img.Pix); i += 4 {
		v := img.Pix[i]
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi <= lo {
		return img
	}
	span := float64(hi - lo)
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		level := func(v uint8) uint8 {
			if v <= lo {
				return 0
			}
			if v >= hi {
				return 255
			}
			return uint8(float64(v-lo)*255/span + 0.5)
		}
		return color.NRGBA{R: level(c.R), G: level(c.G), B: level(c.B), A: c.A}
	})
}

// trimBorder recorta linhas e colunas externas da mesma cor do canto superior esquerdo
func trimBorder(img *image.NRGBA) *image.NRGBA {
	b := img.Bounds()
	if b.Empty() {
		return img
	}
	ref := img.NRGBAAt(b.Min.X, b.Min.Y).R
	differs := func(x, y int) bool {
		v := img.NRGBAAt(x, y).R
		d := int(v) - int(ref)
		return d > borderTolerance || d < -borderTolerance
	}

	minX, minY, maxX, maxY := b.Max.X, b.Max.Y, b.Min.X-1, b.Min.Y-1
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if !differs(x, y) {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	if maxX < minX || maxY < minY {
		return img
	}
	return imaging.Crop(img, image.Rect(minX, minY, maxX+1, maxY+1))
}
