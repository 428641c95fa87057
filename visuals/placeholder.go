package visuals

import (
	"bytes"
	"context"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
)

// placeholder renders a solid-color canvas locally. Pure computation, never
// fails: the guaranteed terminal case that makes the provider chain total.
type placeholder struct{}

func (placeholder) Name() string { return "placeholder" }

// palette keeps fallback frames on-brand instead of plain black.
var palette = []color.RGBA{
	{R: 20, G: 20, B: 30, A: 255},
	{R: 0, G: 51, B: 102, A: 255},
	{R: 30, G: 30, B: 46, A: 255},
	{R: 12, G: 45, B: 72, A: 255},
}

func (p placeholder) Attempt(_ context.Context, prompt string, width, height int) ([]byte, error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(prompt))
	c := palette[h.Sum32()%uint32(len(palette))]

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		// Encoding an in-memory RGBA image cannot fail in practice, but the
		// interface demands an error path.
		return nil, failure(p.Name(), err)
	}
	return buf.Bytes(), nil
}
