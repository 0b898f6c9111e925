// Package render draws board snapshots as PNG images.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/jaminalder/trivia-checkers/internal/domain"
)

// Options controls what is drawn on top of the pieces.
type Options struct {
	Size     int // edge length in pixels; defaults to 512
	Selected *domain.Cell
	Hints    []domain.Cell
}

const (
	lightFill    = "#f0d9b5"
	darkFill     = "#8b5a2b"
	hintFill     = "#c9d66b"
	selectStroke = "#ffffff"
	redFill      = "#c0392b"
	blackFill    = "#1b1b1b"
	redCrown     = "#ffd700"
	blackCrown   = "#1e90ff"
)

// SVG returns the board as an SVG document drawn on a 64-unit grid.
func SVG(b *domain.Board, opts Options) []byte {
	const sq = 64
	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" width="%d" height="%d">`,
		sq*domain.Size, sq*domain.Size, sq*domain.Size, sq*domain.Size)

	hinted := make(map[domain.Cell]bool, len(opts.Hints))
	for _, h := range opts.Hints {
		hinted[h] = true
	}

	for r := 0; r < domain.Size; r++ {
		for c := 0; c < domain.Size; c++ {
			cell := domain.Cell{Row: r, Col: c}
			fill := lightFill
			switch {
			case hinted[cell]:
				fill = hintFill
			case cell.Dark():
				fill = darkFill
			}
			fmt.Fprintf(&sb, `<rect x="%d" y="%d" width="%d" height="%d" fill="%s"/>`, c*sq, r*sq, sq, sq, fill)
		}
	}

	for r := 0; r < domain.Size; r++ {
		for c := 0; c < domain.Size; c++ {
			p := b[r][c]
			if p.Empty() {
				continue
			}
			cx, cy := c*sq+sq/2, r*sq+sq/2
			fill, crown := redFill, redCrown
			if p.Color == domain.Black {
				fill, crown = blackFill, blackCrown
			}
			stroke := "#000000"
			if opts.Selected != nil && *opts.Selected == (domain.Cell{Row: r, Col: c}) {
				stroke = selectStroke
			}
			fmt.Fprintf(&sb, `<circle cx="%d" cy="%d" r="26" fill="%s" stroke="%s" stroke-width="4"/>`, cx, cy, fill, stroke)
			if p.King {
				fmt.Fprintf(&sb, `<circle cx="%d" cy="%d" r="12" fill="%s"/>`, cx, cy, crown)
			}
		}
	}
	sb.WriteString(`</svg>`)
	return []byte(sb.String())
}

// BoardPNG rasterises the board.
func BoardPNG(ctx context.Context, b *domain.Board, opts Options) ([]byte, error) {
	if b == nil {
		return nil, fmt.Errorf("board is nil")
	}
	size := opts.Size
	if size <= 0 {
		size = 512
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(SVG(b, opts)))
	if err != nil {
		return nil, fmt.Errorf("parse board svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
