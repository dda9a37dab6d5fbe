// Package overview draws a top-down debug picture of a world snapshot.
package overview

import (
	"image"
	"image/color"
	"io"
	"math"

	"github.com/fogleman/gg"

	"gameworld/internal/game"
	"gameworld/internal/game/entity"
)

// Options control the rendered image.
type Options struct {
	Size   int     // Width and height in pixels
	Extent float64 // Half-size of the drawn area in world units; 0 fits the entities
	Labels bool    // Draw client names next to players
}

// DefaultOptions returns a 512px auto-fitted image with labels.
func DefaultOptions() Options {
	return Options{Size: 512, Labels: true}
}

var (
	background  = color.RGBA{12, 12, 28, 255}
	gridColor   = color.RGBA{30, 30, 45, 255}
	itemColor   = color.RGBA{83, 255, 69, 255}
	triggerCol  = color.RGBA{255, 149, 0, 255}
	generalCol  = color.RGBA{120, 120, 140, 255}
	eventColor  = color.RGBA{255, 255, 255, 180}
	labelColor  = color.RGBA{230, 230, 240, 255}
	minExtent   = 64.0
	extentSlack = 1.1
)

// teamColors indexes by the snapshot's team name.
var teamColors = map[string]color.RGBA{
	"free":      {66, 165, 245, 255},
	"red":       {255, 62, 62, 255},
	"blue":      {60, 90, 255, 255},
	"spectator": {150, 150, 150, 255},
}

// Render draws snap and returns the image.
func Render(snap *game.WorldSnapshot, opts Options) image.Image {
	return draw(snap, opts).Image()
}

// WritePNG renders snap and encodes it as PNG.
func WritePNG(w io.Writer, snap *game.WorldSnapshot, opts Options) error {
	return draw(snap, opts).EncodePNG(w)
}

func draw(snap *game.WorldSnapshot, opts Options) *gg.Context {
	if opts.Size <= 0 {
		opts.Size = DefaultOptions().Size
	}
	extent := opts.Extent
	if extent <= 0 {
		extent = fitExtent(snap)
	}

	dc := gg.NewContext(opts.Size, opts.Size)
	size := float64(opts.Size)
	scale := size / (2 * extent)
	project := func(x, y float64) (float64, float64) {
		// World +y points up, image +y points down.
		return (x + extent) * scale, (extent - y) * scale
	}

	dc.SetColor(background)
	dc.DrawRectangle(0, 0, size, size)
	dc.Fill()

	drawGrid(dc, size, 8)

	teams := make(map[int]string, len(snap.Clients))
	names := make(map[int]string, len(snap.Clients))
	for _, c := range snap.Clients {
		teams[c.Index] = c.Team
		names[c.Index] = c.Name
	}

	for _, e := range snap.Entities {
		x, y := project(e.Origin[0], e.Origin[1])
		switch e.Type {
		case entity.TypePlayer:
			c, ok := teamColors[teams[e.ClientNum]]
			if !ok {
				c = teamColors["free"]
			}
			dc.SetColor(c)
			dc.DrawCircle(x, y, 6)
			dc.Fill()

			// Facing
			yaw := e.Angles[1] * math.Pi / 180
			dc.SetColor(color.White)
			dc.SetLineWidth(2)
			dc.DrawLine(x, y, x+10*math.Cos(yaw), y-10*math.Sin(yaw))
			dc.Stroke()

			if opts.Labels && names[e.ClientNum] != "" {
				dc.SetColor(labelColor)
				dc.DrawStringAnchored(names[e.ClientNum], x, y-14, 0.5, 0.5)
			}
		case entity.TypeItem:
			dc.SetColor(itemColor)
			dc.DrawRectangle(x-3, y-3, 6, 6)
			dc.Fill()
		case entity.TypeTrigger, entity.TypeTeleportTrigger:
			dc.SetColor(triggerCol)
			dc.SetLineWidth(1)
			dc.DrawRectangle(x-5, y-5, 10, 10)
			dc.Stroke()
		case entity.TypeEvents:
			dc.SetColor(eventColor)
			dc.SetLineWidth(1)
			dc.DrawCircle(x, y, 9)
			dc.Stroke()
		case entity.TypeInvisible:
		default:
			dc.SetColor(generalCol)
			dc.DrawPoint(x, y, 2)
			dc.Fill()
		}
	}

	return dc
}

func drawGrid(dc *gg.Context, size float64, cells int) {
	dc.SetColor(gridColor)
	dc.SetLineWidth(1)
	step := size / float64(cells)
	for i := 1; i < cells; i++ {
		p := float64(i) * step
		dc.DrawLine(p, 0, p, size)
		dc.Stroke()
		dc.DrawLine(0, p, size, p)
		dc.Stroke()
	}
}

// fitExtent returns the smallest square half-size that contains every
// entity, with some slack so nothing sits on the border.
func fitExtent(snap *game.WorldSnapshot) float64 {
	extent := minExtent
	for _, e := range snap.Entities {
		extent = math.Max(extent, math.Abs(e.Origin[0]))
		extent = math.Max(extent, math.Abs(e.Origin[1]))
	}
	return extent * extentSlack
}
