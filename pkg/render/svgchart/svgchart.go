// Package svgchart is a small built-in rendering engine that draws series
// as inline SVG. It exists so the dashboard core runs end to end without an
// external visualization widget and so post-render validation has real
// markup to inspect.
package svgchart

import (
	"bytes"
	"context"
	"fmt"
	"html"

	"github.com/panelkit/panelkit/pkg/errors"
	"github.com/panelkit/panelkit/pkg/panel"
	"github.com/panelkit/panelkit/pkg/render"
)

// Palette cycles through stroke/fill colors per series.
var Palette = []string{"#4c78a8", "#f58518", "#54a24b", "#e45756", "#72b7b2"}

// Engine draws into containers of one document.
type Engine struct {
	doc *panel.Document
}

// New creates an engine bound to a document.
func New(doc *panel.Document) *Engine {
	return &Engine{doc: doc}
}

// Draw renders the series into the container as SVG. Bar layouts draw
// rects, every other chart type draws polylines.
func (e *Engine) Draw(ctx context.Context, containerID string, series []render.Series, layout render.Layout) error {
	c, ok := e.doc.Container(containerID)
	if !ok {
		return errors.New(errors.ErrCodeNoContainer, "container %q does not exist", containerID)
	}

	width, height := layout.Width, layout.Height
	if width <= 0 {
		width = 400
	}
	if height <= 0 {
		height = 300
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
		width, height, width, height)
	if layout.Title != "" {
		fmt.Fprintf(&buf, `<text x="%d" y="16" text-anchor="middle">%s</text>`,
			width/2, html.EscapeString(layout.Title))
	}

	for i, s := range series {
		color := Palette[i%len(Palette)]
		if layout.ChartType == "bar" {
			drawBars(&buf, s, i, len(series), width, height, color)
		} else {
			drawLine(&buf, s, width, height, color)
		}
	}

	buf.WriteString("</svg>")
	c.SetContent(buf.String())
	return nil
}

func points(s render.Series) []float64 {
	if len(s.Y) > 0 {
		return s.Y
	}
	return s.Values
}

func drawLine(buf *bytes.Buffer, s render.Series, width, height int, color string) {
	ys := points(s)
	if len(ys) == 0 {
		return
	}
	lo, hi := bounds(ys)

	fmt.Fprintf(buf, `<polyline fill="none" stroke=%q points="`, color)
	for i, y := range ys {
		x := scale(float64(i), 0, float64(max(len(ys)-1, 1)), 0, float64(width))
		fmt.Fprintf(buf, "%.1f,%.1f ", x, float64(height)-scale(y, lo, hi, 0, float64(height)))
	}
	buf.WriteString(`"/>`)
}

func drawBars(buf *bytes.Buffer, s render.Series, idx, total, width, height int, color string) {
	ys := points(s)
	if len(ys) == 0 {
		return
	}
	lo, hi := bounds(ys)

	slot := float64(width) / float64(len(ys))
	barWidth := slot / float64(total)
	for i, y := range ys {
		h := scale(y, lo, hi, 0, float64(height))
		x := float64(i)*slot + float64(idx)*barWidth
		fmt.Fprintf(buf, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill=%q/>`,
			x, float64(height)-h, barWidth, h, color)
	}
}

func bounds(vals []float64) (lo, hi float64) {
	lo, hi = vals[0], vals[0]
	for _, v := range vals[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if lo > 0 {
		lo = 0
	}
	return lo, hi
}

func scale(v, lo, hi, outLo, outHi float64) float64 {
	if hi == lo {
		return (outLo + outHi) / 2
	}
	return outLo + (v-lo)/(hi-lo)*(outHi-outLo)
}

// Ensure Engine implements the adapter contract.
var _ render.Engine = (*Engine)(nil)
