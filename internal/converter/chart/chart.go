// Package chart computes the SVG geometry of the rate-history chart from
// an already built cross-rate series. It performs no I/O.
package chart

import (
	"strconv"
	"strings"

	"github.com/SilverStorm2/currency-exchange-app/internal/entities"
)

const (
	viewWidth  = 520.0
	viewHeight = 180.0
	padding    = 20.0
)

// RangePreset is a selectable chart window.
type RangePreset struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Days  int    `json:"days"`
}

var RangePresets = []RangePreset{
	{ID: "1d", Label: "24h", Days: 1},
	{ID: "7d", Label: "7d", Days: 7},
	{ID: "30d", Label: "30d", Days: 30},
}

// Layout maps series points onto the chart viewport.
type Layout struct {
	Width   float64
	Height  float64
	Padding float64

	min   float64
	scale float64
	step  float64
}

// NewLayout returns the viewport mapping for a series, or nil when the
// series holds fewer than two points and no line can be drawn.
func NewLayout(points []entities.TimeSeriesPoint) *Layout {
	if len(points) < 2 {
		return nil
	}

	min := points[0].Value
	max := points[0].Value
	for _, point := range points[1:] {
		if point.Value < min {
			min = point.Value
		}
		if point.Value > max {
			max = point.Value
		}
	}

	valueRange := max - min
	if valueRange == 0 {
		valueRange = 1
	}

	return &Layout{
		Width:   viewWidth,
		Height:  viewHeight,
		Padding: padding,
		min:     min,
		scale:   valueRange,
		step:    (viewWidth - padding*2) / float64(len(points)-1),
	}
}

func (l *Layout) x(index int) float64 {
	return l.Padding + float64(index)*l.step
}

func (l *Layout) y(value float64) float64 {
	return l.Height - l.Padding - ((value-l.min)/l.scale)*(l.Height-l.Padding*2)
}

// LinePath renders the series as an SVG path.
func (l *Layout) LinePath(points []entities.TimeSeriesPoint) string {
	if l == nil || len(points) < 2 {
		return ""
	}

	var b strings.Builder
	for i, point := range points {
		if i == 0 {
			b.WriteByte('M')
		} else {
			b.WriteByte(' ')
			b.WriteByte('L')
		}
		b.WriteString(coord(l.x(i)))
		b.WriteByte(',')
		b.WriteString(coord(l.y(point.Value)))
	}

	return b.String()
}

// AreaPath renders the series closed down to the baseline for the filled
// area under the line.
func (l *Layout) AreaPath(points []entities.TimeSeriesPoint) string {
	line := l.LinePath(points)
	if line == "" {
		return ""
	}

	baseY := coord(l.Height - l.Padding)

	var b strings.Builder
	b.WriteString(line)
	b.WriteString(" L")
	b.WriteString(coord(l.x(len(points) - 1)))
	b.WriteByte(',')
	b.WriteString(baseY)
	b.WriteString(" L")
	b.WriteString(coord(l.x(0)))
	b.WriteByte(',')
	b.WriteString(baseY)
	b.WriteString(" Z")

	return b.String()
}

func coord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
