// Package depthchart renders cumulative order book depth as a fixed-height
// text chart.
package depthchart

import (
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/saturn-network/market-maker-strategy/internal/domain"
)

// Rows is the vertical resolution of the plot, excluding the axis row.
const Rows = 8

const (
	glyphFlat       = '─'
	glyphVertical   = '│'
	glyphFallTop    = '╮'
	glyphFallBottom = '╰'
	glyphRiseTop    = '╭'
	glyphRiseBottom = '╯'
	glyphAxis       = '┤'
	glyphOrigin     = '┼'
	glyphTruncated  = '»'
)

var rowsDec = decimal.NewFromInt(Rows)

// Render draws the depth chart for a raw order book.
//
// The chart is drawn from the taker's side: the descending curve on the
// left is the book's sell liquidity (what a buyer can lift) and the
// ascending curve on the right is the book's buy liquidity. Render performs
// that swap itself, so callers pass the book sides as fetched.
func Render(buys, sells []domain.Order) string {
	plottedBuys := domain.SortedAscending(sells)
	plottedSells := domain.SortedAscending(buys)

	kept, truncated := FilterOutliers(plottedSells, domain.Depth(plottedBuys))
	return Plot(plottedBuys, kept, truncated)
}

// Plot draws already sorted and filtered sides. plottedBuys becomes a step
// curve falling from its full depth to zero, plottedSells a curve rising
// from zero to its full depth immediately to the right. When truncated is
// set the top right cell carries a marker.
//
// The result always has Rows+1 lines of equal width.
func Plot(plottedBuys, plottedSells []domain.Order, truncated bool) string {
	series := depthSeries(plottedBuys, plottedSells)

	rng := decimal.Zero
	for _, v := range series {
		if v.GreaterThan(rng) {
			rng = v
		}
	}

	labels := make([]string, Rows+1)
	gutter := 0
	for y := 0; y <= Rows; y++ {
		labels[y] = rng.Mul(decimal.NewFromInt(int64(y))).Div(rowsDec).StringFixed(2)
		if n := utf8.RuneCountInString(labels[y]); n > gutter {
			gutter = n
		}
	}

	width := len(series) - 1
	grid := make([][]rune, Rows+1)
	for y := range grid {
		grid[y] = []rune(strings.Repeat(" ", width))
	}

	for x := 0; x < width; x++ {
		y0 := scale(series[x], rng)
		y1 := scale(series[x+1], rng)
		switch {
		case y0 == y1:
			grid[y0][x] = glyphFlat
			continue
		case y0 > y1:
			grid[y1][x] = glyphFallBottom
			grid[y0][x] = glyphFallTop
		default:
			grid[y1][x] = glyphRiseTop
			grid[y0][x] = glyphRiseBottom
		}
		lo, hi := min(y0, y1), max(y0, y1)
		for y := lo + 1; y < hi; y++ {
			grid[y][x] = glyphVertical
		}
	}

	if truncated {
		grid[Rows][width-1] = glyphTruncated
	}

	lines := make([]string, 0, Rows+1)
	for y := Rows; y >= 0; y-- {
		var b strings.Builder
		b.WriteString(strings.Repeat(" ", gutter-utf8.RuneCountInString(labels[y])))
		b.WriteString(labels[y])
		b.WriteByte(' ')
		if y == 0 {
			b.WriteRune(glyphOrigin)
		} else {
			b.WriteRune(glyphAxis)
		}
		b.WriteString(string(grid[y]))
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}

// depthSeries returns the plotted points: the buy side's remaining depth
// after each order followed by the sell side's cumulative depth. The
// result always holds at least two points.
func depthSeries(plottedBuys, plottedSells []domain.Order) []decimal.Decimal {
	series := make([]decimal.Decimal, 0, len(plottedBuys)+len(plottedSells)+2)

	remaining := domain.Depth(plottedBuys)
	series = append(series, remaining)
	for _, o := range plottedBuys {
		remaining = remaining.Sub(o.Notional())
		series = append(series, remaining)
	}

	cumulative := decimal.Zero
	series = append(series, cumulative)
	for _, o := range plottedSells {
		cumulative = cumulative.Add(o.Notional())
		series = append(series, cumulative)
	}
	return series
}

// scale maps v onto a row index in [0, Rows].
func scale(v, rng decimal.Decimal) int {
	if rng.Sign() <= 0 {
		return 0
	}
	row := int(v.Mul(rowsDec).Div(rng).Round(0).IntPart())
	return max(0, min(Rows, row))
}
