package linefollow

import (
	"image"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/floats"
)

// Blob is one 8-connected component of a mask.
type Blob struct {
	Area     int
	Centroid r2.Point
	Bounds   image.Rectangle
}

// Estimate is the horizontal position of a marking within a strip.
type Estimate struct {
	// Column is the combined estimate handed to the tracker.
	Column int
	// Peak is the column with the most set pixels.
	Peak int
	// HasBlob is false when Column fell back to Peak alone.
	HasBlob bool
	Blob    Blob
}

// EstimateCentroid reduces a cleaned mask to a single column. With a blob present the
// result is the midpoint of the largest blob's centroid and the histogram peak,
// otherwise the peak alone. It never fails; an empty mask yields column 0.
func EstimateCentroid(mask Mask) Estimate {
	hist := ColumnHistogram(mask)
	est := Estimate{}
	if len(hist) > 0 {
		est.Peak = floats.MaxIdx(hist)
	}
	est.Column = est.Peak

	blob, ok := largestBlob(mask)
	if !ok || blob.Area == 0 {
		return est
	}

	cx := int(blob.Centroid.X)
	est.HasBlob = true
	est.Blob = blob
	est.Column = floorDiv(cx+est.Peak, 2)
	return est
}

// ColumnHistogram sums set pixels down each column.
func ColumnHistogram(mask Mask) []float64 {
	hist := make([]float64, mask.Width())
	for _, row := range mask {
		for x, v := range row {
			if v {
				hist[x]++
			}
		}
	}
	return hist
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// largestBlob labels 8-connected components and returns the one with the most pixels.
// Ties go to the component found first in raster order.
func largestBlob(mask Mask) (Blob, bool) {
	width, height := mask.Width(), mask.Height()
	labels := make([][]int, height)
	for y := range height {
		labels[y] = make([]int, width)
	}

	var best Blob
	found := false
	currentLabel := 0

	for y := range height {
		for x := range width {
			if mask[y][x] && labels[y][x] == 0 {
				currentLabel++
				b := floodFill(mask, labels, x, y, width, height, currentLabel)
				if !found || b.Area > best.Area {
					best = b
					found = true
				}
			}
		}
	}

	return best, found
}

func floodFill(mask Mask, labels [][]int, startX, startY, width, height, label int) Blob {
	stack := []image.Point{{startX, startY}}
	var area, sumX, sumY int
	bounds := image.Rectangle{Min: image.Point{startX, startY}, Max: image.Point{startX + 1, startY + 1}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= width || p.Y < 0 || p.Y >= height {
			continue
		}
		if !mask[p.Y][p.X] || labels[p.Y][p.X] != 0 {
			continue
		}

		labels[p.Y][p.X] = label
		area++
		sumX += p.X
		sumY += p.Y
		bounds = bounds.Union(image.Rect(p.X, p.Y, p.X+1, p.Y+1))

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx != 0 || dy != 0 {
					stack = append(stack, image.Point{p.X + dx, p.Y + dy})
				}
			}
		}
	}

	b := Blob{Area: area, Bounds: bounds}
	if area > 0 {
		b.Centroid = r2.Point{X: float64(sumX) / float64(area), Y: float64(sumY) / float64(area)}
	}
	return b
}
