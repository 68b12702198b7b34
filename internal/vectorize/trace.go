package vectorize

import (
	"context"
	"math"
	"strconv"
	"strings"

	"vectra/internal/job"
	"vectra/internal/segment"
)

// Tracer converts a layer mask into SVG path data. Boundaries are walked on
// the pixel lattice with the layer interior kept on the left, so outer
// contours and holes come out with opposite winding and render correctly
// under the even-odd fill rule. Simplification strength follows the detail
// option, smoothing follows the smoothing option.
type Tracer struct{}

func NewTracer() *Tracer { return &Tracer{} }

type point struct {
	X, Y float64
}

// minLoopArea filters degenerate contours that survive despeckling, such as
// single-pixel staircase slivers.
const minLoopArea = 2.0

func (t *Tracer) Trace(ctx context.Context, mask *segment.Mask, opts job.Options) (string, error) {
	loops := traceContours(mask)
	if len(loops) == 0 {
		return "", nil
	}

	epsilon := epsilonForDetail(opts.Detail)
	iterations := chaikinIterations(opts.Smoothing)

	var sb strings.Builder
	for _, loop := range loops {
		pts := collapseCollinear(loop)
		pts = simplifyClosed(pts, epsilon)
		if len(pts) < 3 || math.Abs(loopArea(pts)) < minLoopArea {
			continue
		}
		if iterations > 0 {
			corners := markCorners(pts, opts.CornerThreshold)
			for i := 0; i < iterations; i++ {
				pts, corners = chaikin(pts, corners)
			}
			writeBezierLoop(&sb, pts)
		} else {
			writePolygonLoop(&sb, pts)
		}
	}
	return sb.String(), nil
}

// epsilonForDetail maps the 1..5 detail setting to the simplification
// tolerance in pixels. Higher detail keeps more vertices.
func epsilonForDetail(detail int) float64 {
	switch detail {
	case 1:
		return 3.0
	case 2:
		return 2.0
	case 3:
		return 1.25
	case 4:
		return 0.75
	default:
		return 0.4
	}
}

func chaikinIterations(smoothing int) int {
	switch {
	case smoothing <= 0:
		return 0
	case smoothing <= 50:
		return 1
	default:
		return 2
	}
}

// Boundary directions on the lattice, y growing downward.
var dirVectors = [4][2]int{{1, 0}, {0, 1}, {-1, 0}, {0, -1}}

const (
	dirRight = 0
	dirDown  = 1
	dirLeft  = 2
	dirUp    = 3
)

// traceContours walks every boundary loop of the mask. Each boundary edge of
// a filled pixel becomes a directed lattice edge with the interior on its
// left; chaining them with a prefer-left turn policy yields simple loops and
// a deterministic traversal order.
func traceContours(mask *segment.Mask) [][]point {
	w, h := mask.W, mask.H
	stride := w + 1
	// outgoing[v] is a bitmask of unused directions leaving lattice vertex v.
	outgoing := make([]uint8, (w+1)*(h+1))

	at := func(x, y int) bool {
		return x >= 0 && y >= 0 && x < w && y < h && mask.At(x, y)
	}
	addEdge := func(x, y, dir int) {
		outgoing[y*stride+x] |= 1 << uint(dir)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !at(x, y) {
				continue
			}
			if !at(x, y-1) {
				addEdge(x+1, y, dirLeft)
			}
			if !at(x, y+1) {
				addEdge(x, y+1, dirRight)
			}
			if !at(x-1, y) {
				addEdge(x, y, dirDown)
			}
			if !at(x+1, y) {
				addEdge(x+1, y+1, dirUp)
			}
		}
	}

	var loops [][]point
	for start := range outgoing {
		for outgoing[start] != 0 {
			dir := firstDirection(outgoing[start])
			loops = append(loops, walkLoop(outgoing, stride, start, dir))
		}
	}
	return loops
}

func firstDirection(mask uint8) int {
	for d := 0; d < 4; d++ {
		if mask&(1<<uint(d)) != 0 {
			return d
		}
	}
	return -1
}

func walkLoop(outgoing []uint8, stride, start, dir int) []point {
	var loop []point
	vertex := start
	for {
		outgoing[vertex] &^= 1 << uint(dir)
		loop = append(loop, point{float64(vertex % stride), float64(vertex / stride)})
		vertex += dirVectors[dir][1]*stride + dirVectors[dir][0]
		if vertex == start {
			return loop
		}
		// Prefer the sharpest left turn so touching corners split into
		// separate simple loops instead of figure eights.
		next := -1
		for _, candidate := range [4]int{(dir + 3) % 4, dir, (dir + 1) % 4, (dir + 2) % 4} {
			if outgoing[vertex]&(1<<uint(candidate)) != 0 {
				next = candidate
				break
			}
		}
		if next < 0 {
			return loop
		}
		dir = next
	}
}

func collapseCollinear(pts []point) []point {
	if len(pts) < 3 {
		return pts
	}
	out := make([]point, 0, len(pts))
	n := len(pts)
	for i := 0; i < n; i++ {
		prev := pts[(i+n-1)%n]
		curr := pts[i]
		next := pts[(i+1)%n]
		cross := (curr.X-prev.X)*(next.Y-curr.Y) - (curr.Y-prev.Y)*(next.X-curr.X)
		if cross != 0 {
			out = append(out, curr)
		}
	}
	return out
}

// simplifyClosed runs Ramer-Douglas-Peucker on a closed loop by anchoring at
// the loop's two mutually farthest-from-each-other points along index space.
func simplifyClosed(pts []point, epsilon float64) []point {
	if len(pts) < 4 || epsilon <= 0 {
		return pts
	}
	far := 0
	farDist := -1.0
	for i := 1; i < len(pts); i++ {
		if d := sqDist(pts[0], pts[i]); d > farDist {
			farDist = d
			far = i
		}
	}
	first := rdp(pts[:far+1], epsilon)
	secondRaw := append(append([]point{}, pts[far:]...), pts[0])
	second := rdp(secondRaw, epsilon)
	// Both halves include their shared endpoints; drop them when rejoining.
	out := append([]point{}, first...)
	if len(second) > 2 {
		out = append(out, second[1:len(second)-1]...)
	}
	return out
}

func rdp(pts []point, epsilon float64) []point {
	if len(pts) < 3 {
		return pts
	}
	maxDist := 0.0
	index := 0
	a, b := pts[0], pts[len(pts)-1]
	for i := 1; i < len(pts)-1; i++ {
		if d := perpendicularDist(pts[i], a, b); d > maxDist {
			maxDist = d
			index = i
		}
	}
	if maxDist <= epsilon {
		return []point{a, b}
	}
	left := rdp(pts[:index+1], epsilon)
	right := rdp(pts[index:], epsilon)
	out := make([]point, 0, len(left)+len(right)-1)
	out = append(out, left[:len(left)-1]...)
	return append(out, right...)
}

func perpendicularDist(p, a, b point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	return math.Abs(dy*p.X-dx*p.Y+b.X*a.Y-b.Y*a.X) / length
}

func sqDist(a, b point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	return dx*dx + dy*dy
}

func loopArea(pts []point) float64 {
	area := 0.0
	n := len(pts)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		area += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return area / 2
}

// markCorners flags vertices whose turn angle meets the corner threshold;
// flagged vertices survive smoothing unchanged. A zero threshold preserves
// nothing.
func markCorners(pts []point, thresholdDegrees int) []bool {
	corners := make([]bool, len(pts))
	if thresholdDegrees <= 0 {
		return corners
	}
	threshold := float64(thresholdDegrees) * math.Pi / 180
	n := len(pts)
	for i := 0; i < n; i++ {
		prev := pts[(i+n-1)%n]
		next := pts[(i+1)%n]
		v1 := point{pts[i].X - prev.X, pts[i].Y - prev.Y}
		v2 := point{next.X - pts[i].X, next.Y - pts[i].Y}
		turn := math.Abs(angleBetween(v1, v2))
		corners[i] = turn >= threshold
	}
	return corners
}

func angleBetween(a, b point) float64 {
	return math.Atan2(a.X*b.Y-a.Y*b.X, a.X*b.X+a.Y*b.Y)
}

// chaikin performs one corner-cutting pass over a closed loop. Corner
// vertices are copied through instead of cut.
func chaikin(pts []point, corners []bool) ([]point, []bool) {
	n := len(pts)
	if n < 3 {
		return pts, corners
	}
	outPts := make([]point, 0, 2*n)
	outCorners := make([]bool, 0, 2*n)
	for i := 0; i < n; i++ {
		if corners[i] {
			outPts = append(outPts, pts[i])
			outCorners = append(outCorners, true)
			continue
		}
		prev := pts[(i+n-1)%n]
		next := pts[(i+1)%n]
		outPts = append(outPts,
			point{0.75*pts[i].X + 0.25*prev.X, 0.75*pts[i].Y + 0.25*prev.Y},
			point{0.75*pts[i].X + 0.25*next.X, 0.75*pts[i].Y + 0.25*next.Y},
		)
		outCorners = append(outCorners, false, false)
	}
	return outPts, outCorners
}

// writeBezierLoop emits the loop as Catmull-Rom derived cubic segments.
func writeBezierLoop(sb *strings.Builder, pts []point) {
	n := len(pts)
	if n < 3 {
		return
	}
	if sb.Len() > 0 {
		sb.WriteByte(' ')
	}
	sb.WriteString("M ")
	writePoint(sb, pts[0])
	for i := 0; i < n; i++ {
		p0 := pts[(i+n-1)%n]
		p1 := pts[i]
		p2 := pts[(i+1)%n]
		p3 := pts[(i+2)%n]
		c1 := point{p1.X + (p2.X-p0.X)/6, p1.Y + (p2.Y-p0.Y)/6}
		c2 := point{p2.X - (p3.X-p1.X)/6, p2.Y - (p3.Y-p1.Y)/6}
		sb.WriteString(" C ")
		writePoint(sb, c1)
		sb.WriteByte(' ')
		writePoint(sb, c2)
		sb.WriteByte(' ')
		writePoint(sb, p2)
	}
	sb.WriteString(" Z")
}

func writePolygonLoop(sb *strings.Builder, pts []point) {
	if len(pts) < 3 {
		return
	}
	if sb.Len() > 0 {
		sb.WriteByte(' ')
	}
	sb.WriteString("M ")
	writePoint(sb, pts[0])
	for _, p := range pts[1:] {
		sb.WriteString(" L ")
		writePoint(sb, p)
	}
	sb.WriteString(" Z")
}

func writePoint(sb *strings.Builder, p point) {
	sb.WriteString(formatCoord(p.X))
	sb.WriteByte(' ')
	sb.WriteString(formatCoord(p.Y))
}

// formatCoord rounds to two decimals and drops trailing zeros so path data
// stays compact and byte-stable.
func formatCoord(v float64) string {
	rounded := math.Round(v*100) / 100
	return strconv.FormatFloat(rounded, 'f', -1, 64)
}
