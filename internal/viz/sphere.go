package viz

import (
	"fmt"
	"math"
	"sort"
)

type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3      { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3      { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3) Length() float64      { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }
func (v Vec3) Dot(o Vec3) float64   { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

func (v Vec3) Normalize() Vec3 {
	if l := v.Length(); l != 0 {
		return v.Scale(1 / l)
	}
	return Vec3{}
}

// Angles returns the polar angle from +Z and the azimuth from +X.
func (v Vec3) Angles() (theta, phi float64) {
	l := v.Length()
	if l == 0 {
		return 0, 0
	}
	return math.Acos(v.Z / l), math.Atan2(v.Y, v.X)
}

// Camera projects Bloch coordinates (Z up) onto a canvas. RotX tilts the
// sphere towards the viewer and RotZ spins it about the Z axis.
type Camera struct {
	Distance   float64
	RotX, RotZ float64
	Zoom       float64
}

func NewCamera() *Camera {
	return &Camera{Distance: 5, RotX: math.Pi / 9, RotZ: -math.Pi / 5, Zoom: 1.0}
}

func (c *Camera) RotateX(a float64) { c.RotX += a }
func (c *Camera) RotateZ(a float64) { c.RotZ += a }
func (c *Camera) ZoomIn()           { c.Zoom = math.Min(4, c.Zoom*1.2) }
func (c *Camera) ZoomOut()          { c.Zoom = math.Max(0.25, c.Zoom/1.2) }

// RotatePoint turns a point into view space: spin about Z, then tilt
// about X. View space has Y up and Z towards the viewer.
func (c *Camera) RotatePoint(p Vec3) Vec3 {
	cz, sz := math.Cos(c.RotZ), math.Sin(c.RotZ)
	p.X, p.Y = p.X*cz-p.Y*sz, p.X*sz+p.Y*cz
	// map Bloch (x, y, z) to view (y, z, x) before tilting
	p = Vec3{p.Y, p.Z, p.X}
	cx, sx := math.Cos(c.RotX), math.Sin(c.RotX)
	p.Y, p.Z = p.Y*cx-p.Z*sx, p.Y*sx+p.Z*cx
	return p
}

// Project maps a point to dot coordinates on a sw x sh canvas.
// Returns x, y, depth and visibility.
func (c *Camera) Project(p Vec3, sw, sh int) (int, int, float64, bool) {
	rot := c.RotatePoint(p).Scale(c.Zoom)
	if rot.Z >= c.Distance-0.1 {
		return 0, 0, 0, false
	}
	scale := c.Distance / (c.Distance - rot.Z)
	minDim := float64(sh)
	if float64(sw) < minDim {
		minDim = float64(sw)
	}
	pScale := minDim / 2.6
	sx := int(rot.X*scale*pScale) + sw/2
	sy := int(-rot.Y*scale*pScale) + sh/2
	return sx, sy, rot.Z, sx >= 0 && sx < sw && sy >= 0 && sy < sh
}

type Edge struct {
	Start, End Vec3
}

type Wireframe struct{ Edges []Edge }

func NewWireframe() *Wireframe          { return &Wireframe{} }
func (w *Wireframe) AddEdge(s, e Vec3)  { w.Edges = append(w.Edges, Edge{s, e}) }
func (w *Wireframe) AddPoint(p Vec3)    { w.Edges = append(w.Edges, Edge{p, p}) }
func (w *Wireframe) Merge(o *Wireframe) { w.Edges = append(w.Edges, o.Edges...) }
func (w *Wireframe) Clear()             { w.Edges = w.Edges[:0] }

func (w *Wireframe) AddPath(pts ...Vec3) {
	for i := 1; i < len(pts); i++ {
		w.AddEdge(pts[i-1], pts[i])
	}
}

type projectedEdge struct {
	x1, y1, x2, y2 int
	depth          float64
}

// Render3D draws the wireframe back to front.
func Render3D(c *Canvas, w *Wireframe, cam *Camera) {
	if c == nil || w == nil || cam == nil {
		return
	}
	cw, ch := c.Size()
	proj := make([]projectedEdge, 0, len(w.Edges))
	for _, e := range w.Edges {
		x1, y1, d1, v1 := cam.Project(e.Start, cw, ch)
		x2, y2, d2, v2 := cam.Project(e.End, cw, ch)
		if v1 || v2 {
			proj = append(proj, projectedEdge{x1, y1, x2, y2, (d1 + d2) / 2})
		}
	}
	sort.Slice(proj, func(i, j int) bool { return proj[i].depth < proj[j].depth })
	for _, e := range proj {
		if e.x1 == e.x2 && e.y1 == e.y2 {
			c.Set(e.x1, e.y1)
		} else {
			c.DrawLine(e.x1, e.y1, e.x2, e.y2)
		}
	}
}

func circle(segments int, at func(a float64) Vec3) []Vec3 {
	pts := make([]Vec3, segments+1)
	for i := range pts {
		pts[i] = at(2 * math.Pi * float64(i) / float64(segments))
	}
	return pts
}

// SphereWireframe is a unit sphere outline: equator, two meridians and
// the three axes.
func SphereWireframe() *Wireframe {
	w := NewWireframe()
	const seg = 48
	w.AddPath(circle(seg, func(a float64) Vec3 { return Vec3{math.Cos(a), math.Sin(a), 0} })...)
	w.AddPath(circle(seg, func(a float64) Vec3 { return Vec3{math.Cos(a), 0, math.Sin(a)} })...)
	w.AddPath(circle(seg, func(a float64) Vec3 { return Vec3{0, math.Cos(a), math.Sin(a)} })...)
	w.AddEdge(Vec3{-1, 0, 0}, Vec3{1, 0, 0})
	w.AddEdge(Vec3{0, -1, 0}, Vec3{0, 1, 0})
	w.AddEdge(Vec3{0, 0, -1}, Vec3{0, 0, 1})
	return w
}

// ArrowWireframe is a state vector from the origin with a small head.
func ArrowWireframe(v Vec3) *Wireframe {
	w := NewWireframe()
	w.AddEdge(Vec3{}, v)
	l := v.Length()
	if l == 0 {
		w.AddPoint(v)
		return w
	}
	// head: two short strokes back along v, offset perpendicular to it
	perp := Vec3{-v.Y, v.X, 0}
	if perp.Length() < 1e-9 {
		perp = Vec3{1, 0, 0}
	}
	perp = perp.Normalize().Scale(0.06)
	back := v.Scale(1 - 0.12/l)
	w.AddEdge(v, back.Add(perp))
	w.AddEdge(v, back.Sub(perp))
	return w
}

// BlochSphere renders the unit sphere with one arrow per vector.
func BlochSphere(vectors []Vec3, width, height int, cam *Camera) string {
	if cam == nil {
		cam = NewCamera()
	}
	c := NewCanvas(width, height)
	w := SphereWireframe()
	for _, v := range vectors {
		w.Merge(ArrowWireframe(v))
	}
	Render3D(c, w, cam)
	return c.String()
}

// DescribeVector formats a Bloch vector with its polar angles.
func DescribeVector(v Vec3) string {
	theta, phi := v.Angles()
	return fmt.Sprintf("(%+.2f, %+.2f, %+.2f)  |r|=%.2f  θ=%.2f φ=%.2f", v.X, v.Y, v.Z, v.Length(), theta, phi)
}
