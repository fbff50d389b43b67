package render

import "github.com/taigrr/designview/pkg/math3d"

// NewGridHelper builds a square grid on the XZ plane with the given number
// of divisions. The two center lines use centerColor.
func NewGridHelper(size float64, divisions int, centerColor, gridColor Color) *LineSegments {
	divisions = max(divisions, 1)
	half := size / 2
	step := size / float64(divisions)

	grid := &LineSegments{Name: "grid"}
	for i := 0; i <= divisions; i++ {
		k := -half + float64(i)*step
		c := gridColor
		if 2*i == divisions {
			c = centerColor
		}
		grid.Segments = append(grid.Segments,
			Segment{A: math3d.V3(-half, 0, k), B: math3d.V3(half, 0, k), Color: c},
			Segment{A: math3d.V3(k, 0, -half), B: math3d.V3(k, 0, half), Color: c},
		)
	}
	return grid
}

// NewAxesHelper draws X (red), Y (green) and Z (blue) from the origin.
func NewAxesHelper(size float64) *LineSegments {
	o := math3d.Zero3()
	return &LineSegments{
		Name: "axes",
		Segments: []Segment{
			{A: o, B: math3d.V3(size, 0, 0), Color: Hex(0xff0000)},
			{A: o, B: math3d.V3(0, size, 0), Color: Hex(0x00ff00)},
			{A: o, B: math3d.V3(0, 0, size), Color: Hex(0x0000ff)},
		},
	}
}

// NewBoxEdges outlines the 12 edges of a cube centered on the origin.
func NewBoxEdges(size float64, c Color) *LineSegments {
	h := size / 2
	var v [8]math3d.Vec3
	for i := range v {
		v[i] = math3d.V3(
			selectComponent(i&1 != 0, h, -h),
			selectComponent(i&2 != 0, h, -h),
			selectComponent(i&4 != 0, h, -h),
		)
	}

	edges := &LineSegments{Name: "edges"}
	for i := range v {
		for _, bit := range []int{1, 2, 4} {
			if i&bit == 0 {
				edges.Segments = append(edges.Segments, Segment{A: v[i], B: v[i|bit], Color: c})
			}
		}
	}
	return edges
}
