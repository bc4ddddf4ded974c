package mri

// mask is a binary volume companion with the same dims, z-major.
type boolMask struct {
	data []bool
	dims [3]int
}

func newMask(dims [3]int) *boolMask {
	return &boolMask{data: make([]bool, dims[0]*dims[1]*dims[2]), dims: dims}
}

func (m *boolMask) index(z, y, x int) int {
	return (z*m.dims[1]+y)*m.dims[2] + x
}

func (m *boolMask) at(z, y, x int) bool {
	if z < 0 || y < 0 || x < 0 || z >= m.dims[0] || y >= m.dims[1] || x >= m.dims[2] {
		return false
	}
	return m.data[m.index(z, y, x)]
}

func (m *boolMask) count() int {
	n := 0
	for _, v := range m.data {
		if v {
			n++
		}
	}
	return n
}

// neighbors6 is the face-connected structuring element used by every
// morphological pass.
var neighbors6 = [6][3]int{
	{-1, 0, 0}, {1, 0, 0},
	{0, -1, 0}, {0, 1, 0},
	{0, 0, -1}, {0, 0, 1},
}

// fillHoles marks every voxel not reachable from the volume border
// through background as foreground.
func fillHoles(m *boolMask) *boolMask {
	outside := newMask(m.dims)
	var queue [][3]int

	push := func(z, y, x int) {
		if z < 0 || y < 0 || x < 0 || z >= m.dims[0] || y >= m.dims[1] || x >= m.dims[2] {
			return
		}
		idx := m.index(z, y, x)
		if outside.data[idx] || m.data[idx] {
			return
		}
		outside.data[idx] = true
		queue = append(queue, [3]int{z, y, x})
	}

	for z := 0; z < m.dims[0]; z++ {
		for y := 0; y < m.dims[1]; y++ {
			push(z, y, 0)
			push(z, y, m.dims[2]-1)
		}
	}
	for z := 0; z < m.dims[0]; z++ {
		for x := 0; x < m.dims[2]; x++ {
			push(z, 0, x)
			push(z, m.dims[1]-1, x)
		}
	}
	for y := 0; y < m.dims[1]; y++ {
		for x := 0; x < m.dims[2]; x++ {
			push(0, y, x)
			push(m.dims[0]-1, y, x)
		}
	}

	for len(queue) > 0 {
		p := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		for _, d := range neighbors6 {
			push(p[0]+d[0], p[1]+d[1], p[2]+d[2])
		}
	}

	filled := newMask(m.dims)
	for i := range filled.data {
		filled.data[i] = !outside.data[i]
	}
	return filled
}

// erode removes foreground voxels with any background face neighbor.
func erode(m *boolMask) *boolMask {
	out := newMask(m.dims)
	for z := 0; z < m.dims[0]; z++ {
		for y := 0; y < m.dims[1]; y++ {
			for x := 0; x < m.dims[2]; x++ {
				if !m.at(z, y, x) {
					continue
				}
				keep := true
				for _, d := range neighbors6 {
					if !m.at(z+d[0], y+d[1], x+d[2]) {
						keep = false
						break
					}
				}
				out.data[out.index(z, y, x)] = keep
			}
		}
	}
	return out
}

// dilate grows the foreground by one face-connected voxel.
func dilate(m *boolMask) *boolMask {
	out := newMask(m.dims)
	for z := 0; z < m.dims[0]; z++ {
		for y := 0; y < m.dims[1]; y++ {
			for x := 0; x < m.dims[2]; x++ {
				if m.at(z, y, x) {
					out.data[out.index(z, y, x)] = true
					continue
				}
				for _, d := range neighbors6 {
					if m.at(z+d[0], y+d[1], x+d[2]) {
						out.data[out.index(z, y, x)] = true
						break
					}
				}
			}
		}
	}
	return out
}
