package mri

// TargetDim is the edge length of the model-ready tensor.
const TargetDim = 128

// Volume is a dense 3D intensity grid stored z-major.
type Volume struct {
	Data []float32
	// Dims is depth, height, width.
	Dims [3]int
}

// NewVolume allocates a zero-filled volume.
func NewVolume(depth, height, width int) *Volume {
	return &Volume{
		Data: make([]float32, depth*height*width),
		Dims: [3]int{depth, height, width},
	}
}

func (v *Volume) index(z, y, x int) int {
	return (z*v.Dims[1]+y)*v.Dims[2] + x
}

// At returns the voxel at (z, y, x); out-of-bounds reads are zero.
func (v *Volume) At(z, y, x int) float32 {
	if z < 0 || y < 0 || x < 0 || z >= v.Dims[0] || y >= v.Dims[1] || x >= v.Dims[2] {
		return 0
	}
	return v.Data[v.index(z, y, x)]
}

// Set writes the voxel at (z, y, x); out-of-bounds writes are dropped.
func (v *Volume) Set(z, y, x int, value float32) {
	if z < 0 || y < 0 || x < 0 || z >= v.Dims[0] || y >= v.Dims[1] || x >= v.Dims[2] {
		return
	}
	v.Data[v.index(z, y, x)] = value
}

// Clone copies the volume.
func (v *Volume) Clone() *Volume {
	out := &Volume{Data: make([]float32, len(v.Data)), Dims: v.Dims}
	copy(out.Data, v.Data)
	return out
}

// Voxels returns the total voxel count.
func (v *Volume) Voxels() int {
	return v.Dims[0] * v.Dims[1] * v.Dims[2]
}
