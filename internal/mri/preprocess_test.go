package mri

import (
	"errors"
	"math"
	"strings"
	"testing"

	"neuroscreen/internal/services"
)

// brainLikeVolume builds a synthetic volume with a bright solid blob
// offset from center, surrounded by background.
func brainLikeVolume(depth, height, width int) *Volume {
	v := NewVolume(depth, height, width)
	cz, cy, cx := depth/3, height/3, width/3
	r := depth / 4
	for z := 0; z < depth; z++ {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				dz, dy, dx := z-cz, y-cy, x-cx
				if dz*dz+dy*dy+dx*dx <= r*r {
					v.Set(z, y, x, float32(100+z+y+x))
				}
			}
		}
	}
	return v
}

func TestPreprocessOutputShapeIsFixed(t *testing.T) {
	for _, dims := range [][3]int{
		{24, 32, 32},
		{64, 48, 48},
		{20, 20, 20},
	} {
		v := brainLikeVolume(dims[0], dims[1], dims[2])
		out, err := Preprocess(v)
		if err != nil {
			t.Fatalf("dims %v: Preprocess: %v", dims, err)
		}
		want := [3]int{TargetDim, TargetDim, TargetDim}
		if out.Dims != want {
			t.Errorf("dims %v: output shape = %v, want %v", dims, out.Dims, want)
		}
		if len(out.Data) != TargetDim*TargetDim*TargetDim {
			t.Errorf("dims %v: data length = %d", dims, len(out.Data))
		}
	}
}

func TestPreprocessEmptyVolumeFailsInMaskStep(t *testing.T) {
	v := NewVolume(20, 20, 20)
	_, err := Preprocess(v)
	if !errors.Is(err, services.ErrPreprocessing) {
		t.Fatalf("err = %v, want ErrPreprocessing", err)
	}
	if !strings.Contains(err.Error(), "mask") {
		t.Errorf("error should name the failing sub-step: %v", err)
	}
}

// stepVolume splits the volume along x into a dim half at 10 and a
// bright half at 100, a hard structural boundary.
func stepVolume(dim int) *Volume {
	v := NewVolume(dim, dim, dim)
	for z := 0; z < dim; z++ {
		for y := 0; y < dim; y++ {
			for x := 0; x < dim; x++ {
				if x < dim/2 {
					v.Set(z, y, x, 10)
				} else {
					v.Set(z, y, x, 100)
				}
			}
		}
	}
	return v
}

// boxBlur is the uniform 3x3x3 average used as the comparison baseline.
func boxBlur(v *Volume) *Volume {
	out := NewVolume(v.Dims[0], v.Dims[1], v.Dims[2])
	for z := 0; z < v.Dims[0]; z++ {
		for y := 0; y < v.Dims[1]; y++ {
			for x := 0; x < v.Dims[2]; x++ {
				var sum float32
				for dz := -1; dz <= 1; dz++ {
					for dy := -1; dy <= 1; dy++ {
						for dx := -1; dx <= 1; dx++ {
							sum += v.At(z+dz, y+dy, x+dx)
						}
					}
				}
				out.Set(z, y, x, sum/27)
			}
		}
	}
	return out
}

func TestDenoisePreservesIntensityEdges(t *testing.T) {
	v := stepVolume(10)
	c := 5

	edgeStep := func(out *Volume) float64 {
		return float64(out.At(c, c, c) - out.At(c, c, c-1))
	}
	original := edgeStep(v)
	denoised := edgeStep(denoise(v))
	uniform := edgeStep(boxBlur(v))

	if denoised <= uniform {
		t.Fatalf("edge step after denoise = %.1f, after uniform blur = %.1f; patch weighting should keep the boundary sharper", denoised, uniform)
	}
	if denoised < 0.75*original {
		t.Errorf("edge step after denoise = %.1f, want at least 75%% of original %.1f", denoised, original)
	}
}

func TestDenoiseReducesNoiseAwayFromBoundaries(t *testing.T) {
	v := stepVolume(10)
	// Deterministic -1/0/+1 perturbation over the bright half.
	for z := 0; z < 10; z++ {
		for y := 0; y < 10; y++ {
			for x := 5; x < 10; x++ {
				v.Set(z, y, x, v.At(z, y, x)+float32((z*31+y*17+x*7)%3-1))
			}
		}
	}

	deviation := func(out *Volume) float64 {
		var sum float64
		var n int
		for z := 3; z <= 6; z++ {
			for y := 3; y <= 6; y++ {
				for x := 7; x <= 8; x++ {
					sum += math.Abs(float64(out.At(z, y, x)) - 100)
					n++
				}
			}
		}
		return sum / float64(n)
	}

	before := deviation(v)
	after := deviation(denoise(v))
	if after >= 0.6*before {
		t.Errorf("interior deviation = %.3f after denoise, %.3f before; similar patches should average the perturbation away", after, before)
	}
}

func TestDenoiseConstantVolumeUnchanged(t *testing.T) {
	v := NewVolume(6, 6, 6)
	for i := range v.Data {
		v.Data[i] = 42
	}
	out := denoise(v)
	for i, val := range out.Data {
		if val != 42 {
			t.Fatalf("data[%d] = %v, constant volume should pass through", i, val)
		}
	}
}

func TestRobustNormalizeIQRFloor(t *testing.T) {
	// All foreground voxels share one intensity, so IQR is zero and
	// must clamp to one instead of dividing by zero.
	v := NewVolume(4, 4, 4)
	for i := range v.Data {
		v.Data[i] = 5
	}
	out, err := robustNormalize(v)
	if err != nil {
		t.Fatal(err)
	}
	for i, val := range out.Data {
		if val != 0 {
			t.Fatalf("data[%d] = %v, want 0 with IQR floored at 1", i, val)
		}
	}
}

func TestRecenterMovesCenterOfMass(t *testing.T) {
	v := NewVolume(16, 16, 16)
	// Mass concentrated in one corner.
	v.Set(2, 2, 2, 10)
	out := recenter(v)

	if out.At(2, 2, 2) != 0 {
		t.Error("original corner voxel should have moved")
	}
	if out.At(8, 8, 8) != 10 {
		t.Errorf("voxel should land at the geometric center, At(8,8,8) = %v", out.At(8, 8, 8))
	}
}

func TestResizePreservesConstantField(t *testing.T) {
	v := NewVolume(10, 10, 10)
	for i := range v.Data {
		v.Data[i] = 3
	}
	out := resize(v, [3]int{16, 16, 16})
	for i, val := range out.Data {
		if math.Abs(float64(val)-3) > 1e-5 {
			t.Fatalf("data[%d] = %v, constant field should survive resize", i, val)
		}
	}
}

func TestFillHolesClosesInteriorGap(t *testing.T) {
	m := newMask([3]int{5, 5, 5})
	// Hollow 3x3x3 shell around the center voxel.
	for z := 1; z <= 3; z++ {
		for y := 1; y <= 3; y++ {
			for x := 1; x <= 3; x++ {
				m.data[m.index(z, y, x)] = true
			}
		}
	}
	m.data[m.index(2, 2, 2)] = false

	filled := fillHoles(m)
	if !filled.at(2, 2, 2) {
		t.Error("interior hole should be filled")
	}
	if filled.at(0, 0, 0) {
		t.Error("exterior background should stay background")
	}
}

func TestErodeThenDilateRemovesIsolatedVoxel(t *testing.T) {
	m := newMask([3]int{7, 7, 7})
	m.data[m.index(3, 3, 3)] = true
	out := dilate(erode(m))
	if out.count() != 0 {
		t.Errorf("isolated voxel should not survive erosion, count = %d", out.count())
	}
}

func TestAssembleSeriesRejectsEmptySeries(t *testing.T) {
	if _, err := AssembleSeries(nil); !errors.Is(err, services.ErrIncompleteSeries) {
		t.Errorf("empty series err = %v, want ErrIncompleteSeries", err)
	}
}
