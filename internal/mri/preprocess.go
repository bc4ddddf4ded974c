package mri

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"neuroscreen/internal/services"
)

// Preprocess runs the deterministic chain from an assembled volume to
// the fixed-shape model input. Every sub-step is a total function; any
// numerical failure carries the sub-step name.
func Preprocess(v *Volume) (*Volume, error) {
	denoised := denoise(v)

	mask, err := segmentForeground(denoised)
	if err != nil {
		return nil, err
	}
	masked := applyMask(denoised, mask)

	recentered := recenter(masked)

	normalized, err := robustNormalize(recentered)
	if err != nil {
		return nil, err
	}

	return resize(normalized, [3]int{TargetDim, TargetDim, TargetDim}), nil
}

func preprocessError(step, message string, err error) error {
	return services.Wrap(services.ErrPreprocessing, "mri", step, message, err)
}

// Non-local-means parameters. Patches are 3x3x3 blocks compared across
// a 5x5x5 search window; both extents are fixed, there are no learned
// parameters.
const (
	nlmPatchRadius  = 1
	nlmSearchRadius = 2
	nlmFilterScale  = 0.5
)

// denoise runs a non-local-means pass: each voxel becomes the weighted
// average of its search-window neighbors, weighted by patch similarity.
// Similar patches pull hard, dissimilar ones barely at all, so uniform
// regions smooth out while structural boundaries keep their contrast.
func denoise(v *Volume) *Volume {
	sigma := intensitySpread(v)
	if sigma == 0 {
		return v.Clone()
	}
	h := nlmFilterScale * sigma
	h2 := h * h

	out := NewVolume(v.Dims[0], v.Dims[1], v.Dims[2])
	for z := 0; z < v.Dims[0]; z++ {
		for y := 0; y < v.Dims[1]; y++ {
			for x := 0; x < v.Dims[2]; x++ {
				var weightSum, valueSum float64
				for dz := -nlmSearchRadius; dz <= nlmSearchRadius; dz++ {
					for dy := -nlmSearchRadius; dy <= nlmSearchRadius; dy++ {
						for dx := -nlmSearchRadius; dx <= nlmSearchRadius; dx++ {
							w := math.Exp(-patchDistance(v, z, y, x, z+dz, y+dy, x+dx) / h2)
							weightSum += w
							valueSum += w * float64(v.At(z+dz, y+dy, x+dx))
						}
					}
				}
				out.Set(z, y, x, float32(valueSum/weightSum))
			}
		}
	}
	return out
}

// patchDistance is the mean squared intensity difference between the
// fixed-size patches centered on two voxels. Out-of-bounds voxels read
// as zero on both sides, which keeps the metric total at the borders.
func patchDistance(v *Volume, z1, y1, x1, z2, y2, x2 int) float64 {
	var sum float64
	var n int
	for pz := -nlmPatchRadius; pz <= nlmPatchRadius; pz++ {
		for py := -nlmPatchRadius; py <= nlmPatchRadius; py++ {
			for px := -nlmPatchRadius; px <= nlmPatchRadius; px++ {
				d := float64(v.At(z1+pz, y1+py, x1+px) - v.At(z2+pz, y2+py, x2+px))
				sum += d * d
				n++
			}
		}
	}
	return sum / float64(n)
}

// intensitySpread is the population standard deviation over all voxels.
func intensitySpread(v *Volume) float64 {
	if len(v.Data) == 0 {
		return 0
	}
	var mean float64
	for _, val := range v.Data {
		mean += float64(val)
	}
	mean /= float64(len(v.Data))

	var variance float64
	for _, val := range v.Data {
		d := float64(val) - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(v.Data)))
}

// segmentForeground thresholds at the 20th percentile of nonzero
// intensities, then runs fill-holes, erode, dilate.
func segmentForeground(v *Volume) (*boolMask, error) {
	var nonzero []float64
	for _, val := range v.Data {
		if val != 0 {
			nonzero = append(nonzero, float64(val))
		}
	}
	if len(nonzero) == 0 {
		return nil, preprocessError("mask", "volume has no nonzero voxels", nil)
	}
	sort.Float64s(nonzero)
	threshold := float32(stat.Quantile(0.20, stat.Empirical, nonzero, nil))

	mask := newMask(v.Dims)
	for i, val := range v.Data {
		mask.data[i] = val >= threshold && val != 0
	}

	mask = dilate(erode(fillHoles(mask)))
	if mask.count() == 0 {
		return nil, preprocessError("mask", "foreground mask is empty", nil)
	}
	return mask, nil
}

func applyMask(v *Volume, mask *boolMask) *Volume {
	out := v.Clone()
	for i := range out.Data {
		if !mask.data[i] {
			out.Data[i] = 0
		}
	}
	return out
}

// recenter translates the volume so its intensity center of mass sits
// at the geometric center, zero-filling outside the original bounds.
func recenter(v *Volume) *Volume {
	var total, mz, my, mx float64
	for z := 0; z < v.Dims[0]; z++ {
		for y := 0; y < v.Dims[1]; y++ {
			for x := 0; x < v.Dims[2]; x++ {
				w := float64(v.At(z, y, x))
				if w <= 0 {
					continue
				}
				total += w
				mz += w * float64(z)
				my += w * float64(y)
				mx += w * float64(x)
			}
		}
	}
	if total == 0 {
		return v.Clone()
	}

	shiftZ := v.Dims[0]/2 - int(mz/total+0.5)
	shiftY := v.Dims[1]/2 - int(my/total+0.5)
	shiftX := v.Dims[2]/2 - int(mx/total+0.5)
	if shiftZ == 0 && shiftY == 0 && shiftX == 0 {
		return v.Clone()
	}

	out := NewVolume(v.Dims[0], v.Dims[1], v.Dims[2])
	for z := 0; z < v.Dims[0]; z++ {
		for y := 0; y < v.Dims[1]; y++ {
			for x := 0; x < v.Dims[2]; x++ {
				out.Set(z+shiftZ, y+shiftY, x+shiftX, v.At(z, y, x))
			}
		}
	}
	return out
}

// robustNormalize applies (x - median) / IQR over the foreground, with
// statistics from nonzero voxels only and IQR floor-clamped to 1.
func robustNormalize(v *Volume) (*Volume, error) {
	var nonzero []float64
	for _, val := range v.Data {
		if val != 0 {
			nonzero = append(nonzero, float64(val))
		}
	}
	if len(nonzero) == 0 {
		return nil, preprocessError("normalize", "no foreground voxels to normalize", nil)
	}
	sort.Float64s(nonzero)

	median := stat.Quantile(0.50, stat.Empirical, nonzero, nil)
	iqr := stat.Quantile(0.75, stat.Empirical, nonzero, nil) -
		stat.Quantile(0.25, stat.Empirical, nonzero, nil)
	if iqr < 1 {
		iqr = 1
	}

	out := v.Clone()
	for i, val := range out.Data {
		if val != 0 {
			out.Data[i] = float32((float64(val) - median) / iqr)
		}
	}
	return out, nil
}

// resize resamples to the target shape with linear interpolation and an
// independent scale factor per axis.
func resize(v *Volume, target [3]int) *Volume {
	if v.Dims == target {
		return v.Clone()
	}
	out := NewVolume(target[0], target[1], target[2])

	scale := [3]float64{
		float64(v.Dims[0]) / float64(target[0]),
		float64(v.Dims[1]) / float64(target[1]),
		float64(v.Dims[2]) / float64(target[2]),
	}

	for z := 0; z < target[0]; z++ {
		sz := (float64(z) + 0.5) * scale[0]
		z0, fz := splitCoord(sz, v.Dims[0])
		for y := 0; y < target[1]; y++ {
			sy := (float64(y) + 0.5) * scale[1]
			y0, fy := splitCoord(sy, v.Dims[1])
			for x := 0; x < target[2]; x++ {
				sx := (float64(x) + 0.5) * scale[2]
				x0, fx := splitCoord(sx, v.Dims[2])

				value := trilinear(v, z0, y0, x0, fz, fy, fx)
				out.Set(z, y, x, value)
			}
		}
	}
	return out
}

// splitCoord converts a continuous sample position into the lower
// voxel index and interpolation fraction, clamped to the axis.
func splitCoord(pos float64, dim int) (int, float64) {
	pos -= 0.5
	if pos < 0 {
		return 0, 0
	}
	i := int(pos)
	if i >= dim-1 {
		return dim - 1, 0
	}
	return i, pos - float64(i)
}

func trilinear(v *Volume, z0, y0, x0 int, fz, fy, fx float64) float32 {
	lerp := func(a, b float32, f float64) float32 {
		return a + float32(f)*(b-a)
	}

	c00 := lerp(v.At(z0, y0, x0), v.At(z0, y0, x0+1), fx)
	c01 := lerp(v.At(z0, y0+1, x0), v.At(z0, y0+1, x0+1), fx)
	c10 := lerp(v.At(z0+1, y0, x0), v.At(z0+1, y0, x0+1), fx)
	c11 := lerp(v.At(z0+1, y0+1, x0), v.At(z0+1, y0+1, x0+1), fx)

	c0 := lerp(c00, c01, fy)
	c1 := lerp(c10, c11, fy)
	return lerp(c0, c1, fz)
}
