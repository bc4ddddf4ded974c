package mri

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"neuroscreen/internal/services"
)

// MinSliceCount is the smallest series that can be assembled into a
// usable volume.
const MinSliceCount = 16

// slice is one decoded 2D image with its ordering position.
type slice struct {
	position float64
	rows     int
	cols     int
	pixels   []float32
}

// AssembleSeries decodes the staged DICOM files and stacks them into a
// volume ordered by spatial position, never by filename. A single file
// holding a multi-frame dataset counts as an already-assembled volume.
func AssembleSeries(paths []string) (*Volume, error) {
	if len(paths) == 0 {
		return nil, services.Wrap(services.ErrIncompleteSeries, "mri", "assemble",
			"series contains no files", nil)
	}

	var slices []slice
	for _, path := range paths {
		fileSlices, err := decodeFile(path)
		if err != nil {
			return nil, err
		}
		slices = append(slices, fileSlices...)
	}

	if len(slices) < MinSliceCount {
		return nil, services.Wrap(services.ErrIncompleteSeries, "mri", "assemble",
			fmt.Sprintf("series has %d slices, need at least %d", len(slices), MinSliceCount), nil)
	}

	sort.SliceStable(slices, func(i, j int) bool {
		return slices[i].position < slices[j].position
	})

	rows, cols := slices[0].rows, slices[0].cols
	for _, s := range slices {
		if s.rows != rows || s.cols != cols {
			return nil, services.Wrap(services.ErrIncompleteSeries, "mri", "assemble",
				"slices disagree on image dimensions", nil)
		}
	}

	volume := NewVolume(len(slices), rows, cols)
	for z, s := range slices {
		copy(volume.Data[z*rows*cols:(z+1)*rows*cols], s.pixels)
	}
	return volume, nil
}

// decodeFile reads every frame of one DICOM file.
func decodeFile(path string) ([]slice, error) {
	dataset, err := dicom.ParseFile(path, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrUnreadableMedia, "mri", "decode",
			fmt.Sprintf("parse dicom file %s", path), err)
	}

	pixelEl, err := dataset.FindElementByTag(tag.PixelData)
	if err != nil {
		return nil, services.Wrap(services.ErrUnreadableMedia, "mri", "decode",
			fmt.Sprintf("%s has no pixel data", path), err)
	}
	pixelInfo := dicom.MustGetPixelDataInfo(pixelEl.Value)

	basePosition, hasPosition := slicePosition(dataset)
	var slices []slice
	for i, fr := range pixelInfo.Frames {
		native, err := fr.GetNativeFrame()
		if err != nil {
			return nil, services.Wrap(services.ErrUnreadableMedia, "mri", "decode",
				fmt.Sprintf("frame %d of %s is not native pixel data", i, path), err)
		}
		pixels := make([]float32, 0, native.Rows*native.Cols)
		for _, sample := range native.Data {
			if len(sample) == 0 {
				continue
			}
			pixels = append(pixels, float32(sample[0]))
		}
		if len(pixels) != native.Rows*native.Cols {
			return nil, services.Wrap(services.ErrUnreadableMedia, "mri", "decode",
				fmt.Sprintf("frame %d of %s has %d pixels, expected %d",
					i, path, len(pixels), native.Rows*native.Cols), nil)
		}

		position := float64(i)
		if hasPosition {
			// Multi-frame files stack frames after the base position;
			// single-frame files order purely by the tag.
			position = basePosition + float64(i)
		}
		slices = append(slices, slice{
			position: position,
			rows:     native.Rows,
			cols:     native.Cols,
			pixels:   pixels,
		})
	}
	return slices, nil
}

// slicePosition reads the through-plane coordinate from
// ImagePositionPatient, falling back to InstanceNumber.
func slicePosition(dataset dicom.Dataset) (float64, bool) {
	if el, err := dataset.FindElementByTag(tag.ImagePositionPatient); err == nil {
		if values, ok := el.Value.GetValue().([]string); ok && len(values) == 3 {
			if z, err := strconv.ParseFloat(values[2], 64); err == nil {
				return z, true
			}
		}
	}
	if el, err := dataset.FindElementByTag(tag.InstanceNumber); err == nil {
		if values, ok := el.Value.GetValue().([]string); ok && len(values) > 0 {
			if n, err := strconv.ParseFloat(values[0], 64); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}
