// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package texture

import (
	"unsafe"

	"github.com/gviegas/glrt/driver"
	"github.com/gviegas/glrt/glerr"
)

// GPUOnlyData is a Data that allocates texture storage
// without providing pixels.
// It is used for render targets.
type GPUOnlyData struct {
	state
	width    int
	height   int
	internal driver.Enum
	format   driver.Enum
	typ      driver.Enum
	mipmaps  bool
}

// NewGPUOnlyData creates a GPUOnlyData.
func NewGPUOnlyData(width, height int, internal, format, typ driver.Enum, mipmaps bool) *GPUOnlyData {
	return &GPUOnlyData{
		width:    width,
		height:   height,
		internal: internal,
		format:   format,
		typ:      typ,
		mipmaps:  mipmaps,
	}
}

// Kind implements Data.
func (d *GPUOnlyData) Kind() Kind { return KindAllocation }

// Prepare implements Data.
// It fails with *glerr.FormatError if the format/type
// pair is not known.
func (d *GPUOnlyData) Prepare() error {
	if err := d.begin(); err != nil {
		return err
	}
	if d.width < 1 || d.height < 1 {
		return glerr.Configf("texture.Prepare", "invalid dimensions %dx%d", d.width, d.height)
	}
	if _, err := PixelSize(d.format, d.typ); err != nil {
		return err
	}
	d.prepared = true
	return nil
}

// Width implements Data.
func (d *GPUOnlyData) Width() int { return d.width }

// Height implements Data.
func (d *GPUOnlyData) Height() int { return d.height }

// Format implements Data.
func (d *GPUOnlyData) Format() driver.Enum { return d.internal }

// PixelFormat returns the pixel format and type.
func (d *GPUOnlyData) PixelFormat() (format, typ driver.Enum) { return d.format, d.typ }

// Mipmaps implements Data.
func (d *GPUOnlyData) Mipmaps() bool { return d.mipmaps }

// Managed implements Data.
func (d *GPUOnlyData) Managed() bool { return true }

// Consume implements Data.
func (d *GPUOnlyData) Consume(gpu driver.GPU, target driver.Enum, level int) error {
	return consume(d, &d.state, gpu, target, level)
}

func (d *GPUOnlyData) payload() payload {
	return &allocPayload{
		width:    d.width,
		height:   d.height,
		internal: d.internal,
		format:   d.format,
		typ:      d.typ,
		mipmaps:  d.mipmaps,
	}
}

func (d *GPUOnlyData) discard() {}

// FloatData is a Data of float pixels.
// Unless it is GPU-only, it keeps a CPU buffer that the
// caller may fill before Consume.
type FloatData struct {
	state
	width    int
	height   int
	internal driver.Enum
	format   driver.Enum
	gpuOnly  bool
	buf      []float32
}

// NewFloatData creates a FloatData.
// A zero internal format means RGBA32F and a zero format
// means RGBA.
func NewFloatData(width, height int, internal, format driver.Enum, gpuOnly bool) *FloatData {
	if internal == 0 {
		internal = driver.RGBA32F
	}
	if format == 0 {
		format = driver.RGBA
	}
	return &FloatData{
		width:    width,
		height:   height,
		internal: internal,
		format:   format,
		gpuOnly:  gpuOnly,
	}
}

// Kind implements Data.
func (d *FloatData) Kind() Kind { return KindAllocation }

// Prepare implements Data.
func (d *FloatData) Prepare() error {
	if err := d.begin(); err != nil {
		return err
	}
	if d.width < 1 || d.height < 1 {
		return glerr.Configf("texture.Prepare", "invalid dimensions %dx%d", d.width, d.height)
	}
	n, err := PixelSize(d.format, driver.Float)
	if err != nil {
		return err
	}
	if !d.gpuOnly && d.buf == nil {
		d.buf = make([]float32, d.width*d.height*n/4)
	}
	d.prepared = true
	return nil
}

// Width implements Data.
func (d *FloatData) Width() int { return d.width }

// Height implements Data.
func (d *FloatData) Height() int { return d.height }

// Format implements Data.
func (d *FloatData) Format() driver.Enum { return d.internal }

// Mipmaps implements Data.
func (d *FloatData) Mipmaps() bool { return false }

// Managed implements Data.
func (d *FloatData) Managed() bool { return d.gpuOnly || !d.dispose() }

// GPUOnly returns whether d has no CPU buffer.
func (d *FloatData) GPUOnly() bool { return d.gpuOnly }

// Buffer returns the CPU buffer.
// It is nil if d is GPU-only or was not prepared.
func (d *FloatData) Buffer() []float32 { return d.buf }

// Consume implements Data.
// It fails with *glerr.ConfigurationError if the GPU
// lacks driver.FeatureFloatTextures.
func (d *FloatData) Consume(gpu driver.GPU, target driver.Enum, level int) error {
	return consume(d, &d.state, gpu, target, level)
}

func (d *FloatData) payload() payload {
	var data []byte
	if len(d.buf) > 0 {
		data = unsafe.Slice((*byte)(unsafe.Pointer(&d.buf[0])), len(d.buf)*4)
	}
	return &allocPayload{
		width:    d.width,
		height:   d.height,
		internal: d.internal,
		format:   d.format,
		typ:      driver.Float,
		data:     data,
		float:    true,
	}
}

func (d *FloatData) discard() { d.buf = nil }
