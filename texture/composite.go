// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package texture

import (
	"fmt"

	"github.com/gviegas/glrt/driver"
	"github.com/gviegas/glrt/glerr"
)

// prepareAll prepares every Data in ds that is not
// prepared yet.
func prepareAll(ds []Data) error {
	for i, d := range ds {
		if d == nil {
			return glerr.Configf("texture.Prepare", "nil data at index %d", i)
		}
		if d.Prepared() {
			continue
		}
		if err := d.Prepare(); err != nil {
			return fmt.Errorf("index %d: %w", i, err)
		}
	}
	return nil
}

func allManaged(ds []Data) bool {
	for _, d := range ds {
		if !d.Managed() {
			return false
		}
	}
	return true
}

// MipChainData is a Data made of one Data per mip level.
type MipChainData struct {
	state
	levels []Data
}

// NewMipChainData creates a MipChainData.
// levels[0] is the base level.
func NewMipChainData(levels ...Data) *MipChainData {
	return &MipChainData{levels: levels}
}

// Kind implements Data.
func (d *MipChainData) Kind() Kind { return KindChain }

// Prepare implements Data.
// Each level must be half the size of the previous one
// (rounded down, at least 1) and have the same format.
func (d *MipChainData) Prepare() error {
	if err := d.begin(); err != nil {
		return err
	}
	if len(d.levels) == 0 {
		return glerr.Configf("texture.Prepare", "empty mip chain")
	}
	if err := prepareAll(d.levels); err != nil {
		return err
	}
	base := d.levels[0]
	if n := numLevels(base.Width(), base.Height()); len(d.levels) > n {
		return glerr.Configf("texture.Prepare", "%d mip levels given, at most %d allowed", len(d.levels), n)
	}
	for i, l := range d.levels {
		w, h := max(1, base.Width()>>i), max(1, base.Height()>>i)
		switch {
		case l.Width() != w || l.Height() != h:
			return glerr.Configf("texture.Prepare", "mip level %d is %dx%d, want %dx%d", i, l.Width(), l.Height(), w, h)
		case l.Format() != base.Format():
			return glerr.Configf("texture.Prepare", "mip level %d has format %v, want %v", i, l.Format(), base.Format())
		case l.Mipmaps():
			return glerr.Configf("texture.Prepare", "mip level %d requests mipmaps", i)
		}
	}
	d.prepared = true
	return nil
}

// Width implements Data.
func (d *MipChainData) Width() int { return d.levels[0].Width() }

// Height implements Data.
func (d *MipChainData) Height() int { return d.levels[0].Height() }

// Format implements Data.
func (d *MipChainData) Format() driver.Enum { return d.levels[0].Format() }

// Mipmaps implements Data.
func (d *MipChainData) Mipmaps() bool { return len(d.levels) > 1 }

// Managed implements Data.
func (d *MipChainData) Managed() bool { return allManaged(d.levels) }

// SetDispose implements Data.
// It applies to every level.
func (d *MipChainData) SetDispose(dispose bool) {
	d.state.SetDispose(dispose)
	for _, l := range d.levels {
		l.SetDispose(dispose)
	}
}

// Levels returns the number of levels.
func (d *MipChainData) Levels() int { return len(d.levels) }

// Consume implements Data.
func (d *MipChainData) Consume(gpu driver.GPU, target driver.Enum, level int) error {
	return consume(d, &d.state, gpu, target, level)
}

func (d *MipChainData) payload() payload { return &chainPayload{d.levels} }

func (d *MipChainData) discard() {}

// CubemapData is a Data made of six faces, in the order
// +X, -X, +Y, -Y, +Z, -Z.
// Faces must be square and of the same size.
type CubemapData struct {
	state
	faces   [6]Data
	mipmaps bool
}

// NewCubemapData creates a CubemapData.
func NewCubemapData(faces [6]Data, mipmaps bool) *CubemapData {
	return &CubemapData{faces: faces, mipmaps: mipmaps}
}

// Kind implements Data.
func (d *CubemapData) Kind() Kind { return KindFaces }

// Prepare implements Data.
func (d *CubemapData) Prepare() error {
	if err := d.begin(); err != nil {
		return err
	}
	if err := prepareAll(d.faces[:]); err != nil {
		return err
	}
	size := d.faces[0].Width()
	for i, f := range d.faces {
		if f.Width() != f.Height() || f.Width() != size {
			return glerr.Configf("texture.Prepare", "cubemap face %d is %dx%d, want %dx%d", i, f.Width(), f.Height(), size, size)
		}
		if f.Format() != d.faces[0].Format() {
			return glerr.Configf("texture.Prepare", "cubemap face %d has format %v, want %v", i, f.Format(), d.faces[0].Format())
		}
	}
	d.prepared = true
	return nil
}

// Width implements Data.
func (d *CubemapData) Width() int { return d.faces[0].Width() }

// Height implements Data.
func (d *CubemapData) Height() int { return d.faces[0].Height() }

// Format implements Data.
func (d *CubemapData) Format() driver.Enum { return d.faces[0].Format() }

// Mipmaps implements Data.
func (d *CubemapData) Mipmaps() bool { return d.mipmaps }

// Managed implements Data.
func (d *CubemapData) Managed() bool { return allManaged(d.faces[:]) }

// SetDispose implements Data.
// It applies to every face.
func (d *CubemapData) SetDispose(dispose bool) {
	d.state.SetDispose(dispose)
	for _, f := range d.faces {
		if f != nil {
			f.SetDispose(dispose)
		}
	}
}

// Face returns the Data of the given face.
func (d *CubemapData) Face(i int) Data { return d.faces[i] }

// Consume implements Data.
// target must be driver.TextureCubeMap.
func (d *CubemapData) Consume(gpu driver.GPU, target driver.Enum, level int) error {
	return consume(d, &d.state, gpu, target, level)
}

func (d *CubemapData) payload() payload { return &facesPayload{&d.faces, d.mipmaps} }

func (d *CubemapData) discard() {}

// ArrayData is a Data made of the layers of a 2D array
// texture.
// It can be prepared, which validates the layers, but
// Consume fails with *glerr.NotSupportedError.
type ArrayData struct {
	state
	layers  []Data
	mipmaps bool
}

// NewArrayData creates an ArrayData.
func NewArrayData(mipmaps bool, layers ...Data) *ArrayData {
	return &ArrayData{layers: layers, mipmaps: mipmaps}
}

// Kind implements Data.
func (d *ArrayData) Kind() Kind { return KindLayers }

// Prepare implements Data.
// Layers must have the same size and format.
func (d *ArrayData) Prepare() error {
	if err := d.begin(); err != nil {
		return err
	}
	if len(d.layers) == 0 {
		return glerr.Configf("texture.Prepare", "no array layers")
	}
	if err := prepareAll(d.layers); err != nil {
		return err
	}
	first := d.layers[0]
	for i, l := range d.layers {
		if l.Width() != first.Width() || l.Height() != first.Height() || l.Format() != first.Format() {
			return glerr.Configf("texture.Prepare", "array layer %d is %dx%d %v, want %dx%d %v",
				i, l.Width(), l.Height(), l.Format(), first.Width(), first.Height(), first.Format())
		}
	}
	d.prepared = true
	return nil
}

// Width implements Data.
func (d *ArrayData) Width() int { return d.layers[0].Width() }

// Height implements Data.
func (d *ArrayData) Height() int { return d.layers[0].Height() }

// Depth returns the number of layers.
func (d *ArrayData) Depth() int { return len(d.layers) }

// Format implements Data.
func (d *ArrayData) Format() driver.Enum { return d.layers[0].Format() }

// Mipmaps implements Data.
func (d *ArrayData) Mipmaps() bool { return d.mipmaps }

// Managed implements Data.
func (d *ArrayData) Managed() bool { return allManaged(d.layers) }

// Consume implements Data.
func (d *ArrayData) Consume(gpu driver.GPU, target driver.Enum, level int) error {
	return consume(d, &d.state, gpu, target, level)
}

func (d *ArrayData) payload() payload { return &layersPayload{len(d.layers)} }

func (d *ArrayData) discard() {}
