package core

import (
	"encoding/binary"
	"fmt"

	"github.com/chewxy/math32"
)

// Descriptors are the immutable, call-scoped scalar configuration passed to
// each kernel. On the wire they are fixed-size, versionless little-endian
// records; each descriptor implements encoding.BinaryMarshaler and
// encoding.BinaryUnmarshaler with exactly that layout.

// Serialized descriptor sizes in bytes.
const (
	PackbitsDescSize          = 8
	Morton3DDescSize          = 4
	MarchingDescSize          = 24
	IntegratingDescSize       = 8
	MarchingInferenceDescSize = 24
)

// PackbitsDesc configures a density packing call.
type PackbitsDesc struct {
	NBytes           uint32  // number of output bytes; input has NBytes*8 cells
	DensityThreshold float32 // cells with density strictly above this are occupied
}

// Validate checks the descriptor for obvious misconfiguration.
func (d PackbitsDesc) Validate() error {
	if d.NBytes == 0 {
		return fmt.Errorf("packbits descriptor: n_bytes must be positive")
	}
	return nil
}

// MarshalBinary encodes the descriptor as a fixed-size little-endian record.
func (d PackbitsDesc) MarshalBinary() ([]byte, error) {
	buf := make([]byte, PackbitsDescSize)
	binary.LittleEndian.PutUint32(buf[0:4], d.NBytes)
	binary.LittleEndian.PutUint32(buf[4:8], math32.Float32bits(d.DensityThreshold))
	return buf, nil
}

// UnmarshalBinary decodes a record produced by MarshalBinary.
func (d *PackbitsDesc) UnmarshalBinary(data []byte) error {
	if len(data) != PackbitsDescSize {
		return fmt.Errorf("packbits descriptor: expected %d bytes, got %d", PackbitsDescSize, len(data))
	}
	d.NBytes = binary.LittleEndian.Uint32(data[0:4])
	d.DensityThreshold = math32.Float32frombits(binary.LittleEndian.Uint32(data[4:8]))
	return nil
}

// Morton3DDesc configures a bulk Morton encode or decode call.
type Morton3DDesc struct {
	Length uint32 // number of entries to process
}

// Validate checks the descriptor for obvious misconfiguration.
func (d Morton3DDesc) Validate() error {
	if d.Length == 0 {
		return fmt.Errorf("morton3d descriptor: length must be positive")
	}
	return nil
}

// MarshalBinary encodes the descriptor as a fixed-size little-endian record.
func (d Morton3DDesc) MarshalBinary() ([]byte, error) {
	buf := make([]byte, Morton3DDescSize)
	binary.LittleEndian.PutUint32(buf, d.Length)
	return buf, nil
}

// UnmarshalBinary decodes a record produced by MarshalBinary.
func (d *Morton3DDesc) UnmarshalBinary(data []byte) error {
	if len(data) != Morton3DDescSize {
		return fmt.Errorf("morton3d descriptor: expected %d bytes, got %d", Morton3DDescSize, len(data))
	}
	d.Length = binary.LittleEndian.Uint32(data)
	return nil
}

// MarchingDesc configures a ray marching call.
type MarchingDesc struct {
	NRays           uint32  // number of input rays
	MaxNSamples     uint32  // per-ray sample cap
	K               uint32  // number of cascade levels
	G               uint32  // occupancy grid resolution per level
	Bound           float32 // half-extent of the innermost (level 0) grid
	StepsizePortion float32 // step size grows as t*StepsizePortion before clamping
}

// Validate checks the descriptor for obvious misconfiguration.
func (d MarchingDesc) Validate() error {
	switch {
	case d.NRays == 0:
		return fmt.Errorf("marching descriptor: n_rays must be positive")
	case d.MaxNSamples == 0:
		return fmt.Errorf("marching descriptor: max_n_samples must be positive")
	case d.K == 0:
		return fmt.Errorf("marching descriptor: K must be positive")
	case d.G == 0 || d.G > 1024:
		return fmt.Errorf("marching descriptor: G must be in [1, 1024], got %d", d.G)
	case !(d.Bound > 0):
		return fmt.Errorf("marching descriptor: bound must be positive, got %v", d.Bound)
	case d.StepsizePortion < 0:
		return fmt.Errorf("marching descriptor: stepsize_portion must be non-negative, got %v", d.StepsizePortion)
	}
	return nil
}

// MarshalBinary encodes the descriptor as a fixed-size little-endian record.
func (d MarchingDesc) MarshalBinary() ([]byte, error) {
	buf := make([]byte, MarchingDescSize)
	binary.LittleEndian.PutUint32(buf[0:4], d.NRays)
	binary.LittleEndian.PutUint32(buf[4:8], d.MaxNSamples)
	binary.LittleEndian.PutUint32(buf[8:12], d.K)
	binary.LittleEndian.PutUint32(buf[12:16], d.G)
	binary.LittleEndian.PutUint32(buf[16:20], math32.Float32bits(d.Bound))
	binary.LittleEndian.PutUint32(buf[20:24], math32.Float32bits(d.StepsizePortion))
	return buf, nil
}

// UnmarshalBinary decodes a record produced by MarshalBinary.
func (d *MarchingDesc) UnmarshalBinary(data []byte) error {
	if len(data) != MarchingDescSize {
		return fmt.Errorf("marching descriptor: expected %d bytes, got %d", MarchingDescSize, len(data))
	}
	d.NRays = binary.LittleEndian.Uint32(data[0:4])
	d.MaxNSamples = binary.LittleEndian.Uint32(data[4:8])
	d.K = binary.LittleEndian.Uint32(data[8:12])
	d.G = binary.LittleEndian.Uint32(data[12:16])
	d.Bound = math32.Float32frombits(binary.LittleEndian.Uint32(data[16:20]))
	d.StepsizePortion = math32.Float32frombits(binary.LittleEndian.Uint32(data[20:24]))
	return nil
}

// IntegratingDesc configures a volume integration call (forward or backward).
type IntegratingDesc struct {
	NRays        uint32 // number of input rays
	TotalSamples uint32 // sum of the per-ray sample counts
}

// Validate checks the descriptor for obvious misconfiguration.
func (d IntegratingDesc) Validate() error {
	if d.NRays == 0 {
		return fmt.Errorf("integrating descriptor: n_rays must be positive")
	}
	return nil
}

// MarshalBinary encodes the descriptor as a fixed-size little-endian record.
func (d IntegratingDesc) MarshalBinary() ([]byte, error) {
	buf := make([]byte, IntegratingDescSize)
	binary.LittleEndian.PutUint32(buf[0:4], d.NRays)
	binary.LittleEndian.PutUint32(buf[4:8], d.TotalSamples)
	return buf, nil
}

// UnmarshalBinary decodes a record produced by MarshalBinary.
func (d *IntegratingDesc) UnmarshalBinary(data []byte) error {
	if len(data) != IntegratingDescSize {
		return fmt.Errorf("integrating descriptor: expected %d bytes, got %d", IntegratingDescSize, len(data))
	}
	d.NRays = binary.LittleEndian.Uint32(data[0:4])
	d.TotalSamples = binary.LittleEndian.Uint32(data[4:8])
	return nil
}

// MarchingInferenceDesc configures a streaming (chunked) marching or
// compositing call, where a fixed working set of ray slots marches at most
// MarchStepsCap samples per call.
type MarchingInferenceDesc struct {
	NRays           uint32  // number of ray slots in the working set
	K               uint32  // number of cascade levels
	G               uint32  // occupancy grid resolution per level
	MarchStepsCap   uint32  // per-slot sample cap per call
	Bound           float32 // half-extent of the innermost (level 0) grid
	StepsizePortion float32 // step size grows as t*StepsizePortion before clamping
}

// Validate checks the descriptor for obvious misconfiguration.
func (d MarchingInferenceDesc) Validate() error {
	switch {
	case d.NRays == 0:
		return fmt.Errorf("marching inference descriptor: n_rays must be positive")
	case d.K == 0:
		return fmt.Errorf("marching inference descriptor: K must be positive")
	case d.G == 0 || d.G > 1024:
		return fmt.Errorf("marching inference descriptor: G must be in [1, 1024], got %d", d.G)
	case d.MarchStepsCap == 0:
		return fmt.Errorf("marching inference descriptor: march_steps_cap must be positive")
	case !(d.Bound > 0):
		return fmt.Errorf("marching inference descriptor: bound must be positive, got %v", d.Bound)
	case d.StepsizePortion < 0:
		return fmt.Errorf("marching inference descriptor: stepsize_portion must be non-negative, got %v", d.StepsizePortion)
	}
	return nil
}

// MarshalBinary encodes the descriptor as a fixed-size little-endian record.
func (d MarchingInferenceDesc) MarshalBinary() ([]byte, error) {
	buf := make([]byte, MarchingInferenceDescSize)
	binary.LittleEndian.PutUint32(buf[0:4], d.NRays)
	binary.LittleEndian.PutUint32(buf[4:8], d.K)
	binary.LittleEndian.PutUint32(buf[8:12], d.G)
	binary.LittleEndian.PutUint32(buf[12:16], d.MarchStepsCap)
	binary.LittleEndian.PutUint32(buf[16:20], math32.Float32bits(d.Bound))
	binary.LittleEndian.PutUint32(buf[20:24], math32.Float32bits(d.StepsizePortion))
	return buf, nil
}

// UnmarshalBinary decodes a record produced by MarshalBinary.
func (d *MarchingInferenceDesc) UnmarshalBinary(data []byte) error {
	if len(data) != MarchingInferenceDescSize {
		return fmt.Errorf("marching inference descriptor: expected %d bytes, got %d", MarchingInferenceDescSize, len(data))
	}
	d.NRays = binary.LittleEndian.Uint32(data[0:4])
	d.K = binary.LittleEndian.Uint32(data[4:8])
	d.G = binary.LittleEndian.Uint32(data[8:12])
	d.MarchStepsCap = binary.LittleEndian.Uint32(data[12:16])
	d.Bound = math32.Float32frombits(binary.LittleEndian.Uint32(data[16:20]))
	d.StepsizePortion = math32.Float32frombits(binary.LittleEndian.Uint32(data[20:24]))
	return nil
}
