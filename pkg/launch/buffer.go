package launch

import "unsafe"

// Buffer views reinterpret caller-allocated byte regions as typed element
// slices without copying, matching the raw-pointer calling convention of the
// kernel surface. Misaligned or odd-sized buffers are configuration errors.

// Float32s reinterprets a byte buffer as a float32 slice.
func Float32s(b []byte) ([]float32, error) {
	if err := checkView(b, 4); err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), len(b)/4), nil
}

// Uint32s reinterprets a byte buffer as a uint32 slice.
func Uint32s(b []byte) ([]uint32, error) {
	if err := checkView(b, 4); err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&b[0])), len(b)/4), nil
}

func checkView(b []byte, elemSize int) error {
	if len(b)%elemSize != 0 {
		return Configf("buffer length %d is not a multiple of element size %d", len(b), elemSize)
	}
	if len(b) > 0 && uintptr(unsafe.Pointer(&b[0]))%uintptr(elemSize) != 0 {
		return Configf("buffer is not %d-byte aligned", elemSize)
	}
	return nil
}
