package capture

import (
	"encoding/binary"
	"image"

	"github.com/cespare/xxhash/v2"
)

// fingerprintStep is the pixel stride used when hashing non-RGBA images.
const fingerprintStep = 4

// Fingerprint returns a 64-bit content hash of the frame's pixels. Frames
// without image data hash their dimensions only.
func Fingerprint(f *Frame) uint64 {
	if f == nil {
		return 0
	}

	d := xxhash.New()
	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(f.Width))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(f.Height))
	_, _ = d.Write(buf[:])

	switch img := f.Image.(type) {
	case nil:
	case *image.RGBA:
		_, _ = d.Write(img.Pix)
	case *image.NRGBA:
		_, _ = d.Write(img.Pix)
	case *image.Gray:
		_, _ = d.Write(img.Pix)
	default:
		b := img.Bounds()
		for y := b.Min.Y; y < b.Max.Y; y += fingerprintStep {
			for x := b.Min.X; x < b.Max.X; x += fingerprintStep {
				r, g, bl, a := img.At(x, y).RGBA()
				binary.LittleEndian.PutUint16(buf[0:2], uint16(r))
				binary.LittleEndian.PutUint16(buf[2:4], uint16(g))
				binary.LittleEndian.PutUint16(buf[4:6], uint16(bl))
				binary.LittleEndian.PutUint16(buf[6:8], uint16(a))
				_, _ = d.Write(buf[:])
			}
		}
	}
	return d.Sum64()
}
