package recolor

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"

	ico "github.com/biessek/golang-ico"
)

var ErrCorruptICO = errors.New("corrupt ICO")

const (
	icoHeaderSize = 6
	icoEntrySize  = 16
	icoMaxSide    = 256
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

type icoEntry struct {
	Width      uint8
	Height     uint8
	ColorCount uint8
	Reserved   uint8
	Planes     uint16
	BitCount   uint16
	Size       uint32
	Offset     uint32
}

// decodeICO returns every image of an icon, in directory order. The
// directory is checked against the data before any entry is decoded.
func decodeICO(data []byte) ([]image.Image, error) {
	if len(data) < icoHeaderSize {
		return nil, fmt.Errorf("%w: short header", ErrCorruptICO)
	}
	count := int(binary.LittleEndian.Uint16(data[4:6]))
	if count == 0 {
		return nil, fmt.Errorf("%w: no images", ErrCorruptICO)
	}
	if len(data) < icoHeaderSize+count*icoEntrySize {
		return nil, fmt.Errorf("%w: directory of %d entries truncated", ErrCorruptICO, count)
	}

	entries := make([]icoEntry, count)
	if err := binary.Read(bytes.NewReader(data[icoHeaderSize:]), binary.LittleEndian, entries); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptICO, err)
	}

	imgs := make([]image.Image, 0, count)
	for i, e := range entries {
		end := uint64(e.Offset) + uint64(e.Size)
		if e.Size == 0 || end > uint64(len(data)) {
			return nil, fmt.Errorf("%w: entry %d (offset %d, size %d) outside of %d bytes",
				ErrCorruptICO, i, e.Offset, e.Size, len(data))
		}

		img, err := decodeICOEntry(e, data[e.Offset:end])
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", ErrCorruptICO, i, err)
		}
		imgs = append(imgs, img)
	}
	return imgs, nil
}

func decodeICOEntry(e icoEntry, payload []byte) (img image.Image, err error) {
	if bytes.HasPrefix(payload, pngSignature) {
		return png.Decode(bytes.NewReader(payload))
	}

	// BMP entries go through the library as a single entry icon.
	defer func() {
		if r := recover(); r != nil {
			img, err = nil, fmt.Errorf("bitmap entry: %v", r)
		}
	}()

	var buf bytes.Buffer
	buf.Grow(icoHeaderSize + icoEntrySize + len(payload))
	single := e
	single.Offset = icoHeaderSize + icoEntrySize
	_ = binary.Write(&buf, binary.LittleEndian, [3]uint16{0, 1, 1})
	_ = binary.Write(&buf, binary.LittleEndian, single)
	buf.Write(payload)

	return ico.Decode(&buf)
}

// largest picks the image with the most pixels, the first one on ties.
func largest(imgs []image.Image) image.Image {
	best := imgs[0]
	for _, img := range imgs[1:] {
		b, bb := img.Bounds(), best.Bounds()
		if b.Dx()*b.Dy() > bb.Dx()*bb.Dy() {
			best = img
		}
	}
	return best
}

// encodeICO writes imgs as PNG compressed icon entries. Pixels are stored
// as the images hold them, so non-premultiplied input round trips exactly.
func encodeICO(w io.Writer, imgs []image.Image) error {
	if len(imgs) == 0 || len(imgs) > 0xFFFF {
		return fmt.Errorf("cannot write an icon with %d images", len(imgs))
	}

	enc := png.Encoder{
		CompressionLevel: png.BestCompression,
		BufferPool:       pngPool,
	}
	payloads := make([][]byte, len(imgs))
	entries := make([]icoEntry, len(imgs))
	offset := icoHeaderSize + icoEntrySize*len(imgs)
	for i, img := range imgs {
		b := img.Bounds()
		if b.Dx() < 1 || b.Dy() < 1 || b.Dx() > icoMaxSide || b.Dy() > icoMaxSide {
			return fmt.Errorf("icon image %d is %dx%d, sides must be 1 to %d", i, b.Dx(), b.Dy(), icoMaxSide)
		}

		var buf bytes.Buffer
		if err := enc.Encode(&buf, img); err != nil {
			return err
		}
		payloads[i] = buf.Bytes()
		entries[i] = icoEntry{
			// 256 is stored as 0
			Width:    uint8(b.Dx()),
			Height:   uint8(b.Dy()),
			Planes:   1,
			BitCount: 32,
			Size:     uint32(buf.Len()),
			Offset:   uint32(offset),
		}
		offset += buf.Len()
	}

	if err := binary.Write(w, binary.LittleEndian, [3]uint16{0, 1, uint16(len(imgs))}); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, entries); err != nil {
		return err
	}
	for _, p := range payloads {
		if _, err := w.Write(p); err != nil {
			return err
		}
	}
	return nil
}
