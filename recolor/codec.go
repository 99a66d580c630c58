package recolor

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var ErrUnsupportedFormat = errors.New("unsupported output format")

var icoMagic = []byte{0x00, 0x00, 0x01, 0x00}

// decodeAll reads every image of a file and reports its container format
// ("png", "ico", "jpeg", ...) so the result can be written back in the same
// one. Only icons carry more than one image.
func decodeAll(r io.Reader) ([]image.Image, string, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(icoMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, "", fmt.Errorf("could not read header: %w", err)
	}

	if bytes.Equal(head, icoMagic) {
		data, err := io.ReadAll(br)
		if err != nil {
			return nil, "", fmt.Errorf("could not read ICO: %w", err)
		}
		imgs, err := decodeICO(data)
		if err != nil {
			return nil, "", err
		}
		return imgs, "ico", nil
	}

	img, format, err := image.Decode(br)
	if err != nil {
		return nil, "", err
	}
	return []image.Image{img}, format, nil
}

// decode is decodeAll reduced to the largest image.
func decode(r io.Reader) (image.Image, string, error) {
	imgs, format, err := decodeAll(r)
	if err != nil {
		return nil, "", err
	}
	return largest(imgs), format, nil
}

func decodeFile(name string) (imgs []image.Image, format string, err error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, "", fmt.Errorf("could not open image: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Error("could not close image", "file", name, "error", closeErr)
		}
	}()

	imgs, format, err = decodeAll(f)
	if err != nil {
		return nil, "", fmt.Errorf("could not decode image: %w", err)
	}
	return imgs, format, nil
}

// encodeAll writes imgs in format. Formats other than ICO take exactly one.
func encodeAll(w io.Writer, imgs []image.Image, format string) error {
	if format == "ico" {
		if err := encodeICO(w, imgs); err != nil {
			return fmt.Errorf("could not encode ico: %w", err)
		}
		return nil
	}
	if len(imgs) != 1 {
		return fmt.Errorf("cannot write %d images as %s", len(imgs), format)
	}
	return encode(w, imgs[0], format)
}

func encode(w io.Writer, img image.Image, format string) error {
	var err error
	switch format {
	case "png":
		enc := png.Encoder{
			CompressionLevel: png.BestCompression,
			BufferPool:       pngPool,
		}
		err = enc.Encode(w, img)
	case "ico":
		err = encodeICO(w, []image.Image{img})
	case "jpeg":
		err = imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(100))
	case "gif":
		err = imaging.Encode(w, img, imaging.GIF)
	case "tiff":
		err = imaging.Encode(w, img, imaging.TIFF)
	case "bmp":
		err = imaging.Encode(w, img, imaging.BMP)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	if err != nil {
		return fmt.Errorf("could not encode %s: %w", format, err)
	}
	return nil
}

// save writes imgs into destDir/name through a temporary file so a failed
// encode never leaves a truncated output behind. An existing file is replaced.
func save(imgs []image.Image, format, destDir, name string) (err error) {
	outFile, err := os.CreateTemp(destDir, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("could not create temporary destination for %q: %w", name, err)
	}
	defer func() {
		if err == nil {
			if syncErr := outFile.Sync(); syncErr != nil {
				err = fmt.Errorf("could not flush temporary destination %q: %w", outFile.Name(), syncErr)
			}
		}
		if closeErr := outFile.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("could not close temporary destination %q: %w", outFile.Name(), closeErr)
		}

		if err == nil {
			if renameErr := os.Rename(outFile.Name(), filepath.Join(destDir, name)); renameErr != nil {
				err = fmt.Errorf("could not rename destination file %q: %w", name, renameErr)
			}
		}
		if err != nil {
			if rmErr := os.Remove(outFile.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				slog.Error("could not remove temporary destination", "name", outFile.Name(), "error", rmErr)
			}
		}
	}()

	return encodeAll(outFile, imgs, format)
}

type pngEncoderBufferPool struct {
	pool sync.Pool
}

func (p *pngEncoderBufferPool) Get() *png.EncoderBuffer {
	return p.pool.Get().(*png.EncoderBuffer)
}

func (p *pngEncoderBufferPool) Put(buf *png.EncoderBuffer) {
	p.pool.Put(buf)
}

var pngPool = &pngEncoderBufferPool{
	pool: sync.Pool{
		New: func() any {
			return &png.EncoderBuffer{}
		},
	},
}
