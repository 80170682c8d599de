// Package asset decodes raster uploads into layer content.
package asset

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/webp"

	"github.com/inamate/psdedit/internal/document"
)

// ErrEmptyImage is returned for images with no pixels.
var ErrEmptyImage = errors.New("asset: empty image")

// ErrUnknownFormat is returned by DecodeFormat for unsupported names.
var ErrUnknownFormat = errors.New("asset: unknown format")

// Formats are picked by magic bytes rather than image.Decode: the tga
// package registers an empty magic string, which would claim every input.
var decoders = map[string]func(io.Reader) (image.Image, error){
	"png":  png.Decode,
	"jpeg": jpeg.Decode,
	"webp": webp.Decode,
	"tga":  tga.Decode,
}

// sniff names the format of head. TGA has no signature, so anything
// unrecognized is tried as TGA.
func sniff(head []byte) string {
	switch {
	case bytes.HasPrefix(head, []byte("\x89PNG\r\n\x1a\n")):
		return "png"
	case bytes.HasPrefix(head, []byte("\xff\xd8")):
		return "jpeg"
	case len(head) >= 12 && string(head[:4]) == "RIFF" && string(head[8:12]) == "WEBP":
		return "webp"
	default:
		return "tga"
	}
}

// Decode reads a PNG, JPEG, WebP or TGA image and converts it to NRGBA.
// The returned string is the detected format name.
func Decode(r io.Reader) (*image.NRGBA, string, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(12)
	format := sniff(head)
	img, err := decode(br, format)
	return img, format, err
}

// DecodeFormat decodes r as the named format without sniffing.
func DecodeFormat(r io.Reader, format string) (*image.NRGBA, error) {
	if _, ok := decoders[format]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return decode(r, format)
}

func decode(r io.Reader, format string) (*image.NRGBA, error) {
	img, err := decoders[format](r)
	if err != nil {
		return nil, fmt.Errorf("asset: decode %s: %w", format, err)
	}
	n := document.ToNRGBA(img)
	if n == nil {
		return nil, ErrEmptyImage
	}
	return n, nil
}

// DecodeBytes is Decode over an in-memory buffer.
func DecodeBytes(b []byte) (*image.NRGBA, string, error) {
	return Decode(bytes.NewReader(b))
}
