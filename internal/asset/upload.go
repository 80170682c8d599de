package asset

import (
	"errors"
	"fmt"
	"image"
	"net/http"
)

// DefaultMaxUpload caps a single image upload.
const DefaultMaxUpload = 10 << 20 // 10MB

// ErrMissingFile is returned when the multipart form has no file field.
var ErrMissingFile = errors.New("asset: missing file field")

// Upload describes a decoded upload.
type Upload struct {
	Name   string `json:"name"`
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// ReadUpload reads the "file" field of a multipart request and decodes it.
// maxBytes <= 0 uses DefaultMaxUpload.
func ReadUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (*image.NRGBA, Upload, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUpload
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return nil, Upload{}, fmt.Errorf("asset: parse form: %w", err)
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, Upload{}, ErrMissingFile
	}
	defer file.Close()

	img, format, err := Decode(file)
	if err != nil {
		return nil, Upload{}, err
	}

	b := img.Bounds()
	return img, Upload{
		Name:   header.Filename,
		Format: format,
		Width:  b.Dx(),
		Height: b.Dy(),
	}, nil
}
