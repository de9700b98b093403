// Package produce holds the core value types shared by the classification
// pipeline: caller-owned image payloads and per-item classification outcomes.
package produce

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/webp"

	agrierr "github.com/otherjamesbrown/agriclassify/pkg/errors"
)

// Supported image media types.
const (
	MediaTypeJPEG = "image/jpeg"
	MediaTypePNG  = "image/png"
	MediaTypeWebP = "image/webp"
	MediaTypeGIF  = "image/gif"
)

var supportedMediaTypes = map[string]bool{
	MediaTypeJPEG: true,
	MediaTypePNG:  true,
	MediaTypeWebP: true,
	MediaTypeGIF:  true,
}

// Image is an immutable, caller-owned image payload. The pipeline only holds
// references to it for the duration of a run and never modifies Data.
type Image struct {
	// ID is the caller-assigned identifier, unique within one submission.
	ID string
	// Name is an optional display name (usually the file name).
	Name string
	// MediaType is the declared media type, e.g. "image/jpeg".
	MediaType string
	// Data is the raw encoded image.
	Data []byte
}

// IsSupportedMediaType reports whether mediaType is one of the accepted image types.
// Parameters such as "; charset=" are ignored.
func IsSupportedMediaType(mediaType string) bool {
	return supportedMediaTypes[normalizeMediaType(mediaType)]
}

func normalizeMediaType(mediaType string) string {
	mt, _, _ := strings.Cut(mediaType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

// DetectMediaType sniffs the media type of data from its leading bytes.
func DetectMediaType(data []byte) string {
	return normalizeMediaType(http.DetectContentType(data))
}

// ValidateFormat checks that the image declares a supported media type and
// carries a payload. It does not decode the image.
func (img Image) ValidateFormat() error {
	if !IsSupportedMediaType(img.MediaType) {
		return fmt.Errorf("media type %q: %w", img.MediaType, agrierr.ErrInvalidImageFormat)
	}
	if len(img.Data) == 0 {
		return fmt.Errorf("image %q has no data: %w", img.ID, agrierr.ErrInvalidImageFormat)
	}
	return nil
}

// DataURI encodes the image as a base64 data URI.
func (img Image) DataURI() string {
	return "data:" + normalizeMediaType(img.MediaType) + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// Dimensions decodes only the image header and returns width and height.
func (img Image) Dimensions() (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img.Data))
	if err != nil {
		return 0, 0, fmt.Errorf("decode %q: %w", img.ID, agrierr.ErrInvalidImageFormat)
	}
	return cfg.Width, cfg.Height, nil
}

// ParseDataURI parses a base64 "data:image/...;base64,..." URI into an Image
// with the given ID. Only image media types are accepted.
func ParseDataURI(id, uri string) (Image, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return Image{}, fmt.Errorf("not a data URI: %w", agrierr.ErrInvalidImageFormat)
	}

	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return Image{}, fmt.Errorf("invalid data URI: no comma separator: %w", agrierr.ErrInvalidImageFormat)
	}

	mediaType, encoding, _ := strings.Cut(meta, ";")
	if encoding != "base64" {
		return Image{}, fmt.Errorf("only base64 data URIs are supported: %w", agrierr.ErrInvalidImageFormat)
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return Image{}, fmt.Errorf("media type %q: %w", mediaType, agrierr.ErrInvalidImageFormat)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, fmt.Errorf("base64 decode failed: %v: %w", err, agrierr.ErrInvalidImageFormat)
	}

	return Image{ID: id, MediaType: mediaType, Data: data}, nil
}

// LoadImageFile reads an image from disk. The ID is derived from the file
// name, modification time and size so the same file keeps the same ID across
// submissions. The media type is sniffed from content; unsupported files are
// still returned so the caller can report them per item.
func LoadImageFile(path string) (Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Image{}, fmt.Errorf("stat image: %w", err)
	}
	if info.IsDir() {
		return Image{}, fmt.Errorf("%s is a directory", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, fmt.Errorf("read image: %w", err)
	}

	name := filepath.Base(path)
	return Image{
		ID:        fmt.Sprintf("%s-%d-%d", name, info.ModTime().UnixMilli(), info.Size()),
		Name:      name,
		MediaType: DetectMediaType(data),
		Data:      data,
	}, nil
}

// DisplayName returns Name when set, otherwise the ID.
func (img Image) DisplayName() string {
	if img.Name != "" {
		return img.Name
	}
	return img.ID
}
