package asset

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	_ "image/jpeg"
	_ "image/png"
)

// ErrUnsupportedMedia marks an upload whose media type the pipeline cannot
// process. This is a hard validation failure, never silently ignored.
var ErrUnsupportedMedia = errors.New("unsupported media type")

// Kind classifies an upload for prompt selection and the region step.
type Kind string

const (
	KindImage    Kind = "image"
	KindDocument Kind = "document"
)

// Asset is one user upload. At most one asset exists per session; a new
// upload with a different identity replaces it.
type Asset struct {
	Identity string // client-declared filename, used for change detection
	Kind     Kind
	MIMEType string
	Data     []byte
	Bitmap   image.Image // decoded pixels, images only
}

// Detect resolves the media kind and canonical MIME type from the uploaded
// filename and declared content type. The declared type wins; the filename
// extension is the fallback for clients that send application/octet-stream.
func Detect(filename, contentType string) (Kind, string, error) {
	mime := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.IndexByte(mime, ';'); idx >= 0 {
		mime = strings.TrimSpace(mime[:idx])
	}

	switch mime {
	case "image/png":
		return KindImage, "image/png", nil
	case "image/jpeg", "image/jpg":
		return KindImage, "image/jpeg", nil
	case "application/pdf":
		return KindDocument, "application/pdf", nil
	case "", "application/octet-stream":
		// fall through to the extension
	default:
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedMedia, mime)
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return KindImage, "image/png", nil
	case ".jpg", ".jpeg":
		return KindImage, "image/jpeg", nil
	case ".pdf":
		return KindDocument, "application/pdf", nil
	}
	return "", "", fmt.Errorf("%w: %s", ErrUnsupportedMedia, filename)
}

// New builds an Asset from raw upload bytes. Image uploads are decoded
// immediately so a corrupt file fails at intake rather than mid-pipeline.
func New(identity, contentType string, data []byte) (*Asset, error) {
	kind, mime, err := Detect(identity, contentType)
	if err != nil {
		return nil, err
	}

	a := &Asset{
		Identity: identity,
		Kind:     kind,
		MIMEType: mime,
		Data:     data,
	}

	if kind == KindImage {
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode image %q: %w", identity, err)
		}
		a.Bitmap = img
	}

	return a, nil
}

// Format returns the image format token the model API expects ("png",
// "jpeg") for inline image parts.
func (a *Asset) Format() string {
	return strings.TrimPrefix(a.MIMEType, "image/")
}
