// Package imaging normalizes uploaded images. Avatars and group icons are
// stored inline as bytes, so everything is sniffed, bomb-checked, decoded
// and downscaled to a bounded edge before it reaches a row.
package imaging

import (
	"bytes"
	"image"
	_ "image/gif" // decode support
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // decode support

	perr "pursue/internal/platform/errors"
)

// Edge bounds per use. Photos stay larger since they render full-bleed.
const (
	AvatarMaxEdge = 512
	IconMaxEdge   = 512
	PhotoMaxEdge  = 1600
)

const (
	jpegQuality = 85

	// maxPixels rejects decompression bombs before the full decode
	maxPixels = 40 << 20
)

// Result is a normalized image ready for storage
type Result struct {
	Data   []byte
	MIME   string
	Width  int
	Height int
}

// SniffMIME detects the image type from magic bytes, or ""
func SniffMIME(data []byte) string {
	switch {
	case len(data) >= 2 && data[0] == 0xFF && data[1] == 0xD8:
		return "image/jpeg"
	case len(data) >= 8 && data[0] == 0x89 && data[1] == 'P' && data[2] == 'N' && data[3] == 'G':
		return "image/png"
	case len(data) >= 6 && data[0] == 'G' && data[1] == 'I' && data[2] == 'F':
		return "image/gif"
	case len(data) >= 12 && data[0] == 'R' && data[1] == 'I' && data[2] == 'F' && data[3] == 'F' &&
		data[8] == 'W' && data[9] == 'E' && data[10] == 'B' && data[11] == 'P':
		return "image/webp"
	default:
		return ""
	}
}

// Shrink decodes data, scales it down so neither edge exceeds maxEdge, and
// re-encodes. JPEG and PNG inputs already within bounds pass through
// unchanged; GIF and WebP always re-encode since rows store static images.
func Shrink(data []byte, maxEdge int) (Result, error) {
	mime := SniffMIME(data)
	if mime == "" {
		return Result{}, perr.Reasoned(perr.ErrorCodeValidation, "UNSUPPORTED_IMAGE_TYPE", "unrecognized image format")
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Result{}, perr.Reasoned(perr.ErrorCodeValidation, "UNSUPPORTED_IMAGE_TYPE", "image header is corrupt")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > maxPixels {
		return Result{}, perr.Reasoned(perr.ErrorCodeValidation, "IMAGE_TOO_LARGE", "image dimensions out of range")
	}

	within := cfg.Width <= maxEdge && cfg.Height <= maxEdge
	if within && (mime == "image/jpeg" || mime == "image/png") {
		return Result{Data: data, MIME: mime, Width: cfg.Width, Height: cfg.Height}, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Result{}, perr.Reasoned(perr.ErrorCodeValidation, "UNSUPPORTED_IMAGE_TYPE", "image body is corrupt")
	}

	out := src
	w, h := cfg.Width, cfg.Height
	if !within {
		w, h = fit(cfg.Width, cfg.Height, maxEdge)
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
		out = dst
	}

	// PNG keeps transparency; everything else flattens to JPEG
	var buf bytes.Buffer
	if mime == "image/png" {
		if err := png.Encode(&buf, out); err != nil {
			return Result{}, perr.Wrapf(err, perr.ErrorCodeUnknown, "imaging: encode png")
		}
		return Result{Data: buf.Bytes(), MIME: "image/png", Width: w, Height: h}, nil
	}
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return Result{}, perr.Wrapf(err, perr.ErrorCodeUnknown, "imaging: encode jpeg")
	}
	return Result{Data: buf.Bytes(), MIME: "image/jpeg", Width: w, Height: h}, nil
}

// fit scales (w, h) so the longer edge equals maxEdge
func fit(w, h, maxEdge int) (int, int) {
	if w >= h {
		nh := h * maxEdge / w
		if nh < 1 {
			nh = 1
		}
		return maxEdge, nh
	}
	nw := w * maxEdge / h
	if nw < 1 {
		nw = 1
	}
	return nw, maxEdge
}
