// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/tiff"
	"github.com/go-pdf/fpdf"

	"github.com/pdiddy/blob2pdf/pkg/types"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
)

// imageDPI matches the resolution the migrated archive was rasterized at.
const imageDPI = 100.0

// imageConverter decodes raster images and lays each frame out as one PDF
// page. Multi-frame TIFFs become multi-page PDFs.
type imageConverter struct{}

func (ic *imageConverter) Convert(ctx context.Context, src types.SourceFile, outDir string) (string, error) {
	data, err := os.ReadFile(src.Path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", src.Path, err)
	}

	frames, format, err := decodeFrames(src.Path, data)
	if err != nil {
		return "", newError(types.ErrCorruptInput, "cannot identify image file %s: %v", filepath.Base(src.Path), err)
	}

	dst := outputPath(outDir, src)
	// Single-frame JPEGs are embedded as-is; everything else is re-encoded
	// losslessly.
	if format == "jpeg" && len(frames) == 1 {
		if err := buildJPEGPDF(data, frames[0].Bounds(), dst); err != nil {
			return "", err
		}
		return dst, nil
	}
	if err := buildImagePDF(frames, dst); err != nil {
		return "", err
	}
	return dst, nil
}

// decodeFrames decodes all frames of the image. TIFF goes through a decoder
// that understands multiple IFDs; other formats decode to a single frame.
func decodeFrames(path string, data []byte) ([]image.Image, string, error) {
	isTIFF := bytes.HasPrefix(data, []byte("II*\x00")) || bytes.HasPrefix(data, []byte("MM\x00*"))
	switch ext := strings.ToLower(filepath.Ext(path)); {
	case isTIFF || ext == ".tif" || ext == ".tiff":
		m, errs, err := tiff.DecodeAll(bytes.NewReader(data))
		if err != nil {
			return nil, "", err
		}
		var frames []image.Image
		for i := range m {
			for j := range m[i] {
				if errs[i][j] == nil && m[i][j] != nil {
					frames = append(frames, m[i][j])
				}
			}
		}
		if len(frames) == 0 {
			return nil, "", fmt.Errorf("no decodable frames")
		}
		return frames, "tiff", nil
	default:
		img, format, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, "", err
		}
		return []image.Image{img}, format, nil
	}
}

// buildJPEGPDF writes a one-page PDF embedding the JPEG bytes unchanged.
func buildJPEGPDF(data []byte, bounds image.Rectangle, dst string) error {
	w, h := pageSize(bounds)
	doc := newImageDoc(w, h)
	opts := fpdf.ImageOptions{ImageType: "JPG"}
	doc.RegisterImageOptionsReader("frame-0", opts, bytes.NewReader(data))
	doc.ImageOptions("frame-0", 0, 0, w, h, false, opts, 0, "")
	return writePDF(doc, dst)
}

// buildImagePDF writes one page per frame, each sized to the frame at the
// archive DPI. Transparency is flattened onto white.
func buildImagePDF(frames []image.Image, dst string) error {
	if len(frames) == 0 {
		return fmt.Errorf("no frames to write")
	}

	w0, h0 := pageSize(frames[0].Bounds())
	doc := newImageDoc(w0, h0)

	for i, frame := range frames {
		w, h := pageSize(frame.Bounds())
		if i > 0 {
			doc.AddPageFormat("P", fpdf.SizeType{Wd: w, Ht: h})
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, flatten(frame)); err != nil {
			return fmt.Errorf("encoding frame %d: %w", i, err)
		}
		name := fmt.Sprintf("frame-%d", i)
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		doc.RegisterImageOptionsReader(name, opts, &buf)
		doc.ImageOptions(name, 0, 0, w, h, false, opts, 0, "")
	}
	return writePDF(doc, dst)
}

func newImageDoc(w, h float64) *fpdf.Fpdf {
	doc := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: w, Ht: h},
	})
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)
	doc.AddPage()
	return doc
}

func writePDF(doc *fpdf.Fpdf, dst string) error {
	if err := doc.OutputFileAndClose(dst); err != nil {
		return fmt.Errorf("writing %s: %w", dst, err)
	}
	return nil
}

// pageSize converts pixel bounds to page points at the archive DPI.
func pageSize(b image.Rectangle) (w, h float64) {
	return float64(b.Dx()) * 72.0 / imageDPI, float64(b.Dy()) * 72.0 / imageDPI
}

// flatten composites the image over a white background, dropping any alpha
// channel the way the archive's earlier conversions did.
func flatten(img image.Image) image.Image {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Over)
	return out
}
