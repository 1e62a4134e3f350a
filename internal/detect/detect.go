// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package detect determines the true format family of a file. The declared
// extension is the primary signal; when it is missing or unrecognized the
// leading bytes are inspected for known magic signatures, including a look
// inside ZIP containers to tell OOXML and ODF documents apart.
package detect

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/blob2pdf/pkg/types"
)

// categoryByExt maps every supported extension (lowercase, with dot) to its
// conversion category.
var categoryByExt = map[string]types.FileCategory{
	".pdf": types.CategoryPDF,

	".doc":  types.CategoryWord,
	".docx": types.CategoryWord,
	".rtf":  types.CategoryWord,
	".odt":  types.CategoryWord,
	".txt":  types.CategoryWord,
	".dot":  types.CategoryWord,

	".xls":  types.CategoryExcel,
	".xlsx": types.CategoryExcel,
	".ods":  types.CategoryExcel,
	".csv":  types.CategoryExcel,
	".xlsm": types.CategoryExcel,

	".ppt":  types.CategoryPowerPoint,
	".pptx": types.CategoryPowerPoint,
	".odp":  types.CategoryPowerPoint,

	".jpg":  types.CategoryImage,
	".jpeg": types.CategoryImage,
	".png":  types.CategoryImage,
	".tif":  types.CategoryImage,
	".tiff": types.CategoryImage,
	".bmp":  types.CategoryImage,
	".heic": types.CategoryImage,

	".html": types.CategoryHTML,
	".htm":  types.CategoryHTML,

	".msg": types.CategoryEmail,
	".eml": types.CategoryEmail,
}

// sniffLen is how many leading bytes Sniff needs at most.
const sniffLen = 1024

// FromExtension returns the category for a file extension, case-insensitive.
// The second return value reports whether the extension is supported.
func FromExtension(ext string) (types.FileCategory, bool) {
	cat, ok := categoryByExt[strings.ToLower(ext)]
	return cat, ok
}

// SupportedExtensions returns all supported extensions, for reporting.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(categoryByExt))
	for ext := range categoryByExt {
		exts = append(exts, ext)
	}
	return exts
}

// DetectFile determines the category of the file at path. The extension is
// trusted when recognized; otherwise the file content is sniffed. A file
// that resolves to neither returns CategoryUnsupported, which is a valid
// classification, not an error.
func DetectFile(path string) (types.FileCategory, error) {
	if cat, ok := FromExtension(filepath.Ext(path)); ok {
		return cat, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return types.CategoryUnsupported, err
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := f.Read(head)
	if err != nil && err != io.EOF {
		return types.CategoryUnsupported, err
	}
	head = head[:n]

	cat := Sniff(head)
	if cat == zipContainer {
		return sniffZipFile(path), nil
	}
	return cat, nil
}

// zipContainer is an internal marker: the bytes are a ZIP archive whose
// category depends on its contents.
const zipContainer = types.FileCategory("zip")

// oleHeader is the Compound File Binary signature shared by legacy Office
// documents and Outlook .msg files.
var oleHeader = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// Sniff maps leading bytes to a category. It returns zipContainer for ZIP
// archives, which callers must resolve with an archive inspection, and
// CategoryUnsupported when no signature matches.
func Sniff(head []byte) types.FileCategory {
	switch {
	case bytes.HasPrefix(head, []byte("%PDF-")):
		return types.CategoryPDF
	case bytes.HasPrefix(head, []byte("PK\x03\x04")):
		return zipContainer
	case bytes.HasPrefix(head, oleHeader):
		// CFB holds .doc, .xls, .ppt and .msg alike; without parsing the
		// directory stream Word is the dominant case.
		return types.CategoryWord
	case bytes.HasPrefix(head, []byte{0xFF, 0xD8, 0xFF}):
		return types.CategoryImage
	case bytes.HasPrefix(head, []byte("\x89PNG\r\n\x1a\n")):
		return types.CategoryImage
	case bytes.HasPrefix(head, []byte("GIF87a")), bytes.HasPrefix(head, []byte("GIF89a")):
		return types.CategoryImage
	case bytes.HasPrefix(head, []byte("II*\x00")), bytes.HasPrefix(head, []byte("MM\x00*")):
		return types.CategoryImage
	case bytes.HasPrefix(head, []byte("BM")) && len(head) >= 14:
		return types.CategoryImage
	case bytes.HasPrefix(head, []byte("{\\rtf")):
		return types.CategoryWord
	}

	if isHTML(head) {
		return types.CategoryHTML
	}
	if isEmail(head) {
		return types.CategoryEmail
	}
	return types.CategoryUnsupported
}

// isHTML reports whether the bytes open with an HTML document marker,
// ignoring leading whitespace and a UTF-8 BOM.
func isHTML(head []byte) bool {
	s := strings.ToLower(string(bytes.TrimLeft(head, "\xef\xbb\xbf \t\r\n")))
	return strings.HasPrefix(s, "<!doctype html") || strings.HasPrefix(s, "<html")
}

// emailHeaders are RFC 5322 header names that open stored messages.
var emailHeaders = []string{"return-path:", "received:", "from:", "delivered-to:", "mime-version:"}

// isEmail reports whether the bytes look like a raw RFC 5322 message.
func isEmail(head []byte) bool {
	s := strings.ToLower(string(head))
	for _, h := range emailHeaders {
		if strings.HasPrefix(s, h) {
			return true
		}
	}
	return false
}

func sniffZipFile(path string) types.FileCategory {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return types.CategoryUnsupported
	}
	defer zr.Close()
	return categoryOfArchive(&zr.Reader)
}

// categoryOfArchive distinguishes OOXML and ODF documents inside a ZIP
// container. OOXML carries [Content_Types].xml naming the document model;
// ODF carries a mimetype entry.
func categoryOfArchive(zr *zip.Reader) types.FileCategory {
	for _, f := range zr.File {
		switch f.Name {
		case "[Content_Types].xml":
			data, err := readArchiveFile(f)
			if err != nil {
				return types.CategoryUnsupported
			}
			s := string(data)
			switch {
			case strings.Contains(s, "wordprocessingml"):
				return types.CategoryWord
			case strings.Contains(s, "spreadsheetml"):
				return types.CategoryExcel
			case strings.Contains(s, "presentationml"):
				return types.CategoryPowerPoint
			}
		case "mimetype":
			data, err := readArchiveFile(f)
			if err != nil {
				return types.CategoryUnsupported
			}
			switch strings.TrimSpace(string(data)) {
			case "application/vnd.oasis.opendocument.text":
				return types.CategoryWord
			case "application/vnd.oasis.opendocument.spreadsheet":
				return types.CategoryExcel
			case "application/vnd.oasis.opendocument.presentation":
				return types.CategoryPowerPoint
			}
		}
	}
	return types.CategoryUnsupported
}

func readArchiveFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, 64*1024))
}
