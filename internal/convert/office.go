// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/blob2pdf/internal/engine"
	"github.com/pdiddy/blob2pdf/pkg/types"
)

// ooxmlExts are the Office Open XML extensions. A file with one of these
// extensions whose bytes are a CFB container is an encrypted package: OOXML
// is a ZIP archive, and password protection wraps it in CFB.
var ooxmlExts = map[string]bool{
	".docx": true, ".xlsx": true, ".pptx": true, ".xlsm": true,
}

var cfbHeader = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// officeConverter renders word-processing documents, spreadsheets and
// presentations through the office engine, one export filter per strategy.
type officeConverter struct {
	eng    engine.Office
	filter string
}

func (o *officeConverter) Convert(ctx context.Context, src types.SourceFile, outDir string) (string, error) {
	if o.eng == nil {
		return "", newError(types.ErrEngineFault, "no office engine available for %s", filepath.Base(src.Path))
	}

	if encrypted, err := isEncryptedOOXML(src.Path); err == nil && encrypted {
		return "", newError(types.ErrPasswordProtected,
			"%s is a password protected file (encrypted package)", filepath.Base(src.Path))
	}

	dst, err := o.eng.Render(ctx, src.Path, outDir, o.filter)
	if err != nil {
		return "", err
	}
	return dst, nil
}

// isEncryptedOOXML reports whether an OOXML-extension file is actually a CFB
// container, the marker of password protection.
func isEncryptedOOXML(path string) (bool, error) {
	if !ooxmlExts[strings.ToLower(filepath.Ext(path))] {
		return false, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, len(cfbHeader))
	if _, err := io.ReadFull(f, head); err != nil {
		return false, err
	}
	return bytes.Equal(head, cfbHeader), nil
}
