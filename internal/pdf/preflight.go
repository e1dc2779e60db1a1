package pdf

import (
	"bytes"
	"errors"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// ErrEncrypted marks a password-protected document. Preflight reports it
// before any page is read.
var ErrEncrypted = errors.New("pdf is encrypted")

// Preflight holds the structural facts established before extraction.
type Preflight struct {
	PageCount       int
	HasImageStreams bool
}

// preflight validates the document with pdfcpu and collects the page count
// and whether any page carries embedded image streams. Image streams on a
// document with no text layer usually mean a scan.
func preflight(data []byte) (*Preflight, error) {
	conf := model.NewDefaultConfiguration()

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		if isPasswordError(err) {
			return nil, ErrEncrypted
		}
		return nil, err
	}

	return &Preflight{
		PageCount:       ctx.PageCount,
		HasImageStreams: detectImageStreams(ctx),
	}, nil
}

// detectImageStreams walks the optimization tables for image XObjects and
// falls back to scanning the xref table when optimization data is missing.
func detectImageStreams(ctx *model.Context) bool {
	if ctx.Optimize != nil {
		for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
			if len(pdfcpu.ImageObjNrs(ctx, pageNr)) > 0 {
				return true
			}
		}
	}

	for _, entry := range ctx.Table {
		if entry == nil || entry.Free || entry.Compressed {
			continue
		}
		sd, ok := entry.Object.(types.StreamDict)
		if !ok {
			continue
		}
		if subtype, found := sd.Find("Subtype"); found {
			if name, ok := subtype.(types.Name); ok && name == "Image" {
				return true
			}
		}
	}
	return false
}

func isPasswordError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "password") || strings.Contains(msg, "encrypt")
}
