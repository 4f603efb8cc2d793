package carousel

import (
	"bytes"
	"context"
	"io"
	"sync"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	pdfcpu "github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

var pdfcpuConfigOnce sync.Once

func pdfcpuConfiguration() *model.Configuration {
	pdfcpuConfigOnce.Do(pdfapi.DisableConfigDir)
	return model.NewDefaultConfiguration()
}

// PDFCPUWriter builds PDFs with pdfcpu. Consecutive pages sharing a page
// size are imported in one pass; groups are merged in order.
type PDFCPUWriter struct{}

func (PDFCPUWriter) WritePDF(ctx context.Context, pages []PageImage) ([]byte, error) {
	if len(pages) == 0 {
		return nil, NewError(KindValidation, "no pages to write", nil)
	}

	groups := groupPages(pages)
	parts := make([][]byte, 0, len(groups))
	for _, group := range groups {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		part, err := importGroup(group)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}

	if len(parts) == 1 {
		return parts[0], nil
	}

	readers := make([]io.ReadSeeker, 0, len(parts))
	for _, part := range parts {
		readers = append(readers, bytes.NewReader(part))
	}
	var out bytes.Buffer
	if err := pdfapi.MergeRaw(readers, &out, false, pdfcpuConfiguration()); err != nil {
		return nil, NewError(KindEncoding, "pdf merge failed", err)
	}
	return out.Bytes(), nil
}

func groupPages(pages []PageImage) [][]PageImage {
	var groups [][]PageImage
	for _, p := range pages {
		n := len(groups)
		if n > 0 {
			last := groups[n-1][0]
			if last.Width == p.Width && last.Height == p.Height {
				groups[n-1] = append(groups[n-1], p)
				continue
			}
		}
		groups = append(groups, []PageImage{p})
	}
	return groups
}

func importGroup(group []PageImage) ([]byte, error) {
	imp := pdfcpu.DefaultImportConfig()
	imp.PageDim = &types.Dim{Width: group[0].Width, Height: group[0].Height}
	imp.PageSize = ""
	imp.UserDim = true
	// Center at relative scale 1 fills the PageDim box.
	imp.Pos = types.Center
	imp.Scale = 1.0
	imp.ScaleAbs = false
	imp.InpUnit = types.POINTS

	imgs := make([]io.Reader, 0, len(group))
	for _, p := range group {
		imgs = append(imgs, bytes.NewReader(p.JPEG))
	}

	var out bytes.Buffer
	if err := pdfapi.ImportImages(nil, &out, imgs, imp, pdfcpuConfiguration()); err != nil {
		return nil, NewError(KindEncoding, "pdf image import failed", err)
	}
	return out.Bytes(), nil
}
