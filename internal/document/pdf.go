package document

import (
	"fmt"
	"io"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// loadPDF extracts one bitmap per page using pdfcpu. Scanned bills carry the
// scan as an image XObject covering the page; when a page holds several
// images the largest one is taken. A page without any image stream is
// skipped with a warning: rasterizing vector content is out of scope.
func (l *Loader) loadPDF(path string) ([]Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			l.logger.Warn("close pdf", "path", path, "error", cerr)
		}
	}()

	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}
	if ctx.PageCount == 0 {
		return nil, fmt.Errorf("no pages found in PDF")
	}

	var pages []Page
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		imgs, err := pdfcpu.ExtractPageImages(ctx, pageNr, false)
		if err != nil {
			l.logger.Warn("pdf page image extraction failed", "path", path, "page", pageNr, "error", err)
			continue
		}
		if len(imgs) == 0 {
			l.logger.Warn("pdf page has no image stream", "path", path, "page", pageNr)
			continue
		}

		var best []byte
		var bestType string
		for _, img := range imgs {
			data, err := io.ReadAll(img)
			if err != nil {
				l.logger.Warn("pdf image read failed", "path", path, "page", pageNr, "error", err)
				continue
			}
			if len(data) > len(best) {
				best = data
				bestType = img.FileType
			}
		}
		if len(best) == 0 {
			continue
		}

		pages = append(pages, Page{
			Number:   pageNr,
			MIMEType: mimeForImageType(bestType),
			Data:     best,
		})
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("no page images found in PDF: %s", path)
	}
	return pages, nil
}

func mimeForImageType(fileType string) string {
	switch fileType {
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "tif", "tiff":
		return "image/tiff"
	default:
		return "application/octet-stream"
	}
}
