package recognize

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PageImages returns the scan raster of each page of a PDF, in page order.
// Scanned documents carry one image per page; a page without any image yields
// a nil entry so page numbering stays intact for the caller.
func PageImages(data []byte) ([][]byte, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	rs := bytes.NewReader(data)
	pageCount, err := api.PageCount(rs, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}
	if pageCount == 0 {
		return nil, fmt.Errorf("document has no pages")
	}

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind document: %w", err)
	}
	pageMaps, err := api.ExtractImagesRaw(rs, nil, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to extract page images: %w", err)
	}

	pages := make([][]byte, pageCount)
	chosen := make([]int, pageCount)
	for _, m := range pageMaps {
		for objNr, img := range m {
			if img.Thumb {
				continue
			}
			idx := img.PageNr - 1
			if idx < 0 || idx >= pageCount {
				continue
			}
			// A page holding several images keeps the lowest object number.
			if pages[idx] != nil && chosen[idx] <= objNr {
				continue
			}
			raw, err := io.ReadAll(img)
			if err != nil {
				return nil, fmt.Errorf("failed to read image on page %d: %w", img.PageNr, err)
			}
			pages[idx] = raw
			chosen[idx] = objNr
		}
	}
	return pages, nil
}

func hasSuffixFold(s, suffix string) bool {
	return strings.HasSuffix(strings.ToLower(s), suffix)
}
