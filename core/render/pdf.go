// Package render — PDF bundle.
// Collects the images of a run into one PDF using gofpdf: a cover page with
// the run totals, then one page per image, scaled to fit and captioned with
// its source document.
package render

import (
	"fmt"
	"path/filepath"

	"github.com/gaurav-prasanna/diagrampipe/core"
	"github.com/jung-kurt/gofpdf"
)

const (
	pageMargin    = 15.0
	captionHeight = 10.0
)

// PDFBundler writes rendered images into a single PDF document.
type PDFBundler struct {
	Title string
}

// NewPDFBundler creates a PDFBundler.
func NewPDFBundler(title string) *PDFBundler {
	if title == "" {
		title = "Diagrams"
	}
	return &PDFBundler{Title: title}
}

// Bundle writes every image listed in report to path, in report order.
func (b *PDFBundler) Bundle(report core.RunReport, path string) error {
	if report.Rendered == 0 {
		return ErrNothingToBundle
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, pageMargin)

	// Cover page.
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.MultiCell(0, 8, b.Title, "", "L", false)
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 5, fmt.Sprintf("Documents: %d", report.Documents), "", "L", false)
	pdf.MultiCell(0, 5, fmt.Sprintf("Images: %d", report.Rendered), "", "L", false)
	if report.Failed > 0 {
		pdf.SetTextColor(180, 0, 0)
		pdf.MultiCell(0, 5, fmt.Sprintf("Failed: %d", report.Failed), "", "L", false)
		pdf.SetTextColor(0, 0, 0)
	}

	pageW, pageH := pdf.GetPageSize()
	maxW := pageW - 2*pageMargin
	maxH := pageH - 2*pageMargin - captionHeight

	opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
	for _, doc := range report.Details {
		for _, img := range doc.Images {
			info := pdf.RegisterImageOptions(img.Path, opts)
			if pdf.Err() {
				return fmt.Errorf("adding %s to bundle: %w", img.Path, pdf.Error())
			}

			w, h := fitImage(info.Width(), info.Height(), maxW, maxH)

			pdf.AddPage()
			pdf.SetFont("Helvetica", "I", 9)
			pdf.SetTextColor(100, 100, 100)
			pdf.CellFormat(0, captionHeight-4, caption(doc, img), "", 1, "L", false, 0, "")
			pdf.SetTextColor(0, 0, 0)
			pdf.ImageOptions(img.Path, pageMargin, pageMargin+captionHeight, w, h, false, opts, 0, "")
		}
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("writing PDF %s: %w", path, err)
	}
	return nil
}

// caption labels an image page with its document and diagram number.
func caption(doc core.DocumentReport, img core.Image) string {
	return fmt.Sprintf("%s  #%d  (%s)", doc.Path, img.Sequence, filepath.Base(img.Path))
}

// fitImage scales (w, h) down to fit within (maxW, maxH), keeping the
// aspect ratio. Images that already fit keep their size.
func fitImage(w, h, maxW, maxH float64) (float64, float64) {
	if w <= 0 || h <= 0 {
		return maxW, 0
	}
	scale := 1.0
	if w > maxW {
		scale = maxW / w
	}
	if h*scale > maxH {
		scale = maxH / h
	}
	return w * scale, h * scale
}
