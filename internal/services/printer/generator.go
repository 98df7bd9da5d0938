package printer

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"
)

// Label is one storage location to print
type Label struct {
	ID   string
	Name string
	Path []string // ancestor names, root first
}

// LabelConfig holds configuration for PDF generation
type LabelConfig struct {
	BaseURL    string  `json:"-"`
	Cols       int     `json:"cols"`
	Rows       int     `json:"rows"`
	MarginTop  float64 `json:"marginTop"`
	MarginLeft float64 `json:"marginLeft"`
	GapX       float64 `json:"gapX"`
	GapY       float64 `json:"gapY"`
}

// DefaultLabelConfig is a 3x8 sheet of A4 address labels
func DefaultLabelConfig(baseURL string) LabelConfig {
	return LabelConfig{BaseURL: baseURL, Cols: 3, Rows: 8, MarginTop: 10, MarginLeft: 8, GapX: 2, GapY: 0}
}

// LocationURL is the QR target of a location. Uppercase keeps the QR code in
// alphanumeric mode; the server resolves /l/ paths case-insensitively.
func LocationURL(baseURL, id string) string {
	return strings.ToUpper(strings.TrimRight(baseURL, "/") + "/l/" + id)
}

// GenerateLabelsPDF creates a PDF with one QR label per location
func GenerateLabelsPDF(cfg LabelConfig, labels []Label) ([]byte, error) {
	if len(labels) == 0 {
		return nil, errors.New("no labels to print")
	}
	if cfg.Cols <= 0 || cfg.Rows <= 0 {
		return nil, fmt.Errorf("invalid grid %dx%d", cfg.Cols, cfg.Rows)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont("Arial", "B", 10)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// A4 dimensions
	pageWidth, pageHeight := 210.0, 297.0

	totalGapX := float64(cfg.Cols-1) * cfg.GapX
	totalGapY := float64(cfg.Rows-1) * cfg.GapY
	availW := pageWidth - (cfg.MarginLeft * 2)
	availH := pageHeight - (cfg.MarginTop * 2)
	labelW := (availW - totalGapX) / float64(cfg.Cols)
	labelH := (availH - totalGapY) / float64(cfg.Rows)

	labelsPerPage := cfg.Cols * cfg.Rows
	imgOptions := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}

	for i, l := range labels {
		if i%labelsPerPage == 0 {
			pdf.AddPage()
		}
		indexOnPage := i % labelsPerPage
		col := indexOnPage % cfg.Cols
		row := indexOnPage / cfg.Cols

		// Top-left of label
		x := cfg.MarginLeft + float64(col)*(labelW+cfg.GapX)
		y := cfg.MarginTop + float64(row)*(labelH+cfg.GapY)

		qrPng, err := qrcode.Encode(LocationURL(cfg.BaseURL, l.ID), qrcode.Medium, 256)
		if err != nil {
			return nil, fmt.Errorf("encode QR for %s: %w", l.ID, err)
		}
		imgName := fmt.Sprintf("qr_%d", i)
		pdf.RegisterImageOptionsReader(imgName, imgOptions, bytes.NewReader(qrPng))

		// QR on the left, text on the right
		qrSize := labelH * 0.85
		if qrSize > labelW/2 {
			qrSize = labelW / 2
		}
		pdf.ImageOptions(imgName, x+1, y+(labelH-qrSize)/2, qrSize, qrSize, false, imgOptions, 0, "")

		textX := x + qrSize + 2
		textW := labelW - qrSize - 3
		pdf.SetXY(textX, y+labelH/2-5)
		pdf.SetFontSize(11)
		pdf.CellFormat(textW, 5, tr(l.Name), "", 0, "L", false, 0, "")
		if len(l.Path) > 0 {
			pdf.SetXY(textX, y+labelH/2+1)
			pdf.SetFontSize(7)
			pdf.CellFormat(textW, 4, tr(strings.Join(l.Path, " / ")), "", 0, "L", false, 0, "")
		}
	}

	if err := pdf.Error(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
