package render

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/fogleman/gg"
	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/nadhifr/eventra/internal/models"

	// Template images may be uploaded as JPEG.
	_ "image/jpeg"
)

// A4 landscape in millimeters.
const (
	pageWidthMM  = 297.0
	pageHeightMM = 210.0
)

// Field names recognized in a certificate layout.
const (
	FieldParticipantName   = "participant_name"
	FieldEventDate         = "event_date"
	FieldCertificateNumber = "certificate_number"
)

// Request describes one certificate render: the template image, the
// per-event layout, the text values to overlay and the QR code content.
type Request struct {
	Template  io.Reader
	Layout    *models.CertificateLayout
	Fields    map[string]string
	QRContent string
}

// Renderer rasterizes certificate templates with text overlays and wraps
// the result into a landscape A4 PDF.
type Renderer struct {
	fontPath string
}

// NewRenderer creates a renderer. fontPath is an optional TTF file used for
// text overlays; when empty a built-in bitmap face is used (fixed size, only
// suitable for development).
func NewRenderer(fontPath string) *Renderer {
	return &Renderer{fontPath: fontPath}
}

// RenderPDF produces the certificate PDF bytes for a request.
func (r *Renderer) RenderPDF(req Request) ([]byte, error) {
	img, _, err := image.Decode(req.Template)
	if err != nil {
		return nil, fmt.Errorf("decode template image: %w", err)
	}

	dc := gg.NewContextForImage(img)

	if req.Layout != nil {
		for name, style := range req.Layout.Fields {
			text, ok := req.Fields[name]
			if !ok || text == "" {
				continue
			}
			if err := r.drawText(dc, text, style); err != nil {
				return nil, fmt.Errorf("draw field %s: %w", name, err)
			}
		}

		if req.Layout.QR != nil && req.QRContent != "" {
			if err := drawQR(dc, req.QRContent, req.Layout.QR); err != nil {
				return nil, fmt.Errorf("draw qr code: %w", err)
			}
		}
	}

	var raster bytes.Buffer
	if err := png.Encode(&raster, dc.Image()); err != nil {
		return nil, fmt.Errorf("encode raster: %w", err)
	}

	return rasterToPDF(&raster)
}

func (r *Renderer) drawText(dc *gg.Context, text string, style models.TextFieldStyle) error {
	if r.fontPath != "" {
		size := style.FontSize
		if size <= 0 {
			size = 24
		}
		if err := dc.LoadFontFace(r.fontPath, size); err != nil {
			return fmt.Errorf("load font face: %w", err)
		}
	}

	color := style.Color
	if color == "" {
		color = "#000000"
	}
	dc.SetHexColor(color)

	// Anchor by alignment: the configured point is the left edge, center
	// or right edge of the rendered string.
	var ax float64
	switch style.Align {
	case "center":
		ax = 0.5
	case "right":
		ax = 1.0
	default:
		ax = 0.0
	}

	dc.DrawStringAnchored(text, style.X, style.Y, ax, 0.5)
	return nil
}

func drawQR(dc *gg.Context, content string, style *models.QRStyle) error {
	size := style.Size
	if size <= 0 {
		size = 120
	}

	qr, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return fmt.Errorf("generate qr code: %w", err)
	}

	dc.DrawImage(qr.Image(size), int(style.X), int(style.Y))
	return nil
}

// rasterToPDF places the rasterized certificate full-bleed on a landscape
// A4 page.
func rasterToPDF(raster io.Reader) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.AddPage()

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("certificate", opts, raster)
	if pdf.Err() {
		return nil, fmt.Errorf("register raster: %w", pdf.Error())
	}

	pdf.ImageOptions("certificate", 0, 0, pageWidthMM, pageHeightMM, false, opts, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}

	return out.Bytes(), nil
}
