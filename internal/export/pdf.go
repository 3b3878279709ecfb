package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/saadx01/events-calender/internal/grid"
)

const (
	// MIMEPDF and MIMEWord are the export content types.
	MIMEPDF  = "application/pdf"
	MIMEWord = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	defaultRenderTimeout = 30 * time.Second

	// A4 landscape, inches, matching the @page rule in the document.
	paperWidthIn  = 11.69
	paperHeightIn = 8.27
)

// Format selects the export document type.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatWord Format = "word"
)

// ContentType returns the MIME type the format produces.
func (f Format) ContentType() (string, error) {
	switch f {
	case FormatPDF:
		return MIMEPDF, nil
	case FormatWord:
		return MIMEWord, nil
	}
	return "", fmt.Errorf("unknown export format %q", f)
}

// Renderer produces a printable document from a populated grid.
type Renderer interface {
	// Render returns the document bytes and their content type.
	Render(ctx context.Context, p grid.Populated, format Format) ([]byte, string, error)
}

// LocalRenderer rasterizes the printable HTML with a headless Chromium
// instance on this host. PDF only; Word output needs the remote
// service.
type LocalRenderer struct {
	Page    PageOptions
	Timeout time.Duration
}

// Render builds the document HTML, loads it in Chromium and prints it
// to PDF at the fixed page geometry.
func (r *LocalRenderer) Render(ctx context.Context, p grid.Populated, format Format) ([]byte, string, error) {
	if format != FormatPDF {
		return nil, "", errors.New("local renderer produces PDF only")
	}

	html, err := RenderHTML(p, r.Page)
	if err != nil {
		return nil, "", err
	}

	// Chromium needs a URL; stage the document in a temp file.
	dir, err := os.MkdirTemp("", "eventscal-export-*")
	if err != nil {
		return nil, "", err
	}
	defer os.RemoveAll(dir)

	htmlPath := filepath.Join(dir, "calendar.html")
	if err := os.WriteFile(htmlPath, []byte(html), 0o600); err != nil {
		return nil, "", err
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = defaultRenderTimeout
	}

	cctx, cancel := chromedp.NewContext(ctx)
	defer cancel()
	cctx, timeoutCancel := context.WithTimeout(cctx, timeout)
	defer timeoutCancel()

	var pdf []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(r.Page.Width), int64(r.Page.Height)),
		chromedp.Navigate("file://" + htmlPath),
		chromedp.WaitVisible(`#calendar-table`, chromedp.ByQuery),
		// Small extra delay for background image paints.
		chromedp.Sleep(500 * time.Millisecond),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithLandscape(true).
				WithPrintBackground(true).
				WithPaperWidth(paperWidthIn).
				WithPaperHeight(paperHeightIn).
				WithMarginTop(0).
				WithMarginBottom(0).
				WithMarginLeft(0).
				WithMarginRight(0).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	}

	if err := chromedp.Run(cctx, tasks); err != nil {
		return nil, "", fmt.Errorf("local render: chromedp run failed: %w", err)
	}

	return pdf, MIMEPDF, nil
}
