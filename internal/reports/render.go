package reports

import (
	"fmt"
	"io"

	"github.com/angelmondragon/storedesk-backend/pkg/enums"
)

// Renderer encodes a Document. Identical documents produce identical bytes.
type Renderer interface {
	Render(w io.Writer, doc Document) error
}

// RendererFor returns the renderer for a report format.
func RendererFor(format enums.ReportFormat) (Renderer, error) {
	switch format {
	case enums.ReportFormatPDF:
		return PDFRenderer{}, nil
	case enums.ReportFormatXLSX:
		return XLSXRenderer{}, nil
	default:
		return nil, fmt.Errorf("unsupported report format %q", format)
	}
}
