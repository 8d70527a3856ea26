package render

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
	"github.com/couchcryptid/lightning-map/internal/domain"
)

// Table renders tabular result data as an HTML table.
func Table(t domain.Table) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if len(t.Columns) == 0 {
			_, err := io.WriteString(w, `<p class="empty-result">No data.</p>`)
			return err
		}

		var b strings.Builder
		b.WriteString(`<table class="result-table"><thead><tr>`)
		for _, c := range t.Columns {
			b.WriteString("<th>")
			b.WriteString(templ.EscapeString(c))
			b.WriteString("</th>")
		}
		b.WriteString("</tr></thead><tbody>")
		for _, row := range t.Rows {
			b.WriteString("<tr>")
			for _, cell := range row {
				b.WriteString("<td>")
				b.WriteString(templ.EscapeString(domain.CellText(cell)))
				b.WriteString("</td>")
			}
			b.WriteString("</tr>")
		}
		b.WriteString("</tbody></table>")

		_, err := io.WriteString(w, b.String())
		return err
	})
}
