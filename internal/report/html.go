package report

import (
	_ "embed"
	"html/template"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/rm-hull/near-expiry-food/internal/brands"
	"github.com/rm-hull/near-expiry-food/internal/models"
)

//go:embed report.html.tmpl
var htmlSource string

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
	"colour": func(source models.SourceID) template.CSS {
		if c := brands.Lookup(source).Colour; c != nil {
			return template.CSS(*c)
		}
		return "#ccc"
	},
}).Parse(htmlSource))

// HTML writes a standalone page. Vendor text is escaped by html/template.
func HTML(w io.Writer, resp *models.SearchResponse) error {
	if err := htmlTemplate.Execute(w, resp); err != nil {
		return errors.Wrap(err, "failed to render html report")
	}
	return nil
}
