package report

import (
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/rm-hull/near-expiry-food/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSON writes resp as indented JSON, leaving non-ASCII text unescaped.
func JSON(w io.Writer, resp *models.SearchResponse) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(resp)
}
