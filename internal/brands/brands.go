package brands

import (
	_ "embed"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rm-hull/near-expiry-food/internal"
	"github.com/rm-hull/near-expiry-food/internal/models"
)

//go:embed brands.csv
var brandsCSV string

type Brands map[models.SourceID]*models.Brand

func GetBrandsList() ([]*models.Brand, error) {
	arr := make([]*models.Brand, 0, 4)
	reader := strings.NewReader(brandsCSV)

	for record := range internal.ParseCSV(reader, false, models.FromCSV) {
		if record.Error != nil {
			return nil, errors.Wrap(record.Error, "failed to load brands")
		}
		arr = append(arr, record.Value)
	}

	return arr, nil
}

func GetBrandsMap() (Brands, error) {
	brands, err := GetBrandsList()
	if err != nil {
		return nil, err
	}

	m := make(Brands, len(brands))
	for _, record := range brands {
		if _, ok := m[record.Source]; ok {
			return nil, errors.Newf("duplicate key detected: %s", record.Source)
		}
		m[record.Source] = record
	}

	return m, nil
}

var registry = sync.OnceValues(GetBrandsMap)

// Lookup returns the registered brand for a source. Unknown sources get a
// placeholder labelled with the source id.
func Lookup(source models.SourceID) *models.Brand {
	m, err := registry()
	if err == nil {
		if brand, ok := m[source]; ok {
			return brand
		}
	}
	return &models.Brand{Source: source, Label: string(source)}
}

func Label(source models.SourceID) string {
	return Lookup(source).Label
}
