package models

type Brand struct {
	Source    SourceID
	Label     string
	Programme string
	Colour    *string
}

func (b *Brand) ToCSV() []string {
	row := []string{
		string(b.Source),
		b.Label,
		b.Programme,
		"",
	}
	if b.Colour != nil {
		row[3] = *b.Colour
	}

	return row
}

func FromCSV(record, headers []string) (*Brand, error) {
	brand := &Brand{
		Source:    SourceID(record[0]),
		Label:     record[1],
		Programme: record[2],
	}
	if len(record) == 4 && record[3] != "" {
		brand.Colour = &record[3]
	}
	return brand, nil
}
