package models

type FamilyMartRequest struct {
	ProjectCode string   `json:"ProjectCode"`
	OldPKeys    []string `json:"OldPKeys"`
	PostInfo    string   `json:"PostInfo"`
	Latitude    float64  `json:"Latitude"`
	Longitude   float64  `json:"Longitude"`
}

type FamilyMartProduct struct {
	Name string `json:"name"`
	Qty  int    `json:"qty"`
}

type FamilyMartSubCategory struct {
	Name     string              `json:"name"`
	Products []FamilyMartProduct `json:"products"`
}

type FamilyMartCategory struct {
	Name       string                  `json:"name"`
	Qty        int                     `json:"qty"`
	Categories []FamilyMartSubCategory `json:"categories"`
}

type FamilyMartStore struct {
	OldPKey   string               `json:"oldPKey"`
	Name      string               `json:"name"`
	Address   string               `json:"address"`
	Tel       string               `json:"tel"`
	Latitude  *float64             `json:"latitude"`
	Longitude *float64             `json:"longitude"`
	Info      []FamilyMartCategory `json:"info"`
}

type FamilyMartResponse struct {
	Data []FamilyMartStore `json:"data"`
}

// TotalQuantity sums the per-category quantities, counting negatives as zero.
func (s *FamilyMartStore) TotalQuantity() int {
	total := 0
	for _, cat := range s.Info {
		total += max(cat.Qty, 0)
	}
	return total
}
