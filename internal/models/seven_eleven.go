package models

type SevenElevenCoordinates struct {
	Latitude  float64 `json:"Latitude"`
	Longitude float64 `json:"Longitude"`
}

type SevenElevenNearbyRequest struct {
	CurrentLocation SevenElevenCoordinates `json:"CurrentLocation"`
	SearchLocation  SevenElevenCoordinates `json:"SearchLocation"`
}

type SevenElevenDetailRequest struct {
	StoreNo         string                 `json:"storeNo"`
	CurrentLocation SevenElevenCoordinates `json:"CurrentLocation"`
}

// SevenElevenEnvelope wraps every LoveFood API response.
type SevenElevenEnvelope[T any] struct {
	IsSuccess bool   `json:"isSuccess"`
	Message   string `json:"message,omitempty"`
	Element   T      `json:"element"`
}

type SevenElevenCategoryStock struct {
	Name         string `json:"Name"`
	RemainingQty *int   `json:"RemainingQty"`
	ItemList     []struct {
		ItemName     string `json:"ItemName"`
		RemainingQty int    `json:"RemainingQty"`
	} `json:"ItemList,omitempty"`
}

type SevenElevenStoreStock struct {
	StoreNo            string                     `json:"StoreNo"`
	StoreName          string                     `json:"StoreName"`
	Distance           *float64                   `json:"Distance"`
	RemainingQty       *int                       `json:"RemainingQty"`
	Latitude           *float64                   `json:"Latitude,omitempty"`
	Longitude          *float64                   `json:"Longitude,omitempty"`
	CategoryStockItems []SevenElevenCategoryStock `json:"CategoryStockItems"`
}

type SevenElevenNearbyElement struct {
	StoreStockItemList []SevenElevenStoreStock `json:"StoreStockItemList"`
}

type SevenElevenDetailElement struct {
	StoreStockItem struct {
		CategoryStockItems []SevenElevenCategoryStock `json:"CategoryStockItems"`
	} `json:"StoreStockItem"`
}

type SevenElevenStoreInfo struct {
	StoreNo   string `json:"StoreNo,omitempty"`
	StoreName string `json:"StoreName"`
	Address   string `json:"Address"`
	Telno     string `json:"Telno"`
}
