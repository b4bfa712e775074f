package models

import "time"

// DirectoryEntry is cached store metadata (address, phone) for a chain's
// store, keyed by the chain and the vendor's store name.
type DirectoryEntry struct {
	Source    SourceID
	StoreName string
	StoreNo   string
	Address   string
	Phone     string
	FetchedAt time.Time
}

func (e *DirectoryEntry) ToTuple() []any {
	return []any{
		string(e.Source),
		e.StoreName,
		e.StoreNo,
		e.Address,
		e.Phone,
		e.FetchedAt,
	}
}
