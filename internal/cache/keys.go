package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

const (
	AirportsKey  = "cache:airports"
	FlightPrefix = "cache:flight:"
	SearchPrefix = "cache:search:"
)

func FlightKey(id int64) string {
	return fmt.Sprintf("%s%d", FlightPrefix, id)
}

// SearchQuery is the normalized form of a search request used to derive
// the cache key. Identical queries must map to identical keys, so the
// fields are hashed through a stable JSON encoding.
type SearchQuery struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Date        string `json:"date"`
	Passengers  int    `json:"passengers"`
	Flexible    bool   `json:"flexible"`
	DirectOnly  bool   `json:"direct_only"`
	Page        int    `json:"page"`
	Limit       int    `json:"limit"`
}

func SearchKey(q SearchQuery) string {
	data, _ := json.Marshal(q)
	sum := sha256.Sum256(data)
	return SearchPrefix + hex.EncodeToString(sum[:])
}
