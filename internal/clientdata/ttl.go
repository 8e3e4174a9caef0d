package clientdata

import "time"

// TTL constants for cached provider responses.
// These are added to time.Now() when storing to calculate expires_at.
const (
	TTLLogo    = 7 * 24 * time.Hour // logo urls almost never change
	TTLCatalog = 30 * time.Minute   // matches the catalog refresh schedule
	TTLPrice   = 10 * time.Minute   // last-known quote per coin
)
