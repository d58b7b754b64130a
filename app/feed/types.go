package feed

import (
	"time"
)

// Record is a normalized entry produced from a raw feed payload.
// PublishedAt is never zero: entries without a usable date get the
// ingestion time, so ordering and retention stay well-defined.
type Record struct {
	Title       string
	URL         string
	Description string
	Source      string
	Category    string
	PublishedAt time.Time

	Fingerprint string
}
