package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// FallbackPrefix marks lead ids synthesized for places without a provider id.
const FallbackPrefix = "FALLBACK_"

const mapsPlaceURL = "https://www.google.com/maps/place/?q=place_id:"

// Place is a raw map-search result before normalization.
type Place struct {
	ID           string
	Name         string
	Address      string
	Phone        string
	Email        string
	Website      string
	Rating       float64
	ReviewsCount int
}

// FallbackID derives a stable id from the business name and phone digits.
func FallbackID(name, phone string) string {
	clean := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(phone)
	sum := sha256.Sum256([]byte(strings.ToLower(name) + "|" + clean))
	return FallbackPrefix + hex.EncodeToString(sum[:])[:16]
}

// NormalizeLead maps a place onto the lead schema. ok is false when the place
// has no id and lacks either a name or phone to build a fallback key.
func NormalizeLead(p Place, q Query, pulledAt time.Time) (lead model.Lead, ok bool) {
	id := strings.TrimSpace(p.ID)
	name := strings.TrimSpace(p.Name)
	phone := strings.TrimSpace(p.Phone)

	if id == "" {
		if name == "" || phone == "" {
			return model.Lead{}, false
		}
		id = FallbackID(name, phone)
	}

	var link string
	if !strings.HasPrefix(id, FallbackPrefix) {
		link = mapsPlaceURL + id
	}

	return model.Lead{
		ID:           id,
		BusinessName: name,
		BusinessType: q.BusinessType,
		Region:       q.Region,
		FullAddress:  strings.TrimSpace(p.Address),
		Phone:        phone,
		Email:        strings.TrimSpace(p.Email),
		Website:      strings.TrimSpace(p.Website),
		Rating:       p.Rating,
		ReviewsCount: p.ReviewsCount,
		MapsLink:     link,
		QueryUsed:    q.Text,
		PulledAt:     pulledAt.UTC(),
	}, true
}
