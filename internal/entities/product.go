package entities

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"infinixai/internal/safetext"
)

// ActiveState is the availability flag of a catalog item. Unspecified is
// treated exactly like Active.
type ActiveState int

const (
	Unspecified ActiveState = iota
	Active
	Inactive
)

// IsAvailable reports whether the item may be offered for sale.
func (s ActiveState) IsAvailable() bool {
	return s != Inactive
}

func (s ActiveState) String() string {
	switch s {
	case Active:
		return "active"
	case Inactive:
		return "inactive"
	default:
		return "unspecified"
	}
}

// Ptr returns the nullable column value for s.
func (s ActiveState) Ptr() *bool {
	switch s {
	case Active:
		v := true
		return &v
	case Inactive:
		v := false
		return &v
	}
	return nil
}

// ActiveStateOf maps a stored or decoded value to an ActiveState. Only a
// boolean false marks an item inactive; anything that is not a boolean is
// Unspecified.
func ActiveStateOf(v any) ActiveState {
	switch t := v.(type) {
	case bool:
		if t {
			return Active
		}
		return Inactive
	case *bool:
		if t == nil {
			return Unspecified
		}
		return ActiveStateOf(*t)
	}
	return Unspecified
}

// ParseActiveFlag reads the textual is_active column of a CSV import.
// Blank or unrecognised text is Unspecified.
func ParseActiveFlag(s string) ActiveState {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return Unspecified
	}
	return ActiveStateOf(b)
}

func (s ActiveState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Ptr())
}

func (s *ActiveState) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = ActiveStateOf(v)
	return nil
}

// MaxProductPrice is the largest price the products.price column
// (NUMERIC(15,2)) can hold.
const MaxProductPrice = 9_999_999_999_999.99

// ValidPrice reports whether p can be stored: absent, or between 0 and
// MaxProductPrice.
func ValidPrice(p *float64) bool {
	return p == nil || (*p >= 0 && *p <= MaxProductPrice)
}

// ProductEntry is one catalog item of a tenant.
type ProductEntry struct {
	ID          string      `json:"id"`
	TenantID    string      `json:"user_id"`
	Name        string      `json:"name"`
	Category    string      `json:"category,omitempty"`
	Price       *float64    `json:"price"`
	Description string      `json:"description,omitempty"`
	ImageURL    string      `json:"image_url,omitempty"`
	Active      ActiveState `json:"is_active"`
	CreatedAt   time.Time   `json:"created_at"`
}

// ProductFromRecord builds a ProductEntry from an untyped record (JSON body,
// CSV row). Prices that are not finite numbers are dropped.
func ProductFromRecord(rec map[string]any) ProductEntry {
	p := ProductEntry{
		ID:          safetext.Trim(rec["id"]),
		Name:        safetext.Trim(rec["name"]),
		Category:    safetext.Trim(rec["category"]),
		Description: safetext.Trim(rec["description"]),
		ImageURL:    safetext.Trim(rec["image_url"]),
		Active:      ActiveStateOf(rec["is_active"]),
	}
	if n, ok := safetext.Number(rec["price"]); ok {
		p.Price = &n
	}
	return p
}
