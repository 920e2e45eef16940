package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// loose numeric pattern: digits with optional +, spaces, dashes, parens
var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ()-]{5,19}$`)

type CartItem struct {
	ProductID         string            `json:"product_id"`
	Quantity          int32             `json:"quantity"`
	UnitPrice         int64             `json:"unit_price"` // COP, 0 decimals
	VariantAttributes map[string]string `json:"variant_attributes,omitempty"`
}

// CartSnapshot is the frozen cart a checkout session was started with. It is
// never mutated after the session begins; a changed cart is a new snapshot
// with a new digest.
type CartSnapshot struct {
	Items []CartItem `json:"items"`
}

func (s *CartSnapshot) Validate() error {
	if len(s.Items) == 0 {
		return fmt.Errorf("cart has no items")
	}
	for i, item := range s.Items {
		if item.ProductID == "" {
			return fmt.Errorf("item %d: missing product id", i)
		}
		if item.Quantity < 1 {
			return fmt.Errorf("item %d: quantity must be at least 1", i)
		}
		if item.UnitPrice < 0 {
			return fmt.Errorf("item %d: unit price must not be negative", i)
		}
	}
	return nil
}

func (s *CartSnapshot) Subtotal() int64 {
	var subtotal int64
	for _, item := range s.Items {
		subtotal += item.UnitPrice * int64(item.Quantity)
	}
	return subtotal
}

func (s *CartSnapshot) ProductIDs() []string {
	ids := make([]string, len(s.Items))
	for i, item := range s.Items {
		ids[i] = item.ProductID
	}
	return ids
}

// Digest returns a canonical SHA-256 over the snapshot contents. Item order
// and attribute order do not affect the result, so a retried submission of
// the same cart always lands on the same digest.
func (s *CartSnapshot) Digest() string {
	lines := make([]string, len(s.Items))
	for i, item := range s.Items {
		attrKeys := make([]string, 0, len(item.VariantAttributes))
		for k := range item.VariantAttributes {
			attrKeys = append(attrKeys, k)
		}
		sort.Strings(attrKeys)

		attrs := make([]string, len(attrKeys))
		for j, k := range attrKeys {
			attrs[j] = k + "=" + item.VariantAttributes[k]
		}

		lines[i] = fmt.Sprintf("%s|%d|%d|%s",
			item.ProductID, item.Quantity, item.UnitPrice, strings.Join(attrs, ","))
	}
	sort.Strings(lines)

	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:])
}

// ShippingAddress is the delivery destination captured during checkout. The
// session owns a draft copy; it is written to saved_addresses only when the
// buyer asks for it.
type ShippingAddress struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postal_code,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

func (a *ShippingAddress) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(a.Phone) == "" {
		return fmt.Errorf("phone is required")
	}
	if !phonePattern.MatchString(strings.TrimSpace(a.Phone)) {
		return fmt.Errorf("phone must be a valid phone number")
	}
	if strings.TrimSpace(a.Line1) == "" {
		return fmt.Errorf("address line is required")
	}
	if strings.TrimSpace(a.City) == "" {
		return fmt.Errorf("city is required")
	}
	if strings.TrimSpace(a.Region) == "" {
		return fmt.Errorf("region is required")
	}
	return nil
}

// Digest keys the shipping-cost cache: the cost is recalculated only when
// the fields that can change it change.
func (a *ShippingAddress) Digest() string {
	sum := sha256.Sum256([]byte(strings.Join([]string{
		a.Line1, a.City, a.Region, a.PostalCode,
	}, "|")))
	return hex.EncodeToString(sum[:])
}
