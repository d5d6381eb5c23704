package catalog

import (
	"encoding/json"
	"sort"
)

// Category is a top-level key of the catalog document.
type Category string

const (
	Laptops      Category = "laptops"
	CPUs         Category = "cpus"
	GPUs         Category = "gpus"
	Motherboards Category = "mobos"
	RAM          Category = "ram"
	Storage      Category = "storage"
	PSUs         Category = "psu"
	Cases        Category = "case"
)

// Categories lists every category in document order. Drift runs and
// rewrites walk the catalog in this order.
var Categories = []Category{Laptops, CPUs, GPUs, Motherboards, RAM, Storage, PSUs, Cases}

// IsKnown reports whether c is one of the catalog's categories.
func (c Category) IsKnown() bool {
	for _, k := range Categories {
		if k == c {
			return true
		}
	}
	return false
}

// Component is a single catalog record.
type Component struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Brand string `json:"brand"`
	Price int    `json:"price"`
	Spec  string `json:"spec"`

	// Category-specific attributes.
	Type    string `json:"type,omitempty"`   // laptops: "gaming", "ultrabook", ...
	Socket  string `json:"socket,omitempty"` // cpus, mobos
	VRAM    string `json:"vram,omitempty"`   // gpus
	Cores   int    `json:"cores,omitempty"`  // cpus
	Threads int    `json:"threads,omitempty"`

	ShopLinks map[string]string `json:"shopLinks,omitempty"`

	// Category is filled from the enclosing document key, never serialized.
	Category Category `json:"-"`

	// Extra keeps fields this package does not model so a rewrite does not drop them.
	Extra map[string]json.RawMessage `json:"-"`
}

// DisplayName returns the name, or the id when a record has no name.
func (c Component) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}

// MarshalJSON writes the modelled fields followed by Extra, keys sorted.
func (c Component) MarshalJSON() ([]byte, error) {
	type plain Component
	base, err := json.Marshal(plain(c))
	if err != nil {
		return nil, err
	}
	if len(c.Extra) == 0 {
		return base, nil
	}

	keys := make([]string, 0, len(c.Extra))
	for k := range c.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := base[:len(base)-1]
	for _, k := range keys {
		kb, _ := json.Marshal(k)
		out = append(out, ',')
		out = append(out, kb...)
		out = append(out, ':')
		out = append(out, c.Extra[k]...)
	}
	return append(out, '}'), nil
}

// clone returns a deep copy safe to mutate.
func (c Component) clone() Component {
	cp := c
	if c.ShopLinks != nil {
		cp.ShopLinks = make(map[string]string, len(c.ShopLinks))
		for k, v := range c.ShopLinks {
			cp.ShopLinks[k] = v
		}
	}
	if c.Extra != nil {
		cp.Extra = make(map[string]json.RawMessage, len(c.Extra))
		for k, v := range c.Extra {
			cp.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return cp
}
