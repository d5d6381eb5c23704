package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/tidwall/gjson"
)

var (
	ErrInvalidDocument = errors.New("invalid catalog document")
)

// Catalog maps each category to its ordered records.
type Catalog struct {
	Items map[Category][]Component

	// extra holds top-level keys that are not categories.
	extra map[string]json.RawMessage
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{Items: make(map[Category][]Component)}
}

// Parse decodes a catalog document. Missing categories are treated as empty.
func Parse(data []byte) (*Catalog, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrInvalidDocument)
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, fmt.Errorf("%w: top level must be an object", ErrInvalidDocument)
	}

	c := New()
	var perr error
	doc.ForEach(func(key, value gjson.Result) bool {
		cat := Category(key.String())
		if !cat.IsKnown() {
			if c.extra == nil {
				c.extra = make(map[string]json.RawMessage)
			}
			c.extra[key.String()] = json.RawMessage(value.Raw)
			return true
		}
		if !value.IsArray() {
			perr = fmt.Errorf("%w: %q must be an array", ErrInvalidDocument, cat)
			return false
		}
		items := make([]Component, 0, len(value.Array()))
		for i, raw := range value.Array() {
			comp, err := parseComponent(cat, raw)
			if err != nil {
				perr = fmt.Errorf("%w: %s[%d]: %v", ErrInvalidDocument, cat, i, err)
				return false
			}
			items = append(items, comp)
		}
		c.Items[cat] = items
		return true
	})
	if perr != nil {
		return nil, perr
	}
	return c, nil
}

func parseComponent(cat Category, raw gjson.Result) (Component, error) {
	if !raw.IsObject() {
		return Component{}, errors.New("record must be an object")
	}
	comp := Component{Category: cat}
	var err error
	raw.ForEach(func(key, v gjson.Result) bool {
		switch key.String() {
		case "id":
			comp.ID = v.String()
		case "name":
			comp.Name = v.String()
		case "brand":
			comp.Brand = v.String()
		case "price":
			if v.Type != gjson.Number {
				err = fmt.Errorf("price must be a number, got %s", v.Raw)
				return false
			}
			comp.Price = int(math.Round(v.Float()))
		case "spec":
			comp.Spec = v.String()
		case "type":
			comp.Type = v.String()
		case "socket":
			comp.Socket = v.String()
		case "vram":
			comp.VRAM = v.String()
		case "cores":
			comp.Cores = int(v.Int())
		case "threads":
			comp.Threads = int(v.Int())
		case "shopLinks":
			if v.IsObject() {
				comp.ShopLinks = make(map[string]string)
				v.ForEach(func(k, u gjson.Result) bool {
					comp.ShopLinks[k.String()] = u.String()
					return true
				})
			}
		default:
			if comp.Extra == nil {
				comp.Extra = make(map[string]json.RawMessage)
			}
			comp.Extra[key.String()] = json.RawMessage(v.Raw)
		}
		return true
	})
	return comp, err
}

// Encode renders the catalog as indented JSON with categories in document order.
func (c *Catalog) Encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	writeKey := func(k string, v []byte) {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		kb, _ := json.Marshal(k)
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(v)
	}

	for _, cat := range Categories {
		items, ok := c.Items[cat]
		if !ok {
			continue
		}
		if items == nil {
			items = []Component{}
		}
		b, err := json.Marshal(items)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", cat, err)
		}
		writeKey(string(cat), b)
	}
	for _, k := range sortedKeys(c.extra) {
		writeKey(k, c.extra[k])
	}
	buf.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// Get returns the records of a category in catalog order.
func (c *Catalog) Get(cat Category) []Component {
	if c == nil {
		return nil
	}
	return c.Items[cat]
}

// Count returns the total number of records.
func (c *Catalog) Count() int {
	n := 0
	for _, items := range c.Items {
		n += len(items)
	}
	return n
}

// Clone returns a deep copy.
func (c *Catalog) Clone() *Catalog {
	cp := New()
	for cat, items := range c.Items {
		out := make([]Component, len(items))
		for i, it := range items {
			out[i] = it.clone()
		}
		cp.Items[cat] = out
	}
	if c.extra != nil {
		cp.extra = make(map[string]json.RawMessage, len(c.extra))
		for k, v := range c.extra {
			cp.extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return cp
}

// Validate checks that prices are non-negative and ids are unique per category.
func (c *Catalog) Validate() error {
	var errs []error
	for _, cat := range Categories {
		seen := make(map[string]bool)
		for i, it := range c.Items[cat] {
			if it.Price < 0 {
				errs = append(errs, fmt.Errorf("%s[%d] %q: negative price %d", cat, i, it.ID, it.Price))
			}
			if it.ID == "" {
				errs = append(errs, fmt.Errorf("%s[%d]: missing id", cat, i))
				continue
			}
			if seen[it.ID] {
				errs = append(errs, fmt.Errorf("%s[%d]: duplicate id %q", cat, i, it.ID))
			}
			seen[it.ID] = true
		}
	}
	return errors.Join(errs...)
}

// Load reads, parses and validates a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Save rewrites the whole catalog file. The document is written to a
// temporary file in the same directory and renamed over the target, so
// readers see either the old or the new catalog.
func Save(path string, c *Catalog) error {
	data, err := c.Encode()
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data, 0o644)
}

// WriteFileAtomic writes data to path via a temp file and rename.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
