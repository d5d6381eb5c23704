// Package shoplinks builds retailer search links for catalog records.
package shoplinks

import (
	"net/url"
	"strings"

	"github.com/pcsensei/pcsensei/pkg/catalog"
	"github.com/weppos/publicsuffix-go/publicsuffix"
)

type Store struct {
	Key    string
	Name   string
	Domain string
	prefix string
}

// Stores lists the supported retailers in display order.
var Stores = []Store{
	{"amazon", "Amazon", "amazon.in", "https://www.amazon.in/s?k="},
	{"flipkart", "Flipkart", "flipkart.com", "https://www.flipkart.com/search?q="},
	{"reliance", "Reliance Digital", "reliancedigital.in", "https://www.reliancedigital.in/search?q="},
	{"croma", "Croma", "croma.com", "https://www.croma.com/search?q="},
	{"vijay", "Vijay Sales", "vijayssales.com", "https://www.vijayssales.com/search?q="},
	{"mdcomputers", "MD Computers", "mdcomputers.in", "https://mdcomputers.in/index.php?route=product/search&search="},
}

// SearchTerms is the word appended to a name per category.
var SearchTerms = map[catalog.Category]string{
	catalog.Laptops:      "laptop",
	catalog.CPUs:         "processor",
	catalog.GPUs:         "graphics card",
	catalog.Motherboards: "motherboard",
	catalog.RAM:          "RAM memory",
	catalog.Storage:      "SSD",
	catalog.PSUs:         "power supply",
	catalog.Cases:        "PC case",
}

// Query builds the search text for a product name.
func Query(name string, cat catalog.Category) string {
	q := strings.ReplaceAll(name, " / ", " ")
	q = strings.ReplaceAll(q, "/", " ")
	if term := SearchTerms[cat]; term != "" {
		q += " " + term
	}
	return q
}

// Generate returns one search link per store, keyed by store key.
func Generate(name string, cat catalog.Category) map[string]string {
	escaped := escape(Query(name, cat))
	links := make(map[string]string, len(Stores))
	for _, s := range Stores {
		links[s.Key] = s.prefix + escaped
	}
	return links
}

// Apply sets shop links on every record of c and drops any legacy
// single buyLink field. It returns the number of records updated.
func Apply(c *catalog.Catalog) int {
	n := 0
	for _, cat := range catalog.Categories {
		items := c.Items[cat]
		for i := range items {
			items[i].ShopLinks = Generate(items[i].DisplayName(), cat)
			delete(items[i].Extra, "buyLink")
			n++
		}
	}
	return n
}

// Retailer maps a link back to its store key by registrable domain, so
// "https://www.amazon.in/dp/X" and "https://amazon.in/s?k=y" both resolve
// to "amazon".
func Retailer(link string) (string, bool) {
	u, err := url.Parse(link)
	if err != nil || u.Hostname() == "" {
		return "", false
	}
	domain, err := publicsuffix.Domain(strings.ToLower(u.Hostname()))
	if err != nil {
		return "", false
	}
	for _, s := range Stores {
		if s.Domain == domain {
			return s.Key, true
		}
	}
	return "", false
}

// escape matches JavaScript's encodeURIComponent for the characters that
// matter in a query value: spaces become %20 rather than '+'.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
