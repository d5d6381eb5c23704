package shoplinks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pcsensei/pcsensei/pkg/catalog"
	"github.com/pcsensei/pcsensei/pkg/whttp"
)

func TestQuery(t *testing.T) {
	tests := []struct {
		name string
		cat  catalog.Category
		want string
	}{
		{"Ryzen 5 5600", catalog.CPUs, "Ryzen 5 5600 processor"},
		{"Corsair Vengeance 16GB / 32GB", catalog.RAM, "Corsair Vengeance 16GB 32GB RAM memory"},
		{"WD SN570 1TB/2TB", catalog.Storage, "WD SN570 1TB 2TB SSD"},
		{"Thing", "unknown", "Thing"},
	}
	for _, tt := range tests {
		if got := Query(tt.name, tt.cat); got != tt.want {
			t.Errorf("Query(%q, %s) = %q, want %q", tt.name, tt.cat, got, tt.want)
		}
	}
}

func TestGenerate(t *testing.T) {
	links := Generate("RTX 4060 & Co", catalog.GPUs)
	if len(links) != len(Stores) {
		t.Fatalf("links = %d, want %d", len(links), len(Stores))
	}
	want := map[string]string{
		"amazon":      "https://www.amazon.in/s?k=RTX%204060%20%26%20Co%20graphics%20card",
		"flipkart":    "https://www.flipkart.com/search?q=RTX%204060%20%26%20Co%20graphics%20card",
		"mdcomputers": "https://mdcomputers.in/index.php?route=product/search&search=RTX%204060%20%26%20Co%20graphics%20card",
	}
	for k, v := range want {
		if links[k] != v {
			t.Errorf("links[%s] = %q, want %q", k, links[k], v)
		}
	}
}

func TestApply(t *testing.T) {
	doc := `{"psu":[{"id":"p1","name":"CV650 650W","price":5000,"buyLink":"https://old.example/x","rating":4.5}],
"case":[{"id":"c1","name":"Mesh","price":4000}]}`
	c, err := catalog.Parse([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if n := Apply(c); n != 2 {
		t.Errorf("Apply = %d, want 2", n)
	}
	psu := c.Get(catalog.PSUs)[0]
	if _, ok := psu.Extra["buyLink"]; ok {
		t.Error("buyLink should be removed")
	}
	if _, ok := psu.Extra["rating"]; !ok {
		t.Error("other extra fields should be kept")
	}
	if psu.ShopLinks["croma"] != "https://www.croma.com/search?q=CV650%20650W%20power%20supply" {
		t.Errorf("croma = %q", psu.ShopLinks["croma"])
	}

	out, err := c.Encode()
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string][]map[string]interface{}
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatal(err)
	}
	if _, ok := decoded["case"][0]["shopLinks"]; !ok {
		t.Error("encoded record is missing shopLinks")
	}
}

func TestRetailer(t *testing.T) {
	tests := []struct {
		link string
		want string
		ok   bool
	}{
		{"https://www.amazon.in/dp/B0TEST", "amazon", true},
		{"https://amazon.in/s?k=x", "amazon", true},
		{"https://WWW.FLIPKART.COM/search?q=x", "flipkart", true},
		{"https://www.reliancedigital.in/search?q=x", "reliance", true},
		{"https://mdcomputers.in/index.php?route=product/search&search=x", "mdcomputers", true},
		{"https://www.amazon.com/s?k=x", "", false},
		{"not a url", "", false},
	}
	for _, tt := range tests {
		got, ok := Retailer(tt.link)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Retailer(%q) = %q, %v; want %q, %v", tt.link, got, ok, tt.want, tt.ok)
		}
	}
	links := Generate("x", catalog.CPUs)
	for _, s := range Stores {
		if got, ok := Retailer(links[s.Key]); !ok || got != s.Key {
			t.Errorf("generated %s link resolves to %q", s.Key, got)
		}
	}
}

func TestCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<title>Search results</title>"))
	}))
	defer srv.Close()

	links := map[string]string{
		"amazon": srv.URL + "/ok",
		"croma":  srv.URL + "/missing",
	}
	results := Check(context.Background(), whttp.NewClient(time.Second, 0), links, time.Millisecond)
	if len(results) != 2 {
		t.Fatalf("results = %+v", results)
	}
	if results[0].Store != "amazon" || !results[0].OK() || results[0].Title != "Search results" {
		t.Errorf("amazon = %+v", results[0])
	}
	if results[1].Store != "croma" || results[1].OK() || results[1].StatusCode != http.StatusNotFound {
		t.Errorf("croma = %+v", results[1])
	}
}
