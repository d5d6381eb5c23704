package recommend

import (
	"math/rand/v2"
	"testing"

	"github.com/pcsensei/pcsensei/pkg/catalog"
)

func laptop(id string, price int, typ, spec string) catalog.Component {
	return catalog.Component{ID: id, Name: id, Price: price, Type: typ, Spec: spec, Category: catalog.Laptops}
}

func TestScoreLaptop(t *testing.T) {
	tests := []struct {
		name   string
		laptop catalog.Component
		budget int
		usage  Usage
		want   int
	}{
		{"gaming at 85 percent", laptop("a", 85000, "gaming", "i7, RTX 4060, 16GB"), 100000, Gaming, 75},
		{"gaming radeon", laptop("b", 100000, "thin", "Ryzen 7, RX 7600S"), 100000, Gaming, 45},
		{"70 percent band", laptop("c", 70000, "gaming", ""), 100000, Gaming, 45},
		{"below 70 percent", laptop("d", 69999, "", "RTX 3050"), 100000, Gaming, 20},
		{"slightly over budget still earns partial points", laptop("e", 104000, "gaming", ""), 100000, Gaming, 45},
		{"content oled 32gb", laptop("f", 90000, "", "OLED, 32GB LPDDR5"), 100000, Content, 70},
		{"coding 16gb ssd", laptop("g", 60000, "", "16GB, 512GB SSD"), 100000, Coding, 40},
		{"coding 8gb", laptop("h", 60000, "", "8GB, 512GB SSD"), 100000, Coding, 15},
		{"office has no usage bonus", laptop("i", 90000, "gaming", "RTX, OLED, 16GB SSD"), 100000, Office, 25},
		{"case sensitive usage", laptop("j", 90000, "gaming", "RTX"), 100000, "Gaming", 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScoreLaptop(tt.laptop, tt.budget, tt.usage); got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestRankLaptops_TopThreeStable(t *testing.T) {
	laptops := []catalog.Component{
		laptop("cheap", 30000, "", "8GB"),            // 0
		laptop("tie1", 90000, "gaming", "RTX 4050"),  // 75
		laptop("over", 106000, "gaming", "RTX 4090"), // excluded
		laptop("tie2", 95000, "gaming", "RTX 4060"),  // 75
		laptop("mid", 75000, "gaming", ""),           // 45
		laptop("tie3", 100000, "gaming", "RX 7600S"), // 75
		laptop("edge", 105000, "gaming", "RTX 4070"), // 65, exactly 1.05x is allowed
	}

	got := RankLaptops(laptops, 100000, Gaming)
	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got))
	}
	want := []string{"tie1", "tie2", "tie3"}
	for i, w := range want {
		if got[i].Laptop.ID != w || got[i].Score != 75 {
			t.Fatalf("position %d: expected %s/75, got %s/%d", i, w, got[i].Laptop.ID, got[i].Score)
		}
	}

	all := RankLaptops(laptops, 100000, Office)
	for _, s := range all {
		if s.Laptop.ID == "over" {
			t.Fatal("laptop above 105% of budget must be excluded")
		}
	}
	if all[0].Laptop.ID != "tie1" || all[0].Score != 25 {
		t.Fatalf("expected tie1 first for office, got %s/%d", all[0].Laptop.ID, all[0].Score)
	}
}

func TestRankLaptops_NeverExceedsLimit(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 5))
	for run := 0; run < 300; run++ {
		budget := 10000 + r.IntN(200000)
		var laptops []catalog.Component
		for i := 0; i < 20; i++ {
			laptops = append(laptops, laptop("x", 5000+r.IntN(300000), "gaming", "RTX"))
		}
		for _, usage := range Usages {
			ranked := RankLaptops(laptops, budget, usage)
			if len(ranked) > MaxLaptopResults {
				t.Fatalf("expected at most %d results, got %d", MaxLaptopResults, len(ranked))
			}
			for i, s := range ranked {
				if float64(s.Laptop.Price) > float64(budget)*1.05 {
					t.Fatalf("run %d: laptop priced %d exceeds limit for budget %d", run, s.Laptop.Price, budget)
				}
				if i > 0 && ranked[i-1].Score < s.Score {
					t.Fatalf("run %d: results not sorted by score", run)
				}
			}
		}
	}
}

func TestRankLaptops_Empty(t *testing.T) {
	if got := RankLaptops(nil, 50000, Gaming); len(got) != 0 {
		t.Fatalf("expected no results, got %d", len(got))
	}
}
