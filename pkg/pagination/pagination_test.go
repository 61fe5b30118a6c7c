package pagination

import (
	"encoding/json"
	"testing"
)

func TestNormalizePageSize(t *testing.T) {
	cases := map[int]int{0: 100, -5: 100, 25: 25, 100: 100, 500: 100}
	for in, want := range cases {
		if got := NormalizePageSize(in); got != want {
			t.Fatalf("NormalizePageSize(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestQuery(t *testing.T) {
	if got := Query(1, 100).Encode(); got != "page_size=100" {
		t.Fatalf("unexpected first page query %q", got)
	}
	if got := Query(3, 20).Encode(); got != "page=3&page_size=20" {
		t.Fatalf("unexpected page query %q", got)
	}
}

func TestPageDecodesEnvelope(t *testing.T) {
	raw := `{"count":2,"next":"http://erp/mesas/?page=2","previous":null,"results":[{"id":1},{"id":2}]}`
	var page Page[struct {
		ID int `json:"id"`
	}]
	if err := json.Unmarshal([]byte(raw), &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if page.Count != 2 || len(page.Results) != 2 || page.Results[1].ID != 2 {
		t.Fatalf("unexpected page %+v", page)
	}
	if !page.HasNext() {
		t.Fatal("expected next page")
	}
	if page.Previous != nil {
		t.Fatal("expected nil previous")
	}
}
