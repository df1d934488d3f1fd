package game

import (
	"reflect"
	"testing"
)

func TestPriceChange(t *testing.T) {
	prev := int64(10_000)
	change, rate := PriceChange(12_500, &prev)
	if change != 2_500 || rate != 0.25 {
		t.Fatalf("change=%d rate=%v", change, rate)
	}
	change, rate = PriceChange(12_500, nil)
	if change != 0 || rate != 0 {
		t.Fatalf("first day should have no change, got %d %v", change, rate)
	}
}

func TestDecodeStockIDs(t *testing.T) {
	tests := []struct {
		raw  string
		want []int64
	}{
		{raw: `[1, 2, 3]`, want: []int64{1, 2, 3}},
		{raw: `["4", 5]`, want: []int64{4, 5}},
		{raw: `[0, -1, 1.5, null, "x", 6]`, want: []int64{6}},
		{raw: ``, want: []int64{}},
	}
	for _, tc := range tests {
		got, err := DecodeStockIDs([]byte(tc.raw))
		if err != nil {
			t.Fatalf("raw=%s unexpected error: %v", tc.raw, err)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("raw=%s got=%v want=%v", tc.raw, got, tc.want)
		}
	}
	if _, err := DecodeStockIDs([]byte(`{"a":1}`)); err == nil {
		t.Fatalf("expected error for non-array")
	}
}

func TestRelatedFiltersCoverBothIDForms(t *testing.T) {
	filters := relatedFilters(5)
	if len(filters) != 2 {
		t.Fatalf("got %d filters", len(filters))
	}
	for _, f := range filters {
		got, err := DecodeStockIDs([]byte(f.(string)))
		if err != nil {
			t.Fatalf("filter %v: %v", f, err)
		}
		if !reflect.DeepEqual(got, []int64{5}) {
			t.Fatalf("filter %v decodes to %v", f, got)
		}
	}
	if filters[0] != "[5]" || filters[1] != `["5"]` {
		t.Fatalf("unexpected filters %v", filters)
	}
}
