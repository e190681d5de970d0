package core

import (
	"encoding/json"
	"testing"
)

func TestScopeSet(t *testing.T) {
	set := NewScopeSet("read_products, write_products", "read_products", " ")
	if set.Len() != 2 {
		t.Fatalf("expected two unique scopes, got %v", set.Values())
	}
	if set.String() != "read_products,write_products" {
		t.Fatalf("unexpected string form %q", set.String())
	}
	if !set.Has("write_products") || set.Has("read_orders") {
		t.Fatalf("unexpected membership")
	}
	if !set.Equals(ParseScopeSet("write_products,read_products")) {
		t.Fatalf("expected order insensitive equality")
	}
	if set.Equals(ParseScopeSet("read_products")) {
		t.Fatalf("expected subsets to differ")
	}

	values := set.Values()
	values[0] = "changed"
	if set.Values()[0] != "read_products" {
		t.Fatalf("expected Values to return a copy")
	}

	encoded, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded ScopeSet
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !decoded.Equals(set) {
		t.Fatalf("expected decoded set to match")
	}
}

func TestVersionCompatible(t *testing.T) {
	cases := []struct {
		reference APIVersion
		current   APIVersion
		want      bool
	}{
		{APIVersionJuly20, APIVersionUnstable, true},
		{APIVersionJuly20, APIVersionUnversioned, true},
		{APIVersionJuly20, APIVersionJuly20, true},
		{APIVersionJuly20, APIVersionOctober21, true},
		{APIVersionJuly21, APIVersionApril21, false},
		{APIVersionJuly20, "garbage", false},
	}
	for _, tc := range cases {
		if got := VersionCompatible(tc.reference, tc.current); got != tc.want {
			t.Fatalf("VersionCompatible(%s, %s) = %v, want %v", tc.reference, tc.current, got, tc.want)
		}
	}
	if !APIVersion("2023-04").Valid() || APIVersion("2023-4").Valid() {
		t.Fatalf("unexpected version validity")
	}
}
