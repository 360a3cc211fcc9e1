package areas

import (
	"reflect"
	"testing"
)

func TestParseIDs(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty", "", nil},
		{"single", "abc", []string{"abc"}},
		{"multiple", "a,b,c", []string{"a", "b", "c"}},
		{"whitespace", " a , b ", []string{"a", "b"}},
		{"empty entries", "a,,b,", []string{"a", "b"}},
		{"only commas", ",,,", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseIDs(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseIDs(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSortAreaInfosDeepestFirst(t *testing.T) {
	infos := []AreaInfo{
		{ID: "root", Name: "USA", Level: 0},
		{ID: "crag", Name: "Mount Lemmon", Level: 2},
		{ID: "state", Name: "Arizona", Level: 1},
	}

	sortAreaInfos(infos)

	want := []string{"crag", "state", "root"}
	for i, id := range want {
		if infos[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, infos[i].ID)
		}
	}
}

func TestSortAreaInfosSiblingsAlphabetical(t *testing.T) {
	infos := []AreaInfo{
		{ID: "b", Name: "zion", Level: 1},
		{ID: "a", Name: "Arches", Level: 1},
		{ID: "c", Name: "moab", Level: 1},
	}

	sortAreaInfos(infos)

	// Case-insensitive: Arches < moab < zion.
	want := []string{"a", "c", "b"}
	for i, id := range want {
		if infos[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s (order: %v)", i, id, infos[i].ID, infos)
		}
	}
}
