package clauses

import (
	"reflect"
	"testing"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{"Clause-6.1.3", "6.1.3"},
		{"Clause 9.2", "9.2"},
		{"A.5.1 Policies", "5.1"},
		{"Annex A", "Annex A"},
		{"Clause-10", "Clause-10"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			if got := Extract(tt.ref); got != tt.want {
				t.Errorf("Extract(%q) = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"6.1", "6.1.3", -1},
		{"6.1.3", "6.2", -1},
		{"6.2", "10", -1},
		{"9.1", "10.1", -1},
		{"10", "abc", -1},
		{"abc", "6.1", 1},
		{"4.1", "4.1", 0},
		{"abc", "abd", -1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			if got := Compare(tt.a, tt.b); got != tt.want {
				t.Errorf("Compare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
			if got := Compare(tt.b, tt.a); got != -tt.want {
				t.Errorf("Compare(%q, %q) = %d, want %d", tt.b, tt.a, got, -tt.want)
			}
		})
	}
}

func TestSort(t *testing.T) {
	refs := []string{"abc", "10", "6.2", "6.1.3", "6.1"}
	Sort(refs)
	want := []string{"6.1", "6.1.3", "6.2", "10", "abc"}
	if !reflect.DeepEqual(refs, want) {
		t.Errorf("Sort = %v, want %v", refs, want)
	}
}

func TestUnique(t *testing.T) {
	got := Unique([]string{"Clause-9.2", "Clause 4.1", "Clause-4.1", "", "Clause-10.1", "Clause-6.1.3"})
	want := []string{"4.1", "6.1.3", "9.2", "10.1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Unique = %v, want %v", got, want)
	}
}

func TestMerge(t *testing.T) {
	got := Merge([]string{"9.1", "4.2"}, []string{"4.2", "5.1"})
	want := []string{"4.2", "5.1", "9.1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Merge = %v, want %v", got, want)
	}
}

func TestSectionNumber(t *testing.T) {
	tests := []struct {
		section string
		want    int
		ok      bool
	}{
		{"4. Context of the organization", 4, true},
		{"10 Improvement", 10, true},
		{"  7. Support", 7, true},
		{"Annex A", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.section, func(t *testing.T) {
			n, ok := SectionNumber(tt.section)
			if n != tt.want || ok != tt.ok {
				t.Errorf("SectionNumber(%q) = %d, %v; want %d, %v", tt.section, n, ok, tt.want, tt.ok)
			}
		})
	}
}
