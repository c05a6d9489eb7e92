package version

import (
	"slices"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Version
	}{
		{
			name:  "simple version",
			input: "1.2.3",
			want:  Version{Major: 1, Minor: 2, Patch: 3},
		},
		{
			name:  "version with build",
			input: "1.2.3.456",
			want:  Version{Major: 1, Minor: 2, Patch: 3, Build: 456, HasBuild: true},
		},
		{
			name:  "missing patch",
			input: "1.0",
			want:  Version{Major: 1},
		},
		{
			name:  "v prefix",
			input: "v0.8.2",
			want:  Version{Major: 0, Minor: 8, Patch: 2},
		},
		{
			name:  "prerelease suffix ignored",
			input: "2.1.0-beta",
			want:  Version{Major: 2, Minor: 1, Patch: 0},
		},
		{
			name:  "empty string",
			input: "",
			want:  Version{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Parse(tt.input); got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestVersionString(t *testing.T) {
	tests := []struct {
		name    string
		version Version
		want    string
	}{
		{"three segments", Version{Major: 0, Minor: 8, Patch: 2}, "0.8.2"},
		{"with build", Version{Major: 1, Minor: 2, Patch: 3, Build: 456, HasBuild: true}, "1.2.3.456"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.version.String(); got != tt.want {
				t.Errorf("String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want int
	}{
		{name: "equal versions", a: "1.0.0", b: "1.0.0", want: 0},
		{name: "missing trailing segment", a: "1.0", b: "1.0.0", want: 0},
		{name: "build segment breaks tie", a: "1.0.0", b: "1.0.0.1", want: -1},
		{name: "major greater", a: "2.0.0", b: "1.9.9", want: 1},
		{name: "minor less", a: "1.8.0", b: "1.9.0", want: -1},
		{name: "patch numeric not lexical", a: "1.0.439", b: "1.0.49", want: 1},
		{name: "double digit minor", a: "1.10.0", b: "1.9.0", want: 1},
		{name: "v prefix ignored", a: "v1.2.3", b: "1.2.3", want: 0},
		{name: "non-numeric segment is zero", a: "1.x.0", b: "1.0.0", want: 0},
		{name: "leading digits used", a: "1.2-beta", b: "1.2", want: 0},
		{name: "empty equals zero", a: "", b: "0.0.0", want: 0},
		{name: "empty less than release", a: "", b: "0.0.1", want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compare(tt.a, tt.b); got != tt.want {
				t.Errorf("Compare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestCompareAntisymmetricAndReflexive(t *testing.T) {
	versions := []string{"0.0.1", "1.0", "1.0.0", "1.0.0.1", "1.0.49", "1.0.439", "1.1.0", "2.0.0", "10.0.0"}

	for _, a := range versions {
		if got := Compare(a, a); got != 0 {
			t.Errorf("Compare(%q, %q) = %d, want 0", a, a, got)
		}
		for _, b := range versions {
			if Compare(a, b) != -Compare(b, a) {
				t.Errorf("Compare(%q, %q) = %d but Compare(%q, %q) = %d", a, b, Compare(a, b), b, a, Compare(b, a))
			}
		}
	}
}

func TestIsUpdateAvailable(t *testing.T) {
	tests := []struct {
		current string
		latest  string
		want    bool
	}{
		{"1.0.0", "1.0.1", true},
		{"1.0.1", "1.0.0", false},
		{"1.0.0", "1.0.0", false},
		{"1.0.49", "1.1.0", true},
		{"1.0.439", "1.0.49", false},
		{"1.0.0", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.current+"->"+tt.latest, func(t *testing.T) {
			if got := IsUpdateAvailable(tt.current, tt.latest); got != tt.want {
				t.Errorf("IsUpdateAvailable(%q, %q) = %v, want %v", tt.current, tt.latest, got, tt.want)
			}
		})
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"1.2.3", true},
		{"1.2.3.4", true},
		{"0.0.0", true},
		{"1.2", false},
		{"1.2.3.4.5", false},
		{"v1.2.3", false},
		{"1.2.3-beta", false},
		{"a.b.c", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsValid(tt.input); got != tt.want {
				t.Errorf("IsValid(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestSortAndLatest(t *testing.T) {
	versions := []string{"1.10.0", "1.2.0", "1.0", "2.0.0", "1.0.0.1"}

	Sort(versions)

	want := []string{"1.0", "1.0.0.1", "1.2.0", "1.10.0", "2.0.0"}
	if !slices.Equal(versions, want) {
		t.Errorf("Sort() = %v, want %v", versions, want)
	}

	if got := Latest([]string{"1.0.49", "1.0.439", "1.0.5"}); got != "1.0.439" {
		t.Errorf("Latest() = %q, want 1.0.439", got)
	}

	if got := Latest(nil); got != "" {
		t.Errorf("Latest(nil) = %q, want empty", got)
	}
}

func TestMaxPrefersFirstOnTie(t *testing.T) {
	if got := Max("1.0", "1.0.0"); got != "1.0" {
		t.Errorf("Max() = %q, want 1.0", got)
	}
}
