package version

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Version
	}{
		{"1.2.3", Version{Major: 1, Minor: 2, Patch: 3, Raw: "1.2.3"}},
		{"v2.0.0", Version{Major: 2, Minor: 0, Patch: 0, Raw: "v2.0.0"}},
		{":1.4", Version{Major: 1, Minor: 4, Patch: 0, Raw: ":1.4"}},
		{"3", Version{Major: 3, Minor: 0, Patch: 0, Raw: "3"}},
		{"1.2.3-beta.1", Version{Major: 1, Minor: 2, Patch: 3, Prerelease: "beta.1", Raw: "1.2.3-beta.1"}},
		{"1.2.3+build5", Version{Major: 1, Minor: 2, Patch: 3, Build: "build5", Raw: "1.2.3+build5"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	for _, in := range []string{"", "abc", "1.2.3.4", "v"} {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q) expected error, got nil", in)
		}
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.0.0", "1.0.1", -1},
		{"2.0.0", "1.9.9", 1},
		{"1.0.0-beta", "1.0.0", -1}, // no-prerelease beats prerelease on same triple
		{"1.0.0-alpha", "1.0.0-beta", -1},
		{"1.0.0+b1", "1.0.0+b2", 0}, // build metadata ignored
	}
	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			a, _ := Parse(tt.a)
			b, _ := Parse(tt.b)
			if got := Compare(a, b); sign(got) != sign(tt.want) {
				t.Errorf("Compare(%q, %q) = %d, want sign %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

func TestParseConstraintKinds(t *testing.T) {
	tests := []struct {
		in   string
		kind ConstraintKind
	}{
		{"latest", Latest},
		{"*", Latest},
		{"stable", Stable},
		{"stable-only", Stable},
		{"any", Any},
		{"all-versions", Any},
		{"^1.2.0", Caret},
		{"~1.2.0", Tilde},
		{"1.2.3", Exact},
		{">=1.0.0 <2.0.0", Range},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c, err := ParseConstraint(tt.in)
			if err != nil {
				t.Fatalf("ParseConstraint(%q) error: %v", tt.in, err)
			}
			if c.Kind != tt.kind {
				t.Errorf("ParseConstraint(%q).Kind = %v, want %v", tt.in, c.Kind, tt.kind)
			}
		})
	}
}

func TestSatisfiesCaretAndTilde(t *testing.T) {
	caret, _ := ParseConstraint("^1.2.0")
	for _, tt := range []struct {
		v    string
		want bool
	}{
		{"1.2.0", true},
		{"1.9.9", true},
		{"2.0.0", false},
		{"1.1.9", false},
	} {
		v, _ := Parse(tt.v)
		if got := Satisfies(v, caret); got != tt.want {
			t.Errorf("Satisfies(%q, ^1.2.0) = %v, want %v", tt.v, got, tt.want)
		}
	}

	tilde, _ := ParseConstraint("~1.2.0")
	for _, tt := range []struct {
		v    string
		want bool
	}{
		{"1.2.0", true},
		{"1.2.9", true},
		{"1.3.0", false},
	} {
		v, _ := Parse(tt.v)
		if got := Satisfies(v, tilde); got != tt.want {
			t.Errorf("Satisfies(%q, ~1.2.0) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestSatisfiesRange(t *testing.T) {
	c, err := ParseConstraint(">=1.0.0 <2.0.0")
	if err != nil {
		t.Fatalf("ParseConstraint error: %v", err)
	}
	for _, tt := range []struct {
		v    string
		want bool
	}{
		{"1.0.0", true},
		{"1.5.0", true},
		{"2.0.0", false},
		{"0.9.9", false},
	} {
		v, _ := Parse(tt.v)
		if got := Satisfies(v, c); got != tt.want {
			t.Errorf("Satisfies(%q, range) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestSatisfiesStable(t *testing.T) {
	c, _ := ParseConstraint("stable")
	stable, _ := Parse("1.0.0")
	beta, _ := Parse("1.0.0-beta")
	if !Satisfies(stable, c) {
		t.Error("expected 1.0.0 to satisfy stable")
	}
	if Satisfies(beta, c) {
		t.Error("expected 1.0.0-beta to not satisfy stable")
	}
}
