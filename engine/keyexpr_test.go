package engine

import (
	"testing"
)

func TestValidateKeyExpr(t *testing.T) {
	valid := []string{
		"demo",
		"demo/test",
		"demo/sensor/temp",
		"demo/*",
		"demo/**",
		"*/temp",
		"**",
	}
	for _, k := range valid {
		if err := ValidateKeyExpr(k); err != nil {
			t.Errorf("ValidateKeyExpr(%q) = %v, want nil", k, err)
		}
	}

	invalid := []string{
		"",
		"/demo",
		"demo/",
		"demo//test",
		"demo/te*mp",
		"demo/te?mp",
		"demo/$chunk",
	}
	for _, k := range invalid {
		if err := ValidateKeyExpr(k); err == nil {
			t.Errorf("ValidateKeyExpr(%q) = nil, want error", k)
		}
	}
}

func TestIntersects(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"demo/test", "demo/test", true},
		{"demo/test", "demo/other", false},
		{"demo/*", "demo/test", true},
		{"demo/*", "demo/a/b", false},
		{"demo/**", "demo/a/b", true},
		{"demo/**", "demo", true},
		{"**", "anything/at/all", true},
		{"demo/**/temp", "demo/a/b/temp", true},
		{"demo/**/temp", "demo/temp", true},
		{"demo/**/temp", "demo/a/hum", false},
		{"*/test", "demo/test", true},
		{"a/*", "*/b", false},
		{"a/*", "*/a", true},
	}
	for _, c := range cases {
		if got := Intersects(c.a, c.b); got != c.want {
			t.Errorf("Intersects(%q, %q) = %v, want %v", c.a, c.b, got, c.want)
		}
		// Intersection is symmetric.
		if got := Intersects(c.b, c.a); got != c.want {
			t.Errorf("Intersects(%q, %q) = %v, want %v", c.b, c.a, got, c.want)
		}
	}
}

func TestSplitSelector(t *testing.T) {
	key, params := SplitSelector("demo/test?arg=1&x=2")
	if key != "demo/test" || params != "arg=1&x=2" {
		t.Errorf("SplitSelector = (%q, %q)", key, params)
	}

	key, params = SplitSelector("demo/test")
	if key != "demo/test" || params != "" {
		t.Errorf("SplitSelector without params = (%q, %q)", key, params)
	}
}
