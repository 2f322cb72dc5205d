package validation

import "testing"

func TestRequired(t *testing.T) {
	v := Violations{}
	Required("name", "Olive tree", v)
	Required("city", "   ", v)
	Required("region", "", v)
	if v.Empty() {
		t.Fatal("expected violations")
	}
	if len(v) != 2 || v["city"] != "required" || v["region"] != "required" {
		t.Fatalf("violations = %v", v)
	}
}

func TestParseQuantityLenient(t *testing.T) {
	cases := map[string]int{
		"3":   3,
		" 7 ": 7,
		"":    0,
		"abc": 0,
		"-2":  0,
		"2.5": 0,
		"0":   0,
	}
	for in, want := range cases {
		if got := ParseQuantity(in); got != want {
			t.Fatalf("ParseQuantity(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestParsePrice(t *testing.T) {
	p, err := ParsePrice(" 12.50 ")
	if err != nil || p.StringFixed(2) != "12.50" {
		t.Fatalf("ParsePrice = %v, %v", p, err)
	}
	p, err = ParsePrice("")
	if err != nil || !p.IsZero() {
		t.Fatalf("empty price = %v, %v", p, err)
	}
	if _, err := ParsePrice("abc"); err == nil {
		t.Fatal("malformed price accepted")
	}
}
