package theme

import "testing"

func TestByNameFallsBack(t *testing.T) {
	if got := ByName("catppuccin-mocha"); got.Name != "catppuccin-mocha" {
		t.Fatalf("ByName(catppuccin-mocha) = %q", got.Name)
	}
	if got := ByName("nope"); got.Name != FlexokiDark.Name {
		t.Fatalf("unknown name = %q, want %q", got.Name, FlexokiDark.Name)
	}
}

func TestNamesAreValid(t *testing.T) {
	names := Names()
	if len(names) != len(All) {
		t.Fatalf("Names() has %d entries, want %d", len(names), len(All))
	}
	for _, n := range names {
		if !Valid(n) {
			t.Fatalf("%q listed but not valid", n)
		}
	}
	if Valid("tokyo-night") {
		t.Fatal("removed theme still valid")
	}
}

func TestStatusAndScoreColors(t *testing.T) {
	th := FlexokiDark
	if th.ForStatus("over_budget") != th.Red {
		t.Fatal("over_budget should be red")
	}
	if th.ForStatus("on_pace") != th.Green {
		t.Fatal("on_pace should be green")
	}
	if th.ForScore(92) != th.GreenBright || th.ForScore(10) != th.Red {
		t.Fatal("score colors out of order")
	}
}
