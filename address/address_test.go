package address

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"123 Elm Street, Calgary, AB", "123 ELM ST"},
		{"123 ELM ST", "123 ELM ST"},
		{"  456   lake bonavista   drive  southeast ", "456 LAKE BONAVISTA DR SE"},
		{"12 Bonaventure Gardens SW", "12 BONAVENTURE GD SW"},
		{"12 Bonaventure Garden SW", "12 BONAVENTURE GD SW"},
		{"7 Parkside Way NW, Calgary", "7 PARKSIDE WY NW"},
		{"99 Mews Park Court", "99 ME PA CO"},
		{"", ""},
		{", Calgary", ""},
	}

	for _, tt := range tests {
		if got := Normalize(tt.raw); got != tt.want {
			t.Errorf("Normalize(%q) = %q; want %q", tt.raw, got, tt.want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"123 Elm Street, Calgary, AB",
		"101, 1234 Lake Bonavista Drive SE|Calgary, Alberta T2J0L1",
		"55 Canyon Meadows  Terrace Southwest",
		"8 Point Mckay Gardens NW",
		"street avenue drive crescent boulevard road place",
		"#5 12 Green Gate Rise",
	}

	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNormalizeEquivalence(t *testing.T) {
	if Normalize("123 Elm Street, Calgary, AB") != Normalize("123 ELM ST") {
		t.Error("expected street-type synonyms to normalize to the same key")
	}
}

func TestStripUnit(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"101, 1234 Lake Bonavista Drive SE", "1234 LAKE BONAVISTA DRIVE SE"},
		{"#5 12 Elm St", "12 ELM ST"},
		{"5-12 Elm St", "5-12 ELM ST"},
		{"5 - 12 Elm St", "12 ELM ST"},
		{"1234 Lake Bonavista Drive SE", "1234 LAKE BONAVISTA DRIVE SE"},
	}

	for _, tt := range tests {
		if got := StripUnit(tt.raw); got != tt.want {
			t.Errorf("StripUnit(%q) = %q; want %q", tt.raw, got, tt.want)
		}
	}
}

func TestFirstSegment(t *testing.T) {
	if got := FirstSegment("12 Elm St SE|Calgary, Alberta T2J1A1"); got != "12 Elm St SE" {
		t.Errorf("FirstSegment: got %q", got)
	}
	if got := FirstSegment(" 12 Elm St "); got != "12 Elm St" {
		t.Errorf("FirstSegment without separator: got %q", got)
	}
}
