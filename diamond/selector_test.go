package diamond

import "testing"

func TestComputeSelectorKnownValue(t *testing.T) {
	// Keccak-256("transfer(address,uint256)") starts with a9059cbb.
	if got := ComputeSelector("transfer(address,uint256)").String(); got != "a9059cbb" {
		t.Fatalf("selector = %s, want a9059cbb", got)
	}
}

func TestComputeSelectorDistinguishesSignatures(t *testing.T) {
	if ComputeSelector("createGuild(string,string,string,string)") == ComputeSelector("terminateGuild(string,uint256)") {
		t.Fatal("distinct signatures must not share a selector")
	}
}

func TestParseSelectorRoundTrip(t *testing.T) {
	selector := ComputeSelector("owner()")
	parsed, err := ParseSelector(selector.String())
	if err != nil {
		t.Fatalf("ParseSelector: %v", err)
	}
	if parsed != selector {
		t.Fatalf("round trip mismatch: %s != %s", parsed, selector)
	}
}

func TestParseSelectorRejectsMalformed(t *testing.T) {
	for _, input := range []string{"", "a9", "a9059cbb00", "zzzzzzzz"} {
		if _, err := ParseSelector(input); err == nil {
			t.Errorf("ParseSelector(%q) succeeded, want error", input)
		}
	}
}
