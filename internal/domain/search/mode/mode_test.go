package mode

import "testing"

func TestIsValid(t *testing.T) {
	for _, s := range []Sort{Relevance, Date, Popularity, Authority} {
		if !s.IsValid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if Sort("random").IsValid() {
		t.Error("random should be invalid")
	}
	if Sort("").IsValid() {
		t.Error("empty should be invalid")
	}
}
