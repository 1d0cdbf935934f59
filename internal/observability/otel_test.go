package observability

import "testing"

func TestParseHeaders(t *testing.T) {
	got := ParseHeaders(" api-key = secret ,broken, =x, team=ledger")
	if len(got) != 2 || got["api-key"] != "secret" || got["team"] != "ledger" {
		t.Fatalf("unexpected headers: %v", got)
	}
	if ParseHeaders("   ") != nil {
		t.Fatalf("blank input should yield nil")
	}
}

func TestClampRatio(t *testing.T) {
	cases := map[float64]float64{0: 0.1, -1: 0.1, 0.5: 0.5, 2: 1}
	for in, want := range cases {
		if got := clampRatio(in); got != want {
			t.Fatalf("clampRatio(%v): want=%v got=%v", in, want, got)
		}
	}
}
