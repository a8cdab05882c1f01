package amount

import "testing"

func TestParse(t *testing.T) {
	testCases := []struct {
		name    string
		in      string
		want    float64
		wantErr bool
	}{
		{name: "plain", in: "1003855.00", want: 1003855},
		{name: "thousands separators", in: " 1,003,855.50 ", want: 1003855.5},
		{name: "negative", in: "-45.5", want: -45.5},
		{name: "empty", in: "  ", wantErr: true},
		{name: "garbage", in: "n/a", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tc.in, err)
			}
			if Float(got) != tc.want {
				t.Fatalf("Parse(%q) = %v, want %v", tc.in, Float(got), tc.want)
			}
		})
	}
}

func TestParseOrZero(t *testing.T) {
	got, err := ParseOrZero("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.IsZero() {
		t.Fatalf("expected zero, got %s", got)
	}
}

func TestWithin(t *testing.T) {
	if !Within(100.0005, 100, 0.001) {
		t.Fatal("expected 100.0005 to be within 0.001 of 100")
	}
	if Within(100.002, 100, 0.001) {
		t.Fatal("expected 100.002 to be outside 0.001 of 100")
	}
}

func TestRound2(t *testing.T) {
	if got := Round2(1.005); got != 1.01 {
		t.Fatalf("Round2(1.005) = %v, want 1.01", got)
	}
}
