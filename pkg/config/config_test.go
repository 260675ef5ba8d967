package config

import "testing"

func TestFeeBps(t *testing.T) {
	cases := []struct {
		raw  string
		want int64
	}{
		{"50", 50},
		{"0", 0},
		{"49.9", 49},
		{"10000", 10000},
		{"10001", 0},
		{"20000", 0},
		{"", 0},
		{"banana", 0},
		{"-5", 0},
		{"NaN", 0},
		{"+Inf", 0},
	}
	for _, tc := range cases {
		if got := FeeBps(tc.raw); got != tc.want {
			t.Fatalf("FeeBps(%q) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}
