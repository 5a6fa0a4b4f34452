package core

import (
	"encoding/json"
	"math"
	"testing"
)

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-5", -500, true},
		{"45.50", 4550, true},
		{"0", 0, true},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"1000000000", MaxCents, true},
		{"-1000000000", -MaxCents, true},
		{"1000000000.01", 0, false},
		{"92233720368547758.07", 0, false},
		{"1e30", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseMoney(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestParsePositive(t *testing.T) {
	for _, in := range []string{"0", "-1", "0.001"} {
		if _, err := ParsePositive(in); err == nil {
			t.Fatalf("%q expected error", in)
		}
	}
	if m, err := ParsePositive("3"); err != nil || m.Cents != 300 {
		t.Fatalf("expected 300, got %d (err=%v)", m.Cents, err)
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{
		4850:  "48.50",
		-500:  "-5.00",
		0:     "0.00",
		1:     "0.01",
		12345: "123.45",
	}
	for cents, want := range cases {
		if got := Cents(cents).String(); got != want {
			t.Fatalf("Cents(%d).String() = %q, want %q", cents, got, want)
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(Cents(4550))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"45.50"` {
		t.Fatalf("marshal = %s", b)
	}

	var fromString, fromNumber Money
	if err := json.Unmarshal([]byte(`"3.00"`), &fromString); err != nil || fromString.Cents != 300 {
		t.Fatalf("unmarshal string: %v %d", err, fromString.Cents)
	}
	if err := json.Unmarshal([]byte(`2.5`), &fromNumber); err != nil || fromNumber.Cents != 250 {
		t.Fatalf("unmarshal number: %v %d", err, fromNumber.Cents)
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := Cents(1).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := Cents(0).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
	if err := Cents(-1).Validate(); err == nil {
		t.Fatalf("expected error for negative")
	}
}

func TestAddChecked(t *testing.T) {
	if m, ok := Cents(MaxCents).AddChecked(Cents(1)); !ok || m.Cents != MaxCents+1 {
		t.Fatalf("expected %d, got %d (ok=%v)", MaxCents+1, m.Cents, ok)
	}
	if _, ok := Cents(math.MaxInt64).AddChecked(Cents(1)); ok {
		t.Fatal("expected overflow")
	}
	if _, ok := Cents(math.MinInt64).AddChecked(Cents(-1)); ok {
		t.Fatal("expected underflow")
	}
}
