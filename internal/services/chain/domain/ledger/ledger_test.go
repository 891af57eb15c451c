package ledger

import "testing"

func TestParseBalance(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "zero", input: "0"},
		{name: "small", input: "100"},
		{name: "max uint64 and beyond", input: "18446744073709551616"},
		{name: "empty", input: "", wantErr: true},
		{name: "negative", input: "-1", wantErr: true},
		{name: "not a number", input: "ten", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseBalance(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParseBalance(%q) expected error", tc.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseBalance(%q): %v", tc.input, err)
			}
			if FormatBalance(got) != tc.input {
				t.Fatalf("round trip = %q, want %q", FormatBalance(got), tc.input)
			}
		})
	}
}

func TestFormatBalance(t *testing.T) {
	if got := FormatBalance(NewBalance(42)); got != "42" {
		t.Fatalf("FormatBalance = %q, want %q", got, "42")
	}
	if got := FormatBalance(Balance{}); got != "0" {
		t.Fatalf("zero value formats as %q, want %q", got, "0")
	}
}
