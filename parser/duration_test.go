package parser

import "testing"

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
		ok       bool
	}{
		{name: "hours with half", input: "43½ Hours", expected: 43.5, ok: true},
		{name: "bare half hour", input: "½ Hour", expected: 0.5, ok: true},
		{name: "half hours plural", input: "1½ Hours", expected: 1.5, ok: true},
		{name: "combined hours minutes", input: "1h 30m", expected: 1.5, ok: true},
		{name: "combined rounds", input: "2h 20m", expected: 2.33, ok: true},
		{name: "short hours", input: "17h", expected: 17, ok: true},
		{name: "short minutes", input: "45m", expected: 0.75, ok: true},
		{name: "spelled minutes", input: "90 Mins", expected: 1.5, ok: true},
		{name: "spelled minute singular", input: "1 Minute", expected: 0.02, ok: true},
		{name: "spelled hours", input: "10 Hours", expected: 10, ok: true},
		{name: "spelled hour singular", input: "1 Hour", expected: 1, ok: true},
		{name: "range averages", input: "10 - 12 Hours", expected: 11, ok: true},
		{name: "range en dash", input: "10½ Hours – 12 Hours", expected: 11.25, ok: true},
		{name: "range without spaces", input: "6-8 Hours", expected: 7, ok: true},
		{name: "nbsp normalized", input: "25 Hours", expected: 25, ok: true},
		{name: "case insensitive", input: "12 HOURS", expected: 12, ok: true},
		{name: "double dash placeholder", input: "--", ok: false},
		{name: "single dash placeholder", input: "-", ok: false},
		{name: "empty", input: "", ok: false},
		{name: "whitespace only", input: "   ", ok: false},
		{name: "gibberish", input: "soon", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDuration(tt.input)
			if ok != tt.ok {
				t.Fatalf("ParseDuration(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if !tt.ok {
				return
			}
			if got != tt.expected {
				t.Fatalf("ParseDuration(%q) = %v, want %v", tt.input, got, tt.expected)
			}
			if got < 0 {
				t.Fatalf("ParseDuration(%q) = %v, negative durations are impossible", tt.input, got)
			}
		})
	}
}

func TestFormatHours(t *testing.T) {
	tests := []struct {
		input    float64
		expected string
	}{
		{input: 11, expected: "11"},
		{input: 43.5, expected: "43.5"},
		{input: 2.33, expected: "2.33"},
		{input: 0.5, expected: "0.5"},
		{input: 1.999, expected: "2"},
	}

	for _, tt := range tests {
		if got := FormatHours(tt.input); got != tt.expected {
			t.Errorf("FormatHours(%v) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
