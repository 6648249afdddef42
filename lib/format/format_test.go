package format

import "testing"

func TestIsSequenceFormatToken(t *testing.T) {
	tests := []struct {
		tok   string
		valid bool
	}{
		{"", false},
		{"1", true},
		{"a", false},
		{"1..30", true},
		{"a..30", false},
		{"1..a", false},
		{"30..1", false},
		{"a..b", false},
		{"1..30..60", false},
	}

	for i := range tests {
		err := isSequenceFormatToken(tests[i].tok)
		if tests[i].valid && err != nil {
			t.Errorf("%d) expected token '%s' to be valid, got error '%s'",
				i, tests[i].tok, err.Error())
		} else if !tests[i].valid && err == nil {
			t.Errorf("%d) expected token '%s' to be invalid, got no error",
				i, tests[i].tok)
		}
	}
}

func TestParseSequenceFormatToken(t *testing.T) {
	tests := []struct {
		tok string
		seq []int
	}{
		{"0", []int{0}},
		{"1000", []int{1000}},
		{"1..4", []int{1, 2, 3, 4}},
		{"10..20", []int{10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}},
	}

	for i := range tests {
		seq := parseSequenceFormatToken(tests[i].tok)
		if !intsEq(tests[i].seq, seq) {
			t.Errorf("%d) expected token '%s' to expand to %d, got %d",
				i, tests[i].tok, tests[i].seq, seq)
		}
	}
}

func TestTokeniseSequenceFormat(t *testing.T) {
	tests := []struct {
		format string
		tok    []string
		valid  bool
	}{
		{"", nil, false},
		{"0", []string{"0"}, true},
		{"101", []string{"101"}, true},
		{"10..20", []string{"10..20"}, true},
		{"0+1", []string{"0", "+", "1"}, true},
		{"0 + 1", []string{"0", "+", "1"}, true},
		{"0-1", []string{"0", "-", "1"}, true},
		{"  0+       1    ", []string{"0", "+", "1"}, true},
		{"-0..100 + 0..200-9", []string{"-", "0..100", "+", "0..200", "-", "9"}, true},
	}

	for i := range tests {
		tok, err := tokeniseSequenceFormat(tests[i].format)
		if tests[i].valid && err != nil {
			t.Errorf("%d) expected '%s' to be valid, got error '%s'",
				i, tests[i].format, err.Error())
		} else if !tests[i].valid && err == nil {
			t.Errorf("%d) expected '%s' to be invalid, got no error",
				i, tests[i].format)
		}
		if tests[i].valid && !stringsEq(tok, tests[i].tok) {
			t.Errorf("%d) expected '%s' to tokenize to %s, got %s",
				i, tests[i].format, tests[i].tok, tok)
		}
	}
}

func TestExpandSequenceFormat(t *testing.T) {
	tests := []struct {
		format string
		n      []int
		valid  bool
	}{
		{"", nil, false},
		{"a", nil, false},
		{"10..a", nil, false},
		{"1", []int{1}, true},
		{"1..5", []int{1, 2, 3, 4, 5}, true},
		{"1 + 2", []int{1, 2}, true},
		{"1 + 3..5", []int{1, 3, 4, 5}, true},
		{"3..5 + 1", []int{1, 3, 4, 5}, true},
		{"3..5 + 1 + 7..9", []int{1, 3, 4, 5, 7, 8, 9}, true},
		{"-3 + 3..5 - 4", []int{5}, true},
		{"1..10 - 2..9", []int{1, 10}, true},
		{"3..5 - 1", nil, false},
		{"3..5 - 4 - 4", nil, false},
	}

	for i := range tests {
		n, err := ExpandSequenceFormat(tests[i].format)
		if tests[i].valid && err != nil {
			t.Errorf("%d) expected '%s' could be expanded, got error '%s'",
				i, tests[i].format, err.Error())
		} else if !tests[i].valid && err == nil {
			t.Errorf("%d) expected '%s' to fail, got no error", i, tests[i].format)
		} else if tests[i].valid && !intsEq(n, tests[i].n) {
			t.Errorf("%d) expected '%s' to expand to %d, got %d",
				i, tests[i].format, tests[i].n, n)
		}
	}
}

func intsEq(x, y []int) bool {
	if len(x) != len(y) { return false }
	for i := range x {
		if x[i] != y[i] { return false }
	}
	return true
}

func stringsEq(x, y []string) bool {
	if len(x) != len(y) { return false }
	for i := range x {
		if x[i] != y[i] { return false }
	}
	return true
}
