/*package format handles tesseract's miniature sequence-format language,
used by the cmd/ drivers to let a user name a non-contiguous set of cycles
or ranks on the command line, e.g. for "dump a restart file on cycles
0..100-63" or "run a conservation check on ranks 0+2..4".

Sequence formats are a generic way to specify non-contiguous sequences of
natural numbers. They consist of a series of tokens separated by "+" or "-".
Each token is either a number or two numbers separated by "..". E.g.:

  100
  0..100
  0..10 + 100
  0..100 - 63 - 10..20

These strings build up sequences of numbers by adding/removing individual
numbers and contiguous runs. For example, 1, 2, 3, 15, 16, 17 could be
written as 1..17 - 4..14.

All spaces around "-", "+" symbols are ignored.
*/
package format

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	// BigNumber bounds the size of an expanded sequence; anything larger is
	// assumed to be a typo rather than an intentional range.
	BigNumber = 1 << 20
)

// ExpandSequenceFormat expands a sequence format string into a sorted
// sequence of integers.
func ExpandSequenceFormat(format string) ([]int, error) {
	tok, err := tokeniseSequenceFormat(format)
	if err != nil { return nil, err }
	adds, subs, err := addsSubsSequenceFormat(tok)
	if err != nil { return nil, err }

	m := map[int]bool{}
	for i := range adds {
		for _, n := range parseSequenceFormatToken(adds[i]) {
			if m[n] {
				return nil, fmt.Errorf("the number %d is added more than once", n)
			}
			m[n] = true
		}
	}

	for i := range subs {
		for _, n := range parseSequenceFormatToken(subs[i]) {
			if !m[n] {
				return nil, fmt.Errorf(
					"the number %d is removed more times than it was inserted", n)
			}
			delete(m, n)
		}
	}

	if len(m) > BigNumber {
		return nil, fmt.Errorf(
			"this sequence would have %d elements, which is almost certainly a bug",
			len(m))
	}

	out := make([]int, 0, len(m))
	for n := range m { out = append(out, n) }
	sort.Ints(out)

	return out, nil
}

// tokeniseSequenceFormat splits a sequence format string into its "+", "-",
// and numeric-range tokens.
func tokeniseSequenceFormat(format string) ([]string, error) {
	clean := strings.ReplaceAll(format, "+", " + ")
	clean = strings.ReplaceAll(clean, "-", " - ")

	rawTok := strings.Split(clean, " ")
	tok := []string{}
	for i := range rawTok {
		t := strings.TrimSpace(rawTok[i])
		if len(t) > 0 {
			tok = append(tok, t)
		}
	}

	if len(tok) == 0 {
		return nil, fmt.Errorf("the format string is empty")
	}
	return tok, nil
}

// addsSubsSequenceFormat splits tokenized input into the ranges that should
// be added to and subtracted from the sequence.
func addsSubsSequenceFormat(tok []string) (adds, subs []string, err error) {
	if len(tok) == 0 {
		return nil, nil, fmt.Errorf("format string is empty")
	}

	adds, subs = []string{}, []string{}
	var start int
	if tok[0] == "+" || tok[0] == "-" {
		start = 0
	} else {
		if err := isSequenceFormatToken(tok[0]); err != nil {
			return nil, nil, fmt.Errorf(
				"element number %d, '%s', cannot be parsed because %s",
				1, tok[0], err.Error())
		}
		adds = append(adds, tok[0])
		start = 1
	}

	for i := start; i < len(tok); i += 2 {
		if tok[i] != "-" && tok[i] != "+" {
			return nil, nil, fmt.Errorf(
				"element number %d, '%s', should be a '-' or '+', but isn't",
				i+1, tok[i])
		}
		if i+1 >= len(tok) {
			return nil, nil, fmt.Errorf(
				"the format string ends in a trailing '%s'", tok[i])
		}
		if err := isSequenceFormatToken(tok[i+1]); err != nil {
			return nil, nil, fmt.Errorf(
				"element number %d, '%s', cannot be parsed because %s",
				i+2, tok[i+1], err.Error())
		}

		if tok[i] == "+" {
			adds = append(adds, tok[i+1])
		} else {
			subs = append(subs, tok[i+1])
		}
	}

	return adds, subs, nil
}

// isSequenceFormatToken returns a nil error if tok is a valid token for a
// sequence format and an error describing the problem otherwise. The error
// message assumes it is printed after a trailing "because".
func isSequenceFormatToken(tok string) error {
	if len(tok) == 0 {
		return fmt.Errorf("the format string is empty")
	}

	bounds := strings.Split(tok, "..")
	switch len(bounds) {
	case 1:
		if _, err := strconv.Atoi(bounds[0]); err != nil {
			return fmt.Errorf("'%s' is not an integer", bounds[0])
		}
		return nil
	case 2:
		start, err1 := strconv.Atoi(bounds[0])
		if err1 != nil {
			return fmt.Errorf("'%s' is not an integer", bounds[0])
		}
		end, err2 := strconv.Atoi(bounds[1])
		if err2 != nil {
			return fmt.Errorf("'%s' is not an integer", bounds[1])
		}
		if end < start {
			return fmt.Errorf("lower bound %d is larger than upper bound %d",
				start, end)
		}
		return nil
	}
	return fmt.Errorf("it has more than one '..'")
}

// parseSequenceFormatToken parses a single token in a sequence format string
// and returns the corresponding array of numbers. Assumes isSequenceFormatToken
// has already validated tok.
func parseSequenceFormatToken(tok string) []int {
	bounds := strings.Split(tok, "..")
	switch len(bounds) {
	case 1:
		n, _ := strconv.Atoi(tok)
		return []int{n}
	case 2:
		start, _ := strconv.Atoi(bounds[0])
		end, _ := strconv.Atoi(bounds[1])
		out := make([]int, 0, end-start+1)
		for n := start; n <= end; n++ {
			out = append(out, n)
		}
		return out
	}
	panic(fmt.Sprintf(
		"invalid sequence format token, '%s', passed isSequenceFormatToken", tok))
}
