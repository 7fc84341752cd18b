// Package parser turns pasted text into validated, de-duplicated pool items.
//
// Each non-empty line is expected to carry a 16 character alphanumeric code
// followed by an amount, optionally prefixed with a yen sign and grouped with
// commas. Lines that cannot be read are reported, never fatal.
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/eugenenazirov/code-allocator/internal/allocator"
)

// DefaultMaxAmount is the largest amount accepted on a single line.
const DefaultMaxAmount = 200_000

const (
	errInvalidAmount = "invalid amount"
	errDuplicateCode = "duplicate code"
	errUnrecognised  = "unrecognised line"
	previewLength    = 50
)

var (
	linePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)([A-Z0-9]{16})\s+[¥￥]([0-9,]+)`),
		regexp.MustCompile(`(?i)([A-Z0-9]{16})[¥￥]([0-9,]+)`),
		regexp.MustCompile(`(?i)([A-Z0-9]{16})\s+([0-9,]+)`),
		regexp.MustCompile(`(?i)([A-Z0-9]{16}).*?([0-9,]+)`),
	}
	// Pastes that lost their line breaks still start every code with X.
	inlineCode = regexp.MustCompile(`\s+(X[A-Z0-9]{15})`)
)

// Line is the outcome of reading one input line.
type Line struct {
	Number int    `json:"lineNumber"`
	Code   string `json:"code"`
	Amount int    `json:"amount"`
	Valid  bool   `json:"isValid"`
	Error  string `json:"error,omitempty"`
}

// Result holds every parsed line plus the valid items in input order.
type Result struct {
	Lines          []Line           `json:"lines"`
	Items          []allocator.Item `json:"items"`
	TotalAmount    int              `json:"totalAmount"`
	ValidCount     int              `json:"validCount"`
	InvalidCount   int              `json:"invalidCount"`
	DuplicateCount int              `json:"duplicateCount"`
}

type options struct {
	maxAmount int
}

// Option configures Parse.
type Option func(*options)

// WithMaxAmount overrides the largest accepted amount.
func WithMaxAmount(limit int) Option {
	return func(o *options) {
		if limit > 0 {
			o.maxAmount = limit
		}
	}
}

// Parse reads raw pasted text. Later occurrences of an already seen code are
// marked invalid so the returned items never repeat a code.
func Parse(raw string, opts ...Option) Result {
	o := options{maxAmount: DefaultMaxAmount}
	for _, opt := range opts {
		opt(&o)
	}

	result := Result{
		Lines: []Line{},
		Items: []allocator.Item{},
	}

	seen := make(map[string]struct{})
	for i, text := range splitLines(raw) {
		line := parseLine(text, i+1, o.maxAmount)
		if line.Valid {
			if _, dup := seen[line.Code]; dup {
				line.Valid = false
				line.Error = errDuplicateCode
				result.DuplicateCount++
			} else {
				seen[line.Code] = struct{}{}
			}
		}

		result.Lines = append(result.Lines, line)
		if line.Valid {
			result.Items = append(result.Items, allocator.Item{Code: line.Code, Amount: line.Amount})
			result.TotalAmount += line.Amount
			result.ValidCount++
		} else {
			result.InvalidCount++
		}
	}

	return result
}

func splitLines(raw string) []string {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.TrimSpace(text)
	if !strings.Contains(text, "\n") {
		text = inlineCode.ReplaceAllString(text, "\n$1")
	}

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func parseLine(text string, number, maxAmount int) Line {
	for _, pattern := range linePatterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}

		line := Line{
			Number: number,
			Code:   strings.ToUpper(match[1]),
		}
		amount, err := strconv.Atoi(strings.ReplaceAll(match[2], ",", ""))
		if err != nil || amount <= 0 || amount > maxAmount {
			if err == nil {
				line.Amount = amount
			}
			line.Error = errInvalidAmount
			return line
		}
		line.Amount = amount
		line.Valid = true
		return line
	}

	preview := text
	if r := []rune(preview); len(r) > previewLength {
		preview = string(r[:previewLength]) + "..."
	}
	return Line{
		Number: number,
		Error:  fmt.Sprintf("%s: %s", errUnrecognised, preview),
	}
}
