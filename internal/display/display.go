// Package display renders allocation results for people: currency strings,
// masked codes and the plain-text exports copied out of the service.
package display

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/eugenenazirov/code-allocator/internal/allocator"
)

var printer = message.NewPrinter(language.English)

// FormatAmount renders n as a yen amount with thousands separators.
func FormatAmount(n int) string {
	if n < 0 {
		return "-¥" + printer.Sprintf("%d", -n)
	}
	return "¥" + printer.Sprintf("%d", n)
}

// MaskCode hides all but the first and last two characters of code.
// Codes of four characters or fewer are returned unchanged.
func MaskCode(code string, showFull bool) string {
	r := []rune(code)
	if showFull || len(r) <= 4 {
		return code
	}
	return string(r[:2]) + strings.Repeat("*", len(r)-4) + string(r[len(r)-2:])
}

func itemLine(item allocator.Item) string {
	return item.Code + " " + FormatAmount(item.Amount)
}

// CombinationText lists the items of a single combination, one per line.
func CombinationText(c allocator.Combination) string {
	lines := make([]string, 0, len(c.Items))
	for _, item := range c.Items {
		lines = append(lines, itemLine(item))
	}
	return strings.Join(lines, "\n")
}

// SetText lists the items of one set followed by its excess.
func SetText(set allocator.Set) string {
	lines := make([]string, 0, len(set.Items)+1)
	for _, item := range set.Items {
		lines = append(lines, itemLine(item))
	}
	lines = append(lines, "excess "+FormatAmount(set.Excess))
	return strings.Join(lines, "\n")
}

// BatchText renders every set of result in its current order, numbered from
// one, followed by the unallocated items when there are any.
func BatchText(result allocator.BatchResult) string {
	var sections []string
	for i, set := range result.Sets {
		sections = append(sections, fmt.Sprintf("=== Set %d ===", i+1))
		sections = append(sections, SetText(set))
		sections = append(sections, "")
	}

	if len(result.Unallocated) > 0 {
		sections = append(sections, "=== Unallocated ===")
		for _, item := range result.Unallocated {
			sections = append(sections, itemLine(item))
		}
		sections = append(sections, "unallocated total "+FormatAmount(result.TotalUnallocated))
	}

	return strings.Join(sections, "\n")
}
