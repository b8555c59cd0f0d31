package process

import (
	"fmt"
	"strings"
)

// CheckNumbering reports departures from the two-level "N.0" / "N.M" scheme.
// The findings are advisory; renderers accept whatever numbering they receive.
func CheckNumbering(d Description) []string {
	var warnings []string
	for gi, group := range d.Steps {
		major, minor, ok := splitNumbering(group.Numbering)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("group %d: numbering %q is not of the form N.0", gi+1, group.Numbering))
			continue
		}
		if minor != "0" {
			warnings = append(warnings, fmt.Sprintf("group %d: numbering %q should end in .0", gi+1, group.Numbering))
		}
		for si, sub := range group.SubSteps {
			subMajor, _, ok := splitNumbering(sub.Numbering)
			if !ok {
				warnings = append(warnings, fmt.Sprintf("group %s step %d: numbering %q is not of the form N.M", group.Numbering, si+1, sub.Numbering))
				continue
			}
			if subMajor != major {
				warnings = append(warnings, fmt.Sprintf("group %s step %d: numbering %q does not share major number %s", group.Numbering, si+1, sub.Numbering, major))
			}
		}
	}
	return warnings
}

func splitNumbering(value string) (string, string, bool) {
	major, minor, found := strings.Cut(strings.TrimSpace(value), ".")
	if !found || !isDigits(major) || !isDigits(minor) {
		return "", "", false
	}
	return major, minor, true
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
