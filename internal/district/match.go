package district

import "strings"

// Canonical maps free text onto a canonical district name.
//
// Matching order: exact name, alias, then a known name appearing as whole
// words inside longer text ("TAMPINES NORTH"). Containment must be
// unambiguous, and fragments such as "MO" never expand to a district. The second return is false when the
// text could not be placed, in which case the normalized input is returned.
func (t *Table) Canonical(name string) (string, bool) {
	n := normalize(name)
	if n == "" {
		return "", false
	}

	for _, known := range t.names {
		if known == n {
			return known, true
		}
	}

	if alias, ok := t.aliases[n]; ok {
		return alias, true
	}

	// "KALLANG WHAMPOA" vs "KALLANG/WHAMPOA"
	flat := strings.ReplaceAll(n, "/", " ")
	padded := " " + flat + " "
	var match string
	hits := 0
	for _, known := range t.names {
		k := strings.ReplaceAll(known, "/", " ")
		if k == flat || strings.Contains(padded, " "+k+" ") {
			match = known
			hits++
		}
	}
	if hits == 1 {
		return match, true
	}
	return n, false
}
