// Package identifier derives human-readable entity identifiers from the rows
// that already exist, without a dedicated counter table.
//
// Two grammars are in use:
//
//   - Globally sequential: a fixed literal prefix plus a zero-padded number,
//     e.g. "T001", "N014", "RR007". The next number is max(existing)+1.
//   - Company scoped: a short uppercase prefix derived from the company name,
//     a role/entity token, and a zero-padded number, e.g. "ACMEMA007" for the
//     seventh manager-class entity under prefix "ACME".
//
// Every function is pure over the identifier sets passed in, so allocation is
// deterministic and re-derivable. Callers are expected to allocate inside the
// same transaction that inserts the row; the stores' uniqueness constraints
// catch the remaining concurrent-allocation window and the workflow retries.
package identifier

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	dErrors "orgportal/pkg/domain-errors"
)

// Fixed prefixes for globally sequential identifiers.
const (
	TenantPrefix       = "T"
	NotificationPrefix = "N"
	RegistrationPrefix = "RR"
)

// Role/entity tokens for company-scoped identifiers.
const (
	TokenManager     = "MA"
	TokenDeptManager = "DMA"
	TokenEmployee    = "EMP"
	TokenPost        = "P"
	TokenResponse    = "R"
	TokenChat        = "C"
)

// knownTokens ordered longest-first so "ACDMA" parses as prefix "AC" + token
// "DMA", not "ACD" + "MA".
var knownTokens = []string{TokenDeptManager, TokenEmployee, TokenManager, TokenPost, TokenResponse, TokenChat}

const sequenceWidth = 3

const (
	minPrefixLen     = 2
	maxPrefixLen     = 10
	fallbackStemLen  = 3
	maxDisambiguator = 999
)

// NextSequential returns the next identifier for a fixed literal prefix, given
// every identifier currently stored for that entity. Identifiers that do not
// match prefix+digits are ignored.
func NextSequential(existing []string, prefix string) string {
	max := 0
	for _, s := range existing {
		rest, ok := strings.CutPrefix(s, prefix)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(rest)
		if err != nil || n <= 0 {
			continue
		}
		if n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s%0*d", prefix, sequenceWidth, max+1)
}

// NextScoped returns the next identifier for an established company prefix and
// entity token, scanning every identifier sharing that exact prefix+token.
func NextScoped(existing []string, prefix, token string) string {
	max := 0
	head := prefix + token
	for _, s := range existing {
		rest, ok := strings.CutPrefix(s, head)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(rest)
		if err != nil || n <= 0 {
			continue
		}
		if n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s%0*d", head, sequenceWidth, max+1)
}

// CompanyPrefix derives the prefix for a company's scoped identifiers.
//
// If the company already owns identifiers (companyIDs), their prefix is reused
// so a company's prefix never drifts. Otherwise a fresh prefix is chosen:
// growing substrings of the sanitized company name (2 to 10 characters) are
// tried until one is unused anywhere in allIDs; if the whole name is taken, a
// 3-character stem plus an incrementing numeric disambiguator is used.
func CompanyPrefix(companyName string, companyIDs, allIDs []string) (string, error) {
	for _, existing := range sortedCopy(companyIDs) {
		if prefix, ok := splitPrefix(existing); ok {
			return prefix, nil
		}
	}

	sanitized := sanitize(companyName)
	if sanitized == "" {
		return "", dErrors.New(dErrors.CodeValidation, "company name yields no usable identifier prefix")
	}

	used := usedPrefixes(allIDs)

	limit := maxPrefixLen
	if len(sanitized) < limit {
		limit = len(sanitized)
	}
	for l := minPrefixLen; l <= limit; l++ {
		candidate := sanitized[:l]
		if !used[candidate] {
			return candidate, nil
		}
	}

	stem := sanitized
	if len(stem) > fallbackStemLen {
		stem = stem[:fallbackStemLen]
	}
	for n := 1; n <= maxDisambiguator; n++ {
		candidate := stem + strconv.Itoa(n)
		if !used[candidate] {
			return candidate, nil
		}
	}
	return "", dErrors.New(dErrors.CodeConflict, "exhausted identifier prefixes for company")
}

// usedPrefixes extracts every company prefix already present in the given
// identifiers.
func usedPrefixes(ids []string) map[string]bool {
	used := make(map[string]bool)
	for _, s := range ids {
		if prefix, ok := splitPrefix(s); ok {
			used[prefix] = true
		}
	}
	return used
}

// splitPrefix strips the trailing sequence number and the longest known
// role/entity token, returning the company prefix. Identifiers outside the
// scoped grammar (e.g. the seeded admin ID) report ok=false.
func splitPrefix(s string) (string, bool) {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	if i == len(s) || i == 0 {
		return "", false
	}
	head := s[:i]
	for _, token := range knownTokens {
		if rest, ok := strings.CutSuffix(head, token); ok && rest != "" {
			return rest, true
		}
	}
	return "", false
}

// sanitize uppercases the company name and keeps only A-Z and 0-9.
func sanitize(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func sortedCopy(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)
	return out
}
