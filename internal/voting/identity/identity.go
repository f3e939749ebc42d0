// Package identity derives the pseudonymous voter identifier presented to the
// external booth, plus the legacy document-normalization helpers shared with
// the census import tooling.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	dErrors "plebis/pkg/domain-errors"

	"plebis/internal/voting/models"
)

// DefaultTemplate combines user and election ids; every election without an
// explicit template uses it, which is what makes voter ids unlinkable across
// elections.
const DefaultTemplate = "%<user_id>s:%<election_id>s"

var placeholderRe = regexp.MustCompile(`%<([A-Za-z0-9_]+)>s`)

// TemplateValues holds the substitution values for one (user, election) pair.
// Build it once per derivation; the vatid lookup is the expensive part.
type TemplateValues map[string]string

// NewTemplateValues resolves the known placeholder values.
func NewTemplateValues(user *models.User, election *models.Election) TemplateValues {
	return TemplateValues{
		"user_id":     strconv.FormatInt(user.ID, 10),
		"election_id": strconv.FormatInt(election.ID, 10),
		"vatid":       NormalizedVatID(user.IsNationalDocument(), user.DocumentVatID),
	}
}

// Expand substitutes %<name>s placeholders. Unknown names resolve to the
// literal fallback token so legacy templates never break issuance.
func (v TemplateValues) Expand(template string) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(m string) string {
		name := placeholderRe.FindStringSubmatch(m)[1]
		if val, ok := v[name]; ok {
			return val
		}
		return "%<key>s"
	})
}

// DeriveVoterID produces the stable 64-hex-character voter pseudonym for a
// (user, election) pair. Pure: same inputs always hash to the same id.
func DeriveVoterID(user *models.User, election *models.Election) (string, error) {
	if user == nil || election == nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "could not generate voter id")
	}
	template := election.VoterIDTemplate
	if template == "" {
		template = DefaultTemplate
	}
	canonical := NewTemplateValues(user, election).Expand(template)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:]), nil
}

// NormalizeIdentifier strips non-alphanumeric characters, upper-cases, and
// drops leading zeros from every digit run. Used to reconcile legacy identity
// documents across subsystems; not part of the cryptographic derivation.
func NormalizeIdentifier(s string) string {
	var b strings.Builder
	var digits strings.Builder
	flush := func() {
		if digits.Len() > 0 {
			run := strings.TrimLeft(digits.String(), "0")
			// an all-zero run still collapses to nothing, matching the
			// legacy import behavior
			b.WriteString(run)
			digits.Reset()
		}
	}
	for _, r := range strings.ToUpper(s) {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case (r >= 'A' && r <= 'Z'):
			flush()
			b.WriteRune(r)
		default:
			// separators end a digit run
			flush()
		}
	}
	flush()
	return b.String()
}

// NormalizedVatID prefixes the normalized identifier with the document class
// expected by the booth census: DNI for national documents, PASS for
// passports.
func NormalizedVatID(isNationalID bool, rawID string) string {
	prefix := "PASS"
	if isNationalID {
		prefix = "DNI"
	}
	return fmt.Sprintf("%s%s", prefix, NormalizeIdentifier(rawID))
}
