package models

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ElectionType distinguishes how ballots are actually cast.
type ElectionType int

const (
	// TypeNVotes is a native electronic election run on the external booth.
	TypeNVotes ElectionType = iota
	// TypeExternal points voters at a third-party system via a plain link.
	TypeExternal
	// TypePaper records presence only; votes are cast on paper.
	TypePaper
)

func (t ElectionType) String() string {
	switch t {
	case TypeNVotes:
		return "nvotes"
	case TypeExternal:
		return "external"
	case TypePaper:
		return "paper"
	default:
		return "unknown"
	}
}

// Territorial scopes, narrowest last. The integer values are part of the
// stored data model and must not be reordered.
const (
	ScopeEstatal = iota
	ScopeComunidad
	ScopeProvincial
	ScopeComarcal
	ScopeInsular
	ScopeMunicipal
	ScopeCirculos
)

var scopeNames = [...]string{
	"Estatal",
	"Comunidad",
	"Provincia",
	"Comarcal",
	"Insular",
	"Municipal",
	"Círculos",
}

// ScopeName resolves a scope to its display name. Unknown scopes resolve to a
// placeholder instead of failing a page render.
func ScopeName(scope int) string {
	if scope < 0 || scope >= len(scopeNames) {
		return fmt.Sprintf("Ámbito %d", scope)
	}
	return scopeNames[scope]
}

// Election identifies a voting event.
type Election struct {
	ID              int64
	Title           string
	AgoraElectionID int64
	StartsAt        time.Time
	EndsAt          time.Time
	CloseMessage    string
	Scope           int
	InfoURL         string
	// Server names the booth server profile; empty selects the default.
	Server           string
	UserCreatedAtMax *time.Time
	Priority         int
	// CounterKey is the opaque token behind the anonymous progress counters.
	// Assigned once at creation, never regenerated.
	CounterKey      string
	ExternalLink    string
	VoterIDTemplate string
	ElectionType    ElectionType

	RequiresSMSCheck          bool
	ShowOnIndex               bool
	IgnoreMultipleTerritories bool
	RequiresVatIDCheck        bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (e *Election) String() string {
	return e.Title
}

// EnsureCounterKey assigns the counter key if it is still blank. Existing keys
// are never replaced: tokens derived from them are circulating.
func (e *Election) EnsureCounterKey() {
	if e.CounterKey == "" {
		e.CounterKey = uuid.NewString()
	}
}

func (e *Election) IsActive(now time.Time) bool {
	return !now.Before(e.StartsAt) && now.Before(e.EndsAt)
}

func (e *Election) IsUpcoming(now time.Time) bool {
	return now.Before(e.StartsAt) && e.StartsAt.Sub(now) <= 12*time.Hour
}

func (e *Election) RecentlyFinished(now time.Time) bool {
	return now.After(e.EndsAt) && now.Sub(e.EndsAt) <= 48*time.Hour
}

// Duration reports the voting window in whole hours.
func (e *Election) Duration() int {
	return int(e.EndsAt.Sub(e.StartsAt).Hours())
}

func (e *Election) ScopeName() string {
	return ScopeName(e.Scope)
}

// MultipleTerritories reports whether voters may match several ballots, which
// only happens on sub-state scopes and can be switched off per election.
func (e *Election) MultipleTerritories() bool {
	return e.Scope > ScopeEstatal && !e.IgnoreMultipleTerritories
}

// HasValidUserCreatedAt applies the registration cutoff, when configured.
func (e *Election) HasValidUserCreatedAt(u *User) bool {
	if e.UserCreatedAtMax == nil {
		return true
	}
	return !u.CreatedAt.After(*e.UserCreatedAtMax)
}

// AccessToken derives a short verification token bound to this election's
// counter key. Tokens are 17 characters, compared timing-safe by callers.
func (e *Election) AccessToken(info string) string {
	mac := hmac.New(sha256.New, []byte(e.CounterKey))
	mac.Write([]byte(info))
	return hex.EncodeToString(mac.Sum(nil))[:17]
}

// CounterToken guards the anonymous election-wide progress counter.
func (e *Election) CounterToken() string {
	return e.AccessToken(fmt.Sprintf("counter %d", e.ID))
}
