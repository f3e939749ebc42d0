// Package booth builds the delegated-authority handoff to the external voting
// server: the canonical signed message, its HMAC, and the redirect URLs.
package booth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"plebis/internal/platform/config"
	"plebis/internal/voting/models"
)

// Authorizer signs booth delegations. It holds the immutable server profile
// map loaded at startup, keeping the signing functions pure and testable.
type Authorizer struct {
	servers config.BoothServers
	// sandbox gates the diagnostic URL that leaks the shared secret.
	sandbox bool
}

func New(servers config.BoothServers, sandbox bool) *Authorizer {
	return &Authorizer{servers: servers, sandbox: sandbox}
}

// ServerURL resolves the election's booth base URL; empty when the profile is
// missing, which degrades links instead of failing requests.
func (a *Authorizer) ServerURL(e *models.Election) string {
	return a.servers.Profile(e.Server).URL
}

// SharedKey resolves the shared HMAC secret for the election's profile.
func (a *Authorizer) SharedKey(e *models.Election) string {
	return a.servers.Profile(e.Server).SharedKey
}

// BuildMessage assembles the canonical payload both sides sign:
//
//	AuthEvent:vote:{scopedElectionID}:{voterID}:{unixTimestamp}
//
// The delimiter and field order must match the booth server's expectation
// byte for byte; confirm against the target deployment before integrating.
func BuildMessage(scopedElectionID int64, voterID string, unixTS int64) string {
	return fmt.Sprintf("AuthEvent:vote:%d:%s:%d", scopedElectionID, voterID, unixTS)
}

// Sign computes the hex HMAC-SHA256 of message under the shared key.
func Sign(message, sharedKey string) string {
	mac := hmac.New(sha256.New, []byte(sharedKey))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// DelegationURL builds the signed redirect that lets its bearer cast the
// represented vote:
//
//	{serverURL}booth/{hmac}/vote/{message}
//
// It is a bearer capability. Deliver it only over an authenticated, single-use
// channel; the embedded timestamp lets the booth enforce a freshness window.
func (a *Authorizer) DelegationURL(e *models.Election, scopedElectionID int64, voterID string, unixTS int64) string {
	message := BuildMessage(scopedElectionID, voterID, unixTS)
	return fmt.Sprintf("%sbooth/%s/vote/%s", a.ServerURL(e), Sign(message, a.SharedKey(e)), message)
}

// SignedToken is the "{hmac}/{message}" pair handed to the frontend, which
// appends it to the booth base URL itself.
func (a *Authorizer) SignedToken(e *models.Election, scopedElectionID int64, voterID string, unixTS int64) string {
	message := BuildMessage(scopedElectionID, voterID, unixTS)
	return fmt.Sprintf("%s/%s", Sign(message, a.SharedKey(e)), message)
}

// TestURL builds the sandbox-only signature diagnostic:
//
//	{serverURL}test_hmac/{sharedKey}/{message}
//
// It embeds the raw shared secret and returns empty outside sandbox mode.
func (a *Authorizer) TestURL(e *models.Election, scopedElectionID int64, voterID string, unixTS int64) string {
	if !a.sandbox {
		return ""
	}
	message := BuildMessage(scopedElectionID, voterID, unixTS)
	return fmt.Sprintf("%stest_hmac/%s/%s", a.ServerURL(e), a.SharedKey(e), message)
}
