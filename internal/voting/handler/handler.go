// Package handler exposes the voting flow over HTTP: the signed booth
// delegation, the vote lifecycle, paper registration, and the anonymous
// progress counters.
package handler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"plebis/internal/platform/middleware"
	"plebis/internal/transport/http/shared"
	"plebis/internal/voting/models"
	"plebis/internal/voting/service"
	dErrors "plebis/pkg/domain-errors"
	"plebis/pkg/platform/sentinel"
	"plebis/pkg/requestcontext"
)

// Service defines the voting operations the handler delegates to.
type Service interface {
	Election(ctx context.Context, electionID int64) (*models.Election, error)
	Location(ctx context.Context, electionID int64, location string) (*models.ElectionLocation, error)
	Authorize(ctx context.Context, user *models.User, electionID int64) (*service.Delegation, error)
	RegisterPaperVote(ctx context.Context, authority, voter *models.User, electionID int64) (*models.Vote, error)
	Retract(ctx context.Context, user *models.User, electionID int64) error
	HasAlreadyVoted(ctx context.Context, userID, electionID int64) (bool, error)
	ValidVotesCount(ctx context.Context, e *models.Election, l *models.ElectionLocation) (int64, error)
}

// UserDirectory resolves the voter profile behind an authenticated user id.
// The account system itself lives outside this service; the directory reads
// the synced snapshot.
type UserDirectory interface {
	Get(ctx context.Context, userID int64) (*models.User, error)
}

// Handler handles the voting endpoints.
type Handler struct {
	logger       *slog.Logger
	voting       Service
	directory    UserDirectory
	jwtValidator middleware.JWTValidator
}

// New creates a new voting Handler.
func New(
	voting Service,
	directory UserDirectory,
	jwtValidator middleware.JWTValidator,
	logger *slog.Logger) *Handler {
	return &Handler{
		logger:       logger,
		voting:       voting,
		directory:    directory,
		jwtValidator: jwtValidator,
	}
}

// Register registers the voting routes with the chi router. The counter
// endpoints are anonymous and guarded by per-election tokens instead of
// sessions.
func (h *Handler) Register(r chi.Router) {
	r.Get("/elections/{electionID}/votes_count/{token}", h.handleElectionCounter)
	r.Get("/elections/{electionID}/locations/{location}/votes_count/{token}", h.handleLocationCounter)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Get("/elections/{electionID}", h.handleElection)
		r.Get("/elections/{electionID}/vote", h.handleDelegation)
		r.Get("/elections/{electionID}/vote/token", h.handleToken)
		r.Get("/elections/{electionID}/vote/status", h.handleStatus)
		r.Delete("/elections/{electionID}/vote", h.handleRetract)
		r.With(middleware.RequirePaperAuthority(h.logger)).
			Post("/elections/{electionID}/vote/paper", h.handlePaperVote)
	})
}

// electionResponse is the public projection of an election.
type electionResponse struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Scope        string `json:"scope"`
	ElectionType string `json:"election_type"`
	StartsAt     string `json:"starts_at"`
	EndsAt       string `json:"ends_at"`
	InfoURL      string `json:"info_url,omitempty"`
	ExternalLink string `json:"external_link,omitempty"`
	CloseMessage string `json:"close_message,omitempty"`
	Active       bool   `json:"active"`
}

// delegationResponse carries the signed booth handoff.
type delegationResponse struct {
	ElectionID int64  `json:"election_id"`
	VoterID    string `json:"voter_id"`
	Address    int64  `json:"address"`
	Message    string `json:"message"`
	Token      string `json:"token"`
	URL        string `json:"url"`
	TestURL    string `json:"test_url,omitempty"`
}

type paperVoteRequest struct {
	VoterUserID int64 `json:"voter_user_id"`
}

type voteResponse struct {
	ElectionID       int64  `json:"election_id"`
	VoterID          string `json:"voter_id"`
	Address          int64  `json:"address"`
	PaperAuthorityID *int64 `json:"paper_authority_id,omitempty"`
}

func (h *Handler) handleElection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	electionID, err := electionIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	e, err := h.voting.Election(ctx, electionID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	now := requestcontext.Now(ctx)
	shared.WriteJSON(w, http.StatusOK, electionResponse{
		ID:           e.ID,
		Title:        e.Title,
		Scope:        e.ScopeName(),
		ElectionType: e.ElectionType.String(),
		StartsAt:     e.StartsAt.UTC().Format(time.RFC3339),
		EndsAt:       e.EndsAt.UTC().Format(time.RFC3339),
		InfoURL:      e.InfoURL,
		ExternalLink: e.ExternalLink,
		CloseMessage: e.CloseMessage,
		Active:       e.IsActive(now),
	})
}

// handleDelegation registers the vote on first call and returns the signed
// booth handoff. The booth URL carries a fresh timestamp on every call.
func (h *Handler) handleDelegation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	electionID, err := electionIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	user, err := h.currentUser(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	d, err := h.voting.Authorize(ctx, user, electionID)
	if err != nil {
		h.logDomainError(ctx, "authorize failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, delegationResponse{
		ElectionID: electionID,
		VoterID:    d.Vote.VoterID,
		Address:    d.Vote.AgoraID,
		Message:    d.Message,
		Token:      d.Token,
		URL:        d.URL,
		TestURL:    d.TestURL,
	})
}

// handleToken is the plain-text variant consumed by frontends that assemble
// the booth URL themselves.
func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	electionID, err := electionIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	user, err := h.currentUser(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	d, err := h.voting.Authorize(ctx, user, electionID)
	if err != nil {
		h.logDomainError(ctx, "authorize failed", err)
		shared.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(d.Token))
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	electionID, err := electionIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	voted, err := h.voting.HasAlreadyVoted(ctx, requestcontext.UserID(ctx), electionID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]bool{"voted": voted})
}

func (h *Handler) handleRetract(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	electionID, err := electionIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	user, err := h.currentUser(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.voting.Retract(ctx, user, electionID); err != nil {
		h.logDomainError(ctx, "retract failed", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePaperVote records a vote cast on paper before a voting authority.
// RequirePaperAuthority has already gated the role; the service re-checks it
// against the authority's profile.
func (h *Handler) handlePaperVote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	electionID, err := electionIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	authority, err := h.currentUser(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req paperVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.VoterUserID == 0 {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "voter_user_id is required"))
		return
	}

	voter, err := h.lookupUser(ctx, req.VoterUserID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	vote, err := h.voting.RegisterPaperVote(ctx, authority, voter, electionID)
	if err != nil {
		h.logDomainError(ctx, "paper vote failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, voteResponse{
		ElectionID:       vote.ElectionID,
		VoterID:          vote.VoterID,
		Address:          vote.AgoraID,
		PaperAuthorityID: vote.PaperAuthorityID,
	})
}

// handleElectionCounter serves the election-wide progress counter. Anonymous,
// guarded by the election's counter token, compared timing-safe.
func (h *Handler) handleElectionCounter(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	electionID, err := electionIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	e, err := h.voting.Election(ctx, electionID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if !h.counterTokenValid(ctx, r, e.CounterToken()) {
		shared.WriteError(w, dErrors.New(dErrors.CodeForbidden, "invalid counter token"))
		return
	}
	l, err := h.defaultLocation(ctx, electionID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	count, err := h.voting.ValidVotesCount(ctx, e, l)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]int64{"votes": count})
}

// handleLocationCounter serves the per-location counter, guarded by the
// location's own token.
func (h *Handler) handleLocationCounter(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	electionID, err := electionIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	e, err := h.voting.Election(ctx, electionID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	l, err := h.voting.Location(ctx, electionID, chi.URLParam(r, "location"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if !h.counterTokenValid(ctx, r, l.CounterToken(e)) {
		shared.WriteError(w, dErrors.New(dErrors.CodeForbidden, "invalid counter token"))
		return
	}
	count, err := h.voting.ValidVotesCount(ctx, e, l)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]int64{"votes": count})
}

func (h *Handler) counterTokenValid(ctx context.Context, r *http.Request, want string) bool {
	got := chi.URLParam(r, "token")
	if subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1 {
		return true
	}
	h.logger.WarnContext(ctx, "counter token rejected",
		"path", r.URL.Path,
		"request_id", requestcontext.RequestID(ctx),
	)
	return false
}

// currentUser loads the voter profile of the authenticated user.
func (h *Handler) currentUser(r *http.Request) (*models.User, error) {
	claims := middleware.GetClaims(r)
	if claims == nil {
		// RequireAuth always sets claims; reaching here is a wiring bug.
		h.logger.ErrorContext(r.Context(), "claims missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(r.Context()),
		)
		return nil, dErrors.New(dErrors.CodeInternal, "authentication context error")
	}
	return h.lookupUser(r.Context(), claims.UserID)
}

func (h *Handler) lookupUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := h.directory.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeForbidden, "no voter profile for user")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load voter profile")
	}
	return user, nil
}

// defaultLocation resolves the whole-territory ballot, falling back to the
// implicit default when the election defines no explicit locations.
func (h *Handler) defaultLocation(ctx context.Context, electionID int64) (*models.ElectionLocation, error) {
	l, err := h.voting.Location(ctx, electionID, "00")
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return models.NewElectionLocation(electionID), nil
		}
		return nil, err
	}
	return l, nil
}

func (h *Handler) logDomainError(ctx context.Context, msg string, err error) {
	log := h.logger.WarnContext
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		log = h.logger.ErrorContext
	}
	log(ctx, msg,
		"error", err.Error(),
		"request_id", requestcontext.RequestID(ctx),
	)
}

func electionIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "electionID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "invalid election id")
	}
	return id, nil
}
