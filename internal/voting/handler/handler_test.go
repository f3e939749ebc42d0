package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"plebis/internal/platform/config"
	"plebis/internal/platform/middleware"
	"plebis/internal/voting/booth"
	"plebis/internal/voting/models"
	"plebis/internal/voting/service"
	"plebis/internal/voting/store"
	dErrors "plebis/pkg/domain-errors"
	"plebis/pkg/testutil"
)

// staticValidator resolves bearer tokens from a fixed map, standing in for
// the JWT service.
type staticValidator struct {
	tokens map[string]*middleware.JWTClaims
}

func (v *staticValidator) ValidateToken(token string) (*middleware.JWTClaims, error) {
	if claims, ok := v.tokens[token]; ok {
		return claims, nil
	}
	return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
}

type HandlerSuite struct {
	suite.Suite
	store  *store.MemoryStore
	router chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.store = store.NewMemory()
	logger := slog.New(slog.DiscardHandler)

	servers := config.BoothServers{
		Default: "default",
		Profiles: map[string]config.BoothProfile{
			"default": {URL: "https://booth.example.org/", SharedKey: "shared"},
		},
	}
	svc, err := service.New(
		s.store.Votes(), s.store.Elections(), s.store.Locations(),
		booth.New(servers, false),
		service.WithLogger(logger),
	)
	s.Require().NoError(err)

	validator := &staticValidator{tokens: map[string]*middleware.JWTClaims{
		"voter-session":     {UserID: 42},
		"authority-session": {UserID: 7, PaperAuthority: true},
	}}

	h := New(svc, s.store.Profiles(), validator, logger)
	s.router = chi.NewRouter()
	h.Register(s.router)

	registered := time.Now().Add(-30 * 24 * time.Hour)
	ctx := context.Background()
	s.Require().NoError(s.store.Profiles().Upsert(ctx, &models.User{ID: 42, CreatedAt: registered}))
	s.Require().NoError(s.store.Profiles().Upsert(ctx, &models.User{ID: 2, CreatedAt: registered}))
	s.Require().NoError(s.store.Profiles().Upsert(ctx, &models.User{ID: 7, CreatedAt: registered, PaperAuthority: true}))
}

func (s *HandlerSuite) seedElection() *models.Election {
	now := time.Now()
	e := &models.Election{
		ID:              10,
		Title:           "Primarias",
		AgoraElectionID: 100,
		StartsAt:        now.Add(-time.Hour),
		EndsAt:          now.Add(time.Hour),
		CounterKey:      "counter-key",
		ElectionType:    models.TypeNVotes,
	}
	s.Require().NoError(s.store.Elections().Create(context.Background(), e))

	l := models.NewElectionLocation(e.ID)
	l.AgoraVersion = 2
	l.NewAgoraVersion = 2
	s.Require().NoError(s.store.Locations().Upsert(context.Background(), l))
	return e
}

func (s *HandlerSuite) do(method, path, sessionToken string, body string) *httptest.ResponseRecorder {
	return testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), method, path, sessionToken, body))
}

func (s *HandlerSuite) decode(w *httptest.ResponseRecorder, v any) {
	testutil.UnmarshalResponse(s.T(), w, v)
}

func (s *HandlerSuite) TestAuthRequired() {
	s.seedElection()

	s.Run("missing token", func() {
		w := s.do(http.MethodGet, "/elections/10/vote", "", "")
		s.Equal(http.StatusUnauthorized, w.Code)
	})

	s.Run("unknown token", func() {
		w := s.do(http.MethodGet, "/elections/10/vote", "bogus", "")
		s.Equal(http.StatusUnauthorized, w.Code)
	})

	s.Run("session without voter profile", func() {
		validator := &staticValidator{tokens: map[string]*middleware.JWTClaims{
			"ghost": {UserID: 999},
		}}
		svc, err := service.New(
			s.store.Votes(), s.store.Elections(), s.store.Locations(),
			booth.New(config.BoothServers{}, false),
			service.WithLogger(slog.New(slog.DiscardHandler)),
		)
		s.Require().NoError(err)
		r := chi.NewRouter()
		New(svc, s.store.Profiles(), validator, slog.New(slog.DiscardHandler)).Register(r)

		req := httptest.NewRequest(http.MethodGet, "/elections/10/vote", nil)
		req.Header.Set("Authorization", "Bearer ghost")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		s.Equal(http.StatusForbidden, w.Code)
	})
}

func (s *HandlerSuite) TestElection() {
	s.seedElection()

	s.Run("renders the public projection", func() {
		w := s.do(http.MethodGet, "/elections/10", "voter-session", "")
		s.Require().Equal(http.StatusOK, w.Code)

		var resp map[string]any
		s.decode(w, &resp)
		s.Equal("Primarias", resp["title"])
		s.Equal("Estatal", resp["scope"])
		s.Equal("nvotes", resp["election_type"])
		s.Equal(true, resp["active"])
	})

	s.Run("unknown election", func() {
		w := s.do(http.MethodGet, "/elections/404", "voter-session", "")
		s.Equal(http.StatusNotFound, w.Code)
	})

	s.Run("malformed election id", func() {
		w := s.do(http.MethodGet, "/elections/abc", "voter-session", "")
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *HandlerSuite) TestDelegation() {
	s.seedElection()

	w := s.do(http.MethodGet, "/elections/10/vote", "voter-session", "")
	s.Require().Equal(http.StatusOK, w.Code)

	var resp struct {
		ElectionID int64  `json:"election_id"`
		VoterID    string `json:"voter_id"`
		Address    int64  `json:"address"`
		Message    string `json:"message"`
		Token      string `json:"token"`
		URL        string `json:"url"`
		TestURL    string `json:"test_url"`
	}
	s.decode(w, &resp)

	s.Equal(int64(10), resp.ElectionID)
	s.Regexp(regexp.MustCompile(`^[0-9a-f]{64}$`), resp.VoterID)
	s.Equal(int64(100002), resp.Address)
	s.Regexp(regexp.MustCompile(`^AuthEvent:vote:100002:[0-9a-f]{64}:\d+$`), resp.Message)
	s.Regexp(regexp.MustCompile(`^[0-9a-f]{64}/AuthEvent:vote:`), resp.Token)
	s.True(strings.HasPrefix(resp.URL, "https://booth.example.org/booth/"))
	s.True(strings.HasSuffix(resp.URL, "/vote/"+resp.Message))
	s.Empty(resp.TestURL, "diagnostic URL never leaves sandbox mode")

	s.Run("repeat call keeps the voter id", func() {
		again := s.do(http.MethodGet, "/elections/10/vote", "voter-session", "")
		s.Require().Equal(http.StatusOK, again.Code)
		var repeat struct {
			VoterID string `json:"voter_id"`
		}
		s.decode(again, &repeat)
		s.Equal(resp.VoterID, repeat.VoterID)
	})
}

func (s *HandlerSuite) TestTokenEndpoint() {
	s.seedElection()

	w := s.do(http.MethodGet, "/elections/10/vote/token", "voter-session", "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Header().Get("Content-Type"), "text/plain")
	s.Regexp(regexp.MustCompile(`^[0-9a-f]{64}/AuthEvent:vote:100002:[0-9a-f]{64}:\d+$`), w.Body.String())
}

func (s *HandlerSuite) TestStatusAndRetract() {
	s.seedElection()

	w := s.do(http.MethodGet, "/elections/10/vote/status", "voter-session", "")
	s.Require().Equal(http.StatusOK, w.Code)
	var status map[string]bool
	s.decode(w, &status)
	s.False(status["voted"])

	s.Require().Equal(http.StatusOK, s.do(http.MethodGet, "/elections/10/vote", "voter-session", "").Code)

	w = s.do(http.MethodGet, "/elections/10/vote/status", "voter-session", "")
	s.decode(w, &status)
	s.True(status["voted"])

	s.Equal(http.StatusNoContent, s.do(http.MethodDelete, "/elections/10/vote", "voter-session", "").Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodDelete, "/elections/10/vote", "voter-session", "").Code)

	// retraction withdraws the ballot but the participation trace stays
	w = s.do(http.MethodGet, "/elections/10/vote/status", "voter-session", "")
	s.decode(w, &status)
	s.True(status["voted"])
}

func (s *HandlerSuite) TestPaperVote() {
	s.seedElection()

	s.Run("authority records a paper vote", func() {
		w := s.do(http.MethodPost, "/elections/10/vote/paper", "authority-session", `{"voter_user_id":2}`)
		s.Require().Equal(http.StatusCreated, w.Code)

		var resp struct {
			VoterID          string `json:"voter_id"`
			PaperAuthorityID *int64 `json:"paper_authority_id"`
		}
		s.decode(w, &resp)
		s.Len(resp.VoterID, 64)
		s.Require().NotNil(resp.PaperAuthorityID)
		s.Equal(int64(7), *resp.PaperAuthorityID)
	})

	s.Run("plain voters are rejected at the router", func() {
		w := s.do(http.MethodPost, "/elections/10/vote/paper", "voter-session", `{"voter_user_id":2}`)
		s.Equal(http.StatusForbidden, w.Code)
	})

	s.Run("missing voter id", func() {
		w := s.do(http.MethodPost, "/elections/10/vote/paper", "authority-session", `{}`)
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("unknown voter", func() {
		w := s.do(http.MethodPost, "/elections/10/vote/paper", "authority-session", `{"voter_user_id":999}`)
		s.Equal(http.StatusForbidden, w.Code)
	})
}

func (s *HandlerSuite) TestCounters() {
	e := s.seedElection()
	s.Require().Equal(http.StatusOK, s.do(http.MethodGet, "/elections/10/vote", "voter-session", "").Code)

	s.Run("election counter with valid token", func() {
		w := s.do(http.MethodGet, "/elections/10/votes_count/"+e.CounterToken(), "", "")
		s.Require().Equal(http.StatusOK, w.Code)
		var resp map[string]int64
		s.decode(w, &resp)
		s.Equal(int64(1), resp["votes"])
	})

	s.Run("election counter with wrong token", func() {
		w := s.do(http.MethodGet, "/elections/10/votes_count/wrong-token", "", "")
		s.Equal(http.StatusForbidden, w.Code)
	})

	s.Run("location counter", func() {
		l, err := s.store.Locations().Get(context.Background(), e.ID, "00")
		s.Require().NoError(err)

		w := s.do(http.MethodGet, "/elections/10/locations/00/votes_count/"+l.CounterToken(e), "", "")
		s.Require().Equal(http.StatusOK, w.Code)
		var resp map[string]int64
		s.decode(w, &resp)
		s.Equal(int64(1), resp["votes"])
	})

	s.Run("unknown location", func() {
		w := s.do(http.MethodGet, "/elections/10/locations/99/votes_count/whatever", "", "")
		s.Equal(http.StatusNotFound, w.Code)
	})
}
