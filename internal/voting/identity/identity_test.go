package identity

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "plebis/pkg/domain-errors"

	"plebis/internal/voting/models"
)

var hexRe = regexp.MustCompile(`^[a-f0-9]{64}$`)

func testUser(id int64) *models.User {
	return &models.User{
		ID:            id,
		DocumentType:  models.DocumentDNI,
		DocumentVatID: "12345678A",
		CreatedAt:     time.Now(),
	}
}

func testElection(id int64) *models.Election {
	return &models.Election{ID: id, Title: "Test Election", AgoraElectionID: 12345}
}

func TestDeriveVoterID(t *testing.T) {
	t.Run("produces a 64 char lowercase hex string", func(t *testing.T) {
		id, err := DeriveVoterID(testUser(7), testElection(42))
		require.NoError(t, err)
		assert.Regexp(t, hexRe, id)
	})

	t.Run("is deterministic", func(t *testing.T) {
		first, err := DeriveVoterID(testUser(7), testElection(42))
		require.NoError(t, err)
		second, err := DeriveVoterID(testUser(7), testElection(42))
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("differs across users", func(t *testing.T) {
		a, _ := DeriveVoterID(testUser(1), testElection(42))
		b, _ := DeriveVoterID(testUser(2), testElection(42))
		assert.NotEqual(t, a, b)
	})

	t.Run("differs across elections for the same user", func(t *testing.T) {
		a, _ := DeriveVoterID(testUser(7), testElection(42))
		b, _ := DeriveVoterID(testUser(7), testElection(43))
		assert.NotEqual(t, a, b)
	})

	t.Run("uses custom template when provided", func(t *testing.T) {
		election := testElection(42)
		election.VoterIDTemplate = "%<user_id>s"
		withTemplate, err := DeriveVoterID(testUser(7), election)
		require.NoError(t, err)
		withDefault, err := DeriveVoterID(testUser(7), testElection(42))
		require.NoError(t, err)
		assert.NotEqual(t, withDefault, withTemplate)
	})

	t.Run("fails when user or election is missing", func(t *testing.T) {
		_, err := DeriveVoterID(nil, testElection(42))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		assert.Equal(t, "could not generate voter id", dErrors.MessageOf(err))

		_, err = DeriveVoterID(testUser(7), nil)
		require.Error(t, err)
	})
}

func TestTemplateValues(t *testing.T) {
	values := NewTemplateValues(testUser(7), testElection(42))

	t.Run("expands known placeholders", func(t *testing.T) {
		assert.Equal(t, "7:42", values.Expand("%<user_id>s:%<election_id>s"))
	})

	t.Run("unknown placeholders resolve to a literal fallback", func(t *testing.T) {
		assert.Equal(t, "%<key>s-7", values.Expand("%<mystery>s-%<user_id>s"))
	})

	t.Run("plain text passes through", func(t *testing.T) {
		assert.Equal(t, "static", values.Expand("static"))
	})
}

func TestNormalizeIdentifier(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"ABC-123.456", "ABC123456"},
		{"abc123xyz", "ABC123XYZ"},
		{"00123ABC00456", "123ABC456"},
		{"12345678A", "12345678A"},
		{"01234567-A", "1234567A"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeIdentifier(tc.in), "input %q", tc.in)
	}
}

func TestNormalizedVatID(t *testing.T) {
	assert.Equal(t, "DNI12345678A", NormalizedVatID(true, "12345678A"))
	assert.Equal(t, "PASSABC123456", NormalizedVatID(false, "ABC123456"))
	assert.Equal(t, "DNI1234567A", NormalizedVatID(true, "01234567-A"))
}
