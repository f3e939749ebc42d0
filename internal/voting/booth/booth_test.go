package booth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plebis/internal/platform/config"
	"plebis/internal/voting/models"
)

func testServers() config.BoothServers {
	return config.BoothServers{
		Default: "default",
		Profiles: map[string]config.BoothProfile{
			"default": {URL: "https://booth.example.org/", SharedKey: "default-key"},
			"vocal":   {URL: "https://vocal.example.org/", SharedKey: "vocal-key"},
		},
	}
}

func TestBuildMessage(t *testing.T) {
	t.Run("field order and delimiter", func(t *testing.T) {
		msg := BuildMessage(100012, "deadbeef", 1700000000)
		assert.Equal(t, "AuthEvent:vote:100012:deadbeef:1700000000", msg)
	})
}

func TestSign(t *testing.T) {
	t.Run("hex sha256 hmac", func(t *testing.T) {
		msg := "AuthEvent:vote:100012:deadbeef:1700000000"
		sig := Sign(msg, "vocal-key")
		require.Len(t, sig, 64)
		assert.Regexp(t, "^[0-9a-f]{64}$", sig)

		mac := hmac.New(sha256.New, []byte("vocal-key"))
		mac.Write([]byte(msg))
		assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), sig)
	})

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, Sign("m", "k"), Sign("m", "k"))
	})

	t.Run("key sensitive", func(t *testing.T) {
		assert.NotEqual(t, Sign("m", "k1"), Sign("m", "k2"))
	})

	t.Run("message sensitive", func(t *testing.T) {
		assert.NotEqual(t, Sign("m1", "k"), Sign("m2", "k"))
	})
}

func TestAuthorizerURLs(t *testing.T) {
	a := New(testServers(), false)
	e := &models.Election{ID: 1, Server: "vocal"}

	t.Run("delegation url shape", func(t *testing.T) {
		url := a.DelegationURL(e, 100012, "deadbeef", 1700000000)
		msg := "AuthEvent:vote:100012:deadbeef:1700000000"
		want := "https://vocal.example.org/booth/" + Sign(msg, "vocal-key") + "/vote/" + msg
		assert.Equal(t, want, url)
	})

	t.Run("signed token is hash slash message", func(t *testing.T) {
		tok := a.SignedToken(e, 100012, "deadbeef", 1700000000)
		msg := "AuthEvent:vote:100012:deadbeef:1700000000"
		assert.Equal(t, Sign(msg, "vocal-key")+"/"+msg, tok)
	})

	t.Run("unknown profile falls back to default", func(t *testing.T) {
		other := &models.Election{ID: 2, Server: "missing"}
		url := a.DelegationURL(other, 5, "ff", 1)
		assert.Contains(t, url, "https://booth.example.org/booth/")
	})

	t.Run("empty config degrades to relative url", func(t *testing.T) {
		bare := New(config.BoothServers{}, false)
		url := bare.DelegationURL(e, 5, "ff", 1)
		assert.Regexp(t, "^booth/", url)
	})
}

func TestTestURL(t *testing.T) {
	e := &models.Election{ID: 1, Server: "vocal"}

	t.Run("disabled outside sandbox", func(t *testing.T) {
		a := New(testServers(), false)
		assert.Empty(t, a.TestURL(e, 100012, "deadbeef", 1700000000))
	})

	t.Run("exposes shared key in sandbox", func(t *testing.T) {
		a := New(testServers(), true)
		url := a.TestURL(e, 100012, "deadbeef", 1700000000)
		assert.Equal(t, "https://vocal.example.org/test_hmac/vocal-key/AuthEvent:vote:100012:deadbeef:1700000000", url)
	})
}
