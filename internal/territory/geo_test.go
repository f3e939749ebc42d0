package territory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutonomyForProvince(t *testing.T) {
	t.Run("every province has an autonomy", func(t *testing.T) {
		for province := range provinceNames {
			code, name, ok := AutonomyForProvince(province)
			require.True(t, ok, "province %s", province)
			assert.Regexp(t, "^c_[0-9]{2}$", code)
			assert.NotEmpty(t, name)
		}
	})

	t.Run("known mappings", func(t *testing.T) {
		code, name, ok := AutonomyForProvince("p_28")
		require.True(t, ok)
		assert.Equal(t, "c_13", code)
		assert.Equal(t, "Comunidad de Madrid", name)

		code, _, ok = AutonomyForProvince("p_41")
		require.True(t, ok)
		assert.Equal(t, "c_01", code)
	})

	t.Run("unknown province", func(t *testing.T) {
		_, _, ok := AutonomyForProvince("p_99")
		assert.False(t, ok)
	})
}

func TestIslandForTown(t *testing.T) {
	code, name, ok := IslandForTown("m_07040")
	require.True(t, ok)
	assert.Equal(t, "i_01", code)
	assert.Equal(t, "Mallorca", name)

	_, _, ok = IslandForTown("m_28079")
	assert.False(t, ok)
}

func TestSoftNameLookups(t *testing.T) {
	assert.Equal(t, "Madrid", ProvinceName("p_28"))
	assert.Empty(t, ProvinceName("p_99"))

	assert.Equal(t, "Canarias", AutonomyName("p_35"))
	assert.Empty(t, AutonomyName("nope"))

	assert.Equal(t, "Spain", CountryName("ES"))
	assert.Empty(t, CountryName("ZZ"))
}

func TestVoteCircleHelpers(t *testing.T) {
	t.Run("code in spain", func(t *testing.T) {
		assert.True(t, (&VoteCircle{Code: "TB0101001"}).CodeInSpain())
		assert.True(t, (&VoteCircle{Code: "TM0101001"}).CodeInSpain())
		assert.True(t, (&VoteCircle{Code: "TC0101001"}).CodeInSpain())
		assert.False(t, (&VoteCircle{Code: "IP001"}).CodeInSpain())
		assert.False(t, (&VoteCircle{Code: "XX0101001"}).CodeInSpain())
	})

	t.Run("type prefix", func(t *testing.T) {
		assert.Equal(t, "TB", (&VoteCircle{Kind: KindBarrial, OriginalCode: "TB0101001"}).TypePrefix())
		assert.Equal(t, "00", (&VoteCircle{Kind: KindExterior, OriginalCode: "DE001"}).TypePrefix())
		assert.Equal(t, "00", (&VoteCircle{Kind: KindComarcal}).TypePrefix())
	})

	t.Run("kind names", func(t *testing.T) {
		assert.Equal(t, "interno", KindInterno.String())
		assert.Equal(t, "exterior", KindExterior.String())
	})

	t.Run("country name is soft", func(t *testing.T) {
		es := "ES"
		assert.Equal(t, "Spain", (&VoteCircle{CountryCode: &es}).CountryName())
		assert.Empty(t, (&VoteCircle{}).CountryName())
	})
}
