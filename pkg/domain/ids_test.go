package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMemberID(t *testing.T) {
	t.Run("accepts both tail lengths", func(t *testing.T) {
		for _, raw := range []string{"MSW12345678901", "MPW1234567890"} {
			id, err := ParseMemberID(raw)
			require.NoError(t, err, raw)
			assert.Equal(t, raw, id.String())
			assert.False(t, id.IsNil())
		}
	})

	t.Run("rejects malformed values", func(t *testing.T) {
		for _, raw := range []string{
			"",
			"MSW123",                 // tail too short
			"MSW123456789012",        // tail too long
			"XSW12345678901",         // wrong prefix
			"MsW12345678901",         // lowercase group code
			"MSW1234567890a",         // non-digit tail
			" MSW12345678901",        // leading space
			"M1W12345678901",         // digit group code
		} {
			_, err := ParseMemberID(raw)
			require.ErrorIs(t, err, ErrInvalidMemberID, "%q", raw)
		}
	})
}

func TestParseGroup(t *testing.T) {
	t.Run("accepts requestable groups with normalization", func(t *testing.T) {
		g, err := ParseGroup("  Standard-Members ")
		require.NoError(t, err)
		assert.Equal(t, GroupStandard, g)
		assert.Equal(t, "S", g.Code())
		assert.Equal(t, 11, g.TailLength())
	})

	t.Run("short tail groups", func(t *testing.T) {
		assert.Equal(t, 10, GroupPremium.TailLength())
		assert.Equal(t, 10, GroupTrial.TailLength())
		assert.Equal(t, 11, GroupStandard.TailLength())
	})

	t.Run("newsletter group is not requestable", func(t *testing.T) {
		_, err := ParseGroup("newsletter-subscribers")
		require.ErrorIs(t, err, ErrUnknownGroup)
	})

	t.Run("unknown group", func(t *testing.T) {
		_, err := ParseGroup("board-members")
		require.ErrorIs(t, err, ErrUnknownGroup)
	})
}

func TestParseSourceChannel(t *testing.T) {
	codes := map[string]string{"web": "W", "mobile": "A", "import": "I", "partner": "B"}
	for raw, code := range codes {
		c, err := ParseSourceChannel(raw)
		require.NoError(t, err)
		assert.Equal(t, code, c.Code())
	}

	_, err := ParseSourceChannel("fax")
	require.ErrorIs(t, err, ErrUnknownSource)
}
