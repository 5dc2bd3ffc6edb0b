package livestate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEventValidation(t *testing.T) {
	p := profile(t, "football")

	ev, err := DecodeEvent([]byte(`{"id":"e1","type":"GOAL","side":"home","minute":12}`), p)
	require.NoError(t, err)
	assert.Equal(t, "e1", ev.ID)
	assert.Equal(t, SideHome, ev.Side)

	cases := map[string]string{
		"missing id":     `{"type":"GOAL","side":"home"}`,
		"missing type":   `{"id":"e1","side":"home"}`,
		"bad side":       `{"id":"e1","type":"GOAL","side":"left"}`,
		"negative min":   `{"id":"e1","type":"GOAL","side":"home","minute":-3}`,
		"not an object":  `[1,2,3]`,
	}
	for name, payload := range cases {
		_, err := DecodeEvent([]byte(payload), p)
		assert.Error(t, err, name)
	}

	// Unknown event types pass through: display-only, catalogs lag.
	_, err = DecodeEvent([]byte(`{"id":"e2","type":"STREAKER","side":"away","minute":60}`), p)
	assert.NoError(t, err)
}

func TestDecodeScoreValidation(t *testing.T) {
	home, away, err := DecodeScore([]byte(`{"home":2,"away":1}`))
	require.NoError(t, err)
	assert.Equal(t, 2, home)
	assert.Equal(t, 1, away)

	_, _, err = DecodeScore([]byte(`{"home":2}`))
	assert.Error(t, err)

	_, _, err = DecodeScore([]byte(`{"home":-1,"away":0}`))
	assert.Error(t, err)
}

func TestDecodeStatusValidation(t *testing.T) {
	status, err := DecodeStatus([]byte(`{"status":"halftime"}`))
	require.NoError(t, err)
	assert.Equal(t, "halftime", string(status))

	_, err = DecodeStatus([]byte(`{}`))
	assert.Error(t, err)
}
