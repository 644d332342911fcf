package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloseJSON(t *testing.T) {
	cases := map[string]string{
		`{"response": "Hel`:           `{"response": "Hel"}`,
		`{"response": "a\`:            `{"response": "a"}`,
		`{"a": 1,`:                    `{"a": 1}`,
		`{"a": `:                      `{"a":null}`,
		`{"q": {"options": ["x", "y`:  `{"q": {"options": ["x", "y"]}}`,
		`{"a": [1, 2], "b": {"c": 3}}`: `{"a": [1, 2], "b": {"c": 3}}`,
	}
	for in, want := range cases {
		assert.Equal(t, want, string(closeJSON([]byte(in))), in)
	}
}

func TestRepairJSON_FallsBackToShorterPrefix(t *testing.T) {
	snap, ok := repairJSON([]byte(`{"response": "hi", "compl`))
	require.True(t, ok)
	assert.JSONEq(t, `{"response": "hi"}`, string(snap))

	snap, ok = repairJSON([]byte(`{"complete": tr`))
	require.True(t, ok)
	assert.JSONEq(t, `{"complete": null}`, string(snap))

	_, ok = repairJSON([]byte(`no json yet`))
	assert.False(t, ok)
}

func TestPartialJSON_MonotonicSnapshots(t *testing.T) {
	full := `{"response": "Great job today!", "question": {"type": "scale", "min": 1, "max": 10}, "complete": false}`
	var acc partialJSON
	var snaps []string
	for i := 0; i < len(full); i += 3 {
		end := min(i+3, len(full))
		if snap, ok := acc.Append(full[i:end]); ok {
			require.True(t, json.Valid(snap), string(snap))
			snaps = append(snaps, string(snap))
		}
	}
	doc, _, err := acc.Final()
	require.NoError(t, err)
	assert.JSONEq(t, full, string(doc))
	require.NotEmpty(t, snaps)

	var last struct {
		Response string `json:"response"`
	}
	require.NoError(t, json.Unmarshal([]byte(snaps[len(snaps)-1]), &last))
	assert.Equal(t, "Great job today!", last.Response)

	for i := 1; i < len(snaps); i++ {
		assert.NotEqual(t, snaps[i-1], snaps[i], "duplicate snapshots are suppressed")
	}
}

func TestPartialJSON_FinalRejectsTruncated(t *testing.T) {
	var acc partialJSON
	acc.Append(`{"response": "cut off`)
	_, _, err := acc.Final()
	assert.ErrorIs(t, err, ErrMalformedJSON)
}
