package evaluation

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumber_Unmarshal(t *testing.T) {
	tests := []struct {
		raw   string
		want  float64
		valid bool
	}{
		{`7`, 7, true},
		{`7.5`, 7.5, true},
		{`"12"`, 12, true},
		{`" 3 "`, 3, true},
		{`null`, 0, false},
		{`"abc"`, 0, false},
		{`{"x":1}`, 0, false},
		{`[1]`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var n Number
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &n))
			assert.Equal(t, tt.valid, n.Valid)
			assert.Equal(t, tt.want, n.Value)
		})
	}
}

func TestNumber_Marshal(t *testing.T) {
	data, err := json.Marshal(struct {
		A Number `json:"a"`
		B Number `json:"b"`
	}{A: Num(2), B: Number{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":2,"b":null}`, string(data))
}

func TestTimestamp_Unmarshal(t *testing.T) {
	want := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for _, raw := range []string{`"2024-05-01T10:00:00Z"`, `"2024-05-01T10:00:00.000Z"`, `1714557600000`} {
		var ts Timestamp
		require.NoError(t, json.Unmarshal([]byte(raw), &ts))
		require.NotNil(t, ts.Ptr(), raw)
		assert.True(t, want.Equal(*ts.Ptr()), raw)
	}

	for _, raw := range []string{`""`, `"soon"`, `null`, `0`, `true`} {
		var ts Timestamp
		require.NoError(t, json.Unmarshal([]byte(raw), &ts))
		assert.Nil(t, ts.Ptr(), raw)
	}

	var nilTS *Timestamp
	assert.Nil(t, nilTS.Ptr())
}
