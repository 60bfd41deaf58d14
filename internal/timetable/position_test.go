package timetable

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/timetable-editor/pkg/errors"
)

func TestPositionKeyRoundTrip(t *testing.T) {
	for _, day := range Days() {
		for _, pos := range []Position{
			{ClassID: 1, Day: day, Period: 0},
			{ClassID: 42, Day: day, Period: 7},
			{ClassID: 9000000001, Day: day, Period: 11},
		} {
			parsed, err := ParseKey(pos.Key())
			require.NoError(t, err)
			assert.Equal(t, pos, parsed)
		}
	}
	assert.Equal(t, Key("12:Tue:3"), Position{ClassID: 12, Day: Tuesday, Period: 3}.Key())
}

func TestPositionKeyIsInjective(t *testing.T) {
	seen := map[Key]Position{}
	for class := int64(1); class <= 12; class++ {
		for _, day := range Days() {
			for period := 0; period < 12; period++ {
				pos := Position{ClassID: class, Day: day, Period: period}
				prev, dup := seen[pos.Key()]
				require.False(t, dup, "key %s shared by %v and %v", pos.Key(), prev, pos)
				seen[pos.Key()] = pos
			}
		}
	}
}

func TestParseKeyRejectsMalformed(t *testing.T) {
	for _, raw := range []Key{"", "1:Mon", "x:Mon:0", "1:Sat:0", "1:Mon:-1", "1:Mon:a", "1:Mon:0:2"} {
		_, err := ParseKey(raw)
		require.Error(t, err, raw)
		assert.ErrorIs(t, err, appErrors.ErrValidation)
	}
}

func TestParseDayAcceptsLongNames(t *testing.T) {
	day, err := ParseDay("wednesday")
	require.NoError(t, err)
	assert.Equal(t, Wednesday, day)

	day, err = ParseDay(" fri ")
	require.NoError(t, err)
	assert.Equal(t, Friday, day)
}

func TestDayJSON(t *testing.T) {
	payload, err := json.Marshal(Position{ClassID: 3, Day: Thursday, Period: 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"classId":3,"day":"Thu","period":2}`, string(payload))

	var pos Position
	require.NoError(t, json.Unmarshal([]byte(`{"classId":3,"day":"MONDAY","period":1}`), &pos))
	assert.Equal(t, Position{ClassID: 3, Day: Monday, Period: 1}, pos)

	assert.Error(t, json.Unmarshal([]byte(`{"classId":3,"day":"Sun","period":1}`), &pos))
}
