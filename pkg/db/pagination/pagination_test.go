package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2026, 9, 1, 9, 45, 17, 670000000, time.UTC)

	token, err := EncodeCursor(Cursor{
		ID:        "1234567890",
		CreatedAt: at.Format(time.RFC3339Nano),
	})
	require.NoError(t, err)

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "1234567890", cursor.ID)

	parsed, err := cursor.Time()
	require.NoError(t, err)
	assert.True(t, parsed.Equal(at))
}

func TestCursorTimeRejectsGarbage(t *testing.T) {
	cursor := Cursor{CreatedAt: "not-a-timestamp"}
	_, err := cursor.Time()
	assert.Error(t, err)
}

func TestDecodeCursorRejectsBadToken(t *testing.T) {
	_, err := DecodeCursor("%%%not-base64%%%")
	assert.Error(t, err)
}

func TestBuildCursorPageInfo(t *testing.T) {
	rows := []*string{ptr("a"), ptr("b"), ptr("c"), ptr("d")}

	info := BuildCursorPageInfo(rows, 3, func(s *string) string { return *s })
	assert.True(t, info.HasMore)
	assert.Equal(t, "c", info.NextPageToken)

	info = BuildCursorPageInfo(rows[:2], 3, func(s *string) string { return *s })
	assert.False(t, info.HasMore)
	assert.Equal(t, "b", info.NextPageToken)

	info = BuildCursorPageInfo(nil, 3, func(s *string) string { return *s })
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)
}

func ptr(s string) *string { return &s }
