package journal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEntryContent_RoundTrip(t *testing.T) {
	now := time.Date(2025, 1, 10, 21, 15, 0, 0, time.UTC)
	c := EntryContent{
		Body:          "Hello world",
		CreatedAt:     now,
		UpdatedAt:     now,
		CoachPromptID: "p-42",
	}

	b, err := EncodeEntryContent(c)
	require.NoError(t, err)

	got, err := DecodeEntryContent(b)
	require.NoError(t, err)
	require.Equal(t, c, got)
}

func TestDecodeEntryContent_Garbage(t *testing.T) {
	_, err := DecodeEntryContent([]byte("not json"))
	require.Error(t, err)
}

func TestGoalContent_OptionalFields(t *testing.T) {
	c := GoalContent{Title: "run more", Priority: 2}

	b, err := EncodeGoalContent(c)
	require.NoError(t, err)
	require.NotContains(t, string(b), "deadline")

	got, err := DecodeGoalContent(b)
	require.NoError(t, err)
	require.Nil(t, got.Deadline)
	require.Equal(t, c.Title, got.Title)
}

func TestWordCount(t *testing.T) {
	tests := []struct {
		body string
		want int
	}{
		{"", 0},
		{"   ", 0},
		{"one", 1},
		{"Hello world", 2},
		{"  spaced\tout\nwords  here ", 4},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, WordCount(tc.body), "body=%q", tc.body)
	}
}
