package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	testutil "github.com/jwtly10/gh-relay/internal/testutils"
)

func TestRecordAndList(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	repo := NewHistoryRepository(db)

	base := time.Now().Add(-time.Minute)
	for i, outcome := range []string{"ok", "upstream", "invalid_target"} {
		e, err := repo.Record(&Entry{
			InvocationID: "inv-" + outcome,
			Transport:    "http",
			Method:       "GET",
			URL:          "https://api.github.com/user",
			Outcome:      outcome,
			Duration:     int64(10 * i),
			CreatedAt:    base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
		require.NotZero(t, e.ID)
	}

	entries, err := repo.Recent(0)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Newest first
	require.Equal(t, "invalid_target", entries[0].Outcome)
	require.Equal(t, "ok", entries[2].Outcome)
	require.Equal(t, int64(20), entries[0].Duration)

	entries, err = repo.Recent(2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestRecordKeepsUpstreamDetail(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	repo := NewHistoryRepository(db)

	_, err := repo.Record(&Entry{
		InvocationID:   "abc",
		Transport:      "ws",
		Method:         "POST",
		URL:            "https://github.com/login/oauth/access_token",
		Outcome:        "upstream",
		UpstreamStatus: 404,
		Error:          "GitHub request failed (404 Not Found): Not Found",
	})
	require.NoError(t, err)

	entries, err := repo.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, 404, entries[0].UpstreamStatus)
	require.Equal(t, "ws", entries[0].Transport)
	require.Contains(t, entries[0].Error, "Not Found")
	require.False(t, entries[0].CreatedAt.IsZero())
}
