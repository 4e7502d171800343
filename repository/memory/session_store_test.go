package memory

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/overlay/domain"
)

func fixedClock(t *time.Time) func() time.Time {
	return func() time.Time { return *t }
}

func TestRefreshAlwaysAdvancesFence(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 500_000_000)
	store := NewSessionStore(WithClock(fixedClock(&now)))

	session, err := store.Create(ctx, "42", "firefox", "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, int64(1_700_000_000), session.Fence())
	assert.Equal(t, session.AuthorizedAt, session.RefreshedAt)

	first, err := store.Refresh(ctx, session.ID)
	require.NoError(t, err)
	second, err := store.Refresh(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.Fence()+1, first.Fence())
	assert.Equal(t, session.Fence()+2, second.Fence())

	now = now.Add(time.Minute)
	third, err := store.Refresh(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, now.Truncate(time.Second), third.RefreshedAt)
	assert.Equal(t, session.AuthorizedAt, third.AuthorizedAt)
}

func TestRefreshStopsAtMaxFenceLead(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	store := NewSessionStore(WithClock(fixedClock(&now)))

	session, err := store.Create(ctx, "42", "firefox", "1.2.3.4")
	require.NoError(t, err)

	steps := int(domain.MaxFenceLead / time.Second)
	for i := 0; i < steps; i++ {
		_, err := store.Refresh(ctx, session.ID)
		require.NoError(t, err)
	}

	_, err = store.Refresh(ctx, session.ID)
	assert.ErrorIs(t, err, domain.ErrRefreshTooSoon)

	current, err := store.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, now.Add(domain.MaxFenceLead), current.RefreshedAt)

	now = now.Add(time.Second)
	_, err = store.Refresh(ctx, session.ID)
	assert.NoError(t, err)
}

func TestCreateReportsTakenID(t *testing.T) {
	store := NewSessionStore(WithIDGenerator(func() string { return "fixed" }))

	_, err := store.Create(context.Background(), "42", "", "")
	require.NoError(t, err)
	_, err = store.Create(context.Background(), "42", "", "")
	assert.ErrorIs(t, err, domain.ErrSessionIDTaken)
}

func TestOwnerScopedOperations(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	n := 0
	store := NewSessionStore(
		WithClock(fixedClock(&now)),
		WithIDGenerator(func() string { n++; return "s" + strconv.Itoa(n) }),
	)

	for _, user := range []string{"42", "42", "42", "7"} {
		_, err := store.Create(ctx, user, "", "")
		require.NoError(t, err)
		now = now.Add(time.Second)
	}

	list, err := store.ListOwnedBy(ctx, "42")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "s3", list[0].ID)

	assert.ErrorIs(t, store.DeleteOwnedBy(ctx, "s4", "42"), domain.ErrSessionNotFound)
	require.NoError(t, store.DeleteAllOwnedByExcept(ctx, "42", "s2"))

	list, err = store.ListOwnedBy(ctx, "42")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "s2", list[0].ID)
	assert.Equal(t, 2, store.Len())

	require.NoError(t, store.Delete(ctx, "s2"))
	assert.ErrorIs(t, store.Delete(ctx, "s2"), domain.ErrSessionNotFound)
	_, err = store.Refresh(ctx, "s2")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
