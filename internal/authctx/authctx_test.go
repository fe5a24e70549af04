package authctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mdnaeem95/halaltech/internal/models"
)

func TestSessionRoundTrip(t *testing.T) {
	_, ok := FromContext(context.Background())
	require.False(t, ok)

	profile := &models.Profile{BaseModel: models.BaseModel{ID: "p-1"}, Email: "a@example.com", Role: models.RoleAdmin}
	ctx := WithSession(context.Background(), FromProfile(profile, "s-1", "10.0.0.1", "ua"))

	session, ok := FromContext(ctx)
	require.True(t, ok)
	require.Equal(t, "p-1", session.ProfileID)
	require.Equal(t, "s-1", session.SessionID)
	require.True(t, session.IsAdmin())
	require.True(t, session.HasRole(models.RoleClient, models.RoleAdmin))
	require.False(t, session.HasRole(models.RoleServiceProvider))
}

func TestEmptySessionIsIgnored(t *testing.T) {
	ctx := WithSession(context.Background(), Session{})
	_, ok := FromContext(ctx)
	require.False(t, ok)
}
