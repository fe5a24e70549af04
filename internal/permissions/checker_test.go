package permissions

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mdnaeem95/halaltech/internal/database/testutil"
	"github.com/mdnaeem95/halaltech/internal/models"
)

func TestRegistryRejectsBadDefinitions(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&Permission{ID: "a", Module: "test"}))
	require.ErrorIs(t, r.Register(&Permission{ID: "a"}), errDuplicateID)
	require.ErrorIs(t, r.Register(&Permission{ID: " "}), errEmptyID)
	require.ErrorIs(t, r.Register(nil), errNilPermission)
	require.ErrorIs(t, r.Register(&Permission{ID: "b", DependsOn: []string{"b"}}), errSelfDependency)
	require.ErrorIs(t, r.Register(&Permission{ID: "c", Implies: []string{"c"}}), errSelfImplication)

	require.NoError(t, r.Register(&Permission{ID: "d", DependsOn: []string{"missing"}}))
	require.Error(t, r.Validate())

	require.ErrorIs(t, r.Grant("superuser", "a"), errUnknownRole)
	require.ErrorIs(t, r.Grant(models.RoleClient, "nope"), ErrUnknownPermission)
}

func TestResolveDependencies(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&Permission{ID: "base"}))
	require.NoError(t, r.Register(&Permission{ID: "mid", DependsOn: []string{"base"}}))
	require.NoError(t, r.Register(&Permission{ID: "top", DependsOn: []string{"mid"}}))

	deps, err := r.ResolveDependencies("top")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"base", "mid"}, deps)

	require.NoError(t, r.Register(&Permission{ID: "x", DependsOn: []string{"y"}}))
	require.NoError(t, r.Register(&Permission{ID: "y", DependsOn: []string{"x"}}))
	_, err = r.ResolveDependencies("x")
	require.ErrorIs(t, err, ErrCircularDependency)
}

func TestAllowsRequiresDependencies(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&Permission{ID: "view"}))
	require.NoError(t, r.Register(&Permission{ID: "edit", DependsOn: []string{"view"}}))
	require.NoError(t, r.Register(&Permission{ID: "owner", Implies: []string{"view"}}))

	require.NoError(t, r.Grant(models.RoleClient, "edit"))
	ok, err := r.Allows(models.RoleClient, "edit")
	require.NoError(t, err)
	require.False(t, ok, "edit without view")

	require.NoError(t, r.Grant(models.RoleClient, "owner"))
	ok, err = r.Allows(models.RoleClient, "edit")
	require.NoError(t, err)
	require.True(t, ok, "owner implies view")

	ok, err = r.Allows(models.RoleAdmin, "edit")
	require.NoError(t, err)
	require.True(t, ok)

	_, err = r.Allows(models.RoleClient, "unknown")
	require.ErrorIs(t, err, ErrUnknownPermission)
}

func TestDefaultRoleGrants(t *testing.T) {
	cases := []struct {
		role       string
		permission string
		allowed    bool
	}{
		{models.RoleClient, "quote.respond", true},
		{models.RoleClient, "quote.manage", false},
		{models.RoleClient, "dashboard.client", true},
		{models.RoleServiceProvider, "freelancer.onboard", true},
		{models.RoleServiceProvider, "project.create", false},
		{models.RoleServiceProvider, "message.send", true},
		{models.RoleAdmin, "marketplace.seed", true},
		{models.RoleAdmin, "application.review", true},
	}
	for _, tc := range cases {
		ok, err := Default.Allows(tc.role, tc.permission)
		require.NoError(t, err)
		require.Equal(t, tc.allowed, ok, "%s %s", tc.role, tc.permission)
	}
}

func TestCheckerUsesStoredRole(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	checker, err := NewChecker(db, nil)
	require.NoError(t, err)

	client := &models.Profile{Email: "client@example.com", PasswordHash: "x", Role: models.RoleClient, IsActive: true}
	require.NoError(t, db.Create(client).Error)

	ok, err := checker.Check(t.Context(), client.ID, "project.create")
	require.NoError(t, err)
	require.True(t, ok)

	perms, err := checker.ProfilePermissions(t.Context(), client.ID)
	require.NoError(t, err)
	require.Contains(t, perms, "invoice.view")
	require.NotContains(t, perms, "invoice.manage")

	require.NoError(t, db.Model(client).Update("is_active", false).Error)
	ok, err = checker.Check(t.Context(), client.ID, "project.create")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = checker.Check(t.Context(), "missing", "project.view")
	require.Error(t, err)
}
