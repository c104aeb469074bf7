package actions_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/hegemon/internal/actions"
	"github.com/talgya/hegemon/internal/organization"
)

func catalog(t *testing.T) *actions.Catalog {
	t.Helper()
	c, err := actions.NewCatalog(actions.DefaultActions())
	require.NoError(t, err)
	return c
}

func TestLookup(t *testing.T) {
	c := catalog(t)
	a, err := c.Lookup("crackdown")
	require.NoError(t, err)
	assert.Equal(t, 20, a.CooldownDays)

	_, err = c.Lookup("purge")
	assert.ErrorIs(t, err, actions.ErrUnknownAction)
	assert.Len(t, c.All(), 6)
}

func TestNewCatalogRejectsDuplicates(t *testing.T) {
	list := actions.DefaultActions()
	list = append(list, list[0])
	_, err := actions.NewCatalog(list)
	assert.Error(t, err)
}

func TestCooldown(t *testing.T) {
	c := catalog(t)
	a, _ := c.Lookup("concessions")
	cd := actions.Cooldowns{}
	ctx := actions.Context{Stratum: "peasants", Day: 10, Stage: organization.StageDiscontent, Treasury: 10000}

	_, err := actions.Invoke(a, ctx, cd)
	require.NoError(t, err)

	ctx.Day = 39
	assert.ErrorIs(t, actions.Check(a, ctx, cd), actions.ErrOnCooldown)

	ctx.Day = 40
	assert.NoError(t, actions.Check(a, ctx, cd))

	// Cooldowns are per stratum.
	other := ctx
	other.Stratum = "nobility"
	other.Day = 11
	assert.NoError(t, actions.Check(a, other, cd))

	ready, ok := cd.ReadyDay("peasants", a)
	require.True(t, ok)
	assert.Equal(t, 40, ready)
}

func TestEligibilityFailures(t *testing.T) {
	c := catalog(t)
	a, _ := c.Lookup("coopt_leaders")

	assert.ErrorIs(t, actions.Check(a, actions.Context{Stratum: "p", Stage: organization.StageRadical, Treasury: 100}, actions.Cooldowns{}), actions.ErrInsufficientFunds)
	assert.ErrorIs(t, actions.Check(a, actions.Context{Stratum: "p", Stage: organization.StageMobilizing, Treasury: 1000}, actions.Cooldowns{}), actions.ErrPrecondition)
}

func TestInvokeEffects(t *testing.T) {
	c := catalog(t)
	cd := actions.Cooldowns{}
	ctx := actions.Context{Stratum: "laborers", Day: 5, Stage: organization.StageMobilizing, Approval: 30, Treasury: 1000}

	crack, _ := c.Lookup("crackdown")
	out, err := actions.Invoke(crack, ctx, cd)
	require.NoError(t, err)
	assert.Equal(t, -15.0, out.OrganizationDelta)
	assert.Equal(t, -10.0, out.ApprovalDelta)
	require.NotNil(t, out.Suppression)
	assert.Equal(t, 20, out.Suppression.UntilDay)
	assert.Equal(t, 300.0, out.Cost)

	promise, _ := c.Lookup("promise_reform")
	out, err = actions.Invoke(promise, ctx, cd)
	require.NoError(t, err)
	require.NotNil(t, out.Promise)
	assert.Equal(t, 45.0, out.Promise.TargetApproval)
	assert.Equal(t, 35, out.Promise.DeadlineDay)
	assert.Equal(t, "laborers", string(out.Promise.Stratum))

	entries := cd.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "crackdown", entries[0].Action)
}
