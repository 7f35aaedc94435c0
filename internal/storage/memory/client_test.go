package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/airdroptracker/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_SaveGetDelete(t *testing.T) {
	ctx := context.Background()
	c := New()

	got, err := c.GetSession(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	s := &model.Session{ID: "s1", Email: "a@b.com", PendingCode: "123456"}
	require.NoError(t, c.SaveSession(ctx, s, time.Hour))
	s.PendingCode = "changed after save"

	got, err = c.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "123456", got.PendingCode)
	assert.Equal(t, model.StateCodePending, got.State())

	require.NoError(t, c.DeleteSession(ctx, "s1"))
	got, err = c.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSession_Expired(t *testing.T) {
	ctx := context.Background()
	c := New()
	require.NoError(t, c.SaveSession(ctx, &model.Session{ID: "s1"}, -time.Second))
	got, err := c.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRecords_PartitionedByIdentity(t *testing.T) {
	ctx := context.Background()
	c := New()

	empty, err := c.Load(ctx, "alice")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	require.NoError(t, c.Save(ctx, "alice", []model.Record{{Protocol: "LayerZero"}, {Protocol: "zkSync"}}))
	require.NoError(t, c.Save(ctx, "bob", []model.Record{{Protocol: "Scroll"}}))
	require.NoError(t, c.Save(ctx, "alice", []model.Record{{Protocol: "Starknet"}}))

	alice, err := c.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []model.Record{{Protocol: "Starknet"}}, alice)

	bob, err := c.Load(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []model.Record{{Protocol: "Scroll"}}, bob)

	alice[0].Protocol = "mutated"
	again, _ := c.Load(ctx, "alice")
	assert.Equal(t, "Starknet", again[0].Protocol)
}

func TestAccounts(t *testing.T) {
	ctx := context.Background()
	c := New()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, c.UpsertAccount(ctx, "id-b", "b@x.com", t0.Add(time.Hour)))
	require.NoError(t, c.UpsertAccount(ctx, "id-a", "a@x.com", t0))
	require.NoError(t, c.UpsertAccount(ctx, "id-a", "a@x.com", t0.Add(2*time.Hour)))

	list, err := c.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "id-a", list[0].Identity)
	assert.Equal(t, t0, list[0].CreatedAt)
	assert.Equal(t, t0.Add(2*time.Hour), list[0].LastLoginAt)
	assert.Nil(t, list[0].LastAlertAt)

	require.NoError(t, c.MarkAlerted(ctx, "id-a", t0.Add(3*time.Hour)))
	acc, err := c.GetAccountByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.NotNil(t, acc.LastAlertAt)
	assert.Equal(t, t0.Add(3*time.Hour), *acc.LastAlertAt)

	none, err := c.GetAccountByEmail(ctx, "nobody@x.com")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestSubscriptions_CapAndDelete(t *testing.T) {
	ctx := context.Background()
	c := New()
	for i := 0; i < maxSubscriptions+2; i++ {
		require.NoError(t, c.SaveSubscription(ctx, "id", model.PushSubscription{Endpoint: fmt.Sprintf("https://push/%d", i)}))
	}
	require.NoError(t, c.SaveSubscription(ctx, "id", model.PushSubscription{Endpoint: "https://push/5", Auth: "new"}))

	subs, err := c.ListSubscriptions(ctx, "id")
	require.NoError(t, err)
	require.Len(t, subs, maxSubscriptions)
	assert.Equal(t, "https://push/2", subs[0].Endpoint)
	assert.Equal(t, "new", subs[3].Auth)

	require.NoError(t, c.DeleteSubscription(ctx, "id", "https://push/2"))
	subs, _ = c.ListSubscriptions(ctx, "id")
	assert.Len(t, subs, maxSubscriptions-1)
	assert.Equal(t, "https://push/3", subs[0].Endpoint)
}
