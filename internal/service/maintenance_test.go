package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/airdroptracker/internal/cipher"
	"github.com/airdroptracker/internal/identity"
	"github.com/airdroptracker/internal/model"
	"github.com/airdroptracker/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptLegacyWallets(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	c, err := cipher.New(cipher.StaticKey(bytes.Repeat([]byte{3}, 32)))
	require.NoError(t, err)

	already, err := c.Encrypt("0xsecure")
	require.NoError(t, err)
	require.NoError(t, store.UpsertAccount(ctx, "id-a", "a@x.com", time.Now()))
	require.NoError(t, store.UpsertAccount(ctx, "id-b", "b@x.com", time.Now()))
	require.NoError(t, store.Save(ctx, "id-a", []model.Record{
		{Protocol: "P", Wallet: "0xplain"},
		{Protocol: "Q", Wallet: already},
		{Protocol: "R"},
	}))
	require.NoError(t, store.Save(ctx, "id-b", []model.Record{{Protocol: "S", Wallet: already}}))

	rep, err := EncryptLegacyWallets(ctx, store, store, c)
	require.NoError(t, err)
	assert.Equal(t, EncryptReport{Identities: 2, Encrypted: 1}, rep)

	recs, err := store.Load(ctx, "id-a")
	require.NoError(t, err)
	assert.True(t, c.IsToken(recs[0].Wallet))
	assert.Equal(t, "0xplain", c.Decrypt(recs[0].Wallet))
	assert.Equal(t, already, recs[1].Wallet)
	assert.Empty(t, recs[2].Wallet)

	// повторный запуск ничего не меняет
	rep, err = EncryptLegacyWallets(ctx, store, store, c)
	require.NoError(t, err)
	assert.Zero(t, rep.Encrypted)
}

func TestEncryptLegacyWallets_RequiresCipher(t *testing.T) {
	store := memory.New()
	_, err := EncryptLegacyWallets(context.Background(), store, store, cipher.Disabled())
	assert.Error(t, err)
}

func TestExportRecords(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	c, err := cipher.New(cipher.StaticKey(bytes.Repeat([]byte{4}, 32)))
	require.NoError(t, err)
	tok, err := c.Encrypt("0xabc")
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, identity.Derive("a@x.com"), []model.Record{{Protocol: "P", Wallet: tok}}))

	id, recs, err := ExportRecords(ctx, store, c, " A@X.com ")
	require.NoError(t, err)
	assert.Equal(t, identity.Derive("a@x.com"), id)
	require.Len(t, recs, 1)
	assert.Equal(t, "0xabc", recs[0].Wallet)

	_, _, err = ExportRecords(ctx, store, c, "nope")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, _, err = ExportRecords(ctx, &brokenStore{loadErr: assert.AnError}, c, "a@x.com")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}
