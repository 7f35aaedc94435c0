package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/airdroptracker/internal/cipher"
	"github.com/airdroptracker/internal/identity"
	"github.com/airdroptracker/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authedSession() *model.Session {
	return &model.Session{ID: "sess-1", Email: "a@b.com", Identity: "id-a", Authenticated: true, Loaded: true, Records: []model.Record{}}
}

func TestRecords_RequireAuthentication(t *testing.T) {
	ctx := context.Background()
	svc := NewRecordService(&brokenStore{})
	anon := &model.Session{Records: []model.Record{{Protocol: "leak"}}}

	_, err := svc.List(anon)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	_, err = svc.Add(ctx, anon, model.Record{Protocol: "x"}, false)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.ErrorIs(t, svc.Update(ctx, anon, 0, model.Record{Protocol: "x"}), ErrNotAuthenticated)
	assert.ErrorIs(t, svc.Delete(ctx, anon, 0), ErrNotAuthenticated)
	assert.ErrorIs(t, svc.ReplaceAll(ctx, anon, nil), ErrNotAuthenticated)
	assert.ErrorIs(t, svc.Sync(ctx, anon), ErrNotAuthenticated)
	_, err = svc.Stats(anon)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestRecords_AddUpdateDeletePersistWholeCollection(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := &brokenStore{}
	notifier := &fakeNotifier{}
	svc := NewRecordService(store, WithRecordClock(clock.Now), WithNotifier(notifier))
	s := authedSession()

	res, err := svc.Add(ctx, s, model.Record{Protocol: "  LayerZero ", ExpectedDate: "2026-05-01", TxCount: 3}, false)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Index)
	res, err = svc.Add(ctx, s, model.Record{Protocol: "Scroll", Status: model.StatusUpcoming, Activity: "2026/01/01"}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Index)

	first := s.Records[0]
	assert.Equal(t, "LayerZero", first.Protocol)
	assert.Equal(t, model.StatusActive, first.Status)
	assert.Equal(t, "2026/05/01", first.ExpectedDate)
	assert.Equal(t, "2026/04/10", first.Activity)
	assert.Equal(t, "2026/01/01", s.Records[1].Activity)
	assert.Equal(t, s.Records, store.saved["id-a"])

	require.NoError(t, svc.Update(ctx, s, 0, model.Record{Protocol: "LayerZero", Status: model.StatusCompleted}))
	assert.Equal(t, model.StatusCompleted, s.Records[0].Status)
	assert.Empty(t, s.Records[0].Activity, "edit is a full replace")

	require.NoError(t, svc.Delete(ctx, s, 0))
	require.Len(t, s.Records, 1)
	assert.Equal(t, "Scroll", s.Records[0].Protocol)
	assert.Equal(t, s.Records, store.saved["id-a"])

	assert.ErrorIs(t, svc.Update(ctx, s, 5, model.Record{Protocol: "x"}), ErrRecordNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, s, -1), ErrRecordNotFound)
	assert.Len(t, notifier.events, 4)
	assert.Equal(t, "id-a|sess-1", notifier.events[0])
}

func TestRecords_Validation(t *testing.T) {
	ctx := context.Background()
	store := &brokenStore{}
	svc := NewRecordService(store)
	s := authedSession()

	for _, rec := range []model.Record{
		{Protocol: "   "},
		{Protocol: "x", Status: "Paused"},
		{Protocol: "x", TxCount: -1},
	} {
		_, err := svc.Add(ctx, s, rec, false)
		assert.ErrorIs(t, err, ErrInvalidRecord)
	}
	assert.Empty(t, s.Records)
	assert.Empty(t, store.saved)

	err := svc.ReplaceAll(ctx, s, []model.Record{{Protocol: "ok"}, {Protocol: ""}})
	assert.ErrorIs(t, err, ErrInvalidRecord)
	assert.Contains(t, err.Error(), "row 2")
	assert.Empty(t, s.Records)
}

func TestRecords_SaveFailureKeepsDataInMemory(t *testing.T) {
	ctx := context.Background()
	store := &brokenStore{saveErr: errors.New("quota exceeded")}
	notifier := &fakeNotifier{}
	svc := NewRecordService(store, WithNotifier(notifier))
	s := authedSession()

	res, err := svc.Add(ctx, s, model.Record{Protocol: "Blast"}, false)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Equal(t, 0, res.Index)
	require.Len(t, s.Records, 1)
	assert.True(t, s.Unsaved)
	assert.Empty(t, notifier.events)

	store.saveErr = nil
	require.NoError(t, svc.Sync(ctx, s))
	assert.False(t, s.Unsaved)
	assert.Equal(t, s.Records, store.saved["id-a"])

	// нечего синхронизировать - хранилище не трогаем
	store.saveErr = errors.New("should not be called")
	require.NoError(t, svc.Sync(ctx, s))
}

func TestRecords_ReplaceAll(t *testing.T) {
	ctx := context.Background()
	store := &brokenStore{}
	svc := NewRecordService(store)
	s := authedSession()
	s.Records = []model.Record{{Protocol: "old"}}

	require.NoError(t, svc.ReplaceAll(ctx, s, []model.Record{{Protocol: "a"}, {Protocol: "b", Status: model.StatusCompleted}}))
	assert.Equal(t, []model.Record{
		{Protocol: "a", Status: model.StatusActive},
		{Protocol: "b", Status: model.StatusCompleted},
	}, s.Records)
	assert.Equal(t, s.Records, store.saved["id-a"])

	require.NoError(t, svc.ReplaceAll(ctx, s, nil))
	assert.Empty(t, s.Records)
	assert.NotNil(t, store.saved["id-a"])
}

func TestRecords_WalletEncryptedOnlyInStore(t *testing.T) {
	ctx := context.Background()
	c, err := cipher.New(cipher.StaticKey(bytes.Repeat([]byte{2}, 32)))
	require.NoError(t, err)
	store := &brokenStore{}
	svc := NewRecordService(store, WithRecordCipher(c))
	s := authedSession()

	_, err = svc.Add(ctx, s, model.Record{Protocol: "P", Wallet: "0xdeadbeef"}, false)
	require.NoError(t, err)
	assert.Equal(t, "0xdeadbeef", s.Records[0].Wallet)
	stored := store.saved["id-a"][0].Wallet
	assert.NotEqual(t, "0xdeadbeef", stored)
	assert.True(t, c.IsToken(stored))
	assert.Equal(t, "0xdeadbeef", c.Decrypt(stored))
}

func TestRecords_Stats(t *testing.T) {
	svc := NewRecordService(&brokenStore{})
	s := authedSession()
	s.Records = []model.Record{
		{Status: model.StatusActive}, {Status: model.StatusActive},
		{Status: model.StatusCompleted}, {Status: model.StatusUpcoming}, {Status: "legacy"},
	}
	st, err := svc.Stats(s)
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 5, Active: 2, Completed: 1, Upcoming: 1}, st)
}

func TestRecords_AddWithCalendar(t *testing.T) {
	ctx := context.Background()
	rem := &fakeReminder{}
	svc := NewRecordService(&brokenStore{}, WithReminder(rem, true))
	s := authedSession()

	res, err := svc.Add(ctx, s, model.Record{Protocol: "zkSync", ExpectedDate: "2026/06/15", Referral: "https://ref"}, true)
	require.NoError(t, err)
	require.NoError(t, res.ReminderErr)
	require.Len(t, rem.calls, 1)
	call := rem.calls[0]
	assert.Equal(t, "🪂 zkSync Airdrop", call.title)
	assert.Contains(t, call.description, "Referral Link: https://ref")
	assert.Equal(t, time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC), call.date)
	assert.Equal(t, "a@b.com", call.attendee)

	// без даты календарь не вызывается
	_, err = svc.Add(ctx, s, model.Record{Protocol: "NoDate"}, true)
	require.NoError(t, err)
	assert.Len(t, rem.calls, 1)
}

func TestRecords_CalendarFailureIsOnlyAWarning(t *testing.T) {
	ctx := context.Background()
	rem := &fakeReminder{err: errors.New("403 forbidden")}
	store := &brokenStore{}
	svc := NewRecordService(store, WithReminder(rem, false))
	s := authedSession()

	res, err := svc.Add(ctx, s, model.Record{Protocol: "P", ExpectedDate: "2026/06/15"}, true)
	require.NoError(t, err)
	assert.EqualError(t, res.ReminderErr, "403 forbidden")
	assert.Len(t, store.saved["id-a"], 1)
}

func TestRecords_CreateReminder(t *testing.T) {
	ctx := context.Background()
	s := authedSession()
	s.Records = []model.Record{{Protocol: "P", ExpectedDate: "not a date"}, {Protocol: "Q", ExpectedDate: "2026/07/01"}}

	noCal := NewRecordService(&brokenStore{})
	assert.ErrorIs(t, noCal.CreateReminder(ctx, s, 1), ErrReminderUnavailable)

	rem := &fakeReminder{}
	svc := NewRecordService(&brokenStore{}, WithReminder(rem, false))
	assert.ErrorIs(t, svc.CreateReminder(ctx, s, 0), ErrInvalidRecord)
	assert.ErrorIs(t, svc.CreateReminder(ctx, s, 2), ErrRecordNotFound)
	require.NoError(t, svc.CreateReminder(ctx, s, 1))
	require.Len(t, rem.calls, 1)
	assert.Empty(t, rem.calls[0].attendee)
}

func TestRecords_Due(t *testing.T) {
	clock := newFakeClock()
	svc := NewRecordService(&brokenStore{}, WithRecordClock(clock.Now))
	s := authedSession()
	s.Records = []model.Record{
		{Protocol: "P", Status: model.StatusActive, ExpectedDate: "2026/04/12"},
		{Protocol: "Q", Status: model.StatusActive, ExpectedDate: "2026/05/12"},
	}
	due, err := svc.Due(s, 7)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, 2, due[0].DaysUntil)
}

func TestRecords_LoadFailureAtLoginNeverOverwritesStore(t *testing.T) {
	ctx := context.Background()
	id := identity.Derive("a@b.com")
	store := &brokenStore{saved: map[string][]model.Record{
		id: {{Protocol: "LayerZero"}, {Protocol: "zkSync"}},
	}}
	store.loadErr = errors.New("read timeout")
	authSvc := NewAuthService(&fakeCodeSender{}, store, WithCodeGenerator(sequenceCodes()))
	svc := NewRecordService(store)

	s := &model.Session{ID: "sess-1"}
	require.NoError(t, authSvc.RequestCode(ctx, s, "a@b.com"))
	assert.ErrorIs(t, authSvc.Verify(ctx, s, "100001"), ErrStoreUnavailable)
	assert.False(t, s.Loaded)

	// хранилище ожило, но коллекция так и не прочитана
	store.loadErr = nil
	_, err := svc.Add(ctx, s, model.Record{Protocol: "Scroll"}, false)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.True(t, s.Unsaved)
	require.Len(t, s.Records, 1)
	assert.Len(t, store.saved[id], 2)

	require.NoError(t, svc.Sync(ctx, s))
	assert.True(t, s.Loaded)
	assert.False(t, s.Unsaved)
	protocols := func(recs []model.Record) []string {
		var out []string
		for _, r := range recs {
			out = append(out, r.Protocol)
		}
		return out
	}
	assert.Equal(t, []string{"LayerZero", "zkSync", "Scroll"}, protocols(s.Records))
	assert.Equal(t, []string{"LayerZero", "zkSync", "Scroll"}, protocols(store.saved[id]))
}

func TestRecords_SyncReloadFailureKeepsSession(t *testing.T) {
	ctx := context.Background()
	store := &brokenStore{loadErr: errors.New("dial tcp: connection refused")}
	svc := NewRecordService(store)
	s := authedSession()
	s.Loaded = false
	s.Records = []model.Record{{Protocol: "Blast", Status: model.StatusActive}}
	s.Unsaved = true

	assert.ErrorIs(t, svc.Sync(ctx, s), ErrStoreUnavailable)
	assert.False(t, s.Loaded)
	assert.True(t, s.Unsaved)
	assert.Len(t, s.Records, 1)
	assert.Empty(t, store.saved)
}
