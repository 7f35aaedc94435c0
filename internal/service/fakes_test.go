package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/airdroptracker/internal/model"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// sequenceCodes выдаёт 100001, 100002, ...
func sequenceCodes() func() (string, error) {
	n := 100000
	return func() (string, error) {
		n++
		return fmt.Sprintf("%06d", n), nil
	}
}

type sentCode struct {
	to, code string
}

type fakeCodeSender struct {
	mu   sync.Mutex
	sent []sentCode
	err  error
}

func (f *fakeCodeSender) SendCode(_ context.Context, to, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentCode{to: to, code: code})
	return nil
}

func (f *fakeCodeSender) last() sentCode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

type sentAlert struct {
	to, subject, body string
}

type fakeAlertSender struct {
	mu   sync.Mutex
	sent []sentAlert
	fail map[string]bool
}

func (f *fakeAlertSender) SendAlert(_ context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[to] {
		return errors.New("550 mailbox unavailable")
	}
	f.sent = append(f.sent, sentAlert{to: to, subject: subject, body: body})
	return nil
}

func (f *fakeAlertSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakePush struct {
	calls []string
}

func (f *fakePush) Notify(_ context.Context, identity, title, body string) (int, error) {
	f.calls = append(f.calls, identity+"|"+body)
	return 1, nil
}

// brokenStore - хранилище, которое всегда недоступно (или только на запись).
type brokenStore struct {
	loadErr, saveErr error
	saved            map[string][]model.Record
}

func (b *brokenStore) Load(_ context.Context, identity string) ([]model.Record, error) {
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	return model.CloneRecords(b.saved[identity]), nil
}

func (b *brokenStore) Save(_ context.Context, identity string, recs []model.Record) error {
	if b.saveErr != nil {
		return b.saveErr
	}
	if b.saved == nil {
		b.saved = map[string][]model.Record{}
	}
	b.saved[identity] = model.CloneRecords(recs)
	return nil
}

type fakeNotifier struct {
	events []string
}

func (f *fakeNotifier) NotifyRecordsChanged(identity, origin string) {
	f.events = append(f.events, identity+"|"+origin)
}

type reminderCall struct {
	title, description string
	date               time.Time
	attendee           string
}

type fakeReminder struct {
	calls []reminderCall
	err   error
}

func (f *fakeReminder) CreateEvent(_ context.Context, title, description string, date time.Time, attendee string) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, reminderCall{title: title, description: description, date: date, attendee: attendee})
	return nil
}
