package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/airdroptracker/internal/cipher"
	"github.com/airdroptracker/internal/logger"
	"github.com/airdroptracker/internal/model"
	"github.com/airdroptracker/internal/storage"
)

// Reminder создаёт событие в календаре на дату клейма.
type Reminder interface {
	CreateEvent(ctx context.Context, title, description string, date time.Time, attendeeEmail string) error
}

// Notifier сообщает остальным подключениям identity, что коллекция изменилась.
type Notifier interface {
	NotifyRecordsChanged(identity, originSessionID string)
}

// Stats - счётчики по статусам.
type Stats struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Upcoming  int `json:"upcoming"`
}

// AddResult - индекс новой записи и предупреждение календаря (если событие создать не удалось).
type AddResult struct {
	Index       int
	ReminderErr error
}

// RecordService изменяет коллекцию записей аутентифицированной сессии.
// Каждое изменение сохраняет в RecordStore всю коллекцию. Если сохранить не удалось,
// изменения остаются в сессии с Unsaved = true и возвращается ErrStoreUnavailable.
type RecordService struct {
	store          storage.RecordStore
	cipher         *cipher.FieldCipher
	reminder       Reminder
	notifier       Notifier
	inviteAttendee bool
	now            func() time.Time
}

type RecordOption func(*RecordService)

func WithRecordCipher(c *cipher.FieldCipher) RecordOption {
	return func(r *RecordService) { r.cipher = c }
}

// WithReminder подключает календарь. inviteAttendee - приглашать владельца записи участником события.
func WithReminder(rem Reminder, inviteAttendee bool) RecordOption {
	return func(r *RecordService) { r.reminder, r.inviteAttendee = rem, inviteAttendee }
}

func WithNotifier(n Notifier) RecordOption {
	return func(r *RecordService) { r.notifier = n }
}

func WithRecordClock(now func() time.Time) RecordOption {
	return func(r *RecordService) { r.now = now }
}

func NewRecordService(store storage.RecordStore, opts ...RecordOption) *RecordService {
	r := &RecordService{store: store, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func requireAuth(s *model.Session) error {
	if s == nil || !s.Authenticated || s.Identity == "" {
		return ErrNotAuthenticated
	}
	return nil
}

// List возвращает копию коллекции сессии.
func (r *RecordService) List(s *model.Session) ([]model.Record, error) {
	if err := requireAuth(s); err != nil {
		return nil, err
	}
	out := model.CloneRecords(s.Records)
	if out == nil {
		out = []model.Record{}
	}
	return out, nil
}

// Add добавляет запись в конец коллекции. Если addToCalendar и дата задана, после сохранения
// создаётся событие в календаре; его сбой возвращается в AddResult.ReminderErr и не отменяет добавление.
func (r *RecordService) Add(ctx context.Context, s *model.Session, rec model.Record, addToCalendar bool) (AddResult, error) {
	if err := requireAuth(s); err != nil {
		return AddResult{}, err
	}
	rec, err := r.normalize(rec, true)
	if err != nil {
		return AddResult{}, err
	}
	s.Records = append(s.Records, rec)
	res := AddResult{Index: len(s.Records) - 1}
	if err := r.persist(ctx, s); err != nil {
		return res, err
	}
	if addToCalendar && rec.ExpectedDate != "" {
		res.ReminderErr = r.remind(ctx, s, rec)
	}
	return res, nil
}

// Update заменяет запись index целиком.
func (r *RecordService) Update(ctx context.Context, s *model.Session, index int, rec model.Record) error {
	if err := requireAuth(s); err != nil {
		return err
	}
	if index < 0 || index >= len(s.Records) {
		return ErrRecordNotFound
	}
	rec, err := r.normalize(rec, false)
	if err != nil {
		return err
	}
	s.Records[index] = rec
	return r.persist(ctx, s)
}

// Delete удаляет запись index; последующие записи сдвигаются.
func (r *RecordService) Delete(ctx context.Context, s *model.Session, index int) error {
	if err := requireAuth(s); err != nil {
		return err
	}
	if index < 0 || index >= len(s.Records) {
		return ErrRecordNotFound
	}
	s.Records = append(s.Records[:index:index], s.Records[index+1:]...)
	return r.persist(ctx, s)
}

// ReplaceAll заменяет всю коллекцию (правка таблицы). Невалидная строка отклоняет всю замену.
func (r *RecordService) ReplaceAll(ctx context.Context, s *model.Session, recs []model.Record) error {
	if err := requireAuth(s); err != nil {
		return err
	}
	next := make([]model.Record, 0, len(recs))
	for i, rec := range recs {
		norm, err := r.normalize(rec, false)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
		next = append(next, norm)
	}
	s.Records = next
	return r.persist(ctx, s)
}

// Sync повторяет сохранение коллекции, если прошлое не удалось. Если при входе хранилище
// не прочиталось, сначала дочитывает сохранённые записи и ставит их перед добавленными в памяти.
func (r *RecordService) Sync(ctx context.Context, s *model.Session) error {
	if err := requireAuth(s); err != nil {
		return err
	}
	if !s.Loaded {
		recs, err := r.store.Load(ctx, s.Identity)
		if err != nil {
			logger.Errorf("records: reload for session %s failed: %v", logger.MaskSessionID(s.ID), err)
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		s.Records = append(decryptWallets(r.cipher, recs), s.Records...)
		s.Loaded = true
		s.UpdatedAt = r.now()
		logger.Infof("records: session %s reloaded %d stored records", logger.MaskSessionID(s.ID), len(recs))
	}
	if !s.Unsaved {
		return nil
	}
	return r.persist(ctx, s)
}

// Stats считает записи по статусам.
func (r *RecordService) Stats(s *model.Session) (Stats, error) {
	if err := requireAuth(s); err != nil {
		return Stats{}, err
	}
	st := Stats{Total: len(s.Records)}
	for _, rec := range s.Records {
		switch rec.Status {
		case model.StatusActive:
			st.Active++
		case model.StatusCompleted:
			st.Completed++
		case model.StatusUpcoming:
			st.Upcoming++
		}
	}
	return st, nil
}

// Due - FindDue по коллекции сессии.
func (r *RecordService) Due(s *model.Session, horizonDays int) ([]DueRecord, error) {
	if err := requireAuth(s); err != nil {
		return nil, err
	}
	return FindDue(s.Records, horizonDays, r.now()), nil
}

// CreateReminder создаёт событие календаря для записи index.
func (r *RecordService) CreateReminder(ctx context.Context, s *model.Session, index int) error {
	if err := requireAuth(s); err != nil {
		return err
	}
	if index < 0 || index >= len(s.Records) {
		return ErrRecordNotFound
	}
	return r.remind(ctx, s, s.Records[index])
}

func (r *RecordService) remind(ctx context.Context, s *model.Session, rec model.Record) error {
	if r.reminder == nil {
		return ErrReminderUnavailable
	}
	date, ok := parseDate(rec.ExpectedDate)
	if !ok {
		return fmt.Errorf("%w: expected date %q is not a date", ErrInvalidRecord, rec.ExpectedDate)
	}
	title := "🪂 " + rec.Protocol + " Airdrop"
	desc := "Airdrop claim day for " + rec.Protocol + "\n\nReferral Link: " + rec.Referral + "\n\nAdded via Airdrop Tracker"
	attendee := ""
	if r.inviteAttendee {
		attendee = s.Email
	}
	if err := r.reminder.CreateEvent(ctx, title, desc, date, attendee); err != nil {
		logger.Warnf("reminder: %s: %v", rec.Protocol, err)
		return err
	}
	return nil
}

// normalize проверяет запись формы. Пустой статус - Active; на создании пустая Activity - сегодня.
func (r *RecordService) normalize(rec model.Record, create bool) (model.Record, error) {
	rec.Protocol = strings.TrimSpace(rec.Protocol)
	if rec.Protocol == "" {
		return rec, fmt.Errorf("%w: please provide a protocol name before saving", ErrInvalidRecord)
	}
	rec.Status = model.Status(strings.TrimSpace(string(rec.Status)))
	if rec.Status == "" {
		rec.Status = model.StatusActive
	}
	if !rec.Status.Valid() {
		return rec, fmt.Errorf("%w: status must be Active, Completed or Upcoming", ErrInvalidRecord)
	}
	if rec.TxCount < 0 {
		return rec, fmt.Errorf("%w: tx count must not be negative", ErrInvalidRecord)
	}
	rec.ExpectedDate = strings.TrimSpace(rec.ExpectedDate)
	if d, ok := parseDate(rec.ExpectedDate); ok {
		rec.ExpectedDate = d.Format(model.DateLayout)
	}
	if create && strings.TrimSpace(rec.Activity) == "" {
		rec.Activity = r.now().Format(model.DateLayout)
	}
	return rec, nil
}

// persist сохраняет всю коллекцию сессии. Wallet шифруется только в копии для хранилища.
// Без прочитанной коллекции запись в хранилище запрещена: Save заменил бы её целиком.
func (r *RecordService) persist(ctx context.Context, s *model.Session) error {
	if !s.Loaded {
		s.Unsaved = true
		s.UpdatedAt = r.now()
		return fmt.Errorf("%w: stored records were not loaded yet, sync to retry", ErrStoreUnavailable)
	}
	enc, err := encryptWallets(r.cipher, s.Records)
	if err == nil {
		err = r.store.Save(ctx, s.Identity, enc)
	}
	s.UpdatedAt = r.now()
	if err != nil {
		s.Unsaved = true
		logger.Errorf("records: save for session %s failed: %v", logger.MaskSessionID(s.ID), err)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	s.Unsaved = false
	if r.notifier != nil {
		r.notifier.NotifyRecordsChanged(s.Identity, s.ID)
	}
	return nil
}

func encryptWallets(c *cipher.FieldCipher, recs []model.Record) ([]model.Record, error) {
	out := model.CloneRecords(recs)
	if out == nil {
		out = []model.Record{}
	}
	for i := range out {
		tok, err := c.Encrypt(out[i].Wallet)
		if err != nil {
			return nil, err
		}
		out[i].Wallet = tok
	}
	return out, nil
}

func decryptWallets(c *cipher.FieldCipher, recs []model.Record) []model.Record {
	out := model.CloneRecords(recs)
	if out == nil {
		out = []model.Record{}
	}
	for i := range out {
		out[i].Wallet = c.Decrypt(out[i].Wallet)
	}
	return out
}
