package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/airdroptracker/internal/cipher"
	"github.com/airdroptracker/internal/identity"
	"github.com/airdroptracker/internal/logger"
	"github.com/airdroptracker/internal/model"
	"github.com/airdroptracker/internal/storage"
)

// CodeTTL - срок действия одноразового кода. Проверяется лениво, в момент Verify.
const CodeTTL = 600 * time.Second

const codeDigits = 6

var codeMax = big.NewInt(1_000_000)

// GenerateCode возвращает 6-значный код с ведущими нулями, равномерно из 000000–999999.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeMax)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

// CodeSender доставляет код на почту.
type CodeSender interface {
	SendCode(ctx context.Context, to, code string) error
}

// AccountStore - учёт identity -> email для фоновых напоминаний.
type AccountStore interface {
	UpsertAccount(ctx context.Context, identity, email string, at time.Time) error
	ListAccounts(ctx context.Context) ([]model.Account, error)
	MarkAlerted(ctx context.Context, identity string, at time.Time) error
}

// AuthService выполняет переходы Anonymous -> CodePending -> Authenticated над явно переданной сессией.
// Сервис не хранит сессии: загрузка и сохранение - забота вызывающего.
type AuthService struct {
	sender   CodeSender
	records  storage.RecordStore
	accounts AccountStore
	cipher   *cipher.FieldCipher
	now      func() time.Time
	genCode  func() (string, error)
}

type AuthOption func(*AuthService)

// WithClock подменяет часы (тесты истечения кода).
func WithClock(now func() time.Time) AuthOption {
	return func(a *AuthService) { a.now = now }
}

// WithCodeGenerator подменяет генератор кодов.
func WithCodeGenerator(gen func() (string, error)) AuthOption {
	return func(a *AuthService) { a.genCode = gen }
}

// WithAccounts включает учёт аккаунтов при входе.
func WithAccounts(accounts AccountStore) AuthOption {
	return func(a *AuthService) { a.accounts = accounts }
}

// WithCipher задаёт шифр поля wallet для загружаемых записей.
func WithCipher(c *cipher.FieldCipher) AuthOption {
	return func(a *AuthService) { a.cipher = c }
}

func NewAuthService(sender CodeSender, records storage.RecordStore, opts ...AuthOption) *AuthService {
	a := &AuthService{
		sender:  sender,
		records: records,
		now:     time.Now,
		genCode: GenerateCode,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RequestCode: Anonymous|CodePending -> CodePending. При сбое доставки сессия не меняется.
func (a *AuthService) RequestCode(ctx context.Context, s *model.Session, email string) error {
	if s.Authenticated {
		return ErrAlreadyAuthenticated
	}
	norm := identity.Normalize(email)
	if !strings.Contains(norm, "@") {
		return ErrInvalidEmail
	}
	return a.issue(ctx, s, norm, "request-code")
}

// Resend выдаёт новый код на тот же адрес. Прежний код перестаёт действовать только после успешной отправки.
func (a *AuthService) Resend(ctx context.Context, s *model.Session, email string) error {
	if s.State() != model.StateCodePending {
		return ErrNoPendingCode
	}
	if norm := identity.Normalize(email); norm != "" && norm != s.Email {
		return fmt.Errorf("%w: resend must target %s", ErrInvalidEmail, logger.MaskEmail(s.Email))
	}
	return a.issue(ctx, s, s.Email, "resend-code")
}

func (a *AuthService) issue(ctx context.Context, s *model.Session, email, op string) error {
	code, err := a.genCode()
	if err != nil {
		return fmt.Errorf("%w: generate code: %v", ErrDeliveryFailure, err)
	}
	if err := a.sender.SendCode(ctx, email, code); err != nil {
		logger.Warnf("%s: delivery to %s failed: %v", op, logger.MaskEmail(email), err)
		return fmt.Errorf("%w: %v", ErrDeliveryFailure, err)
	}
	now := a.now()
	s.Email = email
	s.PendingCode = code
	s.PendingCodeIssuedAt = &now
	s.UpdatedAt = now
	logger.Infof("%s: code sent to %s (session %s)", op, logger.MaskEmail(email), logger.MaskSessionID(s.ID))
	return nil
}

// Verify: CodePending -> Authenticated при совпадении кода, -> Anonymous при истечении.
// Неверный код оставляет сессию в CodePending, число попыток не ограничено.
// Если хранилище записей недоступно, вход всё равно выполняется и возвращается ErrStoreUnavailable.
func (a *AuthService) Verify(ctx context.Context, s *model.Session, code string) error {
	if s.State() != model.StateCodePending || s.PendingCodeIssuedAt == nil {
		return ErrNoPendingCode
	}
	now := a.now()
	if now.Sub(*s.PendingCodeIssuedAt) > CodeTTL {
		logger.Infof("verify-code: code for %s expired", logger.MaskEmail(s.Email))
		s.ClearPending()
		s.Email = ""
		s.UpdatedAt = now
		return ErrCodeExpired
	}
	input := strings.TrimSpace(code)
	if subtle.ConstantTimeCompare([]byte(input), []byte(s.PendingCode)) != 1 {
		return ErrInvalidCode
	}

	id := identity.Derive(s.Email)
	s.ClearPending()
	s.Identity = id
	s.Authenticated = true
	s.Records = []model.Record{}
	s.Unsaved = false
	s.Loaded = false
	s.UpdatedAt = now
	logger.Infof("verify-code: %s authenticated (session %s)", logger.MaskEmail(s.Email), logger.MaskSessionID(s.ID))

	if a.accounts != nil {
		if err := a.accounts.UpsertAccount(ctx, id, s.Email, now); err != nil {
			logger.Errorf("verify-code: upsert account: %v", err)
		}
	}
	recs, err := a.records.Load(ctx, id)
	if err != nil {
		logger.Errorf("verify-code: load records: %v", err)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	s.Records = decryptWallets(a.cipher, recs)
	s.Loaded = true
	return nil
}

// Logout: -> Anonymous. Очищает identity, email и записи в памяти, внешние сервисы не вызываются.
func (a *AuthService) Logout(s *model.Session) {
	s.Reset()
	s.UpdatedAt = a.now()
}
