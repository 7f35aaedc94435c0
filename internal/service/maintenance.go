package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/airdroptracker/internal/cipher"
	"github.com/airdroptracker/internal/identity"
	"github.com/airdroptracker/internal/logger"
	"github.com/airdroptracker/internal/model"
	"github.com/airdroptracker/internal/storage"
)

// identityLister - хранилище, которое само знает все identity (Postgres).
type identityLister interface {
	ListIdentities(ctx context.Context) ([]string, error)
}

// EncryptReport - итог перешифрования.
type EncryptReport struct {
	Identities int `json:"identities"`
	Encrypted  int `json:"encrypted"`
}

func knownIdentities(ctx context.Context, records storage.RecordStore, accounts AccountStore) ([]string, error) {
	if l, ok := records.(identityLister); ok {
		return l.ListIdentities(ctx)
	}
	accs, err := accounts.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(accs))
	for _, a := range accs {
		ids = append(ids, a.Identity)
	}
	return ids, nil
}

// EncryptLegacyWallets шифрует wallet, сохранённые открытым текстом до включения шифрования.
// Identity без таких записей не перезаписываются.
func EncryptLegacyWallets(ctx context.Context, records storage.RecordStore, accounts AccountStore, c *cipher.FieldCipher) (EncryptReport, error) {
	if !c.Enabled() {
		return EncryptReport{}, errors.New("wallet encryption is not configured (CIPHER_SEED)")
	}
	ids, err := knownIdentities(ctx, records, accounts)
	if err != nil {
		return EncryptReport{}, fmt.Errorf("list identities: %w", err)
	}
	var rep EncryptReport
	for _, id := range ids {
		recs, err := records.Load(ctx, id)
		if err != nil {
			return rep, fmt.Errorf("load %s: %w", id, err)
		}
		rep.Identities++
		changed := 0
		for i := range recs {
			if recs[i].Wallet == "" || c.IsToken(recs[i].Wallet) {
				continue
			}
			tok, err := c.Encrypt(recs[i].Wallet)
			if err != nil {
				return rep, err
			}
			recs[i].Wallet = tok
			changed++
		}
		if changed == 0 {
			continue
		}
		if err := records.Save(ctx, id, recs); err != nil {
			return rep, fmt.Errorf("save %s: %w", id, err)
		}
		rep.Encrypted += changed
		logger.Infof("wallets: encrypted %d record(s) for identity %s", changed, id)
	}
	return rep, nil
}

// ExportRecords возвращает записи пользователя с расшифрованными wallet.
func ExportRecords(ctx context.Context, records storage.RecordStore, c *cipher.FieldCipher, email string) (string, []model.Record, error) {
	email = identity.Normalize(email)
	if !strings.Contains(email, "@") {
		return "", nil, ErrInvalidEmail
	}
	id := identity.Derive(email)
	recs, err := records.Load(ctx, id)
	if err != nil {
		return id, nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return id, decryptWallets(c, recs), nil
}
