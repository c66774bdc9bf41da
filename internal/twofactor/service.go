// Package twofactor implements optional TOTP second-factor authentication
// with single-use backup codes.
package twofactor

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"

	"github.com/lookali/marketplace-api/internal/apperr"
	"github.com/lookali/marketplace-api/internal/auth"
)

const BackupCodeCount = 8

var ErrNotFound = errors.New("not found")

var (
	errAlreadyEnabled = apperr.Conflict("A autenticação em duas etapas já está ativa")
	errNotSetUp       = apperr.BadRequest("Configure a autenticação em duas etapas primeiro")
	errNotEnabled     = apperr.BadRequest("A autenticação em duas etapas não está ativa")
	errInvalidCode    = apperr.BadRequest("Código inválido")
)

type Record struct {
	UserID      string
	Secret      string
	Enabled     bool
	BackupCodes []string // bcrypt hashes
}

type Store interface {
	Get(ctx context.Context, userID string) (*Record, error)
	Save(ctx context.Context, r *Record) error
	Delete(ctx context.Context, userID string) error
}

type Service struct {
	Store  Store
	Issuer string
	Cost   int // bcrypt cost, defaults to bcrypt.DefaultCost
	Now    func() time.Time
}

type SetupResult struct {
	Secret string `json:"secret"`
	URL    string `json:"otpauth_url"`
}

var validateOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) cost() int {
	if s.Cost == 0 {
		return bcrypt.DefaultCost
	}
	return s.Cost
}

func (s *Service) load(ctx context.Context, userID string) (*Record, error) {
	r, err := s.Store.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load two-factor: %w", err)
	}
	return r, nil
}

// Setup stores a fresh, not yet enabled secret and returns it with the
// otpauth:// URL for authenticator apps.
func (s *Service) Setup(ctx context.Context, p auth.Principal) (*SetupResult, error) {
	r, err := s.load(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if r != nil && r.Enabled {
		return nil, errAlreadyEnabled
	}
	account := p.Email
	if account == "" {
		account = p.UserID
	}
	key, err := totp.Generate(totp.GenerateOpts{Issuer: s.Issuer, AccountName: account})
	if err != nil {
		return nil, fmt.Errorf("generate totp key: %w", err)
	}
	if err := s.Store.Save(ctx, &Record{UserID: p.UserID, Secret: key.Secret()}); err != nil {
		return nil, fmt.Errorf("save two-factor: %w", err)
	}
	return &SetupResult{Secret: key.Secret(), URL: key.URL()}, nil
}

// Enable turns on two-factor after the first valid code and returns the
// backup codes. They are shown once and stored hashed.
func (s *Service) Enable(ctx context.Context, p auth.Principal, code string) ([]string, error) {
	r, err := s.load(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, errNotSetUp
	}
	if r.Enabled {
		return nil, errAlreadyEnabled
	}
	if !s.validTOTP(code, r.Secret) {
		return nil, errInvalidCode
	}

	plain := make([]string, 0, BackupCodeCount)
	hashes := make([]string, 0, BackupCodeCount)
	for i := 0; i < BackupCodeCount; i++ {
		c, err := newBackupCode()
		if err != nil {
			return nil, err
		}
		h, err := bcrypt.GenerateFromPassword([]byte(c), s.cost())
		if err != nil {
			return nil, fmt.Errorf("hash backup code: %w", err)
		}
		plain = append(plain, c)
		hashes = append(hashes, string(h))
	}
	r.Enabled = true
	r.BackupCodes = hashes
	if err := s.Store.Save(ctx, r); err != nil {
		return nil, fmt.Errorf("save two-factor: %w", err)
	}
	return plain, nil
}

// Verify accepts a current TOTP code or consumes one backup code.
func (s *Service) Verify(ctx context.Context, userID, code string) (bool, error) {
	r, err := s.load(ctx, userID)
	if err != nil {
		return false, err
	}
	if r == nil || !r.Enabled {
		return false, errNotEnabled
	}
	if s.validTOTP(code, r.Secret) {
		return true, nil
	}

	normalized := normalizeBackup(code)
	for i, h := range r.BackupCodes {
		if bcrypt.CompareHashAndPassword([]byte(h), []byte(normalized)) != nil {
			continue
		}
		r.BackupCodes = append(r.BackupCodes[:i:i], r.BackupCodes[i+1:]...)
		if err := s.Store.Save(ctx, r); err != nil {
			return false, fmt.Errorf("consume backup code: %w", err)
		}
		return true, nil
	}
	return false, nil
}

func (s *Service) Disable(ctx context.Context, p auth.Principal, code string) error {
	ok, err := s.Verify(ctx, p.UserID, code)
	if err != nil {
		return err
	}
	if !ok {
		return errInvalidCode
	}
	return s.Store.Delete(ctx, p.UserID)
}

func (s *Service) Status(ctx context.Context, p auth.Principal) (bool, error) {
	r, err := s.load(ctx, p.UserID)
	if err != nil {
		return false, err
	}
	return r != nil && r.Enabled, nil
}

func (s *Service) validTOTP(code, secret string) bool {
	ok, err := totp.ValidateCustom(strings.TrimSpace(code), secret, s.now().UTC(), validateOpts)
	return err == nil && ok
}

// 32 symbols, no 0/O or 1/I, so a byte maps without modulo bias.
const backupAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func newBackupCode() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("backup code: %w", err)
	}
	for i := range b {
		b[i] = backupAlphabet[int(b[i])%len(backupAlphabet)]
	}
	return string(b[:4]) + "-" + string(b[4:]), nil
}

func normalizeBackup(code string) string {
	c := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(code), " ", ""))
	if len(c) == 8 && !strings.Contains(c, "-") {
		c = c[:4] + "-" + c[4:]
	}
	return c
}
