package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	pkgcrypto "github.com/kiroku-app/kiroku-sync/internal/crypto"
	"github.com/kiroku-app/kiroku-sync/internal/dbpath"
	"github.com/kiroku-app/kiroku-sync/internal/errs"
	"github.com/kiroku-app/kiroku-sync/internal/storekv"
)

// identityRecord is stored under auth_identities/{id}.
type identityRecord struct {
	Email     string `json:"email"`
	PwdHash   []byte `json:"pwd_hash"`
	Salt      []byte `json:"salt"`
	CreatedAt int64  `json:"created_at"`
}

// LocalProvider keeps identities in the hierarchical store: the credential
// record and an email reverse index, both maintained in single commits.
type LocalProvider struct {
	store     storekv.Store
	signKey   []byte
	accessTTL time.Duration

	mu        sync.Mutex
	currentID string
}

var _ Provider = (*LocalProvider)(nil)

// NewLocalProvider constructs a provider with the given JWT signing key and
// access token TTL.
func NewLocalProvider(store storekv.Store, signKey []byte, accessTTL time.Duration) *LocalProvider {
	return &LocalProvider{store: store, signKey: signKey, accessTTL: accessTTL}
}

// CurrentUserID returns the signed-in identity id, "" when signed out.
func (p *LocalProvider) CurrentUserID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentID
}

// CreateIdentity registers a new identity under a fresh UUID and signs it in.
// The credential record and the email index are written in one commit so a
// crash cannot leave a dangling half-identity.
func (p *LocalProvider) CreateIdentity(ctx context.Context, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", errors.New("validation: empty email/password")
	}

	emailKey := dbpath.NicknameKey(email)
	existing, err := p.store.ReadOnce(ctx, dbpath.AuthEmailIndex(emailKey))
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "", errs.ErrAlreadyExists
	}

	uid, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	salt, err := pkgcrypto.NewSalt()
	if err != nil {
		return "", err
	}
	rec := identityRecord{
		Email:     email,
		PwdHash:   pkgcrypto.HashPassword([]byte(password), salt),
		Salt:      salt,
		CreatedAt: time.Now().UnixMilli(),
	}

	id := uid.String()
	err = p.store.Commit(ctx, storekv.Updates{
		dbpath.AuthIdentity(id):         rec,
		dbpath.AuthEmailIndex(emailKey): id,
	})
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	p.currentID = id
	p.mu.Unlock()
	return id, nil
}

// SignIn authenticates an identity by email and password and issues an access
// token. Lookup and verification failures are both reported as unauthorized
// so the response does not reveal whether the email exists.
func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (Tokens, error) {
	if email == "" || password == "" {
		return Tokens{}, errors.New("validation: empty email/password")
	}

	idValue, err := p.store.ReadOnce(ctx, dbpath.AuthEmailIndex(dbpath.NicknameKey(email)))
	if err != nil {
		return Tokens{}, err
	}
	id, ok := idValue.(string)
	if !ok || id == "" {
		return Tokens{}, errs.ErrUnauthorized
	}

	raw, err := p.store.ReadOnce(ctx, dbpath.AuthIdentity(id))
	if err != nil {
		return Tokens{}, err
	}
	var rec identityRecord
	if raw == nil {
		return Tokens{}, errs.ErrUnauthorized
	}
	if err := storekv.Decode(raw, &rec); err != nil {
		return Tokens{}, fmt.Errorf("decode identity: %w", err)
	}
	if !pkgcrypto.VerifyPassword([]byte(password), rec.Salt, rec.PwdHash) {
		return Tokens{}, errs.ErrUnauthorized
	}

	access, exp, err := p.issueAccessToken(id)
	if err != nil {
		return Tokens{}, err
	}

	p.mu.Lock()
	p.currentID = id
	p.mu.Unlock()
	return Tokens{AccessToken: access, ExpiresAt: exp}, nil
}

// DeleteIdentity removes the signed-in identity's credential record and email
// index in one commit, then signs out.
func (p *LocalProvider) DeleteIdentity(ctx context.Context) error {
	p.mu.Lock()
	id := p.currentID
	p.mu.Unlock()
	if id == "" {
		return errs.ErrUnauthorized
	}

	raw, err := p.store.ReadOnce(ctx, dbpath.AuthIdentity(id))
	if err != nil {
		return err
	}
	updates := storekv.Updates{dbpath.AuthIdentity(id): nil}
	if raw != nil {
		var rec identityRecord
		if err := storekv.Decode(raw, &rec); err != nil {
			return fmt.Errorf("decode identity: %w", err)
		}
		updates[dbpath.AuthEmailIndex(dbpath.NicknameKey(rec.Email))] = nil
	}
	if err := p.store.Commit(ctx, updates); err != nil {
		return err
	}

	p.mu.Lock()
	p.currentID = ""
	p.mu.Unlock()
	return nil
}

// issueAccessToken creates a signed HS256 JWT for the given subject.
func (p *LocalProvider) issueAccessToken(userID string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(p.accessTTL)
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(p.signKey)
	return signed, exp, err
}
