// Package account maps derived nicknames to persistent credentials: it
// creates accounts on first use, logs returning users back in and surfaces
// nickname collisions.
package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/xtrntr/p2pexchange/internal/auth"
	"github.com/xtrntr/p2pexchange/internal/db"
	"github.com/xtrntr/p2pexchange/internal/metrics"
	"github.com/xtrntr/p2pexchange/internal/models"
)

var (
	ErrUnauthorized  = errors.New("authentication required")
	ErrAccountTooOld = errors.New("account is too old to be deleted")
	ErrRoleHeld      = errors.New("account is maker or taker of an open order")
)

// Status is the outcome of provisioning a nickname
type Status string

const (
	StatusCreated   Status = "created"
	StatusReturning Status = "returning"
	StatusCollision Status = "collision"
)

// Store is the persistence the provisioner needs
type Store interface {
	GetAccountByUsername(ctx context.Context, username string) (*models.Account, error)
	GetAccountByID(ctx context.Context, id int64) (*models.Account, error)
	CreateAccount(ctx context.Context, username, credentialHash string) (*models.Account, error)
	DeleteAccount(ctx context.Context, id int64) error
	HoldsOpenRole(ctx context.Context, accountID int64) (bool, error)
}

// Sessions issues and ends sessions
type Sessions interface {
	Issue(account *models.Account) (string, error)
	Revoke(ctx context.Context, requester *models.Requester) error
}

// Options configures account lifecycle windows
type Options struct {
	// WelcomeGrace is how old an account must be before a login counts as a
	// welcome back.
	WelcomeGrace time.Duration
	// DeleteMaxAge is the oldest an account may be and still be deleted by
	// its owner. Zero disables the check.
	DeleteMaxAge time.Duration
}

// Result is the outcome of Provision
type Result struct {
	Status      Status
	Account     *models.Account
	Session     string
	WelcomeBack bool
}

// Provisioner creates and authenticates accounts
type Provisioner struct {
	store    Store
	sessions Sessions
	opts     Options
	now      func() time.Time
	log      zerolog.Logger
	metrics  *metrics.Metrics
}

// NewProvisioner creates a new provisioner
func NewProvisioner(store Store, sessions Sessions, opts Options, log zerolog.Logger, m *metrics.Metrics) *Provisioner {
	return &Provisioner{
		store:    store,
		sessions: sessions,
		opts:     opts,
		now:      time.Now,
		log:      log.With().Str("component", "provisioner").Logger(),
		metrics:  m,
	}
}

// Provision logs in to the account named nickname using token as the
// credential, creating the account if it does not exist yet. A nickname
// held by a different token yields StatusCollision with no session.
func (p *Provisioner) Provision(ctx context.Context, nickname, token string) (Result, error) {
	account, err := p.store.GetAccountByUsername(ctx, nickname)
	if errors.Is(err, db.ErrNotFound) {
		return p.create(ctx, nickname, token)
	}
	if err != nil {
		return Result{}, err
	}
	return p.login(account, token)
}

func (p *Provisioner) create(ctx context.Context, nickname, token string) (Result, error) {
	credential, err := auth.HashCredential(token)
	if err != nil {
		return Result{}, err
	}

	account, err := p.store.CreateAccount(ctx, nickname, credential)
	if errors.Is(err, db.ErrNicknameTaken) {
		// lost a race against a concurrent registration of the same nickname
		account, err = p.store.GetAccountByUsername(ctx, nickname)
		if err != nil {
			return Result{}, fmt.Errorf("failed to reload account after conflict: %w", err)
		}
		return p.login(account, token)
	}
	if err != nil {
		return Result{}, err
	}

	session, err := p.sessions.Issue(account)
	if err != nil {
		return Result{}, err
	}

	p.log.Info().Int64("account_id", account.ID).Str("nickname", nickname).Msg("account created")
	return Result{Status: StatusCreated, Account: account, Session: session}, nil
}

func (p *Provisioner) login(account *models.Account, token string) (Result, error) {
	if !auth.VerifyCredential(token, account.CredentialHash) {
		p.log.Warn().Str("nickname", account.Username).Msg("nickname collision")
		return Result{Status: StatusCollision}, nil
	}

	session, err := p.sessions.Issue(account)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Status:      StatusReturning,
		Account:     account,
		Session:     session,
		WelcomeBack: account.CreatedAt.Before(p.now().Add(-p.opts.WelcomeGrace)),
	}, nil
}

// Deprovision deletes the requester's account and ends its session. It
// returns the deleted account.
func (p *Provisioner) Deprovision(ctx context.Context, requester *models.Requester) (*models.Account, error) {
	if requester == nil {
		return nil, ErrUnauthorized
	}

	account, err := p.store.GetAccountByID(ctx, requester.AccountID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}

	if p.opts.DeleteMaxAge > 0 && p.now().Sub(account.CreatedAt) > p.opts.DeleteMaxAge {
		return nil, ErrAccountTooOld
	}

	held, err := p.store.HoldsOpenRole(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	if held {
		return nil, ErrRoleHeld
	}

	if err := p.store.DeleteAccount(ctx, account.ID); err != nil {
		return nil, err
	}
	if err := p.sessions.Revoke(ctx, requester); err != nil {
		return nil, err
	}

	p.metrics.Deprovisions.Add(1)
	p.log.Info().Int64("account_id", account.ID).Str("nickname", account.Username).Msg("account deleted")
	return account, nil
}
