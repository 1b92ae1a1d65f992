package account

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/xtrntr/p2pexchange/internal/entropy"
	"github.com/xtrntr/p2pexchange/internal/identity"
	"github.com/xtrntr/p2pexchange/internal/metrics"
	"github.com/xtrntr/p2pexchange/internal/models"
)

// AvatarStore persists avatar images by nickname
type AvatarStore interface {
	Save(nickname string, png []byte) error
	Delete(nickname string) error
}

// Generation is everything produced for a token
type Generation struct {
	Entropy  entropy.Result
	Nickname string
	Result
}

// Generator runs the full token flow: entropy gate, identity derivation,
// provisioning and avatar storage.
type Generator struct {
	deriver     *identity.Deriver
	avatars     AvatarStore
	provisioner *Provisioner
	log         zerolog.Logger
	metrics     *metrics.Metrics
}

// NewGenerator creates a new generator
func NewGenerator(deriver *identity.Deriver, avatars AvatarStore, provisioner *Provisioner, log zerolog.Logger, m *metrics.Metrics) *Generator {
	return &Generator{
		deriver:     deriver,
		avatars:     avatars,
		provisioner: provisioner,
		log:         log.With().Str("component", "generator").Logger(),
		metrics:     m,
	}
}

// Generate turns a token into a logged-in identity. A token failing the
// entropy gate returns an *entropy.InsufficientError alongside the scores.
func (g *Generator) Generate(ctx context.Context, token string) (Generation, error) {
	gen := Generation{Entropy: entropy.Validate(token)}
	if err := gen.Entropy.Err(); err != nil {
		g.metrics.EntropyRejections.Add(1)
		return gen, err
	}

	id, err := g.deriver.Derive(token)
	if err != nil {
		return gen, err
	}
	gen.Nickname = id.Nickname

	gen.Result, err = g.provisioner.Provision(ctx, id.Nickname, token)
	if err != nil {
		return gen, err
	}
	g.metrics.Registrations.With("outcome", string(gen.Status)).Add(1)

	// a colliding token must not overwrite the owner's avatar
	if gen.Status != StatusCollision {
		if err := g.avatars.Save(id.Nickname, id.Avatar); err != nil {
			g.log.Error().Err(err).Str("nickname", id.Nickname).Msg("failed to store avatar")
		}
	}
	return gen, nil
}

// Delete deprovisions the requester and removes their avatar
func (g *Generator) Delete(ctx context.Context, requester *models.Requester) error {
	account, err := g.provisioner.Deprovision(ctx, requester)
	if err != nil {
		return err
	}
	if err := g.avatars.Delete(account.Username); err != nil {
		g.log.Error().Err(err).Str("nickname", account.Username).Msg("failed to delete avatar")
	}
	return nil
}
