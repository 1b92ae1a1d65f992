// Package identity turns an accepted token into a stable anonymous
// identity: a digest, a human-readable nickname and an avatar image.
//
// Derivation is a pure function of the token. Nothing here reads the clock,
// a random source or request state, so the same token yields byte-identical
// output in any process on any day.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const (
	minNicknameLength = 10
	minAvatarSize     = 20
)

// Options configures a Deriver
type Options struct {
	MaxNicknameLength int
	MaxNumber         int
	AvatarSize        int // pixels per side
}

// DefaultOptions returns the options used by the server
func DefaultOptions() Options {
	return Options{
		MaxNicknameLength: 18,
		MaxNumber:         999,
		AvatarSize:        250,
	}
}

// Identity is the result of deriving a token
type Identity struct {
	Hash     string // hex-encoded sha256 of the token
	Nickname string
	Avatar   []byte // PNG
}

// Deriver derives identities. It is immutable once built and safe for
// concurrent use.
type Deriver struct {
	opts Options
}

// NewDeriver validates opts and returns a Deriver
func NewDeriver(opts Options) (*Deriver, error) {
	if opts.MaxNicknameLength < minNicknameLength {
		return nil, fmt.Errorf("max nickname length must be at least %d", minNicknameLength)
	}
	if opts.MaxNumber < 1 {
		return nil, fmt.Errorf("max nickname number must be positive")
	}
	if opts.AvatarSize < minAvatarSize {
		return nil, fmt.Errorf("avatar size must be at least %d", minAvatarSize)
	}
	return &Deriver{opts: opts}, nil
}

// Options returns the options the deriver was built with
func (d *Deriver) Options() Options {
	return d.opts
}

// Derive hashes the token once with sha256 and derives the nickname and
// avatar from the digest.
func (d *Deriver) Derive(token string) (Identity, error) {
	digest := sha256.Sum256([]byte(token))

	img, err := avatar(digest[:], d.opts.AvatarSize)
	if err != nil {
		return Identity{}, err
	}

	return Identity{
		Hash:     hex.EncodeToString(digest[:]),
		Nickname: nickname(digest[:], d.opts.MaxNicknameLength, d.opts.MaxNumber),
		Avatar:   img,
	}, nil
}
