// Package videotoken mints short-lived join credentials for video rooms hosted
// by the external real-time communication provider.
package videotoken

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

var ErrIssuanceFailed = errors.New("token issuance failed")

const RolePublisher = 1

type Config struct {
	AppID     string
	AppSecret string
	TTL       time.Duration
	MaxUID    uint32
	Timeout   time.Duration
}

// Grant is everything the provider needs to sign one credential.
type Grant struct {
	AppID     string
	AppSecret string
	Room      string
	UID       uint32
	Role      int
	ExpiresAt time.Time
}

// Signer is the provider-side token builder.
type Signer interface {
	Sign(ctx context.Context, g Grant) (string, error)
}

type SignerFunc func(ctx context.Context, g Grant) (string, error)

func (f SignerFunc) Sign(ctx context.Context, g Grant) (string, error) { return f(ctx, g) }

type Credential struct {
	Token     string
	UID       uint32
	AppID     string
	ExpiresAt time.Time
}

type Issuer struct {
	cfg    Config
	signer Signer
	now    func() time.Time
	uid    func(max uint32) uint32
}

func New(cfg Config, signer Signer) (*Issuer, error) {
	if cfg.AppID == "" || cfg.AppSecret == "" {
		return nil, errors.New("videotoken: app id and secret are required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if cfg.MaxUID == 0 {
		cfg.MaxUID = 230
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if signer == nil {
		signer = JWTSigner{}
	}
	return &Issuer{
		cfg:    cfg,
		signer: signer,
		now:    time.Now,
		uid:    func(max uint32) uint32 { return 1 + rand.Uint32N(max) },
	}, nil
}

func (i *Issuer) AppID() string { return i.cfg.AppID }

// Issue signs a publisher credential for room. Every call draws a new uid; a
// failed signature is reported once and never retried.
func (i *Issuer) Issue(ctx context.Context, room string) (*Credential, error) {
	g := Grant{
		AppID:     i.cfg.AppID,
		AppSecret: i.cfg.AppSecret,
		Room:      room,
		UID:       i.uid(i.cfg.MaxUID),
		Role:      RolePublisher,
		ExpiresAt: i.now().Add(i.cfg.TTL).Truncate(time.Second),
	}

	ctx, cancel := context.WithTimeout(ctx, i.cfg.Timeout)
	defer cancel()

	type result struct {
		tok string
		err error
	}
	ch := make(chan result, 1)
	go func() {
		tok, err := i.signer.Sign(ctx, g)
		ch <- result{tok, err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrIssuanceFailed, ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIssuanceFailed, r.err)
		}
		if r.tok == "" {
			return nil, fmt.Errorf("%w: empty token", ErrIssuanceFailed)
		}
		return &Credential{Token: r.tok, UID: g.UID, AppID: g.AppID, ExpiresAt: g.ExpiresAt}, nil
	}
}
