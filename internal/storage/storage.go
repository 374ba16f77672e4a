// Package storage persists session tokens between CLI invocations.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/tradedesk-client/pkg/apiclient"
)

// ErrEmptyProfile is returned when a session operation names no profile.
var ErrEmptyProfile = errors.New("session profile is empty")

// Store keeps one bearer token per profile until it expires.
type Store interface {
	Close() error
	Token(profile string) (string, bool, error)
	SaveToken(profile, token string) error
	DeleteToken(profile string) error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	TokenTTL        time.Duration
	CleanupInterval time.Duration
}

const (
	defaultTokenTTL        = 12 * time.Hour
	defaultCleanupInterval = time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "memory":
		return newMemoryStore(opts, time.Now), nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		store, err := openBolt(path, opts)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = defaultTokenTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

func normalizeProfile(profile string) (string, error) {
	profile = strings.TrimSpace(profile)
	if profile == "" {
		return "", ErrEmptyProfile
	}
	return profile, nil
}

// TokenSource exposes the profile's token to the API client.
func TokenSource(store Store, profile string) apiclient.TokenSource {
	return apiclient.TokenFunc(func(context.Context) (string, error) {
		token, ok, err := store.Token(profile)
		if err != nil || !ok {
			return "", err
		}
		return token, nil
	})
}

type noopStore struct{}

func (noopStore) Close() error                       { return nil }
func (noopStore) Token(string) (string, bool, error) { return "", false, nil }
func (noopStore) SaveToken(string, string) error     { return nil }
func (noopStore) DeleteToken(string) error           { return nil }
