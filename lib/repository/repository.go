// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package repository

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/coffer/lib/backend"
	"github.com/bureau-foundation/coffer/lib/blob"
	"github.com/bureau-foundation/coffer/lib/clock"
	"github.com/bureau-foundation/coffer/lib/codec"
	"github.com/bureau-foundation/coffer/lib/keyring"
	"github.com/bureau-foundation/coffer/lib/object"
	"github.com/bureau-foundation/coffer/lib/put"
	"github.com/bureau-foundation/coffer/lib/sealed"
	"github.com/bureau-foundation/coffer/lib/secret"
	"github.com/bureau-foundation/coffer/lib/splitter"
	"github.com/bureau-foundation/coffer/lib/statcache"
)

// FormatVersion is the repository layout version Init writes and
// Open accepts.
const FormatVersion = 1

// IDSize is the size of a repository ID.
const IDSize = 32

const metadataPath = "repository"

var (
	// ErrNotEmpty is returned by Init when the backend already holds
	// objects.
	ErrNotEmpty = errors.New("repository: backend is not empty")

	// ErrNotRepository is returned by Open when the metadata file is
	// missing.
	ErrNotRepository = errors.New("repository: no repository metadata")
)

type metadata struct {
	Version int          `cbor:"version"`
	ID      [IDSize]byte `cbor:"id"`
}

// InitOptions configures Init.
type InitOptions struct {
	// Username names the first user.
	Username string

	// FullPassword unlocks reading and writing. WritePassword, if
	// set, unlocks writing only. At least one is required.
	FullPassword  *secret.Buffer
	WritePassword *secret.Buffer

	// WorkFactor is the scrypt work factor for the key files. Zero
	// means sealed.DefaultWorkFactor.
	WorkFactor int

	Logger *slog.Logger
}

// Init creates a repository in an empty backend and returns its ID.
func Init(ctx context.Context, store backend.Backend, options InitOptions) ([IDSize]byte, error) {
	var id [IDSize]byte
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := keyring.ValidateUsername(options.Username); err != nil {
		return id, err
	}
	if options.FullPassword == nil && options.WritePassword == nil {
		return id, fmt.Errorf("repository: a full or write password is required")
	}

	empty, err := isEmpty(ctx, store)
	if err != nil {
		return id, err
	}
	if !empty {
		return id, ErrNotEmpty
	}

	if directories, ok := store.(backend.Directories); ok {
		if err := createLayout(ctx, directories); err != nil {
			return id, err
		}
	}

	keys, err := sealed.GenerateKeypair()
	if err != nil {
		return id, fmt.Errorf("repository: %w", err)
	}
	defer keys.Close()

	ring := keyring.New(store, keyring.Options{WorkFactor: options.WorkFactor, Logger: logger})
	err = ring.CreateUser(ctx, options.Username, keys, keyring.UserKeys{
		FullPassword:  options.FullPassword,
		WritePassword: options.WritePassword,
	})
	if err != nil {
		return id, fmt.Errorf("repository: %w", err)
	}

	if _, err := rand.Read(id[:]); err != nil {
		return id, fmt.Errorf("repository: generating ID: %w", err)
	}
	encoded, err := codec.Marshal(metadata{Version: FormatVersion, ID: id})
	if err != nil {
		return id, fmt.Errorf("repository: encoding metadata: %w", err)
	}
	// Open refuses a backend without metadata, so it goes last.
	if _, err := backend.WriteBytes(ctx, store, metadataPath, encoded); err != nil {
		return id, fmt.Errorf("repository: writing metadata: %w", err)
	}

	logger.Info("repository initialized", "id", fmt.Sprintf("%x", id), "user", options.Username)
	return id, nil
}

var errFound = errors.New("found")

func isEmpty(ctx context.Context, store backend.Backend) (bool, error) {
	err := store.List(ctx, "", func(string) error { return errFound })
	if errors.Is(err, errFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("repository: listing backend: %w", err)
	}
	return true, nil
}

func createLayout(ctx context.Context, directories backend.Directories) error {
	paths := []string{"keys", object.TagPrefix[:len(object.TagPrefix)-1]}
	for index := range 256 {
		paths = append(paths, fmt.Sprintf("blobs/%02x", index))
	}
	for _, path := range paths {
		if err := directories.CreateDirectory(ctx, path); err != nil {
			return fmt.Errorf("repository: %w", err)
		}
	}
	return nil
}

// ReadID returns the ID recorded in a repository's metadata.
func ReadID(ctx context.Context, store backend.Backend) ([IDSize]byte, error) {
	data, err := store.Read(ctx, metadataPath)
	if errors.Is(err, backend.ErrNotFound) {
		return [IDSize]byte{}, ErrNotRepository
	}
	if err != nil {
		return [IDSize]byte{}, fmt.Errorf("repository: reading metadata: %w", err)
	}
	var meta metadata
	if err := codec.Unmarshal(data, &meta); err != nil {
		return [IDSize]byte{}, fmt.Errorf("repository: decoding metadata: %w", err)
	}
	if meta.Version != FormatVersion {
		return [IDSize]byte{}, fmt.Errorf("repository: unsupported format version %d", meta.Version)
	}
	return meta.ID, nil
}

// Options configures Open.
type Options struct {
	// Backend is owned by the Repository after a successful Open.
	Backend backend.Backend

	Username string

	// Password is borrowed, not closed.
	Password *secret.Buffer

	// CacheDir holds change cache databases. Empty disables the
	// cache.
	CacheDir string

	// MaxWorkFactor caps the scrypt work factor accepted from key
	// files. Zero means sealed.DefaultWorkFactor.
	MaxWorkFactor int

	Logger *slog.Logger
}

// Repository is one authenticated session.
type Repository struct {
	id      [IDSize]byte
	backend backend.Backend
	keyring *keyring.KeyRing
	cache   *statcache.Cache
	codec   *object.Codec
	logger  *slog.Logger
}

// Open authenticates against the repository in options.Backend.
func Open(ctx context.Context, options Options) (*Repository, error) {
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if options.Backend == nil {
		return nil, fmt.Errorf("repository: backend is required")
	}
	if options.Password == nil {
		return nil, fmt.Errorf("repository: password is required")
	}

	id, err := ReadID(ctx, options.Backend)
	if err != nil {
		return nil, err
	}

	ring := keyring.New(options.Backend, keyring.Options{
		MaxWorkFactor: options.MaxWorkFactor,
		Logger:        logger,
	})
	mode, err := ring.Authenticate(ctx, options.Username, options.Password)
	if err != nil {
		return nil, err
	}
	salt, err := ring.Salt()
	if err != nil {
		ring.Lock()
		return nil, err
	}

	repository := &Repository{
		id:      id,
		backend: options.Backend,
		keyring: ring,
		logger:  logger,
	}

	if options.CacheDir != "" {
		cache, err := statcache.Open(statcache.Options{
			Path:   statcache.DatabasePath(options.CacheDir, id[:]),
			Logger: logger,
		})
		if err != nil {
			logger.Warn("change cache unavailable", "error", err)
		} else {
			repository.cache = cache
		}
	}

	codecOptions := object.Options{
		Backend: options.Backend,
		Keys:    ring,
		Hasher:  blob.NewHasher(salt),
		Logger:  logger,
	}
	if repository.cache != nil {
		codecOptions.Known = repository.cache
	}
	repository.codec, err = object.New(codecOptions)
	if err != nil {
		repository.closeSession()
		return nil, fmt.Errorf("repository: %w", err)
	}

	if local, ok := options.Backend.(*backend.Local); ok {
		if removed, err := local.CleanTemp(); err != nil {
			logger.Warn("cannot clean temp files", "error", err)
		} else if removed > 0 {
			logger.Info("removed leftover temp files", "count", removed)
		}
	}

	logger.Info("repository opened", "id", fmt.Sprintf("%x", id), "user", options.Username, "mode", mode)
	return repository, nil
}

// ID returns the repository ID.
func (r *Repository) ID() [IDSize]byte { return r.id }

// Mode returns the access level the session holds.
func (r *Repository) Mode() keyring.Mode { return r.keyring.Mode() }

func (r *Repository) Backend() backend.Backend { return r.backend }

func (r *Repository) KeyRing() *keyring.KeyRing { return r.keyring }

func (r *Repository) Codec() *object.Codec { return r.codec }

// Cache returns the change cache, or nil when it is disabled or
// could not be opened.
func (r *Repository) Cache() *statcache.Cache { return r.cache }

// PutOptions returns put.Options wired to this session. Threads zero
// uses the backend's hint.
func (r *Repository) PutOptions(parameters splitter.Parameters, threads int, clk clock.Clock) put.Options {
	if threads <= 0 {
		threads = r.backend.Threads()
	}
	options := put.Options{
		Store:      r.codec,
		Threads:    threads,
		Parameters: parameters,
		Clock:      clk,
		Logger:     r.logger,
	}
	if r.cache != nil {
		options.Cache = r.cache
	}
	return options
}

// RebuildCache repopulates the known-object index from the backend's
// blob listing.
func (r *Repository) RebuildCache(ctx context.Context) (int, error) {
	if r.cache == nil {
		return 0, fmt.Errorf("repository: change cache is disabled")
	}
	return r.cache.Rebuild(ctx, r.backend, "blobs/")
}

func (r *Repository) closeSession() error {
	r.keyring.Lock()
	if r.cache != nil {
		return r.cache.Close()
	}
	return nil
}

// Close drops the keys and closes the cache and backend.
func (r *Repository) Close() error {
	return errors.Join(r.closeSession(), r.backend.Close())
}
