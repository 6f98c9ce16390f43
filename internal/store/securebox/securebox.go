// Package securebox is a file-backed SecureStore. Values are kept in a single
// sealed file so a leaked device backup does not expose the auth token.
package securebox

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/dvir/roombill-client/internal/store"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

var ErrCorruptBox = errors.New("secure store file is corrupt")

// Box seals a small string map into one file with ChaCha20-Poly1305. The
// sealing key is derived from the caller-supplied passphrase with HKDF-SHA256.
type Box struct {
	path string

	mu     sync.Mutex
	key    []byte
	values map[string]string
	loaded bool
}

var _ store.SecureStore = (*Box)(nil)

func Open(path, passphrase string) (*Box, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, []byte(passphrase), nil, []byte("roombill-securebox"))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, err
	}
	return &Box{path: path, key: key}, nil
}

func (b *Box) Get(ctx context.Context, key string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.load(); err != nil {
		return "", err
	}
	return b.values[key], nil
}

func (b *Box) Set(ctx context.Context, key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.load(); err != nil {
		return err
	}
	b.values[key] = value
	return b.save()
}

func (b *Box) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.load(); err != nil {
		return err
	}
	delete(b.values, key)
	return b.save()
}

func (b *Box) load() error {
	if b.loaded {
		return nil
	}
	b.values = make(map[string]string)
	b.loaded = true

	sealed, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	aead, err := chacha20poly1305.NewX(b.key)
	if err != nil {
		return err
	}
	if len(sealed) < aead.NonceSize() {
		return ErrCorruptBox
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return ErrCorruptBox
	}
	if err := json.Unmarshal(plain, &b.values); err != nil {
		return ErrCorruptBox
	}
	return nil
}

func (b *Box) save() error {
	plain, err := json.Marshal(b.values)
	if err != nil {
		return err
	}
	aead, err := chacha20poly1305.NewX(b.key)
	if err != nil {
		return err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return err
	}
	sealed := aead.Seal(nonce, nonce, plain, nil)

	if err := os.MkdirAll(filepath.Dir(b.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(b.path, sealed, 0o600)
}
