package keyring

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/yllada/portal-login/common"
)

const saltSize = 16

// Argon2id parameters for deriving the file key.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// fileStore keeps secrets in a single file encrypted with
// XChaCha20-Poly1305. Layout: base64(salt || nonce || ciphertext).
// Callers serialize access.
type fileStore struct {
	path    string
	secret  []byte
	salt    []byte
	entries map[string]string
}

func openFileStore(path string, secret []byte) (*fileStore, error) {
	s := &fileStore{
		path:    path,
		secret:  secret,
		entries: make(map[string]string),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.salt = make([]byte, saltSize)
			if _, err := rand.Read(s.salt); err != nil {
				return nil, err
			}
			return s, nil
		}
		return nil, err
	}

	if err := s.decode(data); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *fileStore) get(key string) (string, bool) {
	v, ok := s.entries[key]
	return v, ok
}

func (s *fileStore) set(key, value string) error {
	s.entries[key] = value
	return s.save()
}

func (s *fileStore) delete(key string) (bool, error) {
	if _, ok := s.entries[key]; !ok {
		return false, nil
	}
	delete(s.entries, key)
	return true, s.save()
}

func (s *fileStore) aead() (cipher.AEAD, error) {
	k := argon2.IDKey(s.secret, s.salt, argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)
	return chacha20poly1305.NewX(k)
}

func (s *fileStore) save() error {
	plaintext, err := json.Marshal(s.entries)
	if err != nil {
		return err
	}

	aead, err := s.aead()
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrEncryption, err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("%w: %v", common.ErrEncryption, err)
	}

	blob := append([]byte{}, s.salt...)
	blob = append(blob, nonce...)
	blob = aead.Seal(blob, nonce, plaintext, nil)

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}
	return os.WriteFile(s.path, []byte(base64.StdEncoding.EncodeToString(blob)), 0600)
}

func (s *fileStore) decode(data []byte) error {
	blob, err := base64.StdEncoding.DecodeString(string(data))
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrDecryption, err)
	}
	if len(blob) < saltSize+chacha20poly1305.NonceSizeX {
		return fmt.Errorf("%w: credentials file too short", common.ErrDecryption)
	}

	s.salt = blob[:saltSize]
	aead, err := s.aead()
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrDecryption, err)
	}

	nonce := blob[saltSize : saltSize+aead.NonceSize()]
	plaintext, err := aead.Open(nil, nonce, blob[saltSize+aead.NonceSize():], nil)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrDecryption, err)
	}
	return json.Unmarshal(plaintext, &s.entries)
}

