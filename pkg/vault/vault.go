package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/zalando/go-keyring"
	"go.uber.org/zap"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the size of the symmetric master key in bytes (AES-256).
	KeySize = 32

	// kdfIterations is the PBKDF2 iteration count for password-derived keys.
	kdfIterations = 100_000

	// blobVersion is the current on-disk credential blob format.
	blobVersion = 1

	masterKeyFile  = "master.key"
	keyringService = "alertmail"
	keyringUser    = "master-key"
)

// ErrDecryptionFailed indicates that a ciphertext did not authenticate,
// either because it was tampered with or the wrong key was supplied.
var ErrDecryptionFailed = errors.New("ciphertext did not authenticate (tampered data or wrong key)")

// EncryptionError wraps failures of encrypt/decrypt operations with the
// operation that failed. Decryption never returns partial plaintext; callers
// get either the exact original bytes or an error of this type.
type EncryptionError struct {
	Op  string
	Err error
}

func (e *EncryptionError) Error() string {
	return fmt.Sprintf("vault: %s: %v", e.Op, e.Err)
}

func (e *EncryptionError) Unwrap() error { return e.Err }

// Blob is an encrypted credential as stored on disk. The plaintext never
// appears in any persisted form.
type Blob struct {
	Version int    `json:"version"`
	Nonce   []byte `json:"nonce"`
	Salt    []byte `json:"salt,omitempty"`
	Data    []byte `json:"data"`
}

// Vault encrypts and decrypts secret credential material. Keys come either
// from a master key (persisted once, reused across sessions) or are derived
// from a user password. Decryption is serialized so that at most one
// plaintext buffer is alive at a time.
type Vault struct {
	dir        string
	useKeyring bool
	log        *zap.SugaredLogger

	// decryptMu serializes decryption: the decrypted secret lives in a
	// short-lived buffer that must not be concurrently aliased.
	decryptMu sync.Mutex
}

// Option configures a Vault.
type Option func(*Vault)

// WithKeyring stores the master key in the operating system keyring instead
// of a file in the vault directory.
func WithKeyring() Option {
	return func(v *Vault) { v.useKeyring = true }
}

// New creates a Vault rooted at dir. The directory is created with
// restrictive permissions if it does not exist.
func New(dir string, log *zap.SugaredLogger, opts ...Option) (*Vault, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating vault dir: %w", err)
	}
	v := &Vault{dir: dir, log: log.Named("vault")}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// GenerateMasterKey returns a fresh random 32-byte key.
func GenerateMasterKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating master key: %w", err)
	}
	return key, nil
}

// MasterKey returns the persisted master key, creating and persisting a new
// one on first use.
func (v *Vault) MasterKey() ([]byte, error) {
	key, err := v.loadMasterKey()
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, os.ErrNotExist) && !errors.Is(err, keyring.ErrNotFound) {
		return nil, err
	}

	key, err = GenerateMasterKey()
	if err != nil {
		return nil, err
	}
	if err := v.storeMasterKey(key); err != nil {
		return nil, err
	}
	v.log.Infow("Generated new master encryption key", "backend", v.backendName())
	return key, nil
}

// RotateMasterKey generates a new master key, persists it, and re-encrypts
// the given blob under the new key. Blobs held elsewhere become undecryptable
// and must be re-saved by the caller.
func (v *Vault) RotateMasterKey(blob Blob) (Blob, error) {
	oldKey, err := v.loadMasterKey()
	if err != nil {
		return Blob{}, fmt.Errorf("loading current master key: %w", err)
	}
	plaintext, err := v.Decrypt(blob, oldKey)
	if err != nil {
		return Blob{}, err
	}
	defer Wipe(plaintext)

	newKey, err := GenerateMasterKey()
	if err != nil {
		return Blob{}, err
	}
	rotated, err := Encrypt(plaintext, newKey)
	if err != nil {
		return Blob{}, err
	}
	if err := v.storeMasterKey(newKey); err != nil {
		return Blob{}, err
	}
	v.log.Infow("Master key rotated", "backend", v.backendName())
	return rotated, nil
}

func (v *Vault) backendName() string {
	if v.useKeyring {
		return "keyring"
	}
	return "file"
}

func (v *Vault) loadMasterKey() ([]byte, error) {
	if v.useKeyring {
		encoded, err := keyring.Get(keyringService, keyringUser)
		if err != nil {
			return nil, err
		}
		key, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("decoding keyring master key: %w", err)
		}
		return key, nil
	}
	key, err := os.ReadFile(filepath.Join(v.dir, masterKeyFile))
	if err != nil {
		return nil, err
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("master key file has unexpected size %d", len(key))
	}
	return key, nil
}

func (v *Vault) storeMasterKey(key []byte) error {
	if v.useKeyring {
		if err := keyring.Set(keyringService, keyringUser, base64.StdEncoding.EncodeToString(key)); err != nil {
			return fmt.Errorf("storing master key in keyring: %w", err)
		}
		return nil
	}
	path := filepath.Join(v.dir, masterKeyFile)
	if err := os.WriteFile(path, key, 0o600); err != nil {
		return fmt.Errorf("writing master key file: %w", err)
	}
	return nil
}

// DeriveKey derives an encryption key from a user password and salt using
// PBKDF2-HMAC-SHA256. The same password and salt always yield the same key,
// so the key itself never needs to be stored.
func DeriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, kdfIterations, KeySize, sha256.New)
}

// NewSalt returns a fresh random 16-byte KDF salt.
func NewSalt() ([]byte, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}
	return salt, nil
}

// Encrypt seals plaintext with AES-256-GCM under key. A fresh random nonce is
// used per call, so encrypting identical plaintext twice yields different
// ciphertext.
func Encrypt(plaintext, key []byte) (Blob, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return Blob{}, &EncryptionError{Op: "encrypt", Err: err}
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return Blob{}, &EncryptionError{Op: "encrypt", Err: err}
	}
	return Blob{
		Version: blobVersion,
		Nonce:   nonce,
		Data:    aead.Seal(nil, nonce, plaintext, nil),
	}, nil
}

// Decrypt opens a blob with key. If the authentication tag does not verify
// the call fails with an EncryptionError wrapping ErrDecryptionFailed; it
// never returns altered or partial plaintext.
func (v *Vault) Decrypt(blob Blob, key []byte) ([]byte, error) {
	v.decryptMu.Lock()
	defer v.decryptMu.Unlock()
	return decrypt(blob, key)
}

func decrypt(blob Blob, key []byte) ([]byte, error) {
	if blob.Version != blobVersion {
		return nil, &EncryptionError{Op: "decrypt", Err: fmt.Errorf("unsupported blob version %d", blob.Version)}
	}
	aead, err := newAEAD(key)
	if err != nil {
		return nil, &EncryptionError{Op: "decrypt", Err: err}
	}
	if len(blob.Nonce) != aead.NonceSize() {
		return nil, &EncryptionError{Op: "decrypt", Err: ErrDecryptionFailed}
	}
	plaintext, err := aead.Open(nil, blob.Nonce, blob.Data, nil)
	if err != nil {
		return nil, &EncryptionError{Op: "decrypt", Err: ErrDecryptionFailed}
	}
	return plaintext, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Wipe overwrites a secret buffer. Best effort: the runtime may have copied
// the data elsewhere, but hot references are cleared.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
