package signer

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cometbft/cometbft/crypto"
	"github.com/cometbft/cometbft/crypto/ed25519"
	"golang.org/x/crypto/argon2"
)

// KeyFile is the name of the encrypted key file inside a key directory.
const KeyFile = "signer.json"

// ErrKeyExists is returned when creating a key over an existing key file.
var ErrKeyExists = errors.New("key file already exists")

// FileSigner is an ed25519 signer whose key is stored encrypted on disk.
type FileSigner struct {
	privKey ed25519.PrivKey
}

var _ Signer = (*FileSigner)(nil)

type keyData struct {
	PrivKeyEncrypted []byte `json:"priv_key_encrypted"`
	Nonce            []byte `json:"nonce"`
	PubKey           []byte `json:"pub_key"`
	Salt             []byte `json:"salt"`
}

// NewFileSigner wraps an in-memory key.
func NewFileSigner(privKey ed25519.PrivKey) *FileSigner {
	return &FileSigner{privKey: privKey}
}

// CreateFileSigner generates a new key and saves it in dir, encrypted with passphrase.
func CreateFileSigner(dir string, passphrase []byte) (*FileSigner, error) {
	return ImportFileSigner(dir, ed25519.GenPrivKey(), passphrase, false)
}

// ImportFileSigner saves privKey in dir, encrypted with passphrase.
// An existing key file is only replaced when overwrite is set.
func ImportFileSigner(dir string, privKey ed25519.PrivKey, passphrase []byte, overwrite bool) (*FileSigner, error) {
	if len(passphrase) == 0 {
		return nil, fmt.Errorf("passphrase must not be empty")
	}
	if len(privKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(privKey))
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create key directory: %w", err)
	}
	path := filepath.Join(dir, KeyFile)
	if _, err := os.Stat(path); err == nil && !overwrite {
		return nil, fmt.Errorf("%w: %s", ErrKeyExists, path)
	} else if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to check key file: %w", err)
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	data, err := json.Marshal(keyData{
		PrivKeyEncrypted: gcm.Seal(nil, nonce, privKey, nil),
		Nonce:            nonce,
		PubKey:           privKey.PubKey().Bytes(),
		Salt:             salt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal key data: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write key file: %w", err)
	}
	return NewFileSigner(privKey), nil
}

// LoadFileSigner decrypts the key stored in dir.
func LoadFileSigner(dir string, passphrase []byte) (*FileSigner, error) {
	path := filepath.Join(dir, KeyFile)
	bz, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	var data keyData
	if err := json.Unmarshal(bz, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal key data: %w", err)
	}

	gcm, err := newGCM(passphrase, data.Salt)
	if err != nil {
		return nil, err
	}
	raw, err := gcm.Open(nil, data.Nonce, data.PrivKeyEncrypted, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt private key (wrong passphrase?): %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("decrypted key has %d bytes, expected %d", len(raw), ed25519.PrivateKeySize)
	}
	privKey := ed25519.PrivKey(raw)
	if !privKey.PubKey().Equals(ed25519.PubKey(data.PubKey)) {
		return nil, fmt.Errorf("public key in %s does not match the private key", path)
	}
	return NewFileSigner(privKey), nil
}

// Sign implements Signer.
func (s *FileSigner) Sign(msg []byte) ([]byte, error) {
	return s.privKey.Sign(msg)
}

// PubKey implements Signer.
func (s *FileSigner) PubKey() crypto.PubKey {
	return s.privKey.PubKey()
}

// PrivKey returns the raw private key.
func (s *FileSigner) PrivKey() ed25519.PrivKey {
	return s.privKey
}

func newGCM(passphrase, salt []byte) (cipher.AEAD, error) {
	// argon2id: 3 passes over 32MiB with 4 lanes
	key := argon2.IDKey(passphrase, salt, 3, 32*1024, 4, 32)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
