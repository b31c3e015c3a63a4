package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

// Credentials is the encrypted portal login pair. The password never sits in
// cleartext on disk: it is sealed with AES-GCM under a key derived from a
// local passphrase (HYDROSCAN_CREDENTIALS_KEY).
type Credentials struct {
	Username string `json:"username"`
	Salt     string `json:"salt"`
	Sealed   string `json:"sealed"`
}

const pbkdf2Iterations = 600_000

// credMu guards read-modify-write cycles on the credentials file.
var credMu sync.Mutex

func CredentialsPath() string {
	return filepath.Join(ConfigDir(), "credentials.json")
}

func deriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iterations, 32, sha256.New)
}

// SaveCredentials seals the password and writes the credentials file.
func SaveCredentials(path, username, password, passphrase string) error {
	credMu.Lock()
	defer credMu.Unlock()

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("generating salt: %w", err)
	}

	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return fmt.Errorf("building cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return fmt.Errorf("building GCM: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generating nonce: %w", err)
	}
	sealed := gcm.Seal(nonce, nonce, []byte(password), nil)

	creds := Credentials{
		Username: username,
		Salt:     base64.StdEncoding.EncodeToString(salt),
		Sealed:   base64.StdEncoding.EncodeToString(sealed),
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating credentials dir: %w", err)
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}

// LoadCredentials opens the credentials file and unseals the password.
func LoadCredentials(path, passphrase string) (username, password string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("reading credentials: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return "", "", fmt.Errorf("parsing credentials %s: %w", path, err)
	}

	salt, err := base64.StdEncoding.DecodeString(creds.Salt)
	if err != nil {
		return "", "", fmt.Errorf("decoding salt: %w", err)
	}
	sealed, err := base64.StdEncoding.DecodeString(creds.Sealed)
	if err != nil {
		return "", "", fmt.Errorf("decoding sealed password: %w", err)
	}

	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return "", "", fmt.Errorf("building cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", "", fmt.Errorf("building GCM: %w", err)
	}
	if len(sealed) < gcm.NonceSize() {
		return "", "", fmt.Errorf("credentials %s truncated", path)
	}
	plain, err := gcm.Open(nil, sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():], nil)
	if err != nil {
		return "", "", fmt.Errorf("unsealing password (wrong passphrase?): %w", err)
	}

	return creds.Username, string(plain), nil
}
