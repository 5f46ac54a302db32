package store

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"
)

// ProviderRow is a persisted external provider configuration. The API
// key is plaintext in memory and AES-GCM encrypted at rest.
type ProviderRow struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Endpoint  string        `json:"endpoint"`
	APIKey    string        `json:"api_key"`
	Timeout   time.Duration `json:"timeout"`
	IsDefault bool          `json:"is_default"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// encryptKey returns the 32-byte AES key from PIXELTOWN_ENCRYPT_KEY.
func encryptKey() ([]byte, error) {
	keyHex := os.Getenv("PIXELTOWN_ENCRYPT_KEY")
	if keyHex == "" {
		return nil, fmt.Errorf("PIXELTOWN_ENCRYPT_KEY not set")
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("decode PIXELTOWN_ENCRYPT_KEY: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("PIXELTOWN_ENCRYPT_KEY must be 64 hex chars (32 bytes), got %d bytes", len(key))
	}
	return key, nil
}

func encrypt(plaintext string) ([]byte, error) {
	key, err := encryptKey()
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

func decrypt(ciphertext []byte) (string, error) {
	if len(ciphertext) == 0 {
		return "", nil
	}
	key, err := encryptKey()
	if err != nil {
		return "", err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("new gcm: %w", err)
	}
	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}
	nonce, ct := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plaintext), nil
}

// SaveProvider upserts a provider configuration with encrypted API key.
func (s *Store) SaveProvider(ctx context.Context, p *ProviderRow) error {
	encKey, err := encrypt(p.APIKey)
	if err != nil {
		return fmt.Errorf("encrypt api_key: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO providers (id, name, endpoint, api_key_enc, timeout_ms, is_default)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			endpoint = EXCLUDED.endpoint,
			api_key_enc = EXCLUDED.api_key_enc,
			timeout_ms = EXCLUDED.timeout_ms,
			updated_at = NOW()`,
		p.ID, p.Name, p.Endpoint, encKey, p.Timeout.Milliseconds(), p.IsDefault,
	)
	if err != nil {
		return fmt.Errorf("save provider %s: %w", p.ID, err)
	}
	return nil
}

// GetProvider returns one provider with its decrypted API key.
func (s *Store) GetProvider(ctx context.Context, id string) (*ProviderRow, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, endpoint, api_key_enc, timeout_ms, is_default, created_at, updated_at
		FROM providers WHERE id = $1`, id)
	return scanProvider(row)
}

// ListProviders returns all configured providers.
func (s *Store) ListProviders(ctx context.Context) ([]*ProviderRow, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, endpoint, api_key_enc, timeout_ms, is_default, created_at, updated_at
		FROM providers ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query providers: %w", err)
	}
	defer rows.Close()

	var providers []*ProviderRow
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return providers, rows.Err()
}

// DeleteProvider removes a provider configuration.
func (s *Store) DeleteProvider(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM providers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete provider %s: %w", id, err)
	}
	return nil
}

// SetDefaultProvider marks one provider as default, clearing the rest.
func (s *Store) SetDefaultProvider(ctx context.Context, id string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE providers SET is_default = false WHERE is_default = true`); err != nil {
		return fmt.Errorf("clear defaults: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE providers SET is_default = true, updated_at = NOW() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("set default: %w", err)
	}
	return tx.Commit(ctx)
}

func scanProvider(row rowScanner) (*ProviderRow, error) {
	var p ProviderRow
	var encKey []byte
	var timeoutMS int64
	if err := row.Scan(&p.ID, &p.Name, &p.Endpoint, &encKey, &timeoutMS,
		&p.IsDefault, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, fmt.Errorf("scan provider: %w", err)
	}
	key, err := decrypt(encKey)
	if err != nil {
		return nil, err
	}
	p.APIKey = key
	p.Timeout = time.Duration(timeoutMS) * time.Millisecond
	return &p, nil
}
