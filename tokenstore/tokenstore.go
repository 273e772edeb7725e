// Package tokenstore persists OAuth tokens to local files so they survive
// restarts and can be refreshed by background workers. Files are encrypted at
// rest with AES-256-GCM when TOKEN_ENCRYPTION_KEY is set.
package tokenstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/acnlive/livebot/backend/crypto"
)

// Store reads and writes one token file per provider under dir.
type Store struct {
	dir       string
	encryptor crypto.Encryptor // nil when encryption is disabled
}

type tokenFile struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	Expiry       time.Time `json:"expiry"`
	Raw          string    `json:"raw,omitempty"`
}

// New creates a store rooted at dir. When TOKEN_ENCRYPTION_KEY is set, token
// files are encrypted; otherwise they are stored in plaintext with a warning.
func New(dir string) (*Store, error) {
	if dir == "" {
		dir = "data"
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create token dir: %w", err)
	}

	s := &Store{dir: dir}
	if key := os.Getenv("TOKEN_ENCRYPTION_KEY"); key != "" {
		enc, err := crypto.NewAESEncryptor(key)
		if err != nil {
			return nil, fmt.Errorf("init token encryption: %w", err)
		}
		s.encryptor = enc
		slog.Info("token file encryption enabled (AES-256-GCM)")
	} else {
		slog.Warn("TOKEN_ENCRYPTION_KEY not set, OAuth tokens stored in plaintext (not recommended for production)")
	}
	return s, nil
}

func (s *Store) path(provider string) string {
	return filepath.Join(s.dir, provider+".token")
}

// UpsertOAuthToken writes the provider's token file atomically.
func (s *Store) UpsertOAuthToken(_ context.Context, provider, accessToken, refreshToken string, expiry time.Time, raw string) error {
	data, err := json.Marshal(tokenFile{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Expiry:       expiry,
		Raw:          raw,
	})
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	if s.encryptor != nil {
		data, err = s.encryptor.Encrypt(data)
		if err != nil {
			return fmt.Errorf("encrypt token: %w", err)
		}
	}

	tmp := s.path(provider) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	if err := os.Rename(tmp, s.path(provider)); err != nil {
		return fmt.Errorf("replace token file: %w", err)
	}
	return nil
}

// GetOAuthToken reads the provider's token file. A missing file is not an
// error; it returns empty values, matching "no token stored yet".
func (s *Store) GetOAuthToken(_ context.Context, provider string) (accessToken, refreshToken string, expiry time.Time, raw string, err error) {
	data, err := os.ReadFile(s.path(provider))
	if err != nil {
		if os.IsNotExist(err) {
			return "", "", time.Time{}, "", nil
		}
		return "", "", time.Time{}, "", fmt.Errorf("read token file: %w", err)
	}
	if s.encryptor != nil {
		data, err = s.encryptor.Decrypt(data)
		if err != nil {
			return "", "", time.Time{}, "", fmt.Errorf("decrypt token file: %w", err)
		}
	}
	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return "", "", time.Time{}, "", fmt.Errorf("parse token file: %w", err)
	}
	return tf.AccessToken, tf.RefreshToken, tf.Expiry, tf.Raw, nil
}
