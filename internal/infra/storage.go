package infra

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DocumentStore abstracts the object store holding generated documents
// (e-invoice XML, invoice PDFs). Reads and writes are keyed by a
// slash-separated storage path; downloads happen through short-lived
// signed links rather than direct access.
type DocumentStore interface {
	Save(ctx context.Context, path string, data []byte) error
	Get(ctx context.Context, path string) ([]byte, error)
	SignedURL(path string, ttl time.Duration) string
	// VerifySignature checks an exp/sig pair produced by SignedURL.
	VerifySignature(path string, exp int64, sig string) bool
}

// FileStore is the filesystem-backed default store. Signed links carry an
// HMAC over path+expiry, so a leaked storage path alone grants nothing.
type FileStore struct {
	root    string
	baseURL string
	secret  []byte
}

func NewFileStore(root, baseURL, secret string) *FileStore {
	return &FileStore{root: root, baseURL: strings.TrimRight(baseURL, "/"), secret: []byte(secret)}
}

func (s *FileStore) Save(_ context.Context, path string, data []byte) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("storage: create dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	return nil
}

func (s *FileStore) Get(_ context.Context, path string) ([]byte, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

func (s *FileStore) SignedURL(path string, ttl time.Duration) string {
	// The path stays slash-separated so the download route sees exactly
	// the string that was signed.
	exp := time.Now().Add(ttl).Unix()
	return fmt.Sprintf("%s/v1/files/%s?exp=%d&sig=%s",
		s.baseURL, path, exp, s.sign(path, exp))
}

func (s *FileStore) VerifySignature(path string, exp int64, sig string) bool {
	if time.Now().Unix() > exp {
		return false
	}
	return hmac.Equal([]byte(sig), []byte(s.sign(path, exp)))
}

func (s *FileStore) sign(path string, exp int64) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(path))
	mac.Write([]byte("|"))
	mac.Write([]byte(strconv.FormatInt(exp, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// resolve joins path under root and rejects traversal outside it.
func (s *FileStore) resolve(path string) (string, error) {
	full := filepath.Join(s.root, filepath.FromSlash(path))
	if !strings.HasPrefix(full, filepath.Clean(s.root)+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: invalid path %q", path)
	}
	return full, nil
}
