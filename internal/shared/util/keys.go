package util

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidKey is returned for storage keys that could escape the store root.
var ErrInvalidKey = errors.New("invalid storage key")

const namespaceLen = 32

// UserNamespace returns the storage directory of a user. Raw user IDs never
// appear in object paths.
func UserNamespace(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(sum[:])[:namespaceLen]
}

// NewObjectKey returns a fresh key of the form
// <namespace>/<random hex>_<sanitized file name> for an upload.
func NewObjectKey(userID, fileName string) (string, error) {
	name, err := SanitizeFileName(fileName)
	if err != nil {
		return "", fmt.Errorf("sanitize file name: %w", err)
	}
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return path.Join(UserNamespace(userID), random+"_"+name), nil
}

// CheckObjectKey rejects empty, absolute and parent-relative keys.
func CheckObjectKey(key string) error {
	clean := path.Clean(strings.ReplaceAll(key, `\`, "/"))
	switch {
	case strings.TrimSpace(key) == "", clean == ".", clean == "..",
		strings.HasPrefix(clean, "../"), strings.HasPrefix(clean, "/"):
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
