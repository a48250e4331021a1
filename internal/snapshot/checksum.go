package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileChecksum computes the SHA-256 digest of a file as lowercase hex
func FileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", NewStorageError("failed to open file for checksum", err).WithContext("path", path)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", NewStorageError("failed to read file for checksum", err).WithContext("path", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// WriteChecksumFile writes a sidecar in sha256sum text format:
// "<hex>  <name>\n". The name is the base name of the target so the
// sidecar stays valid when the snapshot directory moves.
func WriteChecksumFile(targetPath, checksum string) error {
	sidecar := targetPath + ChecksumSuffix
	line := fmt.Sprintf("%s  %s\n", checksum, filepath.Base(targetPath))
	if err := os.WriteFile(sidecar, []byte(line), 0644); err != nil {
		return NewStorageError("failed to write checksum file", err).WithContext("path", sidecar)
	}
	return nil
}

// ReadChecksumFile parses a sha256sum style sidecar and returns the
// recorded digest and file name.
func ReadChecksumFile(sidecarPath string) (checksum, name string, err error) {
	data, err := os.ReadFile(sidecarPath)
	if err != nil {
		return "", "", NewStorageError("failed to read checksum file", err).WithContext("path", sidecarPath)
	}

	line := strings.TrimSpace(string(data))
	// sha256sum separates digest and name with two spaces, or space
	// plus asterisk in binary mode
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", "", NewCorruptionError("malformed checksum file", nil).WithContext("path", sidecarPath)
	}

	checksum = strings.ToLower(fields[0])
	if len(checksum) != sha256.Size*2 {
		return "", "", NewCorruptionError("checksum has wrong length", nil).
			WithContext("path", sidecarPath).
			WithContext("length", len(checksum))
	}
	if _, decodeErr := hex.DecodeString(checksum); decodeErr != nil {
		return "", "", NewCorruptionError("checksum is not valid hex", decodeErr).WithContext("path", sidecarPath)
	}

	name = strings.TrimPrefix(fields[1], "*")
	return checksum, name, nil
}

// VerifyChecksum recomputes a file's digest and compares it against
// its sidecar. A mismatch returns a corruption error.
func VerifyChecksum(targetPath string) error {
	recorded, _, err := ReadChecksumFile(targetPath + ChecksumSuffix)
	if err != nil {
		return err
	}

	actual, err := FileChecksum(targetPath)
	if err != nil {
		return err
	}

	if actual != recorded {
		return NewCorruptionError("checksum mismatch", nil).
			WithContext("path", targetPath).
			WithContext("expected", recorded).
			WithContext("actual", actual)
	}
	return nil
}
