package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Confirmation is the result of comparing a published file with the local
// build it was uploaded from.
type Confirmation struct {
	Artifact    ArtifactInfo
	LocalSHA256 string
	// RemoteSHA256 is the digest of the downloaded bytes.
	RemoteSHA256 string
}

// Matches reports whether the local file, the index's recorded digest and
// the downloaded bytes all agree.
func (c *Confirmation) Matches() bool {
	if c.LocalSHA256 != c.RemoteSHA256 {
		return false
	}
	return c.Artifact.SHA256 == "" || strings.EqualFold(c.Artifact.SHA256, c.LocalSHA256)
}

// Confirm resolves the published copy of localPath, downloads it and
// compares digests.
func Confirm(ctx context.Context, r *Resolver, d Downloader, target, name, version, localPath string) (*Confirmation, error) {
	local, err := FileSHA256(localPath)
	if err != nil {
		return nil, err
	}

	info, err := r.Resolve(ctx, target, name, version, filepath.Base(localPath))
	if err != nil {
		return nil, err
	}

	remote, _, err := Digest(ctx, d, info.URL)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", info.Filename, err)
	}

	return &Confirmation{
		Artifact:     *info,
		LocalSHA256:  local,
		RemoteSHA256: remote,
	}, nil
}

// FileSHA256 returns the hex sha256 of the file at path.
func FileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
