package policysource

import (
	"context"
	"crypto/sha256"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/faultline/internal/domain/faultpolicy"
)

const defaultFilePollInterval = 15 * time.Second

// FileSource loads the policy from a JSON or YAML file, chosen by extension.
// Watch polls mtime plus a content hash so editors that rewrite the file
// in place without touching mtime still trigger a reload.
type FileSource struct {
	path         string
	format       policyFormat
	pollInterval time.Duration
	logger       *slog.Logger
}

func NewFileSource(path string, pollInterval time.Duration, logger *slog.Logger) (*FileSource, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, crerr.New("policy file path is required")
	}
	if pollInterval <= 0 {
		pollInterval = defaultFilePollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	format := formatJSON
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = formatYAML
	}

	return &FileSource{
		path:         path,
		format:       format,
		pollInterval: pollInterval,
		logger:       logger,
	}, nil
}

func (s *FileSource) Load(_ context.Context) (faultpolicy.Policy, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return faultpolicy.Policy{}, crerr.Wrapf(err, "read policy file %s", s.path)
	}

	policy, err := decodePolicy(raw, s.format)
	if err != nil {
		return faultpolicy.Policy{}, crerr.Wrapf(err, "policy file %s", s.path)
	}

	return policy, nil
}

func (s *FileSource) Watch(ctx context.Context, onChange func(faultpolicy.Policy)) error {
	lastMod, lastHash := s.currentStamp()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		info, err := os.Stat(s.path)
		if err != nil {
			s.logger.WarnContext(ctx, "policy file stat failed", "path", s.path, "error", err)
			continue
		}

		raw, err := os.ReadFile(s.path)
		if err != nil {
			s.logger.WarnContext(ctx, "policy file read failed", "path", s.path, "error", err)
			continue
		}
		hash := sha256.Sum256(raw)

		if info.ModTime().Equal(lastMod) && hash == lastHash {
			continue
		}
		lastMod, lastHash = info.ModTime(), hash

		policy, err := decodePolicy(raw, s.format)
		if err != nil {
			s.logger.ErrorContext(ctx, "policy file change rejected", "path", s.path, "error", err)
			continue
		}

		s.logger.InfoContext(ctx, "policy file changed", "path", s.path)
		onChange(policy)
	}
}

func (s *FileSource) currentStamp() (time.Time, [sha256.Size]byte) {
	var hash [sha256.Size]byte
	info, err := os.Stat(s.path)
	if err != nil {
		return time.Time{}, hash
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return info.ModTime(), hash
	}
	return info.ModTime(), sha256.Sum256(raw)
}
