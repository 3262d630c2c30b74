package core

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/barysiuk/skillfork/internal/logger"
	"github.com/tailscale/hujson"
)

const (
	corruptSuffix       = ".corrupt"
	updateAttempts      = 5
	updateRetryDelay    = 25 * time.Millisecond
	updateRetryMaxDelay = 500 * time.Millisecond
)

// Find returns the entry whose name matches case-insensitively and its index,
// or nil and -1.
func (m *Manifest) Find(name string) (*SkillEntry, int) {
	for i := range m.Skills {
		if strings.EqualFold(m.Skills[i].Name, name) {
			return &m.Skills[i], i
		}
	}
	return nil, -1
}

// Upsert replaces the entry with the same name in place, or appends it.
// Unknown members of the replaced entry are kept unless entry brings its own.
// It reports whether an existing entry was replaced.
func (m *Manifest) Upsert(entry SkillEntry) bool {
	if existing, i := m.Find(entry.Name); i >= 0 {
		if entry.Extra == nil {
			entry.Extra = existing.Extra
		}
		m.Skills[i] = entry
		return true
	}
	m.Skills = append(m.Skills, entry)
	return false
}

// Remove deletes the entry with the given name. It reports whether one was found.
func (m *Manifest) Remove(name string) bool {
	_, i := m.Find(name)
	if i < 0 {
		return false
	}
	m.Skills = append(m.Skills[:i], m.Skills[i+1:]...)
	return true
}

// ManifestStore reads and writes skills-manifest.json.
//
// Writes are whole-document snapshots. Update performs an optimistic
// compare-and-swap: if the file changed between load and save the cycle is
// retried. A small window remains between the check and the rename, so two
// processes racing within it can still lose an update.
type ManifestStore struct {
	path string
	mu   sync.Mutex
}

// NewManifestStore creates a store for the manifest at path.
func NewManifestStore(path string) *ManifestStore {
	return &ManifestStore{path: path}
}

// Path returns the manifest file path.
func (s *ManifestStore) Path() string {
	return s.path
}

// Load reads the manifest. The returned manifest is never nil: a missing file
// yields an empty catalog and a nil error, an unreadable one yields an empty
// catalog and a *ManifestUnreadableError.
func (s *ManifestStore) Load() (*Manifest, error) {
	m, _, err := s.load()
	return m, err
}

// load returns the manifest plus the raw bytes it was read from (nil if the
// file does not exist).
func (s *ManifestStore) load() (*Manifest, []byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return emptyManifest(), nil, nil
		}
		return emptyManifest(), nil, &ManifestUnreadableError{Path: s.path, Err: err}
	}
	if data == nil {
		data = []byte{}
	}

	m, err := decodeManifest(data)
	if err != nil {
		return emptyManifest(), data, &ManifestUnreadableError{Path: s.path, Err: err}
	}
	return m, data, nil
}

// Save writes the manifest to disk atomically, creating the directory if needed.
func (s *ManifestStore) Save(m *Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := encodeManifest(m)
	if err != nil {
		return err
	}
	return s.write(data, nil)
}

// ManifestUpdate describes a completed (or previewed) manifest update.
type ManifestUpdate struct {
	Manifest  *Manifest
	Before    []byte                   // Manifest bytes before the change (nil if absent)
	After     []byte                   // Serialized manifest after the change
	Recovered *ManifestUnreadableError // Set when an unreadable manifest was replaced
}

// Update loads the manifest, applies fn and saves the result, retrying when
// another writer changed the file in between.
func (s *ManifestStore) Update(ctx context.Context, fn func(*Manifest) error) (*ManifestUpdate, error) {
	return s.update(ctx, fn, true)
}

// Preview applies fn to the current manifest without writing anything.
func (s *ManifestStore) Preview(ctx context.Context, fn func(*Manifest) error) (*ManifestUpdate, error) {
	return s.update(ctx, fn, false)
}

// Upsert adds or replaces entry and persists the manifest.
func (s *ManifestStore) Upsert(ctx context.Context, entry SkillEntry) (replaced bool, err error) {
	_, err = s.Update(ctx, func(m *Manifest) error {
		replaced = m.Upsert(entry)
		return nil
	})
	return replaced, err
}

func (s *ManifestStore) update(ctx context.Context, fn func(*Manifest) error, write bool) (*ManifestUpdate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := logger.G(ctx).WithField("manifest", s.path)

	var result *ManifestUpdate
	err := retry.Do(
		func() error {
			m, before, loadErr := s.load()
			// A file that exists but cannot be read (permissions, locks) is
			// never overwritten; only unparsable content is replaced.
			var unreadable *ManifestUnreadableError
			if loadErr != nil && (before == nil || !errors.As(loadErr, &unreadable)) {
				return retry.Unrecoverable(loadErr)
			}
			fp := fingerprint(before)

			if fn != nil {
				if err := fn(m); err != nil {
					return retry.Unrecoverable(err)
				}
			}
			after, err := encodeManifest(m)
			if err != nil {
				return retry.Unrecoverable(err)
			}

			result = &ManifestUpdate{Manifest: m, Before: before, After: after, Recovered: unreadable}
			if !write {
				return nil
			}

			return s.write(after, func() error {
				if current := s.currentFingerprint(); current != fp {
					return ErrManifestConflict
				}
				if unreadable != nil {
					if _, statErr := os.Stat(s.path); statErr == nil {
						aside, err := s.reserveBackup()
						if err != nil {
							return fmt.Errorf("moving unreadable manifest aside: %w", err)
						}
						if err := os.Rename(s.path, aside); err != nil {
							_ = os.Remove(aside)
							return fmt.Errorf("moving unreadable manifest aside: %w", err)
						}
						log.WithField("backup", aside).Warn("unreadable manifest moved aside")
					}
				}
				return nil
			})
		},
		retry.Context(ctx),
		retry.Attempts(updateAttempts),
		retry.Delay(updateRetryDelay),
		retry.MaxDelay(updateRetryMaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(func(err error) bool { return errors.Is(err, ErrManifestConflict) }),
		retry.OnRetry(func(n uint, err error) {
			log.WithError(err).WithField("attempt", n+1).Debug("retrying manifest update")
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// write stages data in a temp file next to the manifest and renames it into
// place. precommit runs right before the rename.
func (s *ManifestStore) write(data []byte, precommit func() error) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating manifest directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	tmpPath := tmp.Name()
	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("writing manifest: %w", err)
	}

	if precommit != nil {
		if err := precommit(); err != nil {
			_ = os.Remove(tmpPath)
			return err
		}
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath) // clean up on failure
		return fmt.Errorf("saving manifest: %w", err)
	}
	return nil
}

// reserveBackup creates a uniquely named empty file next to the manifest
// (<manifest>.corrupt-<UTC time>-<random>) for a set-aside copy, so earlier
// copies are never overwritten.
func (s *ManifestStore) reserveBackup() (string, error) {
	pattern := filepath.Base(s.path) + corruptSuffix + "-" + time.Now().UTC().Format("20060102T150405") + "-*"
	f, err := os.CreateTemp(filepath.Dir(s.path), pattern)
	if err != nil {
		return "", err
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", err
	}
	return name, nil
}

// currentFingerprint hashes the file as it is on disk now.
func (s *ManifestStore) currentFingerprint() string {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fingerprint(nil)
	}
	if data == nil {
		data = []byte{}
	}
	return fingerprint(data)
}

// decodeManifest parses manifest bytes. Comments and trailing commas are
// accepted so hand-edited files still load.
func decodeManifest(data []byte) (*Manifest, error) {
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(std, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if m.Skills == nil {
		m.Skills = []SkillEntry{}
	}
	return &m, nil
}

// encodeManifest renders the manifest with two-space indentation, non-ASCII
// kept as-is and a trailing newline.
func encodeManifest(m *Manifest) ([]byte, error) {
	out := *m
	if out.Skills == nil {
		out.Skills = []SkillEntry{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&out); err != nil {
		return nil, fmt.Errorf("marshaling manifest: %w", err)
	}
	return buf.Bytes(), nil
}

func emptyManifest() *Manifest {
	return &Manifest{Skills: []SkillEntry{}}
}

// fingerprint hashes manifest bytes; nil (no file) hashes to "".
func fingerprint(data []byte) string {
	if data == nil {
		return ""
	}
	return fmt.Sprintf("%x", sha256.Sum256(data))
}
