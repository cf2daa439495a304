package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/m3rciful/unilinkup/core/logger"
	"github.com/m3rciful/unilinkup/internal/meetup"
)

// SnapshotVersion is written into every snapshot's metadata.
const SnapshotVersion = "1.0"

const backupTimeLayout = "20060102_150405"

// ErrSnapshotVersion is returned for snapshots written by an incompatible format version.
var ErrSnapshotVersion = errors.New("unsupported snapshot version")

type snapshotFile struct {
	Sessions    map[string]meetup.Session `json:"sessions"`
	PingHistory []meetup.Ping             `json:"ping_history"`
	Metadata    snapshotMeta              `json:"metadata"`
}

type snapshotMeta struct {
	SavedAt        time.Time `json:"saved_at"`
	MaxPingHistory int       `json:"max_ping_history"`
	Version        string    `json:"version"`
}

// Snapshot is the decoded, validated content of a snapshot file.
// Sessions are ordered by user id and pings oldest first.
type Snapshot struct {
	Sessions       []meetup.Session
	Pings          []meetup.Ping
	SavedAt        time.Time
	MaxPingHistory int
	Version        string
}

// LoadResult reports the outcome of LoadSnapshot.
type LoadResult struct {
	// Found is false when the file does not exist; nothing was loaded then.
	Found    bool
	Sessions int
	Pings    int
	SavedAt  time.Time
}

// SaveResult reports the outcome of SaveSnapshot.
type SaveResult struct {
	Path     string `json:"path"`
	Sessions int    `json:"sessions"`
	Pings    int    `json:"pings"`
	Bytes    int    `json:"bytes"`
	// Backup is the copy of the previous file made by Checkpoint, if any.
	Backup string `json:"backup,omitempty"`
}

// SaveSnapshot writes the full store contents to path atomically,
// creating the parent directory when needed.
func (s *Store) SaveSnapshot(ctx context.Context, path string) (SaveResult, error) {
	start := time.Now()
	sessions, pings, maxPings := s.snapshot()

	doc := snapshotFile{
		Sessions:    make(map[string]meetup.Session, len(sessions)),
		PingHistory: pings,
		Metadata: snapshotMeta{
			SavedAt:        s.now(),
			MaxPingHistory: maxPings,
			Version:        SnapshotVersion,
		},
	}
	for _, sess := range sessions {
		doc.Sessions[strconv.FormatInt(sess.UserID, 10)] = sess
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return SaveResult{}, fmt.Errorf("encode snapshot: %w", err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		logger.Error(ctx, "store.snapshot", "snapshot.save_failed",
			slog.String("path", path),
			slog.String("err", err.Error()),
		)
		return SaveResult{}, err
	}

	res := SaveResult{Path: path, Sessions: len(sessions), Pings: len(pings), Bytes: len(data)}
	logger.Info(ctx, "store.snapshot", "snapshot.saved",
		slog.String("path", path),
		slog.Int("sessions", res.Sessions),
		slog.Int("pings", res.Pings),
		slog.Duration("duration", logger.Took(start)),
	)
	return res, nil
}

// Checkpoint saves a snapshot to path, first copying the previous file
// aside when backup is set.
func (s *Store) Checkpoint(ctx context.Context, path string, backup bool) (SaveResult, error) {
	var backupPath string
	if backup {
		var err error
		backupPath, err = BackupSnapshot(path, s.now())
		if err != nil {
			logger.Warn(ctx, "store.snapshot", "snapshot.backup_failed",
				slog.String("path", path),
				slog.String("err", err.Error()),
			)
			return SaveResult{}, err
		}
	}
	res, err := s.SaveSnapshot(ctx, path)
	res.Backup = backupPath
	return res, err
}

// LoadSnapshot replaces the store contents with the snapshot at path.
// A missing file is not an error and leaves the store untouched. A malformed
// file, or any malformed record in it, rejects the whole load and also
// leaves the store untouched.
func (s *Store) LoadSnapshot(ctx context.Context, path string) (LoadResult, error) {
	snap, err := ReadSnapshot(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Info(ctx, "store.snapshot", "snapshot.missing", slog.String("path", path))
		return LoadResult{}, nil
	}
	if err != nil {
		logger.Error(ctx, "store.snapshot", "snapshot.load_failed",
			slog.String("path", path),
			slog.String("err", err.Error()),
		)
		return LoadResult{}, err
	}

	s.replace(snap.Sessions, snap.Pings)
	st := s.Stats()
	res := LoadResult{Found: true, Sessions: st.Sessions, Pings: st.Pings, SavedAt: snap.SavedAt}
	logger.Info(ctx, "store.snapshot", "snapshot.loaded",
		slog.String("path", path),
		slog.Int("sessions", res.Sessions),
		slog.Int("pings", res.Pings),
	)
	return res, nil
}

// ReadSnapshot decodes and validates the snapshot at path without touching any store.
// The returned error wraps fs.ErrNotExist when the file is missing.
func ReadSnapshot(path string) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	return DecodeSnapshot(f)
}

// DecodeSnapshot decodes and validates a snapshot document. Every invalid
// record is reported in the returned error.
func DecodeSnapshot(r io.Reader) (Snapshot, error) {
	var doc snapshotFile
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if v := doc.Metadata.Version; v != "" && !strings.HasPrefix(v, "1.") {
		return Snapshot{}, fmt.Errorf("%w: %q", ErrSnapshotVersion, v)
	}

	var result *multierror.Error
	snap := Snapshot{
		SavedAt:        doc.Metadata.SavedAt,
		MaxPingHistory: doc.Metadata.MaxPingHistory,
		Version:        doc.Metadata.Version,
		Sessions:       make([]meetup.Session, 0, len(doc.Sessions)),
		Pings:          make([]meetup.Ping, 0, len(doc.PingHistory)),
	}

	for key, sess := range doc.Sessions {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("session key %q: not a user id", key))
			continue
		}
		if sess.UserID != id {
			result = multierror.Append(result, fmt.Errorf("session key %q: holds user %d", key, sess.UserID))
			continue
		}
		if sess.SelectedFriends == nil {
			sess.SelectedFriends = []string{}
		}
		if err := sess.Validate(); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		snap.Sessions = append(snap.Sessions, sess)
	}

	ids := make(map[string]struct{}, len(doc.PingHistory))
	for i, p := range doc.PingHistory {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if _, dup := ids[p.ID]; dup {
			result = multierror.Append(result, fmt.Errorf("ping %d: duplicate id %q", i, p.ID))
			continue
		}
		ids[p.ID] = struct{}{}
		if err := p.Validate(); err != nil {
			result = multierror.Append(result, fmt.Errorf("ping %d: %w", i, err))
			continue
		}
		snap.Pings = append(snap.Pings, p)
	}

	if err := result.ErrorOrNil(); err != nil {
		return Snapshot{}, fmt.Errorf("invalid snapshot: %w", err)
	}
	sortSessions(snap.Sessions)
	return snap, nil
}

// BackupSnapshot copies the snapshot at path to a timestamped sibling and
// returns the backup path. A missing source yields an empty path and no error.
func BackupSnapshot(path string, now time.Time) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read snapshot for backup: %w", err)
	}
	dst := path + ".backup_" + now.Format(backupTimeLayout)
	if err := writeFileAtomic(dst, data); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}
	return dst, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
