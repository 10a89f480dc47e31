package quota

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/matzehuels/placeskit/pkg/errors"
)

// DefaultFile is the tracker file name used when none is configured.
const DefaultFile = "PlacesTracker.txt"

// lockRetryDelay is how often a blocked writer retries the advisory lock.
const lockRetryDelay = 25 * time.Millisecond

// FileStore keeps counts in a tab-separated tracker file:
//
//	Date	Count
//	20180306	479
//	20180311	1662
//
// Every Increment reads the whole file, rewrites the last line (or appends a
// new one) and replaces the file. The file must exist before the first call;
// use [Init] to create one.
//
// FileStore is safe for concurrent use, and multiple processes sharing the
// same file are serialised by an advisory lock on "<path>.lock".
type FileStore struct {
	mu   sync.Mutex
	path string
	lock *flock.Flock
}

// NewFileStore creates a store backed by the tracker file at path.
// If path is empty, [DefaultFile] in the working directory is used.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultFile
	}
	return &FileStore{path: path, lock: flock.New(path + ".lock")}
}

// Init creates a header-only tracker file at path if none exists.
// An existing file is left untouched.
func Init(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if os.IsExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if _, err := f.WriteString(DefaultHeader + "\n"); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Path returns the tracker file path.
func (s *FileStore) Path() string { return s.path }

// Increment adds one to day's count and rewrites the file.
//
// Returns:
//   - an ErrCodeFileNotFound error if the tracker file does not exist
//   - an ErrCodeParse error if the last line is not "date<TAB>count";
//     the file is left unchanged in that case
func (s *FileStore) Increment(ctx context.Context, day string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.acquire(ctx, false); err != nil {
		return 0, err
	}
	defer s.lock.Unlock()

	rec, err := s.read()
	if err != nil {
		return 0, err
	}
	count, err := rec.increment(day)
	if err != nil {
		return 0, err
	}
	if err := s.write(rec); err != nil {
		return 0, err
	}
	return count, nil
}

// Count returns day's count, or 0 if the last entry is for another day.
func (s *FileStore) Count(ctx context.Context, day string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.acquire(ctx, true); err != nil {
		return 0, err
	}
	defer s.lock.Unlock()

	rec, err := s.read()
	if err != nil {
		return 0, err
	}
	last, ok, err := rec.last()
	if err != nil {
		return 0, err
	}
	if !ok || last.Date != day {
		return 0, nil
	}
	return last.Count, nil
}

// History returns all entries in file order.
func (s *FileStore) History(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.acquire(ctx, true); err != nil {
		return nil, err
	}
	defer s.lock.Unlock()

	rec, err := s.read()
	if err != nil {
		return nil, err
	}
	return rec.entries()
}

// Close releases the advisory lock handle.
func (s *FileStore) Close() error {
	return s.lock.Close()
}

func (s *FileStore) acquire(ctx context.Context, shared bool) error {
	var (
		ok  bool
		err error
	)
	if shared {
		ok, err = s.lock.TryRLockContext(ctx, lockRetryDelay)
	} else {
		ok, err = s.lock.TryLockContext(ctx, lockRetryDelay)
	}
	if err != nil {
		return fmt.Errorf("lock %s: %w", s.lock.Path(), err)
	}
	if !ok {
		return fmt.Errorf("lock %s: not acquired", s.lock.Path())
	}
	return nil
}

func (s *FileStore) read() (record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return record{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "tracker file %s", s.path)
		}
		return record{}, err
	}
	return parseRecord(data), nil
}

// write replaces the tracker file through a temp file in the same directory
// so a crash mid-write leaves the previous contents in place.
func (s *FileStore) write(rec record) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(rec.bytes()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if info, err := os.Stat(s.path); err == nil {
		_ = os.Chmod(tmpName, info.Mode().Perm())
	}
	return os.Rename(tmpName, s.path)
}

// Ensure FileStore implements Store.
var _ Store = (*FileStore)(nil)
