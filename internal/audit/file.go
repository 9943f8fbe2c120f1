package audit

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/followup/pkg/pagination"
)

const (
	// DefaultMaxFileSize is the rotation threshold when none is configured.
	DefaultMaxFileSize int64 = 100 * 1024 * 1024

	// ArchiveDir is created beside the active log to hold rotated files.
	ArchiveDir = "archive"
)

type record struct {
	Entry    json.RawMessage `json:"entry"`
	Checksum string          `json:"checksum,omitempty"`
}

// File is an append-only JSON Lines sink. Each line wraps one entry and an
// optional sha256 checksum of the entry bytes. The active file is moved to
// ArchiveDir once the next write would exceed the size limit.
type File struct {
	mu       sync.Mutex
	file     *os.File
	path     string
	size     int64
	maxSize  int64
	checksum bool
	rotation int
}

// OpenFile opens or creates the log at path.
func OpenFile(path string, maxSize int64, checksum bool) (*File, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create audit directory: %w", err)
	}

	f := &File{
		path:     path,
		maxSize:  maxSize,
		checksum: checksum,
	}

	if err := f.open(); err != nil {
		return nil, err
	}

	return f, nil
}

// Path returns the active log path.
func (f *File) Path() string {
	return f.path
}

// Write appends e and syncs the file.
func (f *File) Write(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entry, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}

	rec := record{Entry: entry}
	if f.checksum {
		rec.Checksum = checksum(entry)
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}
	line = append(line, '\n')

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return fmt.Errorf("audit file %s is closed", f.path)
	}

	if f.size > 0 && f.size+int64(len(line)) > f.maxSize {
		if err := f.rotate(); err != nil {
			return fmt.Errorf("rotate audit file: %w", err)
		}
	}

	n, err := f.file.Write(line)
	if err != nil {
		return fmt.Errorf("write audit record: %w", err)
	}

	if err := f.file.Sync(); err != nil {
		return fmt.Errorf("sync audit file: %w", err)
	}

	f.size += int64(n)
	return nil
}

// Close syncs and closes the active file.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return nil
	}

	err := f.file.Sync()
	if cerr := f.file.Close(); err == nil {
		err = cerr
	}
	f.file = nil
	return err
}

func (f *File) open() error {
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("stat audit file: %w", err)
	}

	f.file = file
	f.size = stat.Size()
	return nil
}

func (f *File) rotate() error {
	if err := f.file.Close(); err != nil {
		return err
	}
	f.file = nil

	dir := filepath.Join(filepath.Dir(f.path), ArchiveDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	f.rotation++
	base := filepath.Base(f.path)
	ext := filepath.Ext(base)
	name := fmt.Sprintf("%s.%s.%d%s",
		strings.TrimSuffix(base, ext),
		time.Now().UTC().Format("20060102_150405"),
		f.rotation,
		ext,
	)

	if err := os.Rename(f.path, filepath.Join(dir, name)); err != nil {
		return err
	}

	return f.open()
}

func checksum(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Verification summarizes an integrity check of one log file.
type Verification struct {
	Total     int `json:"total"`
	Valid     int `json:"valid"`
	Tampered  int `json:"tampered"`
	Malformed int `json:"malformed"`
}

// OK reports whether every line parsed and matched its checksum.
func (v Verification) OK() bool {
	return v.Tampered == 0 && v.Malformed == 0
}

// VerifyFile checks every record in the log at path. Records written
// without a checksum count as valid.
func VerifyFile(path string) (Verification, error) {
	var v Verification

	file, err := os.Open(path)
	if err != nil {
		return v, fmt.Errorf("open audit file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		v.Total++

		var rec record
		if err := json.Unmarshal(line, &rec); err != nil || len(rec.Entry) == 0 {
			v.Malformed++
			continue
		}

		if rec.Checksum != "" && rec.Checksum != checksum(rec.Entry) {
			v.Tampered++
			continue
		}
		v.Valid++
	}

	if err := scanner.Err(); err != nil {
		return v, fmt.Errorf("read audit file: %w", err)
	}

	return v, nil
}

// ReadFile decodes every well-formed entry in the log at path.
func ReadFile(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audit file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	entries := make([]Entry, 0)
	for scanner.Scan() {
		var rec record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		var e Entry
		if err := json.Unmarshal(rec.Entry, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}

	return entries, scanner.Err()
}

// List reads the active log and pages through matching entries, newest first.
func (f *File) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Entry], error) {
	m, err := f.snapshot()
	if err != nil {
		return nil, err
	}
	return m.List(ctx, page, filters)
}

// Find reads the active log for the entry with id.
func (f *File) Find(ctx context.Context, id uuid.UUID) (*Entry, error) {
	m, err := f.snapshot()
	if err != nil {
		return nil, err
	}
	return m.Find(ctx, id)
}

func (f *File) snapshot() (*Memory, error) {
	entries, err := ReadFile(f.path)
	if err != nil {
		return nil, err
	}
	m := NewMemory()
	m.entries = entries
	return m, nil
}
