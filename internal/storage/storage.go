package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/maltedev/falabella-scraper/internal/models"
)

// AggregateName is the namespace of the whole-run output pair.
const AggregateName = "productos_all"

var ErrDuplicate = errors.New("duplicate link")

// Store hands out per-category output logs inside one directory. Distinct
// names opened through one Store never share a file pair, even when they fold
// to the same slug.
type Store struct {
	dir string

	mu    sync.Mutex
	names map[string]string
	used  map[string]bool
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Store{
		dir:   dir,
		names: make(map[string]string),
		used:  make(map[string]bool),
	}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// Open resets the <slug>.jsonl / <slug>.json pair for name and returns its log.
// Reopening a name reuses its pair; a different name whose slug is taken gets
// a numeric suffix (tecnologia-2).
func (s *Store) Open(name string) (*Log, error) {
	return s.open(s.claim(name))
}

func (s *Store) claim(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if slug, ok := s.names[name]; ok {
		return slug
	}

	base := Slugify(name)
	slug := base
	for n := 2; s.used[slug]; n++ {
		slug = fmt.Sprintf("%s-%d", base, n)
	}
	s.names[name] = slug
	s.used[slug] = true
	return slug
}

// OpenAggregate resets the legacy productos_all pair.
func (s *Store) OpenAggregate() (*Log, error) {
	return s.open(AggregateName)
}

func (s *Store) open(slug string) (*Log, error) {
	l := &Log{
		Slug:         slug,
		JSONLPath:    filepath.Join(s.dir, slug+".jsonl"),
		SnapshotPath: filepath.Join(s.dir, slug+".json"),
	}

	if err := os.WriteFile(l.JSONLPath, nil, 0644); err != nil {
		return nil, fmt.Errorf("failed to reset %s: %w", l.JSONLPath, err)
	}
	if err := l.WriteSnapshot(nil); err != nil {
		return nil, err
	}

	return l, nil
}

// Log is the append-only line log plus the snapshot file of one namespace.
type Log struct {
	Slug         string
	JSONLPath    string
	SnapshotPath string

	mu sync.Mutex
}

// Append writes one compact JSON line. The file is opened and closed on every
// call so an interrupted run leaves only complete lines behind.
func (l *Log) Append(rec *models.ProductRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.JSONLPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", l.JSONLPath, err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to append record: %w", err)
	}

	return f.Close()
}

// WriteSnapshot overwrites the aggregate array file with recs.
func (l *Log) WriteSnapshot(recs []*models.ProductRecord) error {
	if recs == nil {
		recs = []*models.ProductRecord{}
	}

	data, err := json.MarshalIndent(recs, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Write to temp file first for atomicity
	tmpFile := l.SnapshotPath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	if err := os.Rename(tmpFile, l.SnapshotPath); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// ReadAll parses every line of the append log.
func (l *Log) ReadAll() ([]*models.ProductRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.JSONLPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var recs []*models.ProductRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec models.ProductRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		recs = append(recs, &rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", l.JSONLPath, err)
	}
	return recs, nil
}

// SeenSet is the per-run duplicate guard keyed by item link.
type SeenSet struct {
	mu    sync.RWMutex
	links map[string]struct{}
}

func NewSeenSet() *SeenSet {
	return &SeenSet{links: make(map[string]struct{})}
}

func (s *SeenSet) Has(link string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.links[link]
	return ok
}

// Add records link, returning ErrDuplicate if it was already present.
func (s *SeenSet) Add(link string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.links[link]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, link)
	}
	s.links[link] = struct{}{}
	return nil
}

// Slugify turns a category name into a lowercase, accent-free file name stem.
func Slugify(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}

	slug := strings.TrimRight(b.String(), "-")
	if slug == "" {
		return "categoria"
	}
	return slug
}
