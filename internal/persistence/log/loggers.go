package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"homecraft.ai/internal/sim/home"
)

const defaultMaxOpen = 64

// AuditLogger keeps one compressed JSONL stream per home under
// <dataDir>/audit/<homeID>/audit-YYYY-MM-DD.jsonl.zst, rotated at UTC midnight.
// Only maxOpen streams are held open; writing to another home closes the stream that
// was written longest ago. A reopened file gets a new zstd frame appended.
type AuditLogger struct {
	dir     string
	maxOpen int
	now     func() time.Time

	mu      sync.Mutex
	seq     uint64
	streams map[int64]*auditStream
}

type auditStream struct {
	day     string
	lastUse uint64
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

type AuditOption func(*AuditLogger)

// WithMaxOpen bounds the number of open per-home files.
func WithMaxOpen(n int) AuditOption {
	return func(l *AuditLogger) {
		if n > 0 {
			l.maxOpen = n
		}
	}
}

func NewAuditLogger(dataDir string, opts ...AuditOption) *AuditLogger {
	l := &AuditLogger{
		dir:     filepath.Join(dataDir, "audit"),
		maxOpen: defaultMaxOpen,
		now:     time.Now,
		streams: map[int64]*auditStream{},
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// AuditPath is where entries of homeID written on day end up.
func AuditPath(dir string, homeID int64, day time.Time) string {
	return filepath.Join(dir, strconv.FormatInt(homeID, 10), "audit-"+day.UTC().Format("2006-01-02")+".jsonl.zst")
}

func (l *AuditLogger) WriteAudit(e home.AuditEntry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	day := now.UTC().Format("2006-01-02")
	s := l.streams[e.HomeID]
	if s != nil && s.day != day {
		err := s.close()
		delete(l.streams, e.HomeID)
		s = nil
		if err != nil {
			return err
		}
	}
	if s == nil {
		if len(l.streams) >= l.maxOpen {
			l.evictLocked()
		}
		if s, err = openAuditStream(AuditPath(l.dir, e.HomeID, now), day); err != nil {
			return err
		}
		l.streams[e.HomeID] = s
	}
	l.seq++
	s.lastUse = l.seq

	if _, err := s.w.Write(b); err != nil {
		return err
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return err
	}
	if err := s.w.Flush(); err != nil {
		return err
	}
	// every entry reaches the file as a complete zstd block
	return s.enc.Flush()
}

// Open reports how many per-home streams are currently open.
func (l *AuditLogger) Open() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.streams)
}

func (l *AuditLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var first error
	for id, s := range l.streams {
		if err := s.close(); err != nil && first == nil {
			first = err
		}
		delete(l.streams, id)
	}
	return first
}

func (l *AuditLogger) evictLocked() {
	var (
		oldest   int64
		oldestAt uint64
		found    bool
	)
	for id, s := range l.streams {
		if !found || s.lastUse < oldestAt {
			oldest, oldestAt, found = id, s.lastUse, true
		}
	}
	if found {
		_ = l.streams[oldest].close()
		delete(l.streams, oldest)
	}
}

func openAuditStream(path, day string) (*auditStream, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &auditStream{day: day, f: f, enc: enc, w: bufio.NewWriterSize(enc, 16*1024)}, nil
}

func (s *auditStream) close() error {
	_ = s.w.Flush()
	err := s.enc.Close()
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// Tee fans one audit entry out to several sinks. The first error is returned after
// every sink has been written.
type Tee []home.AuditLogger

func (t Tee) WriteAudit(e home.AuditEntry) error {
	var first error
	for _, l := range t {
		if l == nil {
			continue
		}
		if err := l.WriteAudit(e); err != nil && first == nil {
			first = err
		}
	}
	return first
}
