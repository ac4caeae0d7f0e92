package storage

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgnsrekt/tv_crosshair/internal/crosshair"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	ErrJournalClosed = errors.New("journal is closed")
	ErrJournalFull   = errors.New("journal buffer full")
)

// JournalConfig configures a Journal. Zero values fall back to defaults.
type JournalConfig struct {
	Dir        string
	BufferSize int
	MaxSizeMB  int
	// Now stamps records and picks the date directory; defaults to time.Now.
	Now func() time.Time
}

// JournalRecord is one line of the journal.
type JournalRecord struct {
	RecordedAt time.Time       `json:"recorded_at"`
	Event      crosshair.Event `json:"event"`
}

// Journal appends sync events as JSON lines under Dir/YYYY-MM-DD/events.jsonl.
// Writes are queued and never block the caller.
type Journal struct {
	cfg     JournalConfig
	writeCh chan JournalRecord
	done    chan struct{}
	wg      sync.WaitGroup
	dropped atomic.Int64

	// sendMu orders queued sends before Close marks the journal closed.
	sendMu sync.RWMutex
	closed bool

	mu          sync.Mutex
	currentDate string
	logger      *lumberjack.Logger
}

func NewJournal(cfg JournalConfig) *Journal {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1024
	}
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 50
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	j := &Journal{
		cfg:     cfg,
		writeCh: make(chan JournalRecord, cfg.BufferSize),
		done:    make(chan struct{}),
	}
	j.wg.Add(1)
	go j.writeLoop()
	return j
}

// Observe is a crosshair.Observer. Events arriving while the buffer is full
// are dropped and counted.
func (j *Journal) Observe(evt crosshair.Event) {
	if err := j.Write(evt); err != nil && errors.Is(err, ErrJournalFull) {
		slog.Debug("journal buffer full, dropping event", "kind", evt.Kind)
	}
}

// Write queues evt for writing.
func (j *Journal) Write(evt crosshair.Event) error {
	j.sendMu.RLock()
	defer j.sendMu.RUnlock()
	if j.closed {
		return ErrJournalClosed
	}
	rec := JournalRecord{RecordedAt: j.cfg.Now().UTC(), Event: evt}
	select {
	case j.writeCh <- rec:
		return nil
	default:
		j.dropped.Add(1)
		return ErrJournalFull
	}
}

// Dropped counts events lost to a full buffer.
func (j *Journal) Dropped() int64 { return j.dropped.Load() }

// Close stops the writer after flushing queued records. Every Write that
// returned nil is on disk once Close returns.
func (j *Journal) Close() error {
	j.sendMu.Lock()
	if j.closed {
		j.sendMu.Unlock()
		return nil
	}
	j.closed = true
	j.sendMu.Unlock()

	close(j.done)
	j.wg.Wait()

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.logger != nil {
		return j.logger.Close()
	}
	return nil
}

func (j *Journal) writeLoop() {
	defer j.wg.Done()
	for {
		select {
		case rec := <-j.writeCh:
			j.writeRecord(rec)
		case <-j.done:
			for {
				select {
				case rec := <-j.writeCh:
					j.writeRecord(rec)
				default:
					return
				}
			}
		}
	}
}

func (j *Journal) writeRecord(rec JournalRecord) {
	data, err := json.Marshal(rec)
	if err != nil {
		slog.Error("journal marshal failed", "error", err, "kind", rec.Event.Kind)
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	date := rec.RecordedAt.Format("2006-01-02")
	if j.logger == nil || date != j.currentDate {
		if err := j.rotateForDate(date); err != nil {
			slog.Error("journal rotate failed", "error", err, "date", date)
			return
		}
	}
	if _, err := j.logger.Write(append(data, '\n')); err != nil {
		slog.Error("journal write failed", "error", err)
	}
}

func (j *Journal) rotateForDate(date string) error {
	if j.logger != nil {
		if err := j.logger.Close(); err != nil {
			slog.Debug("journal close previous file failed", "error", err)
		}
		j.logger = nil
	}

	dir := filepath.Join(j.cfg.Dir, date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	filename := filepath.Join(dir, "events.jsonl")
	j.logger = &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    j.cfg.MaxSizeMB,
		MaxBackups: 30,
		MaxAge:     30,
	}
	j.currentDate = date
	slog.Info("journal file opened", "file", filename)
	return nil
}
