package eventjournal

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
)

// writeRequest is the unit of work handed to the journal's single writer
// goroutine, the same event-driven-worker shape the teacher uses for its
// order processor: a buffered channel feeding one consuming goroutine so
// append order is preserved without blocking producers on disk I/O.
type writeRequest struct {
	kind    Kind
	payload []byte
	result  chan error
}

// Writer is the append-only sink for event journal records. Exactly one
// goroutine ever touches the active file; rollover to a new monotonically
// named file happens transparently once the active file exceeds
// rolloverBytes.
type Writer struct {
	dir           string
	rolloverBytes int64

	seq  uint64 // atomic, next sequence number to assign
	jobs chan writeRequest
	quit chan struct{}
	wg   sync.WaitGroup

	nowNanos func() int64
}

// NewWriter opens (or creates) dir and starts the writer goroutine. The
// next sequence number is recovered by replaying any existing files so
// restart never reuses a sequence number.
func NewWriter(dir string, rolloverBytes int64, nowNanos func() int64) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("eventjournal: mkdir %s: %w", dir, err)
	}
	lastSeq, err := lastSequence(dir)
	if err != nil {
		return nil, err
	}

	w := &Writer{
		dir:           dir,
		rolloverBytes: rolloverBytes,
		seq:           lastSeq,
		jobs:          make(chan writeRequest, 4096),
		quit:          make(chan struct{}),
		nowNanos:      nowNanos,
	}
	w.wg.Add(1)
	go w.run()
	return w, nil
}

// Append assigns the next sequence number, frames kind/payload, and
// durably appends it, blocking the caller until the write completes (or
// fails). The matching hot path must never call this inline; it is
// enqueued from a dedicated writer task per §5.
func (w *Writer) Append(kind Kind, payload []byte) (uint64, error) {
	req := writeRequest{kind: kind, payload: payload, result: make(chan error, 1)}
	select {
	case w.jobs <- req:
	case <-w.quit:
		return 0, fmt.Errorf("eventjournal: writer closed")
	}
	if err := <-req.result; err != nil {
		return 0, err
	}
	return atomic.LoadUint64(&w.seq), nil
}

// Close stops the writer goroutine and waits for it to exit. Requests still
// queued when it stops are not written; their Append calls fail with a
// "writer closed" error.
func (w *Writer) Close() {
	close(w.quit)
	w.wg.Wait()
}

func (w *Writer) run() {
	defer w.wg.Done()
	var (
		file       *os.File
		fileOffset int64
		fileIndex  int
	)
	openNext := func() error {
		if file != nil {
			file.Close()
		}
		fileIndex++
		name := filepath.Join(w.dir, fmt.Sprintf("%020d.journal", w.seq+1))
		f, err := os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("eventjournal: open %s: %w", name, err)
		}
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return fmt.Errorf("eventjournal: stat %s: %w", name, err)
		}
		file = f
		fileOffset = info.Size()
		return nil
	}

	for {
		select {
		case req := <-w.jobs:
			if file == nil || (w.rolloverBytes > 0 && fileOffset >= w.rolloverBytes) {
				if err := openNext(); err != nil {
					req.result <- err
					continue
				}
			}
			nextSeq := atomic.AddUint64(&w.seq, 1)
			rec := Record{Seq: nextSeq, TSNanos: w.nowNanos(), Kind: req.kind, Payload: req.payload}
			buf := Encode(nil, rec)
			n, err := file.Write(buf)
			if err != nil {
				atomic.AddUint64(&w.seq, ^uint64(0)) // undo the sequence bump on failure
				req.result <- fmt.Errorf("eventjournal: write: %w", err)
				continue
			}
			fileOffset += int64(n)
			req.result <- nil
		case <-w.quit:
			if file != nil {
				file.Close()
			}
			// drain any queued requests so callers don't block forever
			for {
				select {
				case req := <-w.jobs:
					req.result <- fmt.Errorf("eventjournal: writer closed")
				default:
					return
				}
			}
		}
	}
}

// journalFiles returns the journal's data files sorted by their embedded
// starting sequence number (ascending), i.e. replay order.
func journalFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("eventjournal: readdir %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".journal" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// lastSequence scans existing journal files and returns the highest
// sequence number recorded, or 0 if the directory is empty.
func lastSequence(dir string) (uint64, error) {
	files, err := journalFiles(dir)
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		return 0, nil
	}
	var last uint64
	err = Replay(dir, func(r Record) error {
		if r.Seq > last {
			last = r.Seq
		}
		return nil
	})
	return last, err
}
