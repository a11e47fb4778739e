package eventjournal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Replay reads every journal file in dir, in sequence order, invoking fn
// once per record. On startup state is reconstructed entirely by replaying
// the journal from empty state (§4.5, §8 round-trip law); fn is expected to
// apply each record to the in-memory book/position/ledger state being
// rebuilt.
//
// A record whose CRC32C trailer does not match is a fatal corruption per
// §7 and Replay stops and returns ErrCorrupt wrapped with the offending
// file name; a clean end of the last file is not an error.
func Replay(dir string, fn func(Record) error) error {
	files, err := journalFiles(dir)
	if err != nil {
		return err
	}
	for _, name := range files {
		if err := replayFile(filepath.Join(dir, name), fn); err != nil {
			return fmt.Errorf("eventjournal: replay %s: %w", name, err)
		}
	}
	return nil
}

func replayFile(path string, fn func(Record) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	for {
		rec, err := Decode(f)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}
