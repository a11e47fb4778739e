package ledger

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"brokerageProject/internal/money"
)

// categories are the only files a transaction may be routed to, matching
// §4.3's "per-category journal files" list.
var categories = []string{"deposits", "trades", "margin", "funding", "liquidations", "hedging", "prices"}

// appendJob is the unit of work handed to a category's single writer
// goroutine, modelled on §9's guidance to replace the source's
// thread-dispatched write with a typed channel consumer.
type appendJob struct {
	tx     Transaction
	result chan error
}

// categoryWriter owns one append-only file and the one goroutine permitted
// to write to it, preserving append order (§5 "single writer per sink").
type categoryWriter struct {
	file *os.File
	jobs chan appendJob
	sync bool
}

func newCategoryWriter(dir, category string, fsync bool) (*categoryWriter, error) {
	path := filepath.Join(dir, category+".ledger")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("ledger: open %s: %w", path, err)
	}
	cw := &categoryWriter{file: f, jobs: make(chan appendJob, 256), sync: fsync}
	go cw.run()
	return cw, nil
}

func (cw *categoryWriter) run() {
	for job := range cw.jobs {
		job.result <- cw.write(job.tx)
	}
}

func (cw *categoryWriter) write(tx Transaction) error {
	w := bufio.NewWriter(cw.file)
	fmt.Fprintf(w, "%s * %s\n", tx.Date.Format("2006/01/02 15:04:05"), tx.Description)
	for _, p := range tx.Postings {
		fmt.Fprintf(w, "    %s    %s %s\n", p.Account, p.Amount, p.Commodity)
	}
	if tx.Audit != "" {
		fmt.Fprintf(w, "; [AUDIT] %s\n", tx.Audit)
	}
	fmt.Fprintln(w)
	if err := w.Flush(); err != nil {
		return fmt.Errorf("ledger: flush %s: %w", tx.Category, err)
	}
	if cw.sync {
		if err := cw.file.Sync(); err != nil {
			return fmt.Errorf("ledger: fsync %s: %w", tx.Category, err)
		}
	}
	return nil
}

func (cw *categoryWriter) close() {
	close(cw.jobs)
	cw.file.Close()
}

// Journal is the durable, double-entry accounting log. One categoryWriter
// per category serializes disk writes; an in-memory index (guarded by its
// own lock) serves balance and register queries against a consistent
// snapshot without touching the write path.
type Journal struct {
	mu      sync.RWMutex
	entries []Transaction

	writers map[string]*categoryWriter
	fsync   bool
	mirror  Mirror
}

// Open creates or attaches to a journal rooted at dir, with one append-only
// file per category. fsync controls whether every write blocks on fsync
// (§4.5 "fsync on transaction boundaries is configurable").
func Open(dir string, fsync bool) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ledger: mkdir %s: %w", dir, err)
	}
	j := &Journal{writers: make(map[string]*categoryWriter), fsync: fsync}
	for _, c := range categories {
		cw, err := newCategoryWriter(dir, c, fsync)
		if err != nil {
			j.Close()
			return nil, err
		}
		j.writers[c] = cw
	}
	return j, nil
}

// Close stops every category writer goroutine and closes its file.
func (j *Journal) Close() {
	for _, cw := range j.writers {
		cw.close()
	}
}

// Append validates that tx balances per commodity and durably records it.
// On success the transaction is also added to the in-memory index used by
// Balance/Register queries. A rejected Append never touches the file or the
// index — this is the ledger's one non-negotiable gate.
func (j *Journal) Append(tx Transaction) error {
	if err := tx.Balanced(); err != nil {
		return err
	}
	cw, ok := j.writers[tx.Category]
	if !ok {
		return fmt.Errorf("ledger: unknown category %q", tx.Category)
	}

	job := appendJob{tx: tx, result: make(chan error, 1)}
	cw.jobs <- job
	if err := <-job.result; err != nil {
		return err
	}

	j.mu.Lock()
	j.entries = append(j.entries, tx)
	j.mu.Unlock()

	j.mirrorAppend(tx)
	return nil
}

// Balance returns the signed sum of postings to account for commodity,
// read under a short lock so it cannot interleave with a half-applied
// transaction (§5 ordering guarantees).
func (j *Journal) Balance(account, commodity string) money.Amount {
	j.mu.RLock()
	defer j.mu.RUnlock()
	var sum money.Amount
	for _, tx := range j.entries {
		for _, p := range tx.Postings {
			if p.Account == account && p.Commodity == commodity {
				sum = sum.Add(p.Amount)
			}
		}
	}
	return sum
}

// Register returns every posting touching account, in append order, for
// commodity (or all commodities if commodity is empty).
func (j *Journal) Register(account, commodity string) []Posting {
	j.mu.RLock()
	defer j.mu.RUnlock()
	var out []Posting
	for _, tx := range j.entries {
		for _, p := range tx.Postings {
			if p.Account != account {
				continue
			}
			if commodity != "" && p.Commodity != commodity {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}

// BalanceSheet aggregates balances by top-level account root (Assets,
// Liabilities, Revenue, Expenses, Equity) for commodity.
func (j *Journal) BalanceSheet(commodity string) map[string]money.Amount {
	j.mu.RLock()
	defer j.mu.RUnlock()
	totals := make(map[string]money.Amount)
	for _, tx := range j.entries {
		for _, p := range tx.Postings {
			if p.Commodity != commodity {
				continue
			}
			root := strings.SplitN(p.Account, ":", 2)[0]
			totals[root] = totals[root].Add(p.Amount)
		}
	}
	return totals
}

// AccountsWithPrefix returns the distinct account names seen so far under
// prefix, sorted, for admin/reporting listing endpoints.
func (j *Journal) AccountsWithPrefix(prefix string) []string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, tx := range j.entries {
		for _, p := range tx.Postings {
			if strings.HasPrefix(p.Account, prefix) {
				seen[p.Account] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for a := range seen {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}
