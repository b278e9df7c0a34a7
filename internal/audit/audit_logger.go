// Package audit records a tamper-evident, append-only trail of session and
// transaction lifecycle transitions: every handshake, begin, commit,
// rollback, and close becomes one SHA-256 hash-chained JSON line, so an
// operator can prove after the fact that the trail was not edited or
// truncated.
//
// # Hash chain
//
// The event_hash for entry N is computed as:
//
//	SHA-256( JSON({seq, ts, event, prev_hash}) )
//
// where the JSON encoding of those four fields is treated as a canonical
// byte sequence. The genesis entry (seq=1) uses a prev_hash of 64 ASCII zero
// characters ("000...0").
//
// # Append semantics
//
// Each entry is encoded as a single JSON line terminated by '\n'. The
// underlying file is opened with os.O_APPEND | os.O_CREATE | os.O_WRONLY so
// that every write is appended atomically by the OS; lifecycle events are
// far below the PIPE_BUF atomic-write limit.
//
// # Thread safety
//
// Logger is safe for concurrent use. A mutex serialises all Append calls to
// maintain a consistent sequence number and prev_hash.
package audit

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// GenesisHash is the all-zero SHA-256 hex digest used as the prev_hash of
// the very first (genesis) entry in the chain.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// record is the wire format for one trail line.
type record struct {
	Seq       int64          `json:"seq"`
	Timestamp time.Time      `json:"ts"`
	Event     LifecycleEvent `json:"event"`
	PrevHash  string         `json:"prev_hash"`
	EventHash string         `json:"event_hash"`
}

// recordContent is the subset of record fields that are hashed to produce
// EventHash. It deliberately excludes EventHash itself.
type recordContent struct {
	Seq       int64          `json:"seq"`
	Timestamp time.Time      `json:"ts"`
	Event     LifecycleEvent `json:"event"`
	PrevHash  string         `json:"prev_hash"`
}

// Logger is a tamper-evident, append-only lifecycle trail writer. Create one
// with Open; do not copy after first use.
type Logger struct {
	mu       sync.Mutex
	file     *os.File
	prevHash string
	seq      int64
}

// Open opens (or creates) the trail file at path and prepares the Logger for
// appending. If the file already contains entries, Open replays them all to
// restore the current sequence number and prev_hash so the chain continues
// correctly, and rejects the file if any entry is malformed or the chain is
// broken.
func Open(path string) (*Logger, error) {
	prevHash := GenesisHash
	seq := int64(0)

	if _, err := os.Stat(path); err == nil {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("audit: open for reading %q: %w", path, err)
		}
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var r record
			if err := json.Unmarshal(line, &r); err != nil {
				f.Close()
				return nil, fmt.Errorf("audit: malformed entry at seq %d: %w", seq+1, err)
			}
			computed := hashContent(recordContent{
				Seq:       r.Seq,
				Timestamp: r.Timestamp,
				Event:     r.Event,
				PrevHash:  r.PrevHash,
			})
			if computed != r.EventHash {
				f.Close()
				return nil, fmt.Errorf("audit: hash mismatch at seq %d: stored %q, computed %q",
					r.Seq, r.EventHash, computed)
			}
			if r.PrevHash != prevHash {
				f.Close()
				return nil, fmt.Errorf("audit: chain break at seq %d: expected prev_hash %q, got %q",
					r.Seq, prevHash, r.PrevHash)
			}
			prevHash = r.EventHash
			seq = r.Seq
		}
		f.Close()
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("audit: scanning existing trail %q: %w", path, err)
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("audit: open for appending %q: %w", path, err)
	}

	return &Logger{
		file:     f,
		prevHash: prevHash,
		seq:      seq,
	}, nil
}

// Append writes ev as a new tamper-evident entry. Append is safe to call
// from multiple goroutines.
//
// The returned Entry carries the assigned sequence number, timestamp,
// computed EventHash, and PrevHash so callers can record chain metadata
// without re-reading the file.
func (l *Logger) Append(ev LifecycleEvent) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	seq := l.seq + 1
	ts := time.Now().UTC()
	prevHash := l.prevHash

	eventHash := hashContent(recordContent{
		Seq:       seq,
		Timestamp: ts,
		Event:     ev,
		PrevHash:  prevHash,
	})

	line, err := json.Marshal(record{
		Seq:       seq,
		Timestamp: ts,
		Event:     ev,
		PrevHash:  prevHash,
		EventHash: eventHash,
	})
	if err != nil {
		return Entry{}, fmt.Errorf("audit: marshal entry: %w", err)
	}
	line = append(line, '\n')

	if _, err := l.file.Write(line); err != nil {
		return Entry{}, fmt.Errorf("audit: write entry: %w", err)
	}

	l.seq = seq
	l.prevHash = eventHash

	return Entry{
		Seq:       seq,
		Timestamp: ts,
		Event:     ev,
		PrevHash:  prevHash,
		EventHash: eventHash,
	}, nil
}

// Close flushes any OS-level buffers and closes the underlying file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.file.Sync(); err != nil {
		_ = l.file.Close()
		return fmt.Errorf("audit: sync: %w", err)
	}
	return l.file.Close()
}

// Entry is the public representation of one trail entry returned by Append
// and Verify.
type Entry struct {
	Seq       int64
	Timestamp time.Time
	Event     LifecycleEvent
	PrevHash  string
	EventHash string
}

// Verify reads the trail file at path and checks the full hash chain. It
// returns the ordered slice of entries on success, or the first chain error
// encountered. An empty file is valid and returns an empty slice.
func Verify(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audit: verify open %q: %w", path, err)
	}
	defer f.Close()

	var entries []Entry
	prevHash := GenesisHash
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var r record
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, fmt.Errorf("audit: malformed entry: %w", err)
		}

		if r.PrevHash != prevHash {
			return nil, fmt.Errorf("audit: chain break at seq %d: expected prev_hash %q, got %q",
				r.Seq, prevHash, r.PrevHash)
		}

		computed := hashContent(recordContent{
			Seq:       r.Seq,
			Timestamp: r.Timestamp,
			Event:     r.Event,
			PrevHash:  r.PrevHash,
		})
		if computed != r.EventHash {
			return nil, fmt.Errorf("audit: hash mismatch at seq %d: stored %q, computed %q",
				r.Seq, r.EventHash, computed)
		}

		entries = append(entries, Entry{
			Seq:       r.Seq,
			Timestamp: r.Timestamp,
			Event:     r.Event,
			PrevHash:  r.PrevHash,
			EventHash: r.EventHash,
		})
		prevHash = r.EventHash
	}

	return entries, scanner.Err()
}

// hashContent computes the SHA-256 hex digest of the JSON-marshalled
// recordContent.
func hashContent(c recordContent) string {
	raw, err := json.Marshal(c)
	if err != nil {
		// recordContent fields are all JSON-serialisable; this is unreachable.
		panic(fmt.Sprintf("audit: marshal recordContent: %v", err))
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
