package dispatch

import (
	"fmt"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/log"
)

const hashChannelSize = 10000

// HashWriter appends accepted tx hashes to a file from a single goroutine.
// Writes never block the senders; when the buffer is full the hash is dropped
// with a warning. Writes after Close are dropped too.
type HashWriter struct {
	ch   chan string
	file *os.File
	log  log.Logger
	wg   sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewHashWriter truncates or creates path and starts the writer goroutine.
func NewHashWriter(path string, logger log.Logger) (*HashWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open tx hash file: %w", err)
	}

	w := &HashWriter{
		ch:   make(chan string, hashChannelSize),
		file: f,
		log:  logger,
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for line := range w.ch {
			if _, err := w.file.WriteString(line + "\n"); err != nil {
				w.log.Warn("Failed to write tx hash", "err", err)
			}
		}
	}()

	logger.Info("TxHash writer enabled", "path", path)
	return w, nil
}

// Write queues one line: runID,label,nonce,hash.
func (w *HashWriter) Write(runID string, res Result) {
	line := fmt.Sprintf("%s,%s,%d,%s", runID, res.Label, res.Nonce, res.Hash.Hex())
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		w.log.Warn("TxHash writer closed, dropping hash", "hash", res.Hash)
		return
	}
	select {
	case w.ch <- line:
	default:
		w.log.Warn("TxHash channel full, dropping hash", "hash", res.Hash)
	}
}

// Close flushes queued lines and closes the file.
func (w *HashWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.ch)
	w.mu.Unlock()

	w.wg.Wait()
	return w.file.Close()
}
