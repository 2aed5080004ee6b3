package reviewer

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

// errInputClosed signals that the answer source reached EOF.
var errInputClosed = errors.New("input closed")

type action int

const (
	actionApprove action = iota
	actionReject
	actionSkip
	actionQuit
)

func parseAnswer(line string) (action, bool) {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return actionApprove, true
	case "n", "no":
		return actionReject, true
	case "s", "skip":
		return actionSkip, true
	case "q", "quit":
		return actionQuit, true
	default:
		return 0, false
	}
}

// lineReader feeds lines from r through a channel so a prompt can be
// abandoned on context cancellation. After stop, the goroutine exits at the
// next line or EOF.
type lineReader struct {
	lines    chan string
	err      chan error
	done     chan struct{}
	stopOnce sync.Once
}

func newLineReader(r io.Reader) *lineReader {
	lr := &lineReader{
		lines: make(chan string),
		err:   make(chan error, 1),
		done:  make(chan struct{}),
	}
	go func() {
		defer close(lr.lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lr.lines <- scanner.Text():
			case <-lr.done:
				lr.err <- errInputClosed
				return
			}
		}
		if err := scanner.Err(); err != nil {
			lr.err <- err
		} else {
			lr.err <- errInputClosed
		}
	}()
	return lr
}

func (lr *lineReader) stop() {
	lr.stopOnce.Do(func() { close(lr.done) })
}

func (lr *lineReader) next(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-lr.lines:
		if !ok {
			return "", <-lr.err
		}
		return line, nil
	}
}
