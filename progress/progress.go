// Package progress renders live status lines on a terminal.
package progress

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

const (
	defaultTermWidth  = 80
	defaultTermHeight = 24
)

type State interface {
	String() string
}

// Progress redraws its states in place every 100ms until stopped.
type Progress struct {
	mu sync.Mutex
	// buffer output to minimize flickering on all terminals
	w *bufio.Writer

	pos     int
	states  []State
	ticker  *time.Ticker
	stopped bool

	done chan struct{}
	wg   sync.WaitGroup
}

func NewProgress(w io.Writer) *Progress {
	p := &Progress{
		w:      bufio.NewWriter(w),
		ticker: time.NewTicker(100 * time.Millisecond),
		done:   make(chan struct{}),
	}

	// hide cursor
	fmt.Fprint(p.w, "\033[?25l")

	p.wg.Add(1)
	go p.start()
	return p
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func termSize() (int, int) {
	width, height, err := term.GetSize(int(os.Stderr.Fd()))
	if err != nil {
		return defaultTermWidth, defaultTermHeight
	}
	return width, height
}

func (p *Progress) Add(state State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.states = append(p.states, state)
}

// Stop renders the final state and leaves it on screen.
func (p *Progress) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stop() {
		fmt.Fprintln(p.w)
	}

	p.showCursor()
}

// StopAndClear stops rendering and erases every line it drew.
func (p *Progress) StopAndClear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stop() {
		for range p.pos - 1 {
			fmt.Fprint(p.w, "\033[A")
		}
		fmt.Fprint(p.w, "\033[2K", "\033[1G")
	}

	p.showCursor()
}

// stop, showCursor and render expect p.mu to be held.
func (p *Progress) stop() bool {
	if p.stopped {
		return false
	}

	p.stopped = true
	p.ticker.Stop()
	close(p.done)
	for _, state := range p.states {
		if spinner, ok := state.(*Spinner); ok {
			spinner.Stop()
		}
	}

	p.render()
	return true
}

func (p *Progress) showCursor() {
	fmt.Fprint(p.w, "\033[?25h")
	p.w.Flush()
}

func (p *Progress) render() {
	_, termHeight := termSize()

	fmt.Fprint(p.w, "\033[?2026h")
	defer fmt.Fprint(p.w, "\033[?2026l")

	for range p.pos - 1 {
		fmt.Fprint(p.w, "\033[A")
	}

	fmt.Fprint(p.w, "\033[1G")

	start := max(len(p.states)-termHeight, 0)
	for i := start; i < len(p.states); i++ {
		fmt.Fprint(p.w, p.states[i].String(), "\033[K")
		if i < len(p.states)-1 {
			fmt.Fprint(p.w, "\n")
		}
	}

	p.pos = len(p.states) - start
	p.w.Flush()
}

// start redraws on every tick. Stopping the ticker does not close its
// channel, so done ends the loop.
func (p *Progress) start() {
	defer p.wg.Done()

	for {
		select {
		case <-p.done:
			return
		case <-p.ticker.C:
			p.mu.Lock()
			if !p.stopped {
				p.render()
			}
			p.mu.Unlock()
		}
	}
}
