package progress

import (
	"strings"
	"sync/atomic"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

type Spinner struct {
	message string
	started time.Time
	stopped atomic.Bool
}

func NewSpinner(message string) *Spinner {
	return &Spinner{message: message, started: time.Now()}
}

func (s *Spinner) String() string {
	var sb strings.Builder
	if message := strings.TrimSpace(s.message); message != "" {
		sb.WriteString(message)
		sb.WriteString(" ")
	}

	if !s.stopped.Load() {
		frame := int(time.Since(s.started)/(100*time.Millisecond)) % len(spinnerFrames)
		sb.WriteString(spinnerFrames[frame])
		sb.WriteString(" ")
	}

	return sb.String()
}

func (s *Spinner) Stop() {
	s.stopped.Store(true)
}
