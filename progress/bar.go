package progress

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ollama/bytepair/format"
)

// Bar tracks a count towards a known total, such as merges learned out of
// merges requested. Set may be called from any goroutine.
type Bar struct {
	message string
	total   int64
	current atomic.Int64
	started time.Time
}

func NewBar(message string, total int64) *Bar {
	return &Bar{message: message, total: total, started: time.Now()}
}

func (b *Bar) Set(value int64) {
	b.current.Store(min(value, b.total))
}

func (b *Bar) percent() float64 {
	if b.total <= 0 {
		return 0
	}

	return float64(b.current.Load()) / float64(b.total) * 100
}

// remaining estimates the time left from the average rate so far.
func (b *Bar) remaining() time.Duration {
	current := b.current.Load()
	if current <= 0 || current >= b.total {
		return 0
	}

	elapsed := time.Since(b.started)
	return time.Duration(float64(elapsed) / float64(current) * float64(b.total-current))
}

// formatDuration limits the rendering of a time.Duration to 2 units
func formatDuration(d time.Duration) string {
	if d >= 100*time.Hour {
		return "99h+"
	}

	if d >= time.Hour {
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}

	return d.Round(time.Second).String()
}

func (b *Bar) String() string {
	termWidth, _ := termSize()
	return b.render(termWidth)
}

func (b *Bar) render(width int) string {
	var pre, mid, suf strings.Builder

	if message := strings.TrimSpace(b.message); message != "" {
		pre.WriteString(message)
		pre.WriteString(" ")
	}

	fmt.Fprintf(&pre, "%3.0f%% ", math.Floor(b.percent()))

	current := b.current.Load()
	fmt.Fprintf(&suf, "%s/%s", format.HumanNumber(uint64(current)), format.HumanNumber(uint64(b.total)))
	if current > 0 && current < b.total {
		fmt.Fprintf(&suf, " [%s:%s]", formatDuration(time.Since(b.started)), formatDuration(b.remaining()))
	}

	// 2 boundary characters and 1 space at the end
	f := width - pre.Len() - suf.Len() - 3
	if f > 0 {
		n := int(float64(f) * b.percent() / 100)
		mid.WriteString("▕")
		mid.WriteString(strings.Repeat("█", n))
		mid.WriteString(strings.Repeat(" ", f-n))
		mid.WriteString("▏ ")
	}

	return pre.String() + mid.String() + suf.String()
}
