package tui

import (
	"bytes"
	"io"
	"unicode"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/i474232898/weather-widget/internal/weather"
)

// keyEvents maps a decoded key press to widget events. Keys the widget does
// not bind (arrows, function keys, Esc, Tab) map to nothing.
func keyEvents(msg tea.KeyMsg) []weather.KeyEvent {
	switch msg.Type {
	case tea.KeyEnter, tea.KeyCtrlJ:
		return []weather.KeyEvent{{Kind: weather.KeyConfirm}}
	case tea.KeyCtrlW:
		return []weather.KeyEvent{{Kind: weather.KeyNewLocation}}
	case tea.KeyBackspace, tea.KeyCtrlH:
		return []weather.KeyEvent{{Kind: weather.KeyBackspace}}
	case tea.KeyCtrlR:
		return []weather.KeyEvent{{Kind: weather.KeyRefresh}}
	case tea.KeySpace:
		return []weather.KeyEvent{{Kind: weather.KeyChar, Char: ' '}}
	case tea.KeyRunes:
		events := make([]weather.KeyEvent, 0, len(msg.Runes))
		for _, r := range msg.Runes {
			if unicode.IsControl(r) {
				continue
			}
			events = append(events, weather.KeyEvent{Kind: weather.KeyChar, Char: r})
		}
		return events
	}
	return nil
}

const (
	keyEscape = 0x1b
	// maxSequence bounds an escape sequence that never sees its final byte.
	maxSequence = 32
)

// sequenceReader hands escape sequences to the key decoder in one piece.
// When a read ends inside a sequence it keeps reading until the sequence is
// complete, so an arrow key split across reads is never taken for text. A
// lone Esc is held back until the next byte arrives.
type sequenceReader struct {
	r   io.Reader
	buf []byte
	err error
}

// NewInput wraps raw terminal input for use with tea.WithInput.
func NewInput(r io.Reader) io.Reader {
	return &sequenceReader{r: r}
}

func (s *sequenceReader) Read(p []byte) (int, error) {
	if len(s.buf) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		s.fill()
		if len(s.buf) == 0 {
			return 0, s.err
		}
	}
	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	return n, nil
}

func (s *sequenceReader) fill() {
	var chunk [256]byte
	for {
		n, err := s.r.Read(chunk[:])
		s.buf = append(s.buf, chunk[:n]...)
		if err != nil {
			s.err = err
			return
		}
		if !pendingSequence(s.buf) {
			return
		}
	}
}

// pendingSequence reports whether b ends inside an unfinished CSI or SS3
// sequence.
func pendingSequence(b []byte) bool {
	i := bytes.LastIndexByte(b, keyEscape)
	if i < 0 {
		return false
	}
	seq := b[i:]
	if len(seq) >= maxSequence {
		return false
	}
	if len(seq) == 1 {
		return true
	}

	switch seq[1] {
	case '[':
		for _, c := range seq[2:] {
			// Parameter and intermediate bytes are 0x20-0x3f; anything
			// else ends the sequence.
			if c < 0x20 || c > 0x3f {
				return false
			}
		}
		return true
	case 'O':
		return len(seq) == 2
	}
	return false
}
