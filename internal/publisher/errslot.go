package publisher

import (
	"sync"
	"time"
)

// DefaultErrorTTL is how long the last publish failure stays readable.
const DefaultErrorTTL = 5 * time.Minute

// ErrorSlot holds the most recent publish failure message for a short time.
// A newer failure overwrites the previous one; Take consumes it.
type ErrorSlot struct {
	mu    sync.Mutex
	ttl   time.Duration
	clock Clock

	msg   string
	until time.Time
}

func NewErrorSlot(ttl time.Duration, clock Clock) *ErrorSlot {
	if ttl <= 0 {
		ttl = DefaultErrorTTL
	}
	if clock == nil {
		clock = systemClock{}
	}
	return &ErrorSlot{ttl: ttl, clock: clock}
}

func (s *ErrorSlot) Set(msg string) {
	s.mu.Lock()
	s.msg = msg
	s.until = s.clock.Now().Add(s.ttl)
	s.mu.Unlock()
}

// Take returns the stored message if it has not expired, and clears it.
func (s *ErrorSlot) Take() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := s.msg
	expired := !s.clock.Now().Before(s.until)
	s.msg = ""
	s.until = time.Time{}
	if msg == "" || expired {
		return "", false
	}
	return msg, true
}
