package chat

import "time"

type queuedSubmission struct {
	Text       string
	EnqueuedAt time.Time
}

func (s *Store) enqueueLocked(q queuedSubmission) int {
	s.queue = append(s.queue, q)
	return len(s.queue)
}

func (s *Store) dequeueLocked() (queuedSubmission, bool) {
	if len(s.queue) == 0 {
		return queuedSubmission{}, false
	}
	q := s.queue[0]
	s.queue = s.queue[1:]
	return q, true
}

func (s *Store) isBusyLocked() bool {
	return s.composing || s.pending != nil
}
