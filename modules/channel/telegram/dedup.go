package telegram

import "sync"

const defaultRecentCap = 2000

// recentSet is a bounded set of recently seen keys with FIFO eviction.
// It suppresses duplicate handling when Telegram redelivers an update
// or a user forwards the same file twice in quick succession.
type recentSet struct {
	mu    sync.Mutex
	cap   int
	queue []string
	keys  map[string]struct{}
}

func newRecentSet(capacity int) *recentSet {
	if capacity <= 0 {
		capacity = defaultRecentCap
	}
	return &recentSet{
		cap:  capacity,
		keys: make(map[string]struct{}, capacity),
	}
}

// Add records key and reports whether it was newly seen. When the set is
// full the oldest key is evicted.
func (s *recentSet) Add(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, seen := s.keys[key]; seen {
		return false
	}
	s.queue = append(s.queue, key)
	s.keys[key] = struct{}{}
	if len(s.queue) > s.cap {
		old := s.queue[0]
		s.queue = s.queue[1:]
		delete(s.keys, old)
	}
	return true
}
