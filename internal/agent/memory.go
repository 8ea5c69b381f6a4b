package agent

import "sync"

// ThreadMemory keeps prior turns per thread id so that stateless chat
// backends see the conversation the way a checkpointed agent graph would.
type ThreadMemory struct {
	mu      sync.Mutex
	limit   int
	threads map[string][]Message
}

// NewThreadMemory returns a memory keeping at most limit messages per
// thread. limit <= 0 keeps everything.
func NewThreadMemory(limit int) *ThreadMemory {
	return &ThreadMemory{limit: limit, threads: map[string][]Message{}}
}

func (m *ThreadMemory) History(threadID string) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	history := m.threads[threadID]
	out := make([]Message, len(history))
	copy(out, history)
	return out
}

func (m *ThreadMemory) Append(threadID string, messages ...Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	history := append(m.threads[threadID], messages...)
	if m.limit > 0 && len(history) > m.limit {
		history = history[len(history)-m.limit:]
	}
	m.threads[threadID] = history
}

func (m *ThreadMemory) Forget(threadID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.threads, threadID)
}
