package dialogue

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Turn is one utterance in a thread.
type Turn struct {
	SpeakerID string    `json:"speaker_id"`
	Text      string    `json:"text"`
	Category  Category  `json:"category"`
	At        time.Time `json:"at"`
}

// Thread is the running state of one pair's conversation. A pair has at
// most one open thread at a time, keyed direction-independently.
type Thread struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	AID       string    `json:"a_id"`
	BID       string    `json:"b_id"`
	Turns     []Turn    `json:"turns"`
	Topics    []string  `json:"topics"`
	Sentiment float64   `json:"sentiment"` // -1 to 1
	StartedAt time.Time `json:"started_at"`
	LastAt    time.Time `json:"last_at"`
}

// maxThreadTurns bounds turn history per thread.
const maxThreadTurns = 30

// staleAfter is how long an untouched thread survives before pruning.
const staleAfter = 30 * time.Minute

// AddTurn appends a turn, updates topics and drifts sentiment by the
// turn's category.
func (t *Thread) AddTurn(turn Turn) {
	t.Turns = append(t.Turns, turn)
	if len(t.Turns) > maxThreadTurns {
		t.Turns = t.Turns[len(t.Turns)-maxThreadTurns:]
	}
	t.LastAt = turn.At

	topic := string(turn.Category)
	if turn.Category != CategoryGeneral && !t.hasTopic(topic) {
		t.Topics = append(t.Topics, topic)
	}

	switch turn.Category {
	case CategoryCompliment, CategoryHumor:
		t.Sentiment += 0.2
	case CategoryGossip, CategoryFood:
		t.Sentiment += 0.1
	case CategoryComplaint, CategoryStress:
		t.Sentiment -= 0.15
	}
	if t.Sentiment > 1 {
		t.Sentiment = 1
	}
	if t.Sentiment < -1 {
		t.Sentiment = -1
	}
}

func (t *Thread) hasTopic(topic string) bool {
	for _, existing := range t.Topics {
		if existing == topic {
			return true
		}
	}
	return false
}

// EndChance grows with thread length and sours with negative sentiment.
// Fresh threads never end spontaneously.
func (t *Thread) EndChance() float64 {
	turns := len(t.Turns)
	if turns < 4 {
		return 0
	}
	chance := 0.05 * float64(turns-3)
	if t.Sentiment < 0 {
		chance += -t.Sentiment * 0.2
	}
	if chance > 0.8 {
		chance = 0.8
	}
	return chance
}

// LastCategory returns the most recent turn's category, or general.
func (t *Thread) LastCategory() Category {
	if len(t.Turns) == 0 {
		return CategoryGeneral
	}
	return t.Turns[len(t.Turns)-1].Category
}

// pairKey builds a direction-independent key for two agent IDs.
func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

// ThreadStore holds open threads keyed by pair.
type ThreadStore struct {
	mu      sync.RWMutex
	threads map[string]*Thread
}

// NewThreadStore creates an empty store.
func NewThreadStore() *ThreadStore {
	return &ThreadStore{threads: make(map[string]*Thread)}
}

// Touch returns the pair's open thread, creating one if needed.
func (s *ThreadStore) Touch(aID, bID string, now time.Time) *Thread {
	key := pairKey(aID, bID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if th, ok := s.threads[key]; ok {
		return th
	}
	th := &Thread{
		ID:        uuid.NewString(),
		Key:       key,
		AID:       aID,
		BID:       bID,
		StartedAt: now,
		LastAt:    now,
	}
	s.threads[key] = th
	return th
}

// Get returns the pair's open thread, if any.
func (s *ThreadStore) Get(aID, bID string) (*Thread, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	th, ok := s.threads[pairKey(aID, bID)]
	return th, ok
}

// Close removes a thread by key.
func (s *ThreadStore) Close(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.threads, key)
}

// Prune drops threads untouched for longer than staleAfter and returns
// how many were removed.
func (s *ThreadStore) Prune(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, th := range s.threads {
		if now.Sub(th.LastAt) > staleAfter {
			delete(s.threads, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of open threads.
func (s *ThreadStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.threads)
}
