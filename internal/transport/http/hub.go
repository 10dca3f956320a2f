package http

import (
	"sync"

	"go.uber.org/zap"

	"quizmaster-service/internal/domain"
)

// Hub fans quiz events out to every connection watching a channel. It
// is the transport half of the engine's notifier: sends never block and
// stale frames are dropped, so the countdown never waits on a slow
// client.
type Hub struct {
	log *zap.Logger

	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		log:     log,
		clients: make(map[string]map[*client]struct{}),
	}
}

// PresentQuestion publishes a question (or countdown refresh) frame.
func (h *Hub) PresentQuestion(channelID string, prompt domain.QuestionPrompt) {
	h.broadcast(channelID, "question", prompt)
}

// RevealAnswer publishes a question's answer once its countdown ends.
func (h *Hub) RevealAnswer(channelID string, reveal domain.AnswerReveal) {
	h.broadcast(channelID, "reveal", reveal)
}

// QuizCompleted publishes the end-of-run summary.
func (h *Hub) QuizCompleted(channelID string, summary domain.QuizSummary) {
	h.broadcast(channelID, "completed", summary)
}

// ReportStatus publishes a status snapshot to the whole channel.
func (h *Hub) ReportStatus(channelID string, status domain.SessionStatus) {
	h.broadcast(channelID, "status", status)
}

func (h *Hub) broadcast(channelID, msgType string, payload any) {
	msg := outboundMessage[any]{Type: msgType, Payload: payload}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[channelID] {
		c.deliver(msg)
	}
}

func (h *Hub) register(channelID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[channelID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[channelID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(channelID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.clients[channelID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, channelID)
		}
	}
}

// client is one websocket connection's outbound side. send is never
// closed; the writer goroutine exits via done and anything still
// buffered is dropped.
type client struct {
	send chan outboundMessage[any]
	done chan struct{}
}

func newClient() *client {
	return &client{
		send: make(chan outboundMessage[any], 16),
		done: make(chan struct{}),
	}
}

// deliver enqueues a frame without blocking. When the buffer is full
// the oldest frame gives way so the newest countdown value wins.
func (c *client) deliver(msg outboundMessage[any]) {
	select {
	case c.send <- msg:
		return
	default:
	}
	select {
	case <-c.send:
	default:
	}
	select {
	case c.send <- msg:
	default:
	}
}
