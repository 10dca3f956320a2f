package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quizmaster-service/internal/app"
	"quizmaster-service/internal/domain"
)

// WSHandler upgrades connections and dispatches the quiz lifecycle
// commands participants type into a channel.
type WSHandler struct {
	service  *app.QuizService
	hub      *Hub
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, hub *Hub, log *zap.Logger) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{
		service: service,
		hub:     hub,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type startPayload struct {
	Quiz     string               `json:"quiz"`
	Settings *domain.QuizSettings `json:"settings,omitempty"`
}

type quizListPayload struct {
	Quizzes []string `json:"quizzes"`
}

type setTimerPayload struct {
	Seconds int `json:"seconds"`
}

type setQuestionsPayload struct {
	Count int `json:"count"`
}

type setRandomOrderPayload struct {
	Random bool `json:"random"`
}

// ServeWS attaches a websocket to a channel and relays commands into
// the quiz service. Broadcast frames (questions, countdowns, reveals)
// arrive through the hub; direct replies go only to this connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	channelID := r.URL.Query().Get("channel")
	if channelID == "" {
		http.Error(w, "missing channel", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	c := newClient()
	h.hub.register(channelID, c)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case msg := <-c.send:
				if err := conn.WriteJSON(msg); err != nil {
					h.log.Debug("ws write error", zap.String("channel", channelID), zap.Error(err))
					return
				}
			case <-c.done:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(r, channelID, c, inbound)
	}

	h.hub.unregister(channelID, c)
	close(c.done)
	<-writerDone
}

func (h *WSHandler) dispatch(r *http.Request, channelID string, c *client, inbound inboundMessage) {
	ctx := r.Context()
	switch inbound.Type {
	case "start":
		var payload startPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Quiz == "" {
			c.deliver(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "start needs a quiz name"}})
			return
		}
		status, err := h.service.Start(ctx, channelID, payload.Quiz, payload.Settings)
		if err != nil {
			h.replyError(channelID, c, "start", err)
			return
		}
		c.deliver(outboundMessage[any]{Type: "status", Payload: status})
	case "stop":
		status, err := h.service.Stop(ctx, channelID)
		if err != nil {
			h.replyError(channelID, c, "stop", err)
			return
		}
		c.deliver(outboundMessage[any]{Type: "status", Payload: status})
	case "pause":
		status, err := h.service.Pause(ctx, channelID)
		if err != nil {
			h.replyError(channelID, c, "pause", err)
			return
		}
		c.deliver(outboundMessage[any]{Type: "status", Payload: status})
	case "resume":
		status, err := h.service.Resume(ctx, channelID)
		if err != nil {
			h.replyError(channelID, c, "resume", err)
			return
		}
		c.deliver(outboundMessage[any]{Type: "status", Payload: status})
	case "status":
		// the service pushes the snapshot through the hub so the whole
		// channel sees the reply
		h.service.Status(ctx, channelID)
	case "quizzes":
		names, err := h.service.ListQuizzes(ctx)
		if err != nil {
			h.replyError(channelID, c, "quizzes", err)
			return
		}
		c.deliver(outboundMessage[any]{Type: "quizzes", Payload: quizListPayload{Quizzes: names}})
	case "set_timer":
		var payload setTimerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			c.deliver(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "set_timer needs seconds"}})
			return
		}
		h.applySettings(channelID, c, func() (domain.QuizSettings, error) {
			return h.service.SetTimerDuration(ctx, channelID, payload.Seconds)
		})
	case "set_questions":
		var payload setQuestionsPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			c.deliver(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "set_questions needs a count"}})
			return
		}
		h.applySettings(channelID, c, func() (domain.QuizSettings, error) {
			return h.service.SetQuestionCount(ctx, channelID, payload.Count)
		})
	case "set_random_order":
		var payload setRandomOrderPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			c.deliver(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "set_random_order needs random"}})
			return
		}
		h.applySettings(channelID, c, func() (domain.QuizSettings, error) {
			return h.service.SetRandomOrder(ctx, channelID, payload.Random)
		})
	default:
		c.deliver(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
	}
}

func (h *WSHandler) applySettings(channelID string, c *client, apply func() (domain.QuizSettings, error)) {
	settings, err := apply()
	if err != nil {
		h.replyError(channelID, c, "settings", err)
		return
	}
	c.deliver(outboundMessage[any]{Type: "settings", Payload: settings})
}

func (h *WSHandler) replyError(channelID string, c *client, command string, err error) {
	h.log.Info("command rejected",
		zap.String("channel", channelID),
		zap.String("command", command),
		zap.Error(err))
	c.deliver(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: userMessage(err)}})
}

// userMessage maps engine errors to distinguishable participant-facing
// text, so "already running" never reads like "nothing running".
func userMessage(err error) string {
	var invalidState *domain.InvalidStateError
	switch {
	case errors.Is(err, domain.ErrAlreadyRunning):
		return "A quiz is already running in this channel. Stop it before starting another."
	case errors.Is(err, domain.ErrNoActiveSession):
		return "No quiz is running in this channel."
	case errors.Is(err, domain.ErrQuizNotFound):
		return "That quiz does not exist. Ask for the quiz list to see what is available."
	case errors.Is(err, domain.ErrEmptySource):
		return "That quiz has no questions to ask."
	case errors.Is(err, domain.ErrInvalidSettings):
		return err.Error()
	case errors.Is(err, domain.ErrSourceUnavailable):
		return "Quiz content is temporarily unavailable. Try again shortly."
	case errors.As(err, &invalidState):
		return invalidState.Error()
	default:
		return "Something went wrong handling that command."
	}
}
