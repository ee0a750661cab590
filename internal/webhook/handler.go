package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/brainytots/whatsapp-connect/internal/observability/metrics"
	"github.com/brainytots/whatsapp-connect/pkg/logging"
)

// processTimeout bounds one message's flow run, including backend calls and
// outbound sends. Generous because the assistant query streams.
const processTimeout = 90 * time.Second

// Processor runs one conversation transition for an inbound message.
type Processor interface {
	HandleMessage(ctx context.Context, phone, text string) error
}

// Receipts acknowledges messages on the channel. Optional.
type Receipts interface {
	MarkAsRead(ctx context.Context, messageID string)
}

type Config struct {
	Flow     Processor
	Receipts Receipts
	Logger   *logging.Logger
	Metrics  *metrics.ConversationMetrics
}

// Handler accepts Whapi webhooks. It always ACKs with 200 so the channel
// never retries; processing happens asynchronously, serialized per sender so
// rapid-fire messages from one user cannot interleave transitions.
type Handler struct {
	flow     Processor
	receipts Receipts
	logger   *logging.Logger
	metrics  *metrics.ConversationMetrics

	mu      sync.Mutex
	senders map[string]*senderLock

	// wg tracks in-flight message goroutines for shutdown and tests.
	wg sync.WaitGroup
}

func NewHandler(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Handler{
		flow:     cfg.Flow,
		receipts: cfg.Receipts,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		senders:  make(map[string]*senderLock),
	}
}

// ServeHTTP handles POST /webhook.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Warn("failed to read webhook body", "error", err)
		h.metrics.ObserveInbound("malformed")
		h.ack(w)
		return
	}

	envelopes, err := decodeEnvelopes(body)
	if err != nil {
		h.logger.Warn("dropping undecodable webhook payload", "error", err)
		h.metrics.ObserveInbound("malformed")
		h.ack(w)
		return
	}

	for _, payload := range envelopes {
		if !payload.isMessagePost() {
			h.metrics.ObserveInbound("ignored_event")
			continue
		}
		for _, msg := range payload.Messages {
			h.dispatch(msg)
		}
	}
	h.ack(w)
}

// decodeEnvelopes accepts both delivery shapes the channel uses: a single
// envelope object or an array of envelopes.
func decodeEnvelopes(body []byte) ([]Payload, error) {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var many []Payload
		if err := json.Unmarshal(trimmed, &many); err != nil {
			return nil, err
		}
		return many, nil
	}
	var one Payload
	if err := json.Unmarshal(trimmed, &one); err != nil {
		return nil, err
	}
	return []Payload{one}, nil
}

func (h *Handler) dispatch(msg Message) {
	switch {
	case msg.FromMe:
		h.metrics.ObserveInbound("from_me")
		return
	case msg.Sender() == "":
		h.logger.Warn("dropping message without sender", "message_id", msg.ID)
		h.metrics.ObserveInbound("no_sender")
		return
	case msg.Body() == "":
		h.logger.Info("dropping message without text", "message_id", msg.ID, "type", msg.Type)
		h.metrics.ObserveInbound("no_body")
		return
	}

	h.wg.Add(1)
	go h.process(msg)
}

func (h *Handler) process(msg Message) {
	defer h.wg.Done()

	lock := h.acquireSender(msg.Sender())
	lock.mu.Lock()
	defer func() {
		lock.mu.Unlock()
		h.releaseSender(msg.Sender(), lock)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
	defer cancel()

	if h.receipts != nil && msg.ID != "" {
		h.receipts.MarkAsRead(ctx, msg.ID)
	}

	start := time.Now()
	err := h.flow.HandleMessage(ctx, msg.Sender(), msg.Body())
	elapsed := time.Since(start).Seconds()
	if err != nil {
		h.logger.Error("message processing failed", "phone", msg.Sender(), "message_id", msg.ID, "error", err)
		h.metrics.ObserveInbound("error")
		h.metrics.ObserveLatency("error", elapsed)
		return
	}
	h.metrics.ObserveInbound("processed")
	h.metrics.ObserveLatency("processed", elapsed)
}

// Wait blocks until all in-flight messages finish. Called on shutdown.
func (h *Handler) Wait() {
	h.wg.Wait()
}

// senderLock serializes transitions for one sender. Entries are reference
// counted so the map does not accumulate one mutex per sender ever seen.
type senderLock struct {
	mu   sync.Mutex
	refs int
}

func (h *Handler) acquireSender(sender string) *senderLock {
	h.mu.Lock()
	defer h.mu.Unlock()
	lock, ok := h.senders[sender]
	if !ok {
		lock = &senderLock{}
		h.senders[sender] = lock
	}
	lock.refs++
	return lock
}

func (h *Handler) releaseSender(sender string, lock *senderLock) {
	h.mu.Lock()
	defer h.mu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(h.senders, sender)
	}
}

func (h *Handler) ack(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"received"}`))
}
