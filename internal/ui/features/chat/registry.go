package chat

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leapstack-labs/budgetquery/internal/conversation"
)

// Conversation is one browser conversation.
type Conversation struct {
	ID         string
	Controller *conversation.Controller
	Transcript *Transcript

	mu       sync.Mutex
	lastSeen time.Time
}

func (c *Conversation) touch(now time.Time) {
	c.mu.Lock()
	c.lastSeen = now
	c.mu.Unlock()
}

func (c *Conversation) idleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen
}

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	Service     conversation.Service
	BasePath    string
	PreviewRows int
	// IdleTimeout evicts conversations nobody has used for that long.
	// Zero disables eviction.
	IdleTimeout time.Duration
	Logger      *slog.Logger
	Now         func() time.Time
}

// Registry holds the live conversations of the server.
type Registry struct {
	cfg RegistryConfig

	mu    sync.Mutex
	convs map[string]*Conversation
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Registry{
		cfg:   cfg,
		convs: make(map[string]*Conversation),
	}
}

// Create starts a new conversation.
func (r *Registry) Create() *Conversation {
	id := uuid.NewString()
	logger := r.cfg.Logger.With("conversation", id)
	transcript := NewTranscript(Paths{Base: r.cfg.BasePath, ID: id}, r.cfg.PreviewRows, logger)

	c := &Conversation{
		ID: id,
		Controller: conversation.New(conversation.Config{
			Service:   r.cfg.Service,
			Presenter: transcript,
			Logger:    logger,
		}),
		Transcript: transcript,
		lastSeen:   r.cfg.Now(),
	}

	r.mu.Lock()
	r.convs[id] = c
	r.mu.Unlock()

	logger.Debug("conversation created")
	return c
}

// Get returns the conversation with id and marks it as used.
func (r *Registry) Get(id string) (*Conversation, bool) {
	r.mu.Lock()
	c, ok := r.convs[id]
	r.mu.Unlock()
	if ok {
		c.touch(r.cfg.Now())
	}
	return c, ok
}

// Len returns the number of live conversations.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.convs)
}

// Evict removes conversations idle for longer than the timeout. A
// conversation with a turn in flight or an open update stream is kept.
func (r *Registry) Evict() int {
	if r.cfg.IdleTimeout <= 0 {
		return 0
	}
	cutoff := r.cfg.Now().Add(-r.cfg.IdleTimeout)

	var evicted []*Conversation
	r.mu.Lock()
	for id, c := range r.convs {
		if c.Controller.Busy() || c.Transcript.Watchers() > 0 {
			continue
		}
		if c.idleSince().Before(cutoff) {
			delete(r.convs, id)
			evicted = append(evicted, c)
		}
	}
	r.mu.Unlock()

	for _, c := range evicted {
		c.Transcript.Close()
		r.cfg.Logger.Debug("conversation evicted", "conversation", c.ID)
	}
	return len(evicted)
}

// Run evicts idle conversations until ctx is done.
func (r *Registry) Run(ctx context.Context) error {
	if r.cfg.IdleTimeout <= 0 {
		<-ctx.Done()
		return nil
	}

	interval := r.cfg.IdleTimeout / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := r.Evict(); n > 0 {
				r.cfg.Logger.Info("evicted idle conversations", "count", n, "live", r.Len())
			}
		}
	}
}

// Close ends the update streams of every conversation.
func (r *Registry) Close() {
	r.mu.Lock()
	convs := r.convs
	r.convs = make(map[string]*Conversation)
	r.mu.Unlock()

	for _, c := range convs {
		c.Transcript.Close()
	}
}
