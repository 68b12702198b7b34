package progress

import (
	"log/slog"
	"sync"

	"vectra/internal/job"
	"vectra/internal/logging"
)

// Hub fans job snapshots out to subscribers and answers pull queries from the
// same retained state, so push and pull can never disagree. Subscriber
// channels are buffered; when a subscriber falls behind, the oldest buffered
// update is dropped in favor of the newest, since only the latest snapshot
// matters.
type Hub struct {
	logger *slog.Logger
	buffer int

	mu          sync.RWMutex
	latest      map[string]job.Snapshot
	subscribers map[string]map[*Subscription]struct{}
}

// Subscription is one subscriber's feed of snapshots for a single job.
type Subscription struct {
	jobID string
	ch    chan job.Snapshot
	once  sync.Once
	hub   *Hub
}

// Updates is the channel snapshots arrive on. It is closed when the
// subscription is cancelled or the job is dropped from the hub.
func (s *Subscription) Updates() <-chan job.Snapshot { return s.ch }

// Cancel detaches the subscription and closes its channel.
func (s *Subscription) Cancel() {
	s.hub.unsubscribe(s)
}

// NewHub creates a hub whose subscriber channels hold buffer updates.
func NewHub(buffer int, logger *slog.Logger) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{
		logger:      logging.NewComponentLogger(logger, "progress"),
		buffer:      buffer,
		latest:      make(map[string]job.Snapshot),
		subscribers: make(map[string]map[*Subscription]struct{}),
	}
}

// Publish retains the snapshot as the job's current state and forwards it to
// every subscriber of that job.
func (h *Hub) Publish(snap job.Snapshot) {
	h.mu.Lock()
	h.latest[snap.JobID] = snap
	subs := h.subscribers[snap.JobID]
	for sub := range subs {
		h.send(sub, snap)
	}
	h.mu.Unlock()
}

// Get answers a pull query from the retained state.
func (h *Hub) Get(jobID string) (job.Snapshot, bool) {
	h.mu.RLock()
	snap, ok := h.latest[jobID]
	h.mu.RUnlock()
	return snap, ok
}

// Subscribe registers for updates on one job. The current snapshot, if any,
// is delivered immediately so subscribers never start blind.
func (h *Hub) Subscribe(jobID string) *Subscription {
	sub := &Subscription{
		jobID: jobID,
		ch:    make(chan job.Snapshot, h.buffer),
		hub:   h,
	}
	h.mu.Lock()
	if h.subscribers[jobID] == nil {
		h.subscribers[jobID] = make(map[*Subscription]struct{})
	}
	h.subscribers[jobID][sub] = struct{}{}
	if snap, ok := h.latest[jobID]; ok {
		h.send(sub, snap)
	}
	h.mu.Unlock()
	return sub
}

// Drop forgets a job and closes all its subscriptions. Called at disposal.
func (h *Hub) Drop(jobID string) {
	h.mu.Lock()
	delete(h.latest, jobID)
	subs := h.subscribers[jobID]
	delete(h.subscribers, jobID)
	h.mu.Unlock()
	for sub := range subs {
		sub.once.Do(func() { close(sub.ch) })
	}
}

// send delivers without blocking: a full buffer sheds its oldest update.
// Callers hold h.mu, so the receiver cannot detach mid-send.
func (h *Hub) send(sub *Subscription, snap job.Snapshot) {
	for {
		select {
		case sub.ch <- snap:
			return
		default:
		}
		select {
		case <-sub.ch:
		default:
		}
	}
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	if subs := h.subscribers[sub.jobID]; subs != nil {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.subscribers, sub.jobID)
		}
	}
	h.mu.Unlock()
	sub.once.Do(func() { close(sub.ch) })
}
