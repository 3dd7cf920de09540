package server

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	RealtimeEventRSVPChanged = "rsvp-change"
	realtimeEventHeartbeat   = "heartbeat"
	realtimeSourceBackend    = "wedding-api"
	realtimeHeartbeatPeriod  = 25 * time.Second
)

// RealtimeMessage tells admin dashboards which guests changed.
type RealtimeMessage struct {
	EventType string
	GuestIDs  []uint
	Flagged   bool
	Timestamp time.Time
}

// RealtimeDispatcher fans RSVP changes out to connected admin streams.
// Slow subscribers drop messages instead of blocking the publisher.
type RealtimeDispatcher struct {
	mu          sync.RWMutex
	subscribers map[int64]*realtimeSubscriber
	nextID      int64
	bufferSize  int
}

type realtimeSubscriber struct {
	id     int64
	stream chan RealtimeMessage
}

func NewRealtimeDispatcher() *RealtimeDispatcher {
	return &RealtimeDispatcher{
		subscribers: make(map[int64]*realtimeSubscriber),
		bufferSize:  16,
	}
}

func (d *RealtimeDispatcher) Subscribe(ctx context.Context) (<-chan RealtimeMessage, func()) {
	subscriber := &realtimeSubscriber{stream: make(chan RealtimeMessage, d.bufferSize)}
	d.mu.Lock()
	d.nextID++
	subscriber.id = d.nextID
	d.subscribers[subscriber.id] = subscriber
	d.mu.Unlock()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.subscribers, subscriber.id)
			d.mu.Unlock()
		})
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return subscriber.stream, cleanup
}

func (d *RealtimeDispatcher) Publish(message RealtimeMessage) {
	if d == nil || message.EventType == "" {
		return
	}
	d.mu.RLock()
	copies := make([]*realtimeSubscriber, 0, len(d.subscribers))
	for _, subscriber := range d.subscribers {
		copies = append(copies, subscriber)
	}
	d.mu.RUnlock()
	for _, subscriber := range copies {
		select {
		case subscriber.stream <- message:
		default:
		}
	}
}

func (d *RealtimeDispatcher) subscriberCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers)
}

// publishRSVPChange announces changed guests; nothing is sent when none changed.
func (h *httpHandler) publishRSVPChange(guestIDs []uint, flagged bool) {
	if h.realtime == nil || len(guestIDs) == 0 {
		return
	}
	sorted := append([]uint(nil), guestIDs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	h.realtime.Publish(RealtimeMessage{
		EventType: RealtimeEventRSVPChanged,
		GuestIDs:  sorted,
		Flagged:   flagged,
		Timestamp: time.Now().UTC(),
	})
}

// handleAdminEvents streams RSVP changes as server-sent events until the
// client disconnects.
func (h *httpHandler) handleAdminEvents(c *gin.Context) {
	ctx := c.Request.Context()
	stream, cleanup := h.realtime.Subscribe(ctx)
	defer cleanup()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	heartbeat := time.NewTicker(h.heartbeatPeriod)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case message := <-stream:
			c.SSEvent(message.EventType, gin.H{
				"guest_ids": message.GuestIDs,
				"flagged":   message.Flagged,
				"timestamp": message.Timestamp,
				"source":    realtimeSourceBackend,
			})
			c.Writer.Flush()
		case tick := <-heartbeat.C:
			c.SSEvent(realtimeEventHeartbeat, gin.H{"timestamp": tick.UTC(), "source": realtimeSourceBackend})
			c.Writer.Flush()
			h.logger.Debug("admin stream heartbeat", zap.Int("subscribers", h.realtime.subscriberCount()))
		}
	}
}
