package infra

import (
	"context"
	"log/slog"
	"sync"

	"bloghub.com/internal/event"
	"bloghub.com/internal/model"
)

// FeedConn is the write side of a websocket connection.
type FeedConn interface {
	WriteJSON(v any) error
	Close() error
}

// FeedMessage is what feed clients receive for every newly published post.
type FeedMessage struct {
	Type string          `json:"type"`
	Post *model.BlogPost `json:"post"`
}

// FeedClient is one connected websocket subscriber.
type FeedClient struct {
	conn FeedConn
	send chan any

	// follows 为空时接收全部作者的文章
	follows map[string]bool
}

// FeedHub fans published posts out to websocket clients.
type FeedHub struct {
	mu      sync.RWMutex
	clients map[*FeedClient]bool

	bufferSize int
}

func NewFeedHub() *FeedHub {
	return &FeedHub{
		clients:    make(map[*FeedClient]bool),
		bufferSize: 64,
	}
}

// Register adds conn and starts its dedicated writer goroutine so a slow
// client never blocks Broadcast.
func (h *FeedHub) Register(conn FeedConn) *FeedClient {
	c := &FeedClient{
		conn:    conn,
		send:    make(chan any, h.bufferSize),
		follows: make(map[string]bool),
	}

	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	go func() {
		for msg := range c.send {
			if err := c.conn.WriteJSON(msg); err != nil {
				slog.Debug("feed write failed", "component", "feed", "error", err)
				_ = c.conn.Close()
				return
			}
		}
	}()

	return c
}

// Unregister removes c and stops its writer.
func (h *FeedHub) Unregister(c *FeedClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *FeedHub) Follow(c *FeedClient, author string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.follows[author] = true
}

func (h *FeedHub) Unfollow(c *FeedClient, author string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(c.follows, author)
}

// Broadcast queues msg for every client following author (or following nobody).
// Messages for a client whose buffer is full are dropped.
func (h *FeedHub) Broadcast(author string, msg any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if len(c.follows) > 0 && !c.follows[author] {
			continue
		}
		select {
		case c.send <- msg:
		default:
		}
	}
}

// Count returns the number of connected clients.
func (h *FeedHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandlePublished is the event.Handler for post.published.
func (h *FeedHub) HandlePublished(_ context.Context, evt event.Event) error {
	post, ok := evt.Data.(*model.BlogPost)
	if !ok || post == nil {
		return nil
	}
	author := ""
	if post.Author != nil {
		author = post.Author.Username
	}
	h.Broadcast(author, FeedMessage{Type: evt.Type, Post: post})
	return nil
}
