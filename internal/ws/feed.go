// Package ws pushes the active task list to Mini App clients over websockets.
package ws

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"boostclics/internal/domain"
	"boostclics/internal/graphql"
	"boostclics/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type TaskSource interface {
	ListActive(ctx context.Context, bearer string) ([]domain.Task, error)
}

// Feed polls the task source per connection and pushes the list when it
// changes.
type Feed struct {
	source   TaskSource
	interval time.Duration
	upgrader websocket.Upgrader

	mu      sync.Mutex
	cancels map[*Client]context.CancelFunc
}

// NewFeed creates a feed. An empty allowedOrigins accepts any origin.
func NewFeed(source TaskSource, interval time.Duration, allowedOrigins []string) *Feed {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Feed{
		source:   source,
		interval: interval,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if len(allowedOrigins) == 0 {
					return true
				}
				return slices.Contains(allowedOrigins, r.Header.Get("Origin"))
			},
		},
		cancels: make(map[*Client]context.CancelFunc),
	}
}

// Handle upgrades the request. Browsers cannot set headers on websocket
// requests, so the session token may come from the token query parameter.
func (f *Feed) Handle(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		if scheme, rest, ok := strings.Cut(c.GetHeader("Authorization"), " "); ok && strings.EqualFold(scheme, "Bearer") {
			token = strings.TrimSpace(rest)
		}
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token required"})
		return
	}

	conn, err := f.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.WithContext(c.Request.Context()).Warn("ws upgrade error", "error", err)
		return
	}

	f.serve(conn, token)
}

func (f *Feed) serve(conn *websocket.Conn, token string) {
	ctx, cancel := context.WithCancel(context.Background())
	client := newClient(conn)

	f.mu.Lock()
	f.cancels[client] = cancel
	f.mu.Unlock()

	defer func() {
		cancel()
		f.mu.Lock()
		delete(f.cancels, client)
		f.mu.Unlock()
	}()

	go client.writePump(ctx)
	go f.poll(ctx, client, token)

	client.readPump(ctx)
}

// Shutdown closes every open feed connection.
func (f *Feed) Shutdown() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, cancel := range f.cancels {
		cancel()
	}
}

func (f *Feed) poll(ctx context.Context, c *Client, token string) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	var last [sha256.Size]byte
	push := func(force bool) bool {
		tasks, err := f.source.ListActive(ctx, token)
		if err != nil {
			if ctx.Err() != nil {
				return false
			}
			if errors.Is(err, graphql.ErrUnauthorized) {
				c.closeAfter(ctx, Message{Type: MsgError, Error: "session expired"})
				return false
			}
			logger.Warn("ws feed: failed to list tasks", "error", err)
			c.queue(ctx, Message{Type: MsgError, Error: "failed to get tasks"})
			return true
		}
		if tasks == nil {
			tasks = []domain.Task{}
		}

		b, _ := json.Marshal(tasks)
		sum := sha256.Sum256(b)
		if !force && sum == last {
			return true
		}
		last = sum
		c.queue(ctx, Message{Type: MsgTasks, Tasks: tasks})
		return true
	}

	if !push(true) {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.refresh:
			if !push(true) {
				return
			}
		case <-ticker.C:
			if !push(false) {
				return
			}
		}
	}
}
