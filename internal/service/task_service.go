package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"boostclics/internal/domain"
	"boostclics/internal/logger"

	"golang.org/x/sync/singleflight"
)

const activeTasksLimit = 100

const activeTasksQuery = `query ActiveTasks($limit: Int!) {
  tasks(where: {is_active: {_eq: true}}, order_by: {created_at: desc}, limit: $limit) {
    id
    title
    description
    reward
    url
    created_at
  }
}`

type GraphQLQuerier interface {
	Do(ctx context.Context, bearer, query string, variables map[string]any, out any) error
}

type TaskService struct {
	gql   GraphQLQuerier
	cache *TaskCache
	group singleflight.Group
}

// NewTaskService builds the task proxy. cache may be nil.
func NewTaskService(gql GraphQLQuerier, cache *TaskCache) *TaskService {
	return &TaskService{gql: gql, cache: cache}
}

// gqlID accepts both string and numeric GraphQL ids.
type gqlID string

func (id *gqlID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = gqlID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = gqlID(n.String())
	return nil
}

type gqlTask struct {
	ID          gqlID     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Reward      int64     `json:"reward"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListActive returns the active tasks visible to the session behind bearer.
func (s *TaskService) ListActive(ctx context.Context, bearer string) ([]domain.Task, error) {
	key := sessionKey(bearer)

	if s.cache != nil {
		tasks, ok, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			TaskCacheLookups.WithLabelValues("error").Inc()
			logger.WithContext(ctx).Warn("task cache read failed", "error", err)
		case ok:
			TaskCacheLookups.WithLabelValues("hit").Inc()
			return tasks, nil
		default:
			TaskCacheLookups.WithLabelValues("miss").Inc()
		}
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.fetch(context.WithoutCancel(ctx), bearer, key)
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Task), nil
}

func (s *TaskService) fetch(ctx context.Context, bearer, key string) ([]domain.Task, error) {
	var data struct {
		Tasks []gqlTask `json:"tasks"`
	}
	if err := s.gql.Do(ctx, bearer, activeTasksQuery, map[string]any{"limit": activeTasksLimit}, &data); err != nil {
		return nil, fmt.Errorf("list active tasks: %w", err)
	}

	tasks := make([]domain.Task, 0, len(data.Tasks))
	for _, t := range data.Tasks {
		tasks = append(tasks, domain.Task{
			ID:          string(t.ID),
			Title:       t.Title,
			Description: t.Description,
			Reward:      t.Reward,
			URL:         t.URL,
			CreatedAt:   t.CreatedAt,
		})
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, tasks); err != nil {
			logger.WithContext(ctx).Warn("task cache write failed", "error", err)
		}
	}
	return tasks, nil
}

// sessionKey keeps raw tokens out of Redis keys.
func sessionKey(bearer string) string {
	sum := sha256.Sum256([]byte(bearer))
	return hex.EncodeToString(sum[:16])
}
