package handlers

import (
	"context"

	"boostclics/internal/domain"
	"boostclics/internal/service"
)

// maxInitDataLen bounds the accepted initData size.
const maxInitDataLen = 4096

type Authenticator interface {
	Login(ctx context.Context, initData string) (*service.LoginResult, error)
}

type TaskLister interface {
	ListActive(ctx context.Context, bearer string) ([]domain.Task, error)
}

type Handler struct {
	AuthService Authenticator
	TaskService TaskLister
}

func NewHandler(auth Authenticator, tasks TaskLister) *Handler {
	return &Handler{
		AuthService: auth,
		TaskService: tasks,
	}
}
