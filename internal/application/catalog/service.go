package catalog

import (
	"context"

	"github.com/subfinder/api/internal/domain"
)

type Service interface {
	List(ctx context.Context, page, limit int, authorized bool) ([]domain.Subreddit, error)
}

type subredditStore interface {
	ListAll(ctx context.Context) ([]domain.Subreddit, error)
}

type service struct {
	repo subredditStore
}

func NewService(repo subredditStore) Service {
	return &service{repo: repo}
}

// List returns the catalog sorted by subscriber count descending. An
// authorized caller gets the full list; otherwise the page/limit window is
// applied.
func (s *service) List(ctx context.Context, page, limit int, authorized bool) ([]domain.Subreddit, error) {
	subs, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if authorized {
		return subs, nil
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 25
	}
	skip := (page - 1) * limit
	if skip >= len(subs) {
		return []domain.Subreddit{}, nil
	}
	end := skip + limit
	if end > len(subs) {
		end = len(subs)
	}
	return subs[skip:end], nil
}
