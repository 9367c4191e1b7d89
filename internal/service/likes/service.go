package likes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sharetube/jam/internal/domain"
)

var ErrUnknownAction = errors.New("unknown like action")

const (
	ActionAdd    = "add"
	ActionRemove = "remove"
)

type iLikesRepo interface {
	AddLike(ctx context.Context, userID string, track domain.Track) error
	RemoveLike(ctx context.Context, userID, trackID string) error
	GetLikes(ctx context.Context, userID string) ([]domain.Track, error)
}

type service struct {
	repo   iLikesRepo
	logger *slog.Logger
}

func NewService(repo iLikesRepo, logger *slog.Logger) *service {
	return &service{repo: repo, logger: logger}
}

type ToggleLikeParams struct {
	UserID string
	Track  domain.Track
	Action string
}

// ToggleLike adds or removes a track and returns the resulting list.
func (s service) ToggleLike(ctx context.Context, params *ToggleLikeParams) ([]domain.Track, error) {
	switch params.Action {
	case ActionAdd:
		if err := s.repo.AddLike(ctx, params.UserID, params.Track); err != nil {
			return nil, fmt.Errorf("failed to add like: %w", err)
		}
	case ActionRemove:
		if err := s.repo.RemoveLike(ctx, params.UserID, params.Track.ID); err != nil {
			return nil, fmt.Errorf("failed to remove like: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, params.Action)
	}

	s.logger.DebugContext(ctx, "likes.ToggleLike", "user_id", params.UserID, "track_id", params.Track.ID, "action", params.Action)
	return s.GetLikes(ctx, params.UserID)
}

func (s service) GetLikes(ctx context.Context, userID string) ([]domain.Track, error) {
	tracks, err := s.repo.GetLikes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get likes: %w", err)
	}

	return tracks, nil
}
