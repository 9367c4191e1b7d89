package likes

import (
	"context"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sharetube/jam/internal/domain"
	likesRedis "github.com/sharetube/jam/internal/repository/likes/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleLike(t *testing.T) {
	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer rc.Close()

	svc := NewService(likesRedis.NewRepo(rc, slog.Default()), slog.Default())
	ctx := context.Background()
	track := domain.Track{ID: "A", Title: "Song"}

	tracks, err := svc.ToggleLike(ctx, &ToggleLikeParams{UserID: "g-1", Track: track, Action: ActionAdd})
	require.NoError(t, err)
	assert.Equal(t, []domain.Track{track}, tracks)

	tracks, err = svc.ToggleLike(ctx, &ToggleLikeParams{UserID: "g-1", Track: domain.Track{ID: "A"}, Action: ActionRemove})
	require.NoError(t, err)
	assert.Empty(t, tracks)

	_, err = svc.ToggleLike(ctx, &ToggleLikeParams{UserID: "g-1", Track: track, Action: "star"})
	assert.ErrorIs(t, err, ErrUnknownAction)
}
