package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/jam/internal/domain"
)

// addLikeScript stores the track and puts it on top of the user's like order.
var addLikeScript = redis.NewScript(`
	local maxScore = redis.call('ZREVRANGE', KEYS[1], 0, 0, 'WITHSCORES')
	local nextScore = 1
	if #maxScore > 0 then
		nextScore = tonumber(maxScore[2]) + 1
	end
	redis.call('ZADD', KEYS[1], nextScore, ARGV[1])
	redis.call('HSET', KEYS[2], ARGV[1], ARGV[2])
	return nextScore
`)

type repo struct {
	rc     *redis.Client
	logger *slog.Logger
}

func NewRepo(rc *redis.Client, logger *slog.Logger) *repo {
	return &repo{
		rc:     rc,
		logger: logger,
	}
}

func (r repo) getOrderKey(userID string) string {
	return "user:" + userID + ":likes"
}

func (r repo) getTracksKey(userID string) string {
	return "user:" + userID + ":liked-tracks"
}

func (r repo) AddLike(ctx context.Context, userID string, track domain.Track) error {
	funcName := "likes.redis.AddLike"
	r.logger.DebugContext(ctx, funcName, "user_id", userID, "track_id", track.ID)

	data, err := json.Marshal(track)
	if err != nil {
		return fmt.Errorf("failed to marshal track: %w", err)
	}

	keys := []string{r.getOrderKey(userID), r.getTracksKey(userID)}
	if err := addLikeScript.Run(ctx, r.rc, keys, track.ID, data).Err(); err != nil {
		return fmt.Errorf("failed to add like: %w", err)
	}

	return nil
}

func (r repo) RemoveLike(ctx context.Context, userID, trackID string) error {
	funcName := "likes.redis.RemoveLike"
	r.logger.DebugContext(ctx, funcName, "user_id", userID, "track_id", trackID)

	pipe := r.rc.TxPipeline()
	pipe.ZRem(ctx, r.getOrderKey(userID), trackID)
	pipe.HDel(ctx, r.getTracksKey(userID), trackID)

	return r.executePipe(ctx, pipe)
}

// GetLikes returns the liked tracks, most recently liked first.
func (r repo) GetLikes(ctx context.Context, userID string) ([]domain.Track, error) {
	ids, err := r.rc.ZRevRange(ctx, r.getOrderKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get like order: %w", err)
	}

	tracks := make([]domain.Track, 0, len(ids))
	if len(ids) == 0 {
		return tracks, nil
	}

	values, err := r.rc.HMGet(ctx, r.getTracksKey(userID), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get liked tracks: %w", err)
	}

	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			r.logger.WarnContext(ctx, "liked track is missing its data", "track_id", ids[i])
			tracks = append(tracks, domain.Track{ID: ids[i]})
			continue
		}

		var track domain.Track
		if err := json.Unmarshal([]byte(s), &track); err != nil {
			return nil, fmt.Errorf("failed to unmarshal track %s: %w", ids[i], err)
		}
		tracks = append(tracks, track)
	}

	return tracks, nil
}

func (r repo) executePipe(ctx context.Context, pipe redis.Pipeliner) error {
	cmds, err := pipe.Exec(ctx)
	if err != nil {
		for _, cmd := range cmds {
			if err := cmd.Err(); err != nil {
				return err
			}
		}

		return err
	}

	return nil
}
