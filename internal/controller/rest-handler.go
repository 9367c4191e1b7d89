package controller

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sharetube/jam/internal/protocol"
	"github.com/sharetube/jam/internal/service/likes"
	"github.com/sharetube/jam/internal/service/room"
	"github.com/sharetube/jam/pkg/rest"
	"github.com/sharetube/jam/pkg/trackinfo"
)

func (c controller) listRooms(w http.ResponseWriter, r *http.Request) {
	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": c.roomService.ListRooms(r.Context())})
}

func (c controller) getRoomSnapshot(w http.ResponseWriter, r *http.Request) {
	roomKey := chi.URLParam(r, "room-key")

	snapshot, err := c.roomService.GetSnapshot(r.Context(), roomKey)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			rest.WriteJSON(w, http.StatusNotFound, rest.Envelope{"error": "room not found"})
			return
		}

		c.logger.WarnContext(r.Context(), "failed to get snapshot", "room_key", roomKey, "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "internal error"})
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": snapshot})
}

func (c controller) getTrack(w http.ResponseWriter, r *http.Request) {
	trackId := chi.URLParam(r, "track-id")

	info, err := c.trackResolver.Lookup(r.Context(), trackId)
	if err != nil {
		if errors.Is(err, trackinfo.ErrTrackNotFound) {
			rest.WriteJSON(w, http.StatusNotFound, rest.Envelope{"error": "track not found"})
			return
		}

		c.logger.InfoContext(r.Context(), "failed to look up track", "track_id", trackId, "error", err)
		rest.WriteJSON(w, http.StatusBadGateway, rest.Envelope{"error": "track lookup failed"})
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": info})
}

func (c controller) getLikes(w http.ResponseWriter, r *http.Request) {
	userId := chi.URLParam(r, "user-id")

	tracks, err := c.likesService.GetLikes(r.Context(), userId)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to get likes", "user_id", userId, "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "internal error"})
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": tracks})
}

type toggleLikeRequest struct {
	Track  protocol.Track `json:"track" validate:"required"`
	Action string         `json:"action" validate:"required,oneof=add remove"`
}

func (c controller) toggleLike(w http.ResponseWriter, r *http.Request) {
	userId := chi.URLParam(r, "user-id")

	var req toggleLikeRequest
	if err := rest.ReadJSON(r, &req); err != nil {
		c.logger.InfoContext(r.Context(), "failed to read toggle like body", "error", err)
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": err.Error()})
		return
	}

	if validationErrors, ok := c.validate.Validate(req); !ok {
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": validationErrors})
		return
	}

	tracks, err := c.likesService.ToggleLike(r.Context(), &likes.ToggleLikeParams{
		UserID: userId,
		Track:  c.enrichTrack(r.Context(), req.Track.Domain()),
		Action: req.Action,
	})
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to toggle like", "user_id", userId, "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "internal error"})
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": tracks})
}
