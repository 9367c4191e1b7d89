package controller

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sharetube/jam/internal/domain"
	"github.com/sharetube/jam/internal/service/likes"
	"github.com/sharetube/jam/internal/service/room"
	"github.com/sharetube/jam/pkg/trackinfo"
	"github.com/sharetube/jam/pkg/validator"
	"github.com/sharetube/jam/pkg/wsrouter"
)

type iRoomService interface {
	Connect(context.Context, *room.ConnectParams) (string, error)
	Disconnect(context.Context, *room.DisconnectParams) (room.DisconnectResponse, error)
	JoinRoom(context.Context, *room.JoinRoomParams) (room.JoinRoomResponse, error)
	VideoAction(context.Context, *room.VideoActionParams) (room.VideoActionResponse, error)
	ChangeTrack(context.Context, *room.ChangeTrackParams) (room.NavigationResponse, error)
	PlayNext(context.Context, *room.PlayNextParams) (room.NavigationResponse, error)
	PlayPrevious(context.Context, *room.PlayPreviousParams) (room.NavigationResponse, error)
	Enqueue(context.Context, *room.EnqueueParams) (room.QueueResponse, error)
	Dequeue(context.Context, *room.DequeueParams) (room.QueueResponse, error)
	ReorderQueue(context.Context, *room.ReorderQueueParams) (room.QueueResponse, error)
	GetSnapshot(context.Context, string) (domain.Snapshot, error)
	ListRooms(context.Context) []room.RoomSummary
}

type iLikesService interface {
	ToggleLike(context.Context, *likes.ToggleLikeParams) ([]domain.Track, error)
	GetLikes(context.Context, string) ([]domain.Track, error)
}

type iTrackResolver interface {
	Lookup(ctx context.Context, trackID string) (*trackinfo.Info, error)
}

type iSender interface {
	Add(conn *websocket.Conn) error
	Remove(conn *websocket.Conn) error
	Send(conn *websocket.Conn, v any) error
}

type Config struct {
	// LookupTimeout bounds track metadata enrichment of inbound tracks.
	LookupTimeout time.Duration
	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler
}

type controller struct {
	roomService   iRoomService
	likesService  iLikesService
	trackResolver iTrackResolver
	sender        iSender
	upgrader      websocket.Upgrader
	validate      *validator.Validator
	wsmux         *wsrouter.WSRouter
	cfg           Config
	logger        *slog.Logger
}

// NewController wires the handlers. likesService and trackResolver may be nil,
// which disables the routes that need them.
func NewController(
	roomService iRoomService,
	likesService iLikesService,
	trackResolver iTrackResolver,
	sender iSender,
	cfg Config,
	logger *slog.Logger,
) *controller {
	c := &controller{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		roomService:   roomService,
		likesService:  likesService,
		trackResolver: trackResolver,
		sender:        sender,
		validate:      validator.NewValidator(),
		cfg:           cfg,
		logger:        logger,
	}
	c.wsmux = c.getWSRouter()

	return c
}
