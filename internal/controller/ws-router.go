package controller

import (
	"github.com/sharetube/jam/internal/protocol"
	"github.com/sharetube/jam/pkg/wsrouter"
)

func (c controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New(c.validate, c.logger)
	mux.Use(c.wsRequestIdWSMw(), c.loggerWSMw())

	wsrouter.Handle(mux, protocol.TypeAlive, c.handleAlive)
	wsrouter.Handle(mux, protocol.TypeJoin, c.handleJoin)

	// playback
	wsrouter.Handle(mux, protocol.TypeVideoAction, c.handleVideoAction)

	// navigation
	wsrouter.Handle(mux, protocol.TypeChangeTrack, c.handleChangeTrack)
	wsrouter.Handle(mux, protocol.TypePlayNext, c.handlePlayNext)
	wsrouter.Handle(mux, protocol.TypePlayPrevious, c.handlePlayPrevious)

	// queue
	wsrouter.Handle(mux, protocol.TypeEnqueue, c.handleEnqueue)
	wsrouter.Handle(mux, protocol.TypeDequeue, c.handleDequeue)
	wsrouter.Handle(mux, protocol.TypeReorderQueue, c.handleReorderQueue)

	return mux
}
