package controller

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

var idCounter atomic.Uint64

func (c controller) generateTimeBasedId() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 36) + "-" + strconv.FormatUint(idCounter.Add(1), 36)
}

// writeToConn queues output for one connection. Delivery is best effort.
func (c controller) writeToConn(ctx context.Context, conn *websocket.Conn, output *Output) {
	if conn == nil {
		return
	}

	if err := c.sender.Send(conn, output); err != nil {
		c.logger.InfoContext(ctx, "failed to write to conn", "type", output.Type, "error", err)
	}
}

func (c controller) broadcast(ctx context.Context, conns []*websocket.Conn, output *Output) {
	for _, conn := range conns {
		c.writeToConn(ctx, conn, output)
	}
}
