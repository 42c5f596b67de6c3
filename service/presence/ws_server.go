package presence

import (
	"context"
	"net"
	"net/http"
	"time"

	"TeamSync/logger"
	"TeamSync/tools/ids"
	"TeamSync/tools/safe"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandleWS is the gin handler for the websocket endpoint: upgrade,
// identity gate, admission, backlog drain, then the read loop until the
// peer goes away.
func (s *Service) HandleWS(g *gin.Context) {
	ws, err := upgrader.Upgrade(g.Writer, g.Request, nil)
	if err != nil {
		logger.Infof("[ws] upgrade error: %v", err)
		return
	}

	ident, err := s.ident.Identify(g.Request)
	if err != nil {
		// rejected connections see only the close, no detail
		logger.Warnf("[ws] connection rejected: no valid user provided: %v", err)
		_ = ws.Close()
		return
	}
	userID := ident.UserID

	connID := ids.GenerateString()
	conn := newConn(connID, userID, ws, s.conf.SendQueueSize, s.conf.WriteDeadline)
	s.table.Add(conn)
	safe.Go(conn.writeLoop)

	logger.Infof("[ws] user %s connected with conn %s", userID, connID)

	s.admission.Admit(g.Request.Context(), userID, connID)

	if err := conn.Push(BuildConnectionAck(connID)); err != nil {
		logger.Warnf("[ws] ack conn=%s err=%v", connID, err)
	}

	// backlog replay runs beside the read loop so a large queue cannot
	// stall inbound events
	safe.Go(func() {
		s.drain.Flush(context.Background(), conn)
	})

	s.readLoop(g.Request.Context(), conn)

	// teardown: deregister this connection; the reaper catches anything
	// this path misses
	conn.Close()
	remaining := s.table.Remove(connID)
	{
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		s.admission.Forget(ctx, userID, connID)
		cancel()
	}
	logger.Infof("[ws] user %s disconnected conn %s", userID, connID)
	if remaining == 0 {
		logger.Infof("[ws] user %s has no remaining connections", userID)
	}
}

func (s *Service) readLoop(ctx context.Context, conn *Conn) {
	ws, ok := conn.ws.(*websocket.Conn)
	if !ok {
		return
	}
	for {
		mt, data, rerr := ws.ReadMessage()
		if rerr != nil {
			if websocket.IsCloseError(rerr,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[ws] peer closed conn=%s err=%v", conn.ID, rerr)
			} else if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				logger.Infof("[ws] read timeout conn=%s err=%v", conn.ID, rerr)
			} else {
				logger.Infof("[ws] read err conn=%s err=%v", conn.ID, rerr)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		env, perr := ParseEnvelope(data)
		if perr != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Infof("[ws] bad frame conn=%s err=%v sample=%q", conn.ID, perr, sample)
			continue
		}

		// each event runs under its own recover boundary; a handler
		// fault never takes the read loop down
		safe.Run(func() {
			if err := s.disp.Dispatch(ctx, env.Event, conn, env.Data); err != nil {
				logger.Infof("[ws] event=%s conn=%s user=%s err=%v", env.Event, conn.ID, conn.UserID, err)
			}
		})
	}
}
