package signal

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/edpulse/presence/internal/app"
	"github.com/edpulse/presence/internal/core"
	"github.com/edpulse/presence/internal/domain"
)

// CloseMissingIdentity rejects sockets that arrive without an upstream
// authenticated user id. No state is created for such connections.
const CloseMissingIdentity = 4401

type Controller struct {
	Hub *app.Hub

	ReadLimit    int64
	SendBuffer   int
	WriteTimeout time.Duration
}

func NewController(hub *app.Hub, readLimit int64, sendBuffer int, writeTimeout time.Duration) *Controller {
	return &Controller{Hub: hub, ReadLimit: readLimit, SendBuffer: sendBuffer, WriteTimeout: writeTimeout}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSocket upgrades the request and runs the connection's pumps. The
// identity middleware stashes the authenticated user id under "user_id";
// without it the socket is closed with a distinct code right after the
// upgrade, before anything is registered.
func (ctl *Controller) HandleSocket(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	uid, err := domain.ParseUserID(c.GetString("user_id"))
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("rejecting connection without identity")
		msg := websocket.FormatCloseMessage(CloseMissingIdentity, "missing identity")
		_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(ctl.WriteTimeout))
		_ = ws.Close()
		return
	}

	conn := newWsConn(ws, ctl.SendBuffer, ctl.WriteTimeout)
	sess := core.NewSession(core.SessionID(uuid.NewString()), uid, conn)

	ws.SetReadLimit(ctl.ReadLimit)
	ws.SetPongHandler(func(string) error {
		sess.TouchAlive()
		return nil
	})

	log.Info().Str("module", "signal").Str("sid", string(sess.ID())).Str("user", string(uid)).Msg("new WS connection")

	connCtx, cancel := context.WithCancel(ctx)
	ctl.Hub.OnConnect(connCtx, sess)

	go ctl.writePump(connCtx, conn)
	go ctl.readPump(connCtx, cancel, sess, conn)
}

func (ctl *Controller) writePump(ctx context.Context, c *WsConn) {
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

// readPump owns teardown: every exit, graceful close, read error or
// heartbeat-forced transport close, funnels through Hub.OnDisconnect.
func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, sess *core.Session, c *WsConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sess.ID())).Msg("readPump closing")
		ctl.Hub.OnDisconnect(context.WithoutCancel(ctx), sess)
		c.Close()
		cancel()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Str("module", "signal").Str("sid", string(sess.ID())).Msg("readPump read error")
				return
			}
			ctl.Hub.OnFrame(ctx, sess, data)
		}
	}
}
