// ws.go implements the WebSocket accept path: upgrade, query-param
// parsing (the code/class classroom code; a twoWay parameter is not
// read), connection wiring into the registry and hub, and the
// single-reader read loop that feeds the Dispatcher. Grounded on the teacher's internal/websocket/handler.go
// upgrade-then-read-loop shape.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/classbridge/broker/internal/wsconn"
	"github.com/classbridge/broker/pkg/interfaces"
	"github.com/classbridge/broker/pkg/types"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func newWebSocketSession(a *Application, w http.ResponseWriter, r *http.Request) {
	rawConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.log.Warnw("websocket upgrade failed", "error", err)
		return
	}

	connID := uuid.NewString()
	conn := wsconn.New(connID, rawConn, a.cfg.WebSocket.WriteTimeout)
	a.hub.Add(connID, conn)
	a.reg.Add(connID)

	code := r.URL.Query().Get("code")
	if code == "" {
		code = r.URL.Query().Get("class")
	}
	if code != "" {
		a.reg.SetClassroomCode(connID, code)
	}

	go a.readLoop(context.Background(), connID, conn, rawConn)
}

func (a *Application) readLoop(ctx context.Context, connID string, conn *wsconn.Conn, rawConn *websocket.Conn) {
	defer func() {
		a.handleDisconnect(ctx, connID)
		a.hub.Remove(connID)
		a.reg.Remove(connID)
		_ = rawConn.Close()
	}()

	_ = rawConn.SetReadDeadline(time.Now().Add(a.cfg.WebSocket.ReadTimeout))
	rawConn.SetPongHandler(func(string) bool {
		a.reg.SetAlive(connID, true)
		_ = rawConn.SetReadDeadline(time.Now().Add(a.cfg.WebSocket.ReadTimeout))
		return nil
	})

	for {
		_, raw, err := rawConn.ReadMessage()
		if err != nil {
			return
		}
		_ = rawConn.SetReadDeadline(time.Now().Add(a.cfg.WebSocket.ReadTimeout))
		a.disp.Dispatch(ctx, connID, conn, raw, a.onSessionExpired)
	}
}

// handleDisconnect decrements the persisted student count when a
// counted student's socket goes away, and hands the session to
// Lifecycle.MarkStudentsGone the instant the count reaches zero — the
// handoff that makes the session eligible for the Abandoned reaper
// strategy (spec.md §4.3) rather than sitting on an EmptyTeacher
// candidate forever.
func (a *Application) handleDisconnect(ctx context.Context, connID string) {
	attrs, ok := a.reg.Get(connID)
	if !ok || attrs.Role != types.RoleStudent || attrs.SessionID == "" || !attrs.StudentCounted {
		return
	}

	s, err := a.db.GetSession(ctx, attrs.SessionID)
	if err != nil || s == nil {
		return
	}
	if s.StudentsCount > 0 {
		s.StudentsCount--
	}
	if err := a.db.UpdateSession(ctx, s); err != nil {
		a.log.Warnw("failed to record student departure", "session_id", attrs.SessionID, "error", err)
		return
	}
	if s.StudentsCount == 0 {
		if err := a.lc.MarkStudentsGone(ctx, s); err != nil {
			a.log.Warnw("failed to mark students gone", "session_id", attrs.SessionID, "error", err)
		}
	}
}

// onSessionExpired schedules the delayed 1008 close mandated by
// spec.md §4.4 step 2, run in its own goroutine so Dispatch never
// blocks on it.
func (a *Application) onSessionExpired(conn interfaces.Connection, delay time.Duration) {
	go func() {
		time.Sleep(delay)
		_ = conn.CloseWithCode(types.CloseSessionExpired, "session expired")
	}()
}
