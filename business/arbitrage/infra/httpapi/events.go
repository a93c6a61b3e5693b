package httpapi

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const writeTimeout = 5 * time.Second

// originHosts turns CORS origins into the host patterns the upgrader
// matches against.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			hosts = append(hosts, o)
			continue
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			hosts = append(hosts, u.Host)
		}
	}
	return hosts
}

// events streams every engine event as a JSON text frame until the client
// goes away. A slow client loses events instead of stalling the engine.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originHosts(s.cfg.CORSOrigins),
	})
	if err != nil {
		s.log.Warn(r.Context(), "event feed upgrade failed", "error", err)
		return
	}
	defer conn.CloseNow()

	feed, cancel := s.engine.Events.Subscribe(0)
	defer cancel()

	ctx := conn.CloseRead(r.Context())
	s.log.Info(ctx, "event feed subscriber joined", "remote", r.RemoteAddr)

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case ev, ok := <-feed:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "feed closed")
				return
			}
			wctx, done := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, conn, EncodeEvent(ev))
			done()
			if err != nil {
				s.log.Debug(ctx, "event feed subscriber dropped", "error", err)
				return
			}
		}
	}
}
