package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"optionsedge/src/eventmodels"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

type statusFrameDTO struct {
	Type      string `json:"type"`
	Connected bool   `json:"connected"`
}

// handleWebsocket upgrades the connection and bridges the hub to it. Each
// connection gets its own hub subscription; the subscription ends when the
// client goes away.
func (s *ApiServer) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	if _, err := s.auth.Validate(bearerToken(r)); err != nil {
		respondError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("handleWebsocket: upgrade failed: %v", err)
		return
	}

	log.Debugf("websocket client connected: %s", r.RemoteAddr)

	// gorilla allows one concurrent writer only
	var writeMu sync.Mutex

	writeJSON := func(payload interface{}) error {
		writeMu.Lock()
		defer writeMu.Unlock()

		conn.SetWriteDeadline(time.Now().Add(writeTimeout))

		return conn.WriteJSON(payload)
	}

	unsubscribe := s.hub.Subscribe(func(msg eventmodels.Message) {
		if err := writeJSON(msg); err != nil {
			log.Debugf("handleWebsocket: write failed: %v", err)
		}
	}, func(connected bool) {
		if err := writeJSON(statusFrameDTO{Type: "status", Connected: connected}); err != nil {
			log.Debugf("handleWebsocket: status write failed: %v", err)
		}
	})

	done := make(chan struct{})

	// reader: the client sends nothing meaningful, but reading is how we
	// notice the connection closing
	go func() {
		defer close(done)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			writeMu.Unlock()

			if err != nil {
				unsubscribe()
				conn.Close()
				<-done
				log.Debugf("websocket client dropped: %s", r.RemoteAddr)
				return
			}
		case <-done:
			unsubscribe()
			conn.Close()
			log.Debugf("websocket client disconnected: %s", r.RemoteAddr)
			return
		}
	}
}
