// Package notify implements the out-of-core notification hook (spec
// 5 "rendering, thumbnails", 9): broadcasting dirty rectangles to
// interested websocket clients after a transaction commits. Grounded
// on the teacher's spreadsheet/server.go broadcast loop — same
// connection-set-under-mutex and best-effort WriteJSON-then-drop
// pattern — generalized from "rebroadcast every cell on every edit" to
// "broadcast only the rectangles the transaction actually touched".
package notify

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"gridcore/internal/geom"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// DirtyRect is the wire shape of one notified rectangle.
type DirtyRect struct {
	SheetID geom.SheetID `json:"sheetId"`
	X1      int64        `json:"x1"`
	Y1      int64        `json:"y1"`
	X2      int64        `json:"x2"`
	Y2      int64        `json:"y2"`
}

// transactionMessage is the payload broadcast after a transaction
// commits (spec 4.7 step 4 "accumulate dirty rectangles for
// out-of-core notification").
type transactionMessage struct {
	Type   string      `json:"type"`
	Dirty  []DirtyRect `json:"dirty"`
	Source string      `json:"source"`
}

// Hub holds the set of connected render/thumbnail clients. A Hub with
// no clients is a legal, inert no-op sink, so a Controller can always
// be given one even when nothing is listening.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]bool)}
}

// HandleWebSocket upgrades r and registers the connection until it
// disconnects. It never reads application messages itself — this hub
// is a one-way broadcast sink, not the teacher's bidirectional
// update-cell channel.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("notify: upgrade error:", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Serve starts an HTTP server exposing the hub at /ws, the teacher's
// Server.Start wiring generalized from "one static-file + one
// websocket route" to "just the websocket route" — this package has no
// UI to serve, only the notification channel.
func (h *Hub) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.HandleWebSocket)
	log.Printf("notify: listening at ws://%s/ws", addr)
	return http.ListenAndServe(addr, mux)
}

// BroadcastDirty notifies every connected client of the rectangles a
// transaction marked dirty. Called once per committed transaction by
// the Controller, never per-operation, matching the teacher's
// broadcastAll being called once per request handler rather than once
// per populate call.
func (h *Hub) BroadcastDirty(rects []DirtyRect, source string) {
	if h == nil || len(rects) == 0 {
		return
	}
	msg := transactionMessage{Type: "dirty", Dirty: rects, Source: source}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		if err := client.WriteJSON(msg); err != nil {
			log.Printf("notify: write failed: %v", err)
			_ = client.Close()
			delete(h.clients, client)
		}
	}
}
