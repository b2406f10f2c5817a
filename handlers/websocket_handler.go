package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Dosada05/ladder-system/realtime"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// В продакшене здесь должна быть проверка Origin.
		return true
	},
}

type WebSocketHandler struct {
	hub *realtime.Hub
}

func NewWebSocketHandler(hub *realtime.Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// ServeLadder подписывает клиента на события всего рейтинга.
func (h *WebSocketHandler) ServeLadder(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, realtime.LadderRoom)
}

// ServePair подписывает клиента на события вызовов конкретной пары.
// Клиент подключается к /ws/pairs/{pairID}.
func (h *WebSocketHandler) ServePair(w http.ResponseWriter, r *http.Request) {
	pairID := chi.URLParam(r, "pairID")
	if pairID == "" {
		http.Error(w, "Missing pairID", http.StatusBadRequest)
		return
	}
	h.serve(w, r, pairID)
}

func (h *WebSocketHandler) serve(w http.ResponseWriter, r *http.Request, room string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader.Upgrade сам отправляет HTTP ошибку клиенту.
		slog.Warn("failed to upgrade websocket connection",
			slog.String("room", room), slog.Any("error", err))
		return
	}

	client := realtime.NewClient(h.hub, conn, room)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
