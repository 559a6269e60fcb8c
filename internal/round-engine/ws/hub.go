package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// client embrulha a conexão com escrita serializada: gorilla/websocket não
// permite dois writers simultâneos na mesma conexão, e o pong do reader
// concorre com o Broadcast
type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *client) send(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

// Hub gerencia conexões WebSocket do feed ao vivo do multiplicador
// subs: mapeia canal para o conjunto de conexões inscritas
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	subs     map[string]map[*client]struct{}
}

// NewHub cria uma instância de Hub com política customizada de origem (CORS)
func NewHub(allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		subs:     make(map[string]map[*client]struct{}),
	}
}

// HandleWS gerencia o ciclo de vida de uma conexão WebSocket
// Permite subscribe/unsubscribe no feed de rodadas e responde a pings
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	cl := &client{conn: conn}
	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Type {
		case "subscribe":
			h.mu.Lock()
			if _, ok := h.subs[msg.Channel]; !ok {
				h.subs[msg.Channel] = make(map[*client]struct{})
			}
			h.subs[msg.Channel][cl] = struct{}{}
			h.mu.Unlock()
		case "unsubscribe":
			h.mu.Lock()
			if m, ok := h.subs[msg.Channel]; ok {
				delete(m, cl)
				if len(m) == 0 {
					delete(h.subs, msg.Channel)
				}
			}
			h.mu.Unlock()
		case "ping":
			b, _ := json.Marshal(map[string]string{"type": "pong"})
			_ = cl.send(b)
		}
	}
	// Remove a conexão de todas as assinaturas ao desconectar
	h.mu.Lock()
	for _, set := range h.subs {
		delete(set, cl)
	}
	h.mu.Unlock()
}

// Broadcast envia uma atualização para todos os clientes inscritos no canal
func (h *Hub) Broadcast(update Update) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.subs[update.Channel]))
	for c := range h.subs[update.Channel] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	if len(clients) == 0 {
		return
	}

	b, _ := json.Marshal(update)
	for _, c := range clients {
		_ = c.send(b)
	}
}
