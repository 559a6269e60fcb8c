package ws

import "encoding/json"

// Canal único do feed de rodadas
const ChannelRounds = "rounds"

// ClientMsg representa uma mensagem recebida do cliente WebSocket
// Type: subscribe | unsubscribe | ping
// Channel: requerido em subscribe/unsubscribe (hoje só "rounds")
type ClientMsg struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
}

// Update é o envelope enviado pros clientes e publicado no Redis Pub/Sub
// Type: tick | crash
type Update struct {
	Channel string          `json:"channel"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}
