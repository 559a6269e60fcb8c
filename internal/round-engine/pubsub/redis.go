package pubsub

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/game-round-engine-poc/internal/round-engine/round"
	"github.com/radieske/game-round-engine-poc/internal/round-engine/ws"
)

// RedisBroadcaster propaga ticks e crashes da rodada ativa:
// publica no canal Pub/Sub consumido pelos hubs WebSocket e mantém um
// snapshot com TTL curto pros pollers de GET current em outras instâncias
type RedisBroadcaster struct {
	r           *redis.Client
	channel     string
	snapshotKey string
	snapshotTTL time.Duration
}

func NewRedisBroadcaster(r *redis.Client, channel, snapshotKey string, snapshotTTL time.Duration) *RedisBroadcaster {
	return &RedisBroadcaster{r: r, channel: channel, snapshotKey: snapshotKey, snapshotTTL: snapshotTTL}
}

// PublishTick envia o tick pro canal e atualiza o snapshot da rodada ativa
func (b *RedisBroadcaster) PublishTick(t round.Tick) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	payload, _ := json.Marshal(t)
	upd, _ := json.Marshal(ws.Update{Channel: ws.ChannelRounds, Type: "tick", Payload: payload})
	_ = b.r.Publish(ctx, b.channel, upd).Err()
	_ = b.r.Set(ctx, b.snapshotKey, payload, b.snapshotTTL).Err()
}

// Snapshot lê o tick mais recente publicado por qualquer instância; é o
// fallback de GET current quando a rodada ativa vive em outro processo
func (b *RedisBroadcaster) Snapshot(ctx context.Context) (round.Tick, error) {
	raw, err := b.r.Get(ctx, b.snapshotKey).Bytes()
	if err == redis.Nil {
		return round.Tick{}, round.ErrNoActiveRound
	}
	if err != nil {
		return round.Tick{}, err
	}

	var t round.Tick
	if err := json.Unmarshal(raw, &t); err != nil {
		return round.Tick{}, err
	}
	return t, nil
}

// PublishCrash anuncia o fim da rodada e limpa o snapshot
func (b *RedisBroadcaster) PublishCrash(n round.CrashNotice) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	payload, _ := json.Marshal(n)
	upd, _ := json.Marshal(ws.Update{Channel: ws.ChannelRounds, Type: "crash", Payload: payload})
	_ = b.r.Publish(ctx, b.channel, upd).Err()
	_ = b.r.Del(ctx, b.snapshotKey).Err()
}
