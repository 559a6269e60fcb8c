package producer

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/radieske/game-round-engine-poc/pkg/contracts/events"
)

// KafkaPublisher publica os eventos de liquidação nos tópicos do contrato
type KafkaPublisher struct {
	RoundWriter *kafka.Writer
	GameWriter  *kafka.Writer
	BetWriter   *kafka.Writer
}

func NewKafkaPublisher(roundW, gameW, betW *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{RoundWriter: roundW, GameWriter: gameW, BetWriter: betW}
}

func (p *KafkaPublisher) PublishRoundSettled(ctx context.Context, e events.RoundSettled) error {
	b, _ := json.Marshal(e)
	return p.RoundWriter.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(e.RoundID, 10)),
		Value: b,
	})
}

func (p *KafkaPublisher) PublishGameSettled(ctx context.Context, e events.GameSettled) error {
	b, _ := json.Marshal(e)
	return p.GameWriter.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(e.GameID, 10)),
		Value: b,
	})
}

func (p *KafkaPublisher) PublishBetSettled(ctx context.Context, e events.BetSettled) error {
	b, _ := json.Marshal(e)
	return p.BetWriter.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.UserID), // particiona por usuário pra ordenar notificações
		Value: b,
	})
}
