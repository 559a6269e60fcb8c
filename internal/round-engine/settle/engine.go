package settle

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/game-round-engine-poc/internal/round-engine/dice"
	"github.com/radieske/game-round-engine-poc/internal/round-engine/outcome"
	"github.com/radieske/game-round-engine-poc/internal/round-engine/round"
	"github.com/radieske/game-round-engine-poc/internal/shared/metrics"
	ev "github.com/radieske/game-round-engine-poc/pkg/contracts/events"
)

// EventPublisher emite os eventos de liquidação consumidos pelo
// notification-worker; a entrega em si é responsabilidade do colaborador
type EventPublisher interface {
	PublishRoundSettled(ctx context.Context, e ev.RoundSettled) error
	PublishGameSettled(ctx context.Context, e ev.GameSettled) error
	PublishBetSettled(ctx context.Context, e ev.BetSettled) error
}

// Engine aplica liquidações e correções, exatamente uma vez por resolução
// natural e de novo a cada correção explícita do admin
type Engine struct {
	log   *zap.Logger
	store *Postgres
	publ  EventPublisher
}

func NewEngine(log *zap.Logger, store *Postgres, publ EventPublisher) *Engine {
	return &Engine{log: log, store: store, publ: publ}
}

// SettleCrashRound liquida todas as apostas da rodada pro crash point canônico
// do resultado — computado ou override do admin, um único valor pra todas
func (e *Engine) SettleCrashRound(ctx context.Context, r *round.Round, oc outcome.Crash) (round.SettlementSummary, error) {
	start := time.Now()
	plan, err := e.store.ApplyCrash(ctx, r.ID, oc.CrashPoint)
	if err != nil {
		return round.SettlementSummary{}, err
	}
	metrics.SettlementDuration.Observe(time.Since(start).Seconds())

	e.publishRound(ctx, r, oc, plan, false)
	e.publishBets(ctx, "crash", refFromRound(r.ID), plan, false)
	return plan.Summary, nil
}

// ResettleCrashRound corrige o resultado de uma rodada liquidada
func (e *Engine) ResettleCrashRound(ctx context.Context, roundID int64, newMultiplier float64) (*round.Round, Reversal, round.SettlementSummary, error) {
	if newMultiplier < 1.0 {
		return nil, Reversal{}, round.SettlementSummary{}, round.ErrInvalidOverride
	}

	start := time.Now()
	r, rev, plan, err := e.store.ResettleCrash(ctx, roundID, newMultiplier)
	if err != nil {
		return nil, rev, round.SettlementSummary{}, err
	}
	metrics.SettlementDuration.Observe(time.Since(start).Seconds())
	metrics.Resettlements.Inc()

	e.publishRound(ctx, r, outcome.AdminOverride(newMultiplier), plan, true)
	e.publishBets(ctx, "crash", refFromRound(r.ID), plan, true)
	e.log.Info("round outcome corrected",
		zap.Int64("roundId", r.ID),
		zap.Float64("newMultiplier", newMultiplier),
		zap.Int("reversedBets", rev.ReversedBets),
	)
	return r, rev, plan.Summary, nil
}

// SettleDiceGame liquida o jogo pro vencedor escolhido pelo admin (ou pelo
// caminho automático confirmado)
func (e *Engine) SettleDiceGame(ctx context.Context, gameID int64, winner *string, diceResult *string, adminSet bool) (*dice.Game, round.SettlementSummary, error) {
	start := time.Now()
	g, plan, err := e.store.ApplyDice(ctx, gameID, winner, diceResult, adminSet)
	if err != nil {
		return nil, round.SettlementSummary{}, err
	}
	metrics.SettlementDuration.Observe(time.Since(start).Seconds())

	e.publishGame(ctx, g, plan, false)
	e.publishBets(ctx, "dice", refFromGame(g.ID), plan, false)
	return g, plan.Summary, nil
}

// ResettleDiceGame corrige o vencedor de um jogo já liquidado: reversão dos
// pagamentos anteriores e nova liquidação, atômicas como uma unidade
func (e *Engine) ResettleDiceGame(ctx context.Context, gameID int64, newWinner string, newDiceResult *string) (*dice.Game, Reversal, round.SettlementSummary, error) {
	start := time.Now()
	g, rev, plan, err := e.store.ResettleDice(ctx, gameID, newWinner, newDiceResult)
	if err != nil {
		return nil, rev, round.SettlementSummary{}, err
	}
	metrics.SettlementDuration.Observe(time.Since(start).Seconds())
	metrics.Resettlements.Inc()

	e.publishGame(ctx, g, plan, true)
	e.publishBets(ctx, "dice", refFromGame(g.ID), plan, true)
	e.log.Info("game outcome corrected",
		zap.Int64("gameId", g.ID),
		zap.String("newWinner", newWinner),
		zap.Int("reversedBets", rev.ReversedBets),
	)
	return g, rev, plan.Summary, nil
}

func (e *Engine) publishRound(ctx context.Context, r *round.Round, oc outcome.Crash, plan Plan, resettle bool) {
	if e.publ == nil {
		return
	}
	_ = e.publ.PublishRoundSettled(ctx, ev.RoundSettled{
		RoundID:       r.ID,
		CrashPoint:    oc.CrashPoint,
		OutcomeSource: string(oc.Source),
		ServerSeed:    r.ServerSeed,
		BetCount:      plan.Summary.BetCount,
		WinnerCount:   plan.Summary.WinnerCount,
		TotalStaked:   plan.Summary.TotalStakedCents,
		TotalPaidOut:  plan.Summary.TotalPaidOutCents,
		Resettlement:  resettle,
		Ts:            time.Now(),
	})
}

func (e *Engine) publishGame(ctx context.Context, g *dice.Game, plan Plan, resettle bool) {
	if e.publ == nil {
		return
	}
	winner := ""
	if g.SelectedWinner != nil {
		winner = *g.SelectedWinner
	}
	diceResult := ""
	if g.DiceResult != nil {
		diceResult = *g.DiceResult
	}
	_ = e.publ.PublishGameSettled(ctx, ev.GameSettled{
		GameID:           g.ID,
		GameNumber:       g.GameNumber,
		Winner:           winner,
		DiceResult:       diceResult,
		AdminProfitCents: plan.AdminProfitCents(),
		Resettlement:     resettle,
		Ts:               time.Now(),
	})
}

func (e *Engine) publishBets(ctx context.Context, game, referenceID string, plan Plan, resettle bool) {
	if e.publ == nil {
		return
	}
	for _, r := range plan.Results {
		_ = e.publ.PublishBetSettled(ctx, ev.BetSettled{
			BetID:             r.BetID,
			UserID:            r.UserID,
			Game:              game,
			ReferenceID:       referenceID,
			Result:            r.Result,
			AmountChangeCents: r.AmountChangeCents,
			Resettlement:      resettle,
			Ts:                time.Now(),
		})
	}
}

func refFromRound(id int64) string { return "round:" + strconv.FormatInt(id, 10) }
func refFromGame(id int64) string  { return "game:" + strconv.FormatInt(id, 10) }
