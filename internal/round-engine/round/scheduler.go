package round

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/game-round-engine-poc/internal/round-engine/outcome"
	"github.com/radieske/game-round-engine-poc/internal/shared/metrics"
)

var ErrInvalidOverride = errors.New("override multiplier must be >= 1.0")

// Store é o contrato de persistência que o scheduler consome
type Store interface {
	Create(ctx context.Context, crashPoint float64, commitHash, serverSeed, roundKey string) (*Round, error)
	GetActive(ctx context.Context) (*Round, error)
	ListCrashed(ctx context.Context) ([]Round, error)
	Transition(ctx context.Context, id int64, next State) (*Round, error)
	TransitionCrashed(ctx context.Context, id int64, finalMultiplier float64, source string) (*Round, error)
}

// Settler liquida a rodada de forma síncrona: quem chama crash não pode
// observar uma rodada CRASHED com apostas pendentes
type Settler interface {
	SettleCrashRound(ctx context.Context, r *Round, oc outcome.Crash) (SettlementSummary, error)
}

// Tick é um instante do multiplicador ao vivo
type Tick struct {
	RoundID    int64   `json:"round_id"`
	Multiplier float64 `json:"multiplier"`
	ElapsedMs  int64   `json:"elapsed_ms"`
}

// CrashNotice anuncia o fim da rodada com o seed revelado
type CrashNotice struct {
	RoundID    int64   `json:"round_id"`
	CrashPoint float64 `json:"crash_point"`
	Source     string  `json:"source"`
	ServerSeed string  `json:"server_seed"`
}

// TickPublisher propaga ticks e o crash pros clientes (ws hub, redis pubsub)
type TickPublisher interface {
	PublishTick(t Tick)
	PublishCrash(n CrashNotice)
}

// SchedulerConfig são os parâmetros do loop de tick
type SchedulerConfig struct {
	TickInterval time.Duration
	GrowthRate   float64
	HouseEdge    float64
}

// Scheduler dirige o ciclo de vida da rodada crash.
// Todas as decisões de ciclo de vida passam pelo mutex: o loop de tick roda em
// uma única goroutine por rodada ativa e há no máximo uma rodada ativa por
// processo (reforçado também pelo índice único do banco).
type Scheduler struct {
	log     *zap.Logger
	store   Store
	settler Settler
	pub     TickPublisher
	cfg     SchedulerConfig

	mu     sync.Mutex
	active *liveRound
}

type liveRound struct {
	round      *Round
	serverSeed string
	crashPoint float64
	startedAt  time.Time
	multiplier float64
	stop       chan struct{}
}

func NewScheduler(log *zap.Logger, store Store, settler Settler, pub TickPublisher, cfg SchedulerConfig) *Scheduler {
	return &Scheduler{log: log, store: store, settler: settler, pub: pub, cfg: cfg}
}

// StartRound cria a rodada, fixa o crash point via commit-reveal antes de
// qualquer aposta e dispara o loop de tick. Falha com ErrActiveRoundExists
// se outra rodada ocupa o slot.
func (s *Scheduler) StartRound(ctx context.Context) (*Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil {
		return nil, ErrActiveRoundExists
	}

	serverSeed := outcome.GenerateServerSeed()
	commit := outcome.CommitHash(serverSeed)
	roundKey := uuid.New().String()
	crashPoint := outcome.CrashPoint(serverSeed, roundKey, s.cfg.HouseEdge)

	r, err := s.store.Create(ctx, crashPoint, commit, serverSeed, roundKey)
	if err != nil {
		return nil, err
	}

	r, err = s.store.Transition(ctx, r.ID, StateInProgress)
	if err != nil {
		return nil, err
	}

	live := &liveRound{
		round:      r,
		serverSeed: serverSeed,
		crashPoint: crashPoint,
		startedAt:  time.Now(),
		multiplier: 1.0,
		stop:       make(chan struct{}),
	}
	s.active = live
	go s.run(live)

	metrics.RoundsStarted.Inc()
	s.log.Info("round started",
		zap.Int64("roundId", r.ID),
		zap.String("commitHash", commit),
	)
	return r, nil
}

// run é o loop de tick da rodada; uma goroutine por rodada ativa
func (s *Scheduler) run(live *liveRound) {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-live.stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.active != live {
				s.mu.Unlock()
				return
			}
			elapsed := time.Since(live.startedAt)
			m := Multiplier(s.cfg.GrowthRate, elapsed)
			if m >= live.crashPoint {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				if _, _, err := s.finishLocked(ctx, live, outcome.Computed(live.crashPoint)); err != nil {
					s.log.Error("auto crash settle", zap.Int64("roundId", live.round.ID), zap.Error(err))
				}
				cancel()
				s.mu.Unlock()
				return
			}
			live.multiplier = m
			s.mu.Unlock()

			s.pub.PublishTick(Tick{RoundID: live.round.ID, Multiplier: m, ElapsedMs: elapsed.Milliseconds()})
		}
	}
}

// CrashRound preempta o timer e encerra a rodada ativa agora.
// Com override do admin o valor exibido é o informado, em cima do crash point
// comprometido; um único valor canônico chega na liquidação.
func (s *Scheduler) CrashRound(ctx context.Context, override *float64) (*Round, SettlementSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return nil, SettlementSummary{}, ErrNoActiveRound
	}

	oc := outcome.Computed(s.active.crashPoint)
	if override != nil {
		if *override < 1.0 {
			return nil, SettlementSummary{}, ErrInvalidOverride
		}
		oc = outcome.AdminOverride(*override)
	}

	return s.finishLocked(ctx, s.active, oc)
}

// finishLocked congela o multiplicador, transiciona pra CRASHED e liquida
// sincronamente. Chamado com s.mu em posse; libera o slot de rodada ativa.
func (s *Scheduler) finishLocked(ctx context.Context, live *liveRound, oc outcome.Crash) (*Round, SettlementSummary, error) {
	close(live.stop)
	s.active = nil

	r, err := s.store.TransitionCrashed(ctx, live.round.ID, oc.CrashPoint, string(oc.Source))
	if err != nil {
		return nil, SettlementSummary{}, err
	}

	summary, err := s.settler.SettleCrashRound(ctx, r, oc)
	if err != nil {
		// a rodada fica CRASHED sem liquidação; o erro sobe pro operador
		// em vez de deixar uma rodada silenciosamente incompleta
		return r, SettlementSummary{}, err
	}
	r.State = StateCompleted

	metrics.RoundsCrashed.WithLabelValues(string(oc.Source)).Inc()
	s.pub.PublishCrash(CrashNotice{
		RoundID:    r.ID,
		CrashPoint: oc.CrashPoint,
		Source:     string(oc.Source),
		ServerSeed: live.serverSeed,
	})
	s.log.Info("round crashed",
		zap.Int64("roundId", r.ID),
		zap.Float64("crashPoint", oc.CrashPoint),
		zap.String("source", string(oc.Source)),
		zap.Int("bets", summary.BetCount),
	)
	return r, summary, nil
}

// Snapshot é o estado ao vivo servido pro poller de GET current
type Snapshot struct {
	Round      Round
	Multiplier float64
	ElapsedMs  int64
}

// Current retorna o estado ao vivo da rodada ativa
func (s *Scheduler) Current() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return Snapshot{}, ErrNoActiveRound
	}
	return Snapshot{
		Round:      *s.active.round,
		Multiplier: s.active.multiplier,
		ElapsedMs:  time.Since(s.active.startedAt).Milliseconds(),
	}, nil
}

// Recover encerra pendências de execuções anteriores ou de liquidações que
// falharam: crasha a rodada ativa órfã no crash point comprometido e reliquida
// rodadas CRASHED que ficaram com apostas pendentes
func (s *Scheduler) Recover(ctx context.Context) error {
	if err := s.recoverActive(ctx); err != nil {
		return err
	}
	return s.recoverCrashed(ctx)
}

func (s *Scheduler) recoverActive(ctx context.Context) error {
	r, err := s.store.GetActive(ctx)
	if err == ErrNoActiveRound {
		return nil
	}
	if err != nil {
		return err
	}

	s.log.Warn("recovering stale active round", zap.Int64("roundId", r.ID))
	if r.State == StateWaiting {
		if r, err = s.store.Transition(ctx, r.ID, StateInProgress); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	live := &liveRound{round: r, serverSeed: r.ServerSeed, crashPoint: r.CrashPoint, startedAt: time.Now(), stop: make(chan struct{})}
	_, _, err = s.finishLocked(ctx, live, outcome.Computed(r.CrashPoint))
	return err
}

// recoverCrashed reliquida rodadas CRASHED sem liquidação — o settler falhou
// no crash ou o processo caiu entre a transição e a liquidação. O multiplicador
// congelado no crash é o resultado canônico, então a reliquidação usa ele.
func (s *Scheduler) recoverCrashed(ctx context.Context) error {
	rounds, err := s.store.ListCrashed(ctx)
	if err != nil {
		return err
	}
	for i := range rounds {
		r := &rounds[i]
		oc := outcome.Computed(r.Multiplier)
		if r.OutcomeSource == string(outcome.SourceAdminOverride) {
			oc = outcome.AdminOverride(r.Multiplier)
		}
		s.log.Warn("settling crashed round left unsettled", zap.Int64("roundId", r.ID))
		if _, err := s.settler.SettleCrashRound(ctx, r, oc); err != nil {
			return err
		}
	}
	return nil
}
