package round_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/game-round-engine-poc/internal/round-engine/outcome"
	"github.com/radieske/game-round-engine-poc/internal/round-engine/round"
)

// fakeStore mantém rodadas em memória com a mesma máquina de estados do banco
type fakeStore struct {
	mu     sync.Mutex
	seq    int64
	rounds map[int64]*round.Round
}

func newFakeStore() *fakeStore {
	return &fakeStore{rounds: make(map[int64]*round.Round)}
}

func (f *fakeStore) Create(_ context.Context, crashPoint float64, commitHash, serverSeed, roundKey string) (*round.Round, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rounds {
		if r.State.Admitting() {
			return nil, round.ErrActiveRoundExists
		}
	}
	f.seq++
	r := &round.Round{
		ID:         f.seq,
		State:      round.StateWaiting,
		Multiplier: 1.0,
		CrashPoint: crashPoint,
		CommitHash: commitHash,
		ServerSeed: serverSeed,
		RoundKey:   roundKey,
		CreatedAt:  time.Now(),
	}
	f.rounds[r.ID] = r
	cp := *r
	return &cp, nil
}

func (f *fakeStore) GetActive(_ context.Context) (*round.Round, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rounds {
		if r.State.Admitting() {
			cp := *r
			return &cp, nil
		}
	}
	return nil, round.ErrNoActiveRound
}

func (f *fakeStore) ListCrashed(_ context.Context) ([]round.Round, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []round.Round
	for _, r := range f.rounds {
		if r.State == round.StateCrashed {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeStore) Transition(_ context.Context, id int64, next round.State) (*round.Round, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rounds[id]
	if !ok {
		return nil, round.ErrNotFound
	}
	if !round.CanTransition(r.State, next) {
		return nil, round.ErrIllegalTransition
	}
	r.State = next
	cp := *r
	return &cp, nil
}

func (f *fakeStore) TransitionCrashed(_ context.Context, id int64, finalMultiplier float64, source string) (*round.Round, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rounds[id]
	if !ok {
		return nil, round.ErrNotFound
	}
	if !round.CanTransition(r.State, round.StateCrashed) {
		return nil, round.ErrIllegalTransition
	}
	r.State = round.StateCrashed
	r.Multiplier = finalMultiplier
	r.OutcomeSource = source
	cp := *r
	return &cp, nil
}

type fakeSettler struct {
	mu      sync.Mutex
	calls   []outcome.Crash
	summary round.SettlementSummary
	err     error
}

func (f *fakeSettler) SettleCrashRound(_ context.Context, _ *round.Round, oc outcome.Crash) (round.SettlementSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, oc)
	if f.err != nil {
		return round.SettlementSummary{}, f.err
	}
	return f.summary, nil
}

func (f *fakeSettler) lastCall(t *testing.T) outcome.Crash {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		t.Fatal("settler was never called")
	}
	return f.calls[len(f.calls)-1]
}

type fakePublisher struct {
	mu      sync.Mutex
	crashes []round.CrashNotice
}

func (f *fakePublisher) PublishTick(round.Tick) {}
func (f *fakePublisher) PublishCrash(n round.CrashNotice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.crashes = append(f.crashes, n)
}

// tick de uma hora: o loop nunca dispara sozinho dentro de um teste
func testScheduler(store round.Store, settler round.Settler, pub round.TickPublisher) *round.Scheduler {
	return round.NewScheduler(zap.NewNop(), store, settler, pub, round.SchedulerConfig{
		TickInterval: time.Hour,
		GrowthRate:   0.06,
		HouseEdge:    0.03,
	})
}

func TestStartRound_SecondStartRejected(t *testing.T) {
	s := testScheduler(newFakeStore(), &fakeSettler{}, &fakePublisher{})

	if _, err := s.StartRound(context.Background()); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if _, err := s.StartRound(context.Background()); !errors.Is(err, round.ErrActiveRoundExists) {
		t.Errorf("second start: got %v, want ErrActiveRoundExists", err)
	}
}

func TestStartRound_ConcurrentExactlyOne(t *testing.T) {
	s := testScheduler(newFakeStore(), &fakeSettler{}, &fakePublisher{})

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.StartRound(context.Background())
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else if !errors.Is(err, round.ErrActiveRoundExists) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("got %d successful starts, want exactly 1", ok)
	}
}

func TestCrashRound_NoActive(t *testing.T) {
	s := testScheduler(newFakeStore(), &fakeSettler{}, &fakePublisher{})
	if _, _, err := s.CrashRound(context.Background(), nil); !errors.Is(err, round.ErrNoActiveRound) {
		t.Errorf("got %v, want ErrNoActiveRound", err)
	}
}

func TestCrashRound_SettlesAtCommittedPoint(t *testing.T) {
	settler := &fakeSettler{summary: round.SettlementSummary{BetCount: 3, WinnerCount: 1}}
	pub := &fakePublisher{}
	s := testScheduler(newFakeStore(), settler, pub)

	started, err := s.StartRound(context.Background())
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	r, sum, err := s.CrashRound(context.Background(), nil)
	if err != nil {
		t.Fatalf("crash: %v", err)
	}
	if r.State != round.StateCompleted {
		t.Errorf("state = %s, want COMPLETED", r.State)
	}
	if sum.BetCount != 3 || sum.WinnerCount != 1 {
		t.Errorf("summary = %+v, want the settler's", sum)
	}

	oc := settler.lastCall(t)
	if oc.Source != outcome.SourceComputed {
		t.Errorf("source = %s, want computed", oc.Source)
	}
	if oc.CrashPoint != started.CrashPoint {
		t.Errorf("crash point = %v, want committed %v", oc.CrashPoint, started.CrashPoint)
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.crashes) != 1 {
		t.Fatalf("got %d crash notices, want 1", len(pub.crashes))
	}
	if pub.crashes[0].ServerSeed != started.ServerSeed {
		t.Error("crash notice must reveal the committed server seed")
	}
}

func TestCrashRound_AdminOverride(t *testing.T) {
	settler := &fakeSettler{}
	s := testScheduler(newFakeStore(), settler, &fakePublisher{})

	if _, err := s.StartRound(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	override := 2.5
	r, _, err := s.CrashRound(context.Background(), &override)
	if err != nil {
		t.Fatalf("crash: %v", err)
	}
	if r.Multiplier != 2.5 {
		t.Errorf("multiplier = %v, want 2.5", r.Multiplier)
	}
	oc := settler.lastCall(t)
	if oc.Source != outcome.SourceAdminOverride || oc.CrashPoint != 2.5 {
		t.Errorf("settled with %+v, want admin-override at 2.5", oc)
	}
}

func TestCrashRound_InvalidOverrideKeepsRoundAlive(t *testing.T) {
	s := testScheduler(newFakeStore(), &fakeSettler{}, &fakePublisher{})

	if _, err := s.StartRound(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	bad := 0.5
	if _, _, err := s.CrashRound(context.Background(), &bad); !errors.Is(err, round.ErrInvalidOverride) {
		t.Fatalf("got %v, want ErrInvalidOverride", err)
	}
	// a rodada continua ativa após o override rejeitado
	if _, err := s.Current(); err != nil {
		t.Errorf("Current after rejected override: %v", err)
	}
}

func TestCurrent_NoActive(t *testing.T) {
	s := testScheduler(newFakeStore(), &fakeSettler{}, &fakePublisher{})
	if _, err := s.Current(); !errors.Is(err, round.ErrNoActiveRound) {
		t.Errorf("got %v, want ErrNoActiveRound", err)
	}
}

func TestRecover_SettlesStaleRound(t *testing.T) {
	store := newFakeStore()
	settler := &fakeSettler{}
	s := testScheduler(store, settler, &fakePublisher{})

	// rodada órfã de uma execução anterior
	r, err := store.Create(context.Background(), 1.87, "commit", "seed", "key")
	if err != nil {
		t.Fatalf("seed store: %v", err)
	}
	if _, err := store.Transition(context.Background(), r.ID, round.StateInProgress); err != nil {
		t.Fatalf("seed transition: %v", err)
	}

	if err := s.Recover(context.Background()); err != nil {
		t.Fatalf("recover: %v", err)
	}

	oc := settler.lastCall(t)
	if oc.CrashPoint != 1.87 || oc.Source != outcome.SourceComputed {
		t.Errorf("recovered with %+v, want computed at 1.87", oc)
	}
	if _, err := store.GetActive(context.Background()); !errors.Is(err, round.ErrNoActiveRound) {
		t.Errorf("active slot still occupied after recover: %v", err)
	}
}

func TestRecover_NoStaleRound(t *testing.T) {
	s := testScheduler(newFakeStore(), &fakeSettler{}, &fakePublisher{})
	if err := s.Recover(context.Background()); err != nil {
		t.Errorf("recover with empty store: %v", err)
	}
}

func TestCrashRound_SettlerErrorReleasesSlot(t *testing.T) {
	settler := &fakeSettler{err: errors.New("db down")}
	s := testScheduler(newFakeStore(), settler, &fakePublisher{})

	if _, err := s.StartRound(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	r, _, err := s.CrashRound(context.Background(), nil)
	if err == nil {
		t.Fatal("expected settle error")
	}
	// a rodada fica CRASHED aguardando intervenção; o slot é liberado
	if r.State != round.StateCrashed {
		t.Errorf("state = %s, want CRASHED", r.State)
	}
	if _, _, err := s.CrashRound(context.Background(), nil); !errors.Is(err, round.ErrNoActiveRound) {
		t.Errorf("second crash: got %v, want ErrNoActiveRound", err)
	}
}

func TestRecover_SettlesCrashedUnsettledRound(t *testing.T) {
	store := newFakeStore()
	settler := &fakeSettler{}
	s := testScheduler(store, settler, &fakePublisher{})

	// crashou com override do admin mas a liquidação nunca aconteceu
	r, err := store.Create(context.Background(), 3.14, "commit", "seed", "key")
	if err != nil {
		t.Fatalf("seed store: %v", err)
	}
	if _, err := store.Transition(context.Background(), r.ID, round.StateInProgress); err != nil {
		t.Fatalf("seed transition: %v", err)
	}
	if _, err := store.TransitionCrashed(context.Background(), r.ID, 2.5, "admin-override"); err != nil {
		t.Fatalf("seed crash: %v", err)
	}

	if err := s.Recover(context.Background()); err != nil {
		t.Fatalf("recover: %v", err)
	}

	// reliquida no multiplicador congelado, preservando a origem do resultado
	oc := settler.lastCall(t)
	if oc.CrashPoint != 2.5 || oc.Source != outcome.SourceAdminOverride {
		t.Errorf("recovered with %+v, want admin-override at 2.5", oc)
	}
}

func TestRecover_AfterSettlerFailure(t *testing.T) {
	store := newFakeStore()
	settler := &fakeSettler{err: errors.New("db down")}
	s := testScheduler(store, settler, &fakePublisher{})

	started, err := s.StartRound(context.Background())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, _, err := s.CrashRound(context.Background(), nil); err == nil {
		t.Fatal("expected settle error")
	}

	// a liquidação volta a funcionar; Recover encontra a rodada CRASHED
	// pendente e paga as apostas que ficaram presas
	settler.mu.Lock()
	settler.err = nil
	settler.mu.Unlock()
	if err := s.Recover(context.Background()); err != nil {
		t.Fatalf("recover: %v", err)
	}

	oc := settler.lastCall(t)
	if oc.CrashPoint != started.CrashPoint || oc.Source != outcome.SourceComputed {
		t.Errorf("recovered with %+v, want computed at %v", oc, started.CrashPoint)
	}
}
