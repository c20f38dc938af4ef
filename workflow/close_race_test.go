package workflow

import (
	"sync"
	"testing"

	"bitbucket.org/mmdatafocus/reconcile_backend/models"
	"github.com/shopspring/decimal"
)

// periodStore mimics the compare-and-set the DB layer performs on the period
// status row: the update only lands if the period is still active.
type periodStore struct {
	mu     sync.Mutex
	period models.ReconciliationPeriod
}

func (s *periodStore) snapshot() models.ReconciliationPeriod {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.period
}

func (s *periodStore) closeCAS() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.period.Status != models.PeriodStatusActive {
		return false
	}
	s.period.Status = models.PeriodStatusClosed
	return true
}

func TestConcurrentClose_ExactlyOneWinner(t *testing.T) {
	store := &periodStore{
		period: models.ReconciliationPeriod{ID: "p-1", WorkspaceId: "ws-1", Status: models.PeriodStatusActive},
	}
	gaps := []models.ReconciliationGap{
		{AccountId: 1, GapAmount: decimal.Zero},
		{AccountId: 2, GapAmount: decimal.Zero},
	}

	const attempts = 50
	var wg sync.WaitGroup
	wins := make(chan string, attempts)
	refusals := make(chan string, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Each goroutine runs the same validate-then-set sequence the
			// closure transaction runs; only the CAS decides the winner.
			period := store.snapshot()
			allZero := models.AllGapsZero(gaps)
			check := models.ValidateClosureConstraints(&period, allZero)
			if !check.CanClose {
				refusals <- check.Reason
				return
			}
			if !models.CanTransitionStatus(period.Status, models.PeriodStatusClosed, allZero) {
				refusals <- "illegal transition"
				return
			}
			if store.closeCAS() {
				wins <- period.ID
			} else {
				refusals <- "lost the race"
			}
		}()
	}
	wg.Wait()
	close(wins)
	close(refusals)

	won := 0
	for range wins {
		won++
	}
	if won != 1 {
		t.Fatalf("close attempts succeeded %d times, want exactly 1", won)
	}
	if got := store.snapshot().Status; got != models.PeriodStatusClosed {
		t.Fatalf("final period status = %s, want closed", got)
	}
	refused := 0
	for range refusals {
		refused++
	}
	if won+refused != attempts {
		t.Fatalf("accounted for %d outcomes, want %d", won+refused, attempts)
	}
}

func TestConcurrentClose_BlockedWhileGapsRemain(t *testing.T) {
	store := &periodStore{
		period: models.ReconciliationPeriod{ID: "p-1", WorkspaceId: "ws-1", Status: models.PeriodStatusActive},
	}
	gaps := []models.ReconciliationGap{
		{AccountId: 1, GapAmount: decimal.Zero},
		{AccountId: 2, GapAmount: decimal.NewFromFloat(0.01)},
	}

	const attempts = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	won := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			period := store.snapshot()
			if !models.ValidateClosureConstraints(&period, models.AllGapsZero(gaps)).CanClose {
				return
			}
			if store.closeCAS() {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if won != 0 {
		t.Fatalf("closure succeeded %d times with an unresolved gap, want 0", won)
	}
	if got := store.snapshot().Status; got != models.PeriodStatusActive {
		t.Fatalf("period status = %s, want active", got)
	}
}
