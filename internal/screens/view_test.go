package screens

import (
	"context"
	"sync"
	"testing"
	"time"

	"expense-wallet/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaleSettleIsDropped(t *testing.T) {
	var v View[string]
	old := v.begin()
	cur := v.begin()

	assert.False(t, v.settle(old, State[string]{Status: StatusLoaded, Data: "stale"}))
	assert.True(t, v.settle(cur, State[string]{Status: StatusLoaded, Data: "fresh"}))
	assert.False(t, v.settle(old, State[string]{Status: StatusLoaded, Data: "stale"}))
	assert.Equal(t, "fresh", v.State().Data)
}

func TestLastIssuedRequestWins(t *testing.T) {
	var v View[string]
	ctx := context.Background()
	releaseFirst := make(chan struct{})
	releaseSecond := make(chan struct{})

	first := run(ctx, &v, "Failed", func(ctx context.Context) (string, error) {
		<-releaseFirst
		return "first", nil
	})
	second := run(ctx, &v, "Failed", func(ctx context.Context) (string, error) {
		<-releaseSecond
		return "second", nil
	})

	// The newer request answers first, then the older one arrives late.
	close(releaseSecond)
	<-second
	close(releaseFirst)
	<-first

	st := v.State()
	require.Equal(t, StatusLoaded, st.Status)
	assert.Equal(t, "second", st.Data)
}

func TestInvalidateDropsInFlightResult(t *testing.T) {
	backend := &MockBackend{listGate: make(chan []models.Budget)}
	c := NewBudgetList(backend)

	done := c.Load(context.Background())
	c.Close()
	backend.listGate <- []models.Budget{{Name: "late"}}
	<-done

	assert.Equal(t, StatusLoading, c.View().State().Status)
}

func TestSubscribersSeeTransitions(t *testing.T) {
	backend := &MockBackend{budgets: []models.Budget{{Name: "A", LimitAmount: decimal.NewFromInt(1)}}}
	c := NewBudgetList(backend)

	var mu sync.Mutex
	var seen []Status
	c.View().Subscribe(func(s State[BudgetListData]) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, s.Status)
	})

	<-c.Load(context.Background())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Status{StatusLoading, StatusLoaded}, seen)
}

func TestListenersReceiveStatesInOrder(t *testing.T) {
	var v View[string]
	entered := make(chan struct{})
	release := make(chan struct{})

	var mu sync.Mutex
	var seen []Status
	v.Subscribe(func(s State[string]) {
		if s.Status == StatusLoading {
			close(entered)
			<-release
		}
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, s.Status)
	})

	began := make(chan struct{})
	go func() {
		defer close(began)
		v.begin()
	}()
	<-entered

	// The result lands while the Loading delivery is still in progress.
	v.mu.Lock()
	gen := v.gen
	v.mu.Unlock()
	settled := make(chan bool)
	go func() { settled <- v.settle(gen, State[string]{Status: StatusLoaded, Data: "fast"}) }()
	time.Sleep(20 * time.Millisecond)
	close(release)

	assert.True(t, <-settled)
	<-began

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Status{StatusLoading, StatusLoaded}, seen)
	assert.Equal(t, StatusLoaded, v.State().Status)
}

func TestCanceledLoadReturnsToIdle(t *testing.T) {
	backend := &MockBackend{listGate: make(chan []models.Budget)}
	c := NewBudgetList(backend)

	ctx, cancel := context.WithCancel(context.Background())
	done := c.Load(ctx)
	cancel()
	<-done

	assert.Equal(t, StatusIdle, c.View().State().Status)
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Network error: connection refused", Describe(errNetwork, "Failed"))
	assert.Equal(t, "Failed: 500 Internal Server Error", Describe(errServer, "Failed"))
	assert.Equal(t, "bad input", Describe(NewValidationError("bad input"), "Failed"))
	assert.Equal(t, "shown", Describe(&Error{Message: "shown", Err: errServer}, "Failed"))
	assert.True(t, IsValidationError(NewValidationError("x")))
}

func TestRoutes(t *testing.T) {
	assert.Equal(t, "receiptDetail/12", ReceiptDetailRoute("12"))
	assert.Equal(t, "budgetDetails/3", BudgetDetailRoute("3"))
	assert.Equal(t, "budgetReport/3", BudgetReportRoute("3"))

	pattern, arg := ParseRoute("budgetReport/9")
	assert.Equal(t, RouteBudgetReport, pattern)
	assert.Equal(t, "9", arg)

	pattern, arg = ParseRoute(RouteMain)
	assert.Equal(t, RouteMain, pattern)
	assert.Empty(t, arg)
}
