package services

import (
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"supply_map_backend/internal/models"
)

func TestDecideAllocation(t *testing.T) {
	tests := []struct {
		name      string
		received  int64
		allocated int64
		requested int64
		wantErr   error
	}{
		{"fits exactly", 100, 0, 100, nil},
		{"fits with room", 100, 30, 50, nil},
		{"nothing received", 0, 0, 10, ErrNoBalanceAvailable},
		{"fully consumed", 100, 100, 1, ErrNoBalanceAvailable},
		{"zero quantity", 100, 0, 0, ErrValidation},
		{"negative quantity", 100, 0, -5, ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := decideAllocation(decimal.NewFromInt(tt.received), decimal.NewFromInt(tt.allocated), decimal.NewFromInt(tt.requested))
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("decideAllocation = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("decideAllocation = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// 1000 received with 300+300 already committed leaves 400; asking for 500
// must be rejected quoting exactly 400.
func TestDecideAllocationReportsExactAvailable(t *testing.T) {
	received := decimal.NewFromInt(1000)
	allocated := decimal.NewFromInt(300).Add(decimal.NewFromInt(300))

	err := decideAllocation(received, allocated, decimal.NewFromInt(500))
	var insufficient *InsufficientBalanceError
	if !errors.As(err, &insufficient) {
		t.Fatalf("error type = %T, want *InsufficientBalanceError", err)
	}
	if !insufficient.Available.Equal(decimal.NewFromInt(400)) {
		t.Errorf("available = %s, want 400", insufficient.Available)
	}
	if !insufficient.Requested.Equal(decimal.NewFromInt(500)) {
		t.Errorf("requested = %s, want 500", insufficient.Requested)
	}

	// Asking for the exact remainder succeeds.
	if err := decideAllocation(received, allocated, decimal.NewFromInt(400)); err != nil {
		t.Errorf("allocating the exact remainder failed: %v", err)
	}
}

func TestListByPlannedNeedReturnsCommittedTotal(t *testing.T) {
	allocs := &fakeAllocationRepo{byNeed: map[int64][]models.Allocation{
		7: {
			{ID: 1, AllocatedQuantity: decimal.NewFromInt(30)},
			{ID: 2, AllocatedQuantity: decimal.NewFromInt(45)},
		},
	}}
	service := NewAllocationService(allocs, &fakeReceiptRepo{}, &fakeSiteRepo{}, &fakeChangeLogRepo{}, nil)

	allocations, total, err := service.ListByPlannedNeed(7)
	if err != nil {
		t.Fatalf("ListByPlannedNeed error: %v", err)
	}
	if len(allocations) != 2 {
		t.Errorf("allocations = %d, want 2", len(allocations))
	}
	if !total.Equal(decimal.NewFromInt(75)) {
		t.Errorf("total allocated = %s, want 75", total)
	}
}

// ledgerUnderLock mimics the transactional pattern of the allocation
// service: read the committed sum and decide while holding an exclusive
// lock, append only on acceptance.
type ledgerUnderLock struct {
	mu        sync.Mutex
	received  decimal.Decimal
	allocated []decimal.Decimal
}

func (l *ledgerUnderLock) allocate(quantity decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := decimal.Zero
	for _, a := range l.allocated {
		total = total.Add(a)
	}
	if err := decideAllocation(l.received, total, quantity); err != nil {
		return err
	}
	l.allocated = append(l.allocated, quantity)
	return nil
}

// 50 concurrent attempts of 10 against 100 received: exactly 10 succeed and
// the committed total is exactly 100, regardless of interleaving.
func TestConcurrentAllocationsNeverOversubscribe(t *testing.T) {
	ledger := &ledgerUnderLock{received: decimal.NewFromInt(100)}

	const attempts = 50
	quantity := decimal.NewFromInt(10)

	var wg sync.WaitGroup
	results := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			results[slot] = ledger.allocate(quantity)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range results {
		if err == nil {
			successes++
			continue
		}
		var insufficient *InsufficientBalanceError
		if !errors.Is(err, ErrNoBalanceAvailable) && !errors.As(err, &insufficient) {
			t.Errorf("unexpected rejection reason: %v", err)
		}
	}
	if successes != 10 {
		t.Errorf("successful allocations = %d, want 10", successes)
	}

	total := decimal.Zero
	for _, a := range ledger.allocated {
		total = total.Add(a)
	}
	if !total.Equal(ledger.received) {
		t.Errorf("committed total = %s, want exactly %s", total, ledger.received)
	}
}
