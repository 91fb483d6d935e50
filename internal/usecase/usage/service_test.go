package usage

import (
	"context"
	"testing"
	"time"

	domusage "github.com/kailas-cloud/buyingguide/internal/domain/usage"
)

// --- Mock ---

type mockBudgetReader struct {
	dailyLimit       int64
	monthlyLimit     int64
	dailyUsed        int64
	monthlyUsed      int64
	remainingDaily   int64
	remainingMonthly int64
}

func (m *mockBudgetReader) Usage(period domusage.Period) (limit, used, remaining int64) {
	if period == domusage.PeriodMonth {
		return m.monthlyLimit, m.monthlyUsed, m.remainingMonthly
	}
	return m.dailyLimit, m.dailyUsed, m.remainingDaily
}

func fixedNow(svc *Service) time.Time {
	now := time.Date(2026, 10, 17, 15, 4, 5, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return now
}

// --- Tests ---

func TestGetReport_DailyPeriod(t *testing.T) {
	br := &mockBudgetReader{
		dailyLimit:       10000,
		dailyUsed:        3000,
		remainingDaily:   7000,
		monthlyLimit:     100000,
		monthlyUsed:      50000,
		remainingMonthly: 50000,
	}
	svc := New(br)
	fixedNow(svc)
	r := svc.GetReport(context.Background(), domusage.PeriodDay)

	if r.Period != domusage.PeriodDay {
		t.Errorf("expected period %q, got %q", domusage.PeriodDay, r.Period)
	}
	if want := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC); !r.Start.Equal(want) {
		t.Errorf("expected period start %v, got %v", want, r.Start)
	}
	if want := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC); !r.End.Equal(want) {
		t.Errorf("expected period end %v, got %v", want, r.End)
	}
	if r.Limit != 10000 || r.Used != 3000 || r.Remaining != 7000 {
		t.Errorf("report = %+v", r)
	}
	if r.Exhausted() {
		t.Error("budget should not be exhausted")
	}
}

func TestGetReport_MonthlyPeriod(t *testing.T) {
	br := &mockBudgetReader{
		monthlyLimit:     100000,
		monthlyUsed:      80000,
		remainingMonthly: 20000,
	}
	svc := New(br)
	fixedNow(svc)
	r := svc.GetReport(context.Background(), domusage.PeriodMonth)

	if want := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC); !r.Start.Equal(want) {
		t.Errorf("expected period start %v, got %v", want, r.Start)
	}
	if want := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC); !r.End.Equal(want) {
		t.Errorf("expected period end %v, got %v", want, r.End)
	}
	if r.Limit != 100000 || r.Used != 80000 {
		t.Errorf("report = %+v", r)
	}
}

func TestGetReport_NilBudgetReader(t *testing.T) {
	svc := New(nil)
	r := svc.GetReport(context.Background(), domusage.PeriodDay)

	if !r.Unlimited() || r.Remaining != -1 {
		t.Errorf("nil reader must report unlimited, got %+v", r)
	}
	if r.Exhausted() {
		t.Error("nil budget reader should not be exhausted")
	}
}

func TestGetReport_Exhausted(t *testing.T) {
	br := &mockBudgetReader{
		dailyLimit:     5000,
		dailyUsed:      5000,
		remainingDaily: 0,
	}
	r := New(br).GetReport(context.Background(), domusage.PeriodDay)

	if !r.Exhausted() {
		t.Error("budget should be exhausted when remaining is 0")
	}
}
