package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hansupo/shad-label/internal/domain"
)

var checkedAt = time.Date(2025, time.April, 2, 8, 0, 0, 0, time.UTC)

func TestDependencyHealthRepositoryCollectSuccess(t *testing.T) {
	repo, err := NewDependencyHealthRepository([]DependencyCheck{
		{Name: "store", Check: func(ctx context.Context) error {
			select {
			case <-time.After(5 * time.Millisecond):
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}},
		{Name: "browser", Optional: true, Check: func(context.Context) error { return nil }},
	}, WithDependencyClock(func() time.Time { return checkedAt }))
	if err != nil {
		t.Fatalf("NewDependencyHealthRepository: %v", err)
	}

	report, err := repo.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if report.Status != domain.HealthStatusOK {
		t.Fatalf("expected ok, got %s", report.Status)
	}
	if len(report.Checks) != 2 {
		t.Fatalf("expected 2 checks, got %d", len(report.Checks))
	}
	for name, check := range report.Checks {
		if check.Status != domain.HealthStatusOK || check.CheckedAt != checkedAt {
			t.Fatalf("unexpected check %s: %+v", name, check)
		}
	}
}

func TestDependencyHealthRepositoryStatusAggregation(t *testing.T) {
	boom := errors.New("boom")
	cases := []struct {
		name   string
		checks []DependencyCheck
		want   string
	}{
		{
			name: "optional failure degrades",
			checks: []DependencyCheck{
				{Name: "store", Check: func(context.Context) error { return nil }},
				{Name: "browser", Optional: true, Check: func(context.Context) error { return boom }},
			},
			want: domain.HealthStatusDegraded,
		},
		{
			name: "required failure errors",
			checks: []DependencyCheck{
				{Name: "store", Check: func(context.Context) error { return boom }},
				{Name: "browser", Optional: true, Check: func(context.Context) error { return boom }},
			},
			want: domain.HealthStatusError,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo, err := NewDependencyHealthRepository(tc.checks)
			if err != nil {
				t.Fatalf("NewDependencyHealthRepository: %v", err)
			}
			report, err := repo.Collect(context.Background())
			if err != nil {
				t.Fatalf("Collect: %v", err)
			}
			if report.Status != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, report.Status)
			}
		})
	}
}

func TestDependencyHealthRepositoryTimeout(t *testing.T) {
	repo, err := NewDependencyHealthRepository([]DependencyCheck{{
		Name:    "store",
		Timeout: 10 * time.Millisecond,
		Check: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}})
	if err != nil {
		t.Fatalf("NewDependencyHealthRepository: %v", err)
	}

	report, err := repo.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	check := report.Checks["store"]
	if check.Status != domain.HealthStatusError || check.Detail != "timeout" {
		t.Fatalf("expected timeout error, got %+v", check)
	}
}

func TestNewDependencyHealthRepositoryValidatesChecks(t *testing.T) {
	ok := func(context.Context) error { return nil }
	cases := map[string][]DependencyCheck{
		"empty":     nil,
		"no name":   {{Name: " ", Check: ok}},
		"no func":   {{Name: "store"}},
		"duplicate": {{Name: "store", Check: ok}, {Name: "store", Check: ok}},
	}
	for name, checks := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := NewDependencyHealthRepository(checks); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
