package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/clubemanager/backend/core"
	"github.com/clubemanager/backend/core/billing"
	"github.com/clubemanager/backend/core/member"
	inmemdb "github.com/clubemanager/backend/storage/database/inmem"
	testutil "github.com/clubemanager/backend/tests"
)

type fixture struct {
	svc     billing.ServiceInterface
	repo    billing.Repository
	mbrRepo member.Repository
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db := inmemdb.NewDB()
	repo := inmemdb.NewBillingRepository(db)
	mbrRepo := inmemdb.NewMemberRepository(db)

	if _, err := repo.UpdatePolicy(context.Background(), testutil.DefaultPolicy()); err != nil {
		t.Fatalf("seeding policy failed: %v", err)
	}

	conf := &core.Config{AppName: "ClubeManager", TestMode: true}
	return &fixture{
		svc:     billing.NewService(nil, repo, mbrRepo, conf),
		repo:    repo,
		mbrRepo: mbrRepo,
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestService_Generate(t *testing.T) {
	fix := setup(t)
	ctx := context.Background()

	testutil.CreateMember(t, fix.mbrRepo, "Ana", "ana@test.br", member.CategoryPrimary, member.StatusActive, "")
	testutil.CreateMember(t, fix.mbrRepo, "Bruno", "bruno@test.br", member.CategoryPrimary, member.StatusActive, "")
	testutil.CreateMember(t, fix.mbrRepo, "Carla", "carla@test.br", member.CategoryPrimary, member.StatusInactive, "")

	inp := billing.GenerateInput{
		Period: billing.NewPeriod(2024, time.February),
		Scope:  billing.ScopeActiveOnly,
	}

	res, err := fix.svc.Generate(ctx, inp)
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	if res.Created != 2 || res.Skipped != 0 {
		t.Errorf("Generate() = created %d, skipped %d; want 2, 0", res.Created, res.Skipped)
	}

	dues, err := fix.svc.Query(ctx, &billing.QueryFilter{Period: "2024-02"}, nil)
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(dues) != 2 {
		t.Fatalf("got %d dues, want 2", len(dues))
	}
	wantDueDate := time.Date(2024, time.February, 5, 0, 0, 0, 0, time.UTC)
	for _, due := range dues {
		if due.Status != billing.StatusPending {
			t.Errorf("due status = %s, want pending", due.Status)
		}
		if !due.BaseAmount.Equal(dec("150.00")) {
			t.Errorf("base amount = %s, want 150.00", due.BaseAmount)
		}
		if !due.DueDate.Equal(wantDueDate) {
			t.Errorf("due date = %v, want %v", due.DueDate, wantDueDate)
		}
	}

	// re-running the same period is a no-op success
	res, err = fix.svc.Generate(ctx, inp)
	if err != nil {
		t.Fatalf("Generate() re-run failed: %v", err)
	}
	if res.Created != 0 || res.Skipped != 2 {
		t.Errorf("Generate() re-run = created %d, skipped %d; want 0, 2", res.Created, res.Skipped)
	}
}

func TestService_Generate_missingPriceAborts(t *testing.T) {
	fix := setup(t)
	ctx := context.Background()

	policy := testutil.DefaultPolicy()
	delete(policy.Prices, member.CategoryGuest)
	if _, err := fix.repo.UpdatePolicy(ctx, policy); err != nil {
		t.Fatalf("updating policy failed: %v", err)
	}

	testutil.CreateMember(t, fix.mbrRepo, "Ana", "ana@test.br", member.CategoryPrimary, member.StatusActive, "")
	testutil.CreateMember(t, fix.mbrRepo, "Gui", "gui@test.br", member.CategoryGuest, member.StatusActive, "")

	_, err := fix.svc.Generate(ctx, billing.GenerateInput{
		Period: billing.NewPeriod(2024, time.March),
		Scope:  billing.ScopeActiveOnly,
	})
	if errors.Cause(err) != billing.ErrMissingPrice {
		t.Fatalf("Generate() error = %v, want ErrMissingPrice", err)
	}

	// nothing may have been written, not even for priced categories
	dues, err := fix.svc.Query(ctx, &billing.QueryFilter{Period: "2024-03"}, nil)
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(dues) != 0 {
		t.Errorf("got %d dues after aborted run, want 0", len(dues))
	}
}

func TestService_Generate_scopes(t *testing.T) {
	fix := setup(t)
	ctx := context.Background()

	testutil.CreateMember(t, fix.mbrRepo, "Ana", "ana@test.br", member.CategoryPrimary, member.StatusActive, "")
	testutil.CreateMember(t, fix.mbrRepo, "Davi", "davi@test.br", member.CategoryContributor, member.StatusActive, "")
	testutil.CreateMember(t, fix.mbrRepo, "Eva", "eva@test.br", member.CategoryPrimary, member.StatusSuspended, "")

	tests := []struct {
		scope       string
		wantCreated int
	}{
		{scope: billing.ScopeAll, wantCreated: 3},
		{scope: billing.ScopeActiveOnly, wantCreated: 2},
		// primary_only selects on category alone, so suspended Eva is billed too
		{scope: billing.ScopePrimaryOnly, wantCreated: 2},
	}
	for i, tt := range tests {
		t.Run(tt.scope, func(t *testing.T) {
			res, err := fix.svc.Generate(ctx, billing.GenerateInput{
				Period: billing.NewPeriod(2024, time.Month(i+4)), // fresh period per scope
				Scope:  tt.scope,
			})
			if err != nil {
				t.Fatalf("Generate() failed: %v", err)
			}
			if res.Created != tt.wantCreated {
				t.Errorf("Generate() created = %d, want %d", res.Created, tt.wantCreated)
			}
		})
	}
}

func TestService_Generate_dueDayClampsToMonthEnd(t *testing.T) {
	fix := setup(t)
	ctx := context.Background()

	testutil.CreateMember(t, fix.mbrRepo, "Ana", "ana@test.br", member.CategoryPrimary, member.StatusActive, "")

	_, err := fix.svc.Generate(ctx, billing.GenerateInput{
		Period: billing.NewPeriod(2024, time.February), // leap year
		Scope:  billing.ScopeActiveOnly,
		DueDay: 31,
	})
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}

	dues, err := fix.svc.Query(ctx, &billing.QueryFilter{Period: "2024-02"}, nil)
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	want := time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC)
	if len(dues) != 1 || !dues[0].DueDate.Equal(want) {
		t.Errorf("due date = %v, want %v", dues[0].DueDate, want)
	}
}

func TestService_Preview_writesNothing(t *testing.T) {
	fix := setup(t)
	ctx := context.Background()

	testutil.CreateMember(t, fix.mbrRepo, "Ana", "ana@test.br", member.CategoryPrimary, member.StatusActive, "")

	preview, err := fix.svc.Preview(ctx, billing.GenerateInput{
		Period: billing.NewPeriod(2024, time.February),
		Scope:  billing.ScopeActiveOnly,
	})
	if err != nil {
		t.Fatalf("Preview() failed: %v", err)
	}
	if len(preview) != 1 {
		t.Fatalf("Preview() returned %d dues, want 1", len(preview))
	}
	if !preview[0].BaseAmount.Equal(dec("150.00")) {
		t.Errorf("preview base = %s, want 150.00", preview[0].BaseAmount)
	}

	dues, err := fix.svc.Query(ctx, nil, nil)
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(dues) != 0 {
		t.Errorf("Preview() wrote %d dues, want 0", len(dues))
	}
}

func TestService_EvaluateOverdue(t *testing.T) {
	fix := setup(t)
	ctx := context.Background()

	mbr := testutil.CreateMember(t, fix.mbrRepo, "Ana", "ana@test.br", member.CategoryPrimary, member.StatusActive, "")
	due := testutil.CreateDue(t, fix.repo, mbr, billing.NewPeriod(2024, time.February), dec("150.00"),
		billing.StatusPending, time.Date(2024, time.February, 5, 0, 0, 0, 0, time.UTC))

	asOf := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	res, err := fix.svc.EvaluateOverdue(ctx, asOf)
	if err != nil {
		t.Fatalf("EvaluateOverdue() failed: %v", err)
	}
	if res.Marked != 1 {
		t.Errorf("EvaluateOverdue() marked = %d, want 1", res.Marked)
	}

	got, err := fix.svc.GetByID(ctx, due.ID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if got.Status != billing.StatusOverdue {
		t.Errorf("status = %s, want overdue", got.Status)
	}
	if !got.InterestAmount.Equal(dec("3.00")) {
		t.Errorf("interest = %s, want 3.00", got.InterestAmount)
	}
	if !got.PenaltyAmount.Equal(dec("10.00")) {
		t.Errorf("penalty = %s, want 10.00", got.PenaltyAmount)
	}
	if !got.Total().Equal(dec("163.00")) {
		t.Errorf("total = %s, want 163.00", got.Total())
	}

	// a second run must not compound charges
	res, err = fix.svc.EvaluateOverdue(ctx, asOf)
	if err != nil {
		t.Fatalf("EvaluateOverdue() re-run failed: %v", err)
	}
	if res.Marked != 0 {
		t.Errorf("EvaluateOverdue() re-run marked = %d, want 0", res.Marked)
	}
	got, _ = fix.svc.GetByID(ctx, due.ID)
	if !got.Total().Equal(dec("163.00")) {
		t.Errorf("total after re-run = %s, want 163.00", got.Total())
	}
}

func TestService_EvaluateOverdue_notYetDue(t *testing.T) {
	fix := setup(t)
	ctx := context.Background()

	mbr := testutil.CreateMember(t, fix.mbrRepo, "Ana", "ana@test.br", member.CategoryPrimary, member.StatusActive, "")
	testutil.CreateDue(t, fix.repo, mbr, billing.NewPeriod(2024, time.February), dec("150.00"),
		billing.StatusPending, time.Date(2024, time.February, 5, 0, 0, 0, 0, time.UTC))

	res, err := fix.svc.EvaluateOverdue(ctx, time.Date(2024, time.February, 5, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("EvaluateOverdue() failed: %v", err)
	}
	if res.Marked != 0 {
		t.Errorf("EvaluateOverdue() marked = %d, want 0 (due date not past)", res.Marked)
	}
}

func TestService_RecordPayment(t *testing.T) {
	fix := setup(t)
	ctx := context.Background()

	mbr := testutil.CreateMember(t, fix.mbrRepo, "Ana", "ana@test.br", member.CategoryPrimary, member.StatusActive, "")
	due := testutil.CreateDue(t, fix.repo, mbr, billing.NewPeriod(2024, time.February), dec("150.00"),
		billing.StatusPending, time.Date(2024, time.February, 5, 0, 0, 0, 0, time.UTC))

	if _, err := fix.svc.EvaluateOverdue(ctx, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("EvaluateOverdue() failed: %v", err)
	}

	paid, err := fix.svc.RecordPayment(ctx, due.ID, billing.PaymentInput{})
	if err != nil {
		t.Fatalf("RecordPayment() failed: %v", err)
	}
	if paid.Status != billing.StatusPaid {
		t.Errorf("status = %s, want paid", paid.Status)
	}
	if !paid.PaidAmount.Equal(dec("163.00")) {
		t.Errorf("paid amount = %s, want 163.00 (frozen at payment time)", paid.PaidAmount)
	}
	if paid.PaidAt.IsZero() {
		t.Error("paid_at not set")
	}

	// later evaluations must not touch a paid due
	if _, err := fix.svc.EvaluateOverdue(ctx, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("EvaluateOverdue() failed: %v", err)
	}
	got, _ := fix.svc.GetByID(ctx, due.ID)
	if !got.PaidAmount.Equal(dec("163.00")) {
		t.Errorf("paid amount drifted to %s after evaluation", got.PaidAmount)
	}

	// paying again is invalid
	if _, err := fix.svc.RecordPayment(ctx, due.ID, billing.PaymentInput{}); errors.Cause(err) != billing.ErrInvalidTransition {
		t.Errorf("RecordPayment() on paid due error = %v, want ErrInvalidTransition", err)
	}
}

func TestService_RecordPayment_cancelledDue(t *testing.T) {
	fix := setup(t)
	ctx := context.Background()

	mbr := testutil.CreateMember(t, fix.mbrRepo, "Ana", "ana@test.br", member.CategoryPrimary, member.StatusActive, "")
	due := testutil.CreateDue(t, fix.repo, mbr, billing.NewPeriod(2024, time.February), dec("150.00"),
		billing.StatusPending, time.Date(2024, time.February, 5, 0, 0, 0, 0, time.UTC))

	if _, err := fix.svc.Cancel(ctx, due.ID); err != nil {
		t.Fatalf("Cancel() failed: %v", err)
	}
	if _, err := fix.svc.RecordPayment(ctx, due.ID, billing.PaymentInput{}); errors.Cause(err) != billing.ErrInvalidTransition {
		t.Errorf("RecordPayment() on cancelled due error = %v, want ErrInvalidTransition", err)
	}
}

func TestService_Cancel(t *testing.T) {
	fix := setup(t)
	ctx := context.Background()

	mbr := testutil.CreateMember(t, fix.mbrRepo, "Ana", "ana@test.br", member.CategoryPrimary, member.StatusActive, "")
	due := testutil.CreateDue(t, fix.repo, mbr, billing.NewPeriod(2024, time.February), dec("150.00"),
		billing.StatusPending, time.Date(2024, time.February, 5, 0, 0, 0, 0, time.UTC))

	cancelled, err := fix.svc.Cancel(ctx, due.ID)
	if err != nil {
		t.Fatalf("Cancel() failed: %v", err)
	}
	if cancelled.Status != billing.StatusCancelled {
		t.Errorf("status = %s, want cancelled", cancelled.Status)
	}

	// cancelled is terminal
	if _, err := fix.svc.Cancel(ctx, due.ID); errors.Cause(err) != billing.ErrInvalidTransition {
		t.Errorf("Cancel() on cancelled due error = %v, want ErrInvalidTransition", err)
	}
}

func TestService_Cancel_overdueDueDropsCharges(t *testing.T) {
	fix := setup(t)
	ctx := context.Background()

	mbr := testutil.CreateMember(t, fix.mbrRepo, "Ana", "ana@test.br", member.CategoryPrimary, member.StatusActive, "")
	due := testutil.CreateDue(t, fix.repo, mbr, billing.NewPeriod(2024, time.February), dec("150.00"),
		billing.StatusPending, time.Date(2024, time.February, 5, 0, 0, 0, 0, time.UTC))

	if _, err := fix.svc.EvaluateOverdue(ctx, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("EvaluateOverdue() failed: %v", err)
	}

	cancelled, err := fix.svc.Cancel(ctx, due.ID)
	if err != nil {
		t.Fatalf("Cancel() failed: %v", err)
	}
	if cancelled.Status != billing.StatusCancelled {
		t.Errorf("status = %s, want cancelled", cancelled.Status)
	}
	if !cancelled.InterestAmount.IsZero() {
		t.Errorf("interest = %s, want 0 on a cancelled due", cancelled.InterestAmount)
	}
	if !cancelled.PenaltyAmount.IsZero() {
		t.Errorf("penalty = %s, want 0 on a cancelled due", cancelled.PenaltyAmount)
	}

	// the stored row must drop the charges too
	got, err := fix.svc.GetByID(ctx, due.ID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if !got.InterestAmount.IsZero() || !got.PenaltyAmount.IsZero() {
		t.Errorf("stored charges = %s + %s, want 0 + 0", got.InterestAmount, got.PenaltyAmount)
	}
	if !got.Total().Equal(dec("150.00")) {
		t.Errorf("total = %s, want 150.00", got.Total())
	}
}

func TestService_Generate_primaryOnlyIgnoresStatus(t *testing.T) {
	fix := setup(t)
	ctx := context.Background()

	testutil.CreateMember(t, fix.mbrRepo, "Carla", "carla@test.br", member.CategoryPrimary, member.StatusInactive, "")

	res, err := fix.svc.Generate(ctx, billing.GenerateInput{
		Period: billing.NewPeriod(2024, time.February),
		Scope:  billing.ScopePrimaryOnly,
	})
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	if res.Created != 1 {
		t.Errorf("Generate() created = %d, want 1 (inactive primary member is still billed)", res.Created)
	}
}

func TestService_Cancel_paidDueIsTerminal(t *testing.T) {
	fix := setup(t)
	ctx := context.Background()

	mbr := testutil.CreateMember(t, fix.mbrRepo, "Ana", "ana@test.br", member.CategoryPrimary, member.StatusActive, "")
	due := testutil.CreateDue(t, fix.repo, mbr, billing.NewPeriod(2024, time.February), dec("150.00"),
		billing.StatusPending, time.Date(2024, time.February, 5, 0, 0, 0, 0, time.UTC))

	if _, err := fix.svc.RecordPayment(ctx, due.ID, billing.PaymentInput{}); err != nil {
		t.Fatalf("RecordPayment() failed: %v", err)
	}
	if _, err := fix.svc.Cancel(ctx, due.ID); errors.Cause(err) != billing.ErrInvalidTransition {
		t.Errorf("Cancel() on paid due error = %v, want ErrInvalidTransition", err)
	}
}
