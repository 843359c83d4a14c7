package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/senyabanana/procurement-service/internal/db"
	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/testutil"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	pool := testutil.SetupPostgres(t)
	testutil.SeedEmployees(t, pool, "u-a", "u-b")
	return pool
}

func newTestRfx(reference string) *models.Rfx {
	now := time.Now().UTC().Truncate(time.Microsecond)
	id := uuid.NewString()
	userA, userB := "u-a", "u-b"
	return &models.Rfx{
		ID:                id,
		ReferenceNumber:   reference,
		Title:             "Network switches",
		Currency:          "EUR",
		EstimatedBudget:   50000,
		ClosingDate:       now.AddDate(0, 1, 0),
		RequiredDocuments: []string{"Trade License", "ISO 9001"},
		MinimumScore:      60,
		Status:            models.DraftRfx,
		CreatedBy:         "creator",
		CreatedAt:         now,
		UpdatedAt:         now,
		Criteria: []models.EvaluationCriterion{
			{ID: uuid.NewString(), Title: "Price", Weight: 60, Type: models.CommercialCriterion},
			{ID: uuid.NewString(), Title: "Quality", Weight: 40, Type: models.TechnicalCriterion},
		},
		Committee: []models.CommitteeMember{
			{ID: uuid.NewString(), UserID: &userA, Name: "Alice", Role: "Chair"},
			{ID: uuid.NewString(), UserID: &userB, Name: "Bob", Role: "Reviewer"},
		},
	}
}

func TestPostgresRfxRepository(t *testing.T) {
	pool := setupPostgres(t)
	ctx := context.Background()
	repo := NewPostgresRfxRepository(pool)
	tx := db.NewTransactor(pool)

	rfx := newTestRfx("RFX-2026-0001")
	if err := tx.WithinTransaction(ctx, func(ctx context.Context) error { return repo.CreateRfx(ctx, rfx) }); err != nil {
		t.Fatalf("CreateRfx: %v", err)
	}

	count, err := repo.CountCreatedInYear(ctx, rfx.CreatedAt.Year())
	if err != nil || count != 1 {
		t.Fatalf("CountCreatedInYear = %d, %v", count, err)
	}

	dup := newTestRfx("RFX-2026-0001")
	err = tx.WithinTransaction(ctx, func(ctx context.Context) error { return repo.CreateRfx(ctx, dup) })
	if !IsDuplicateOf(err, ConstraintRfxReference) {
		t.Fatalf("expected reference conflict, got %v", err)
	}

	got, err := repo.GetRfx(ctx, rfx.ID)
	if err != nil {
		t.Fatalf("GetRfx: %v", err)
	}
	if len(got.Criteria) != 2 || got.Criteria[0].Title != "Price" || len(got.Committee) != 2 || got.Committee[1].Name != "Bob" {
		t.Fatalf("nested records not loaded in order: %+v", got)
	}
	if len(got.RequiredDocuments) != 2 || got.RequiredDocuments[1] != "ISO 9001" {
		t.Fatalf("required documents = %v", got.RequiredDocuments)
	}

	err = tx.WithinTransaction(ctx, func(ctx context.Context) error {
		locked, err := repo.GetRfxForUpdate(ctx, rfx.ID)
		if err != nil {
			return err
		}
		member := locked.Committee[0]
		now := time.Now().UTC()
		member.IsApproved = true
		member.ApprovedAt = &now
		if err := repo.UpdateCommitteeMember(ctx, member); err != nil {
			return err
		}
		return repo.UpdateRfxStatus(ctx, rfx.ID, models.PublishedRfx, now)
	})
	if err != nil {
		t.Fatalf("approve in transaction: %v", err)
	}

	list, err := repo.ListRfx(ctx, []string{string(models.PublishedRfx)}, 10, 0)
	if err != nil || len(list) != 1 || !list[0].Committee[0].IsApproved {
		t.Fatalf("ListRfx = %+v, %v", list, err)
	}

	if _, err := repo.GetRfx(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing rfx error = %v", err)
	}
	if _, err := repo.GetRfx(ctx, "abc"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("malformed id error = %v", err)
	}
}

func TestPostgresBidAndContractRepositories(t *testing.T) {
	pool := setupPostgres(t)
	ctx := context.Background()
	rfxRepo := NewPostgresRfxRepository(pool)
	bidRepo := NewPostgresBidRepository(pool)
	contractRepo := NewPostgresContractRepository(pool)

	rfx := newTestRfx("RFX-2026-0002")
	if err := rfxRepo.CreateRfx(ctx, rfx); err != nil {
		t.Fatalf("CreateRfx: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	bid := &models.SupplierBid{
		ID:               uuid.NewString(),
		RfxID:            rfx.ID,
		BidderID:         "supplier-1",
		BidderName:       "Acme",
		Amount:           42000.5,
		Currency:         "EUR",
		DeliveryDate:     now.AddDate(0, 2, 0),
		Proposal:         "48-port switches",
		Documents:        []models.BidDocument{{Name: "Trade License", ObjectKey: "rfx/x/bids/y/01-license.pdf", Size: 10}},
		Inputs:           []models.BidInput{{Name: models.InputBidAmount, Value: "42000.5"}},
		EvaluationStatus: models.PendingReview,
		SubmittedAt:      now,
	}
	if err := bidRepo.CreateBid(ctx, bid); err != nil {
		t.Fatalf("CreateBid: %v", err)
	}

	review := func(reviewer string, status models.EvaluationStatus) bool {
		t.Helper()
		_, inserted, err := bidRepo.UpsertReview(ctx, models.BidReview{
			ID: uuid.NewString(), BidID: bid.ID, ReviewerID: reviewer, Status: status, UpdatedAt: time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("UpsertReview(%s): %v", reviewer, err)
		}
		return inserted
	}
	if !review("r1", models.ApprovedBid) {
		t.Fatal("first review should insert")
	}
	if review("r1", models.UnderReview) {
		t.Fatal("second review by the same reviewer should update")
	}
	if !review("r2", models.ApprovedBid) {
		t.Fatal("review by another reviewer should insert")
	}
	if err := bidRepo.UpdateEvaluationSummary(ctx, bid.ID, models.EvaluationSummary{
		Status: models.ApprovedBid, EvaluatedAt: now, EvaluatedBy: "r2",
	}); err != nil {
		t.Fatalf("UpdateEvaluationSummary: %v", err)
	}

	got, err := bidRepo.GetBid(ctx, rfx.ID, bid.ID)
	if err != nil {
		t.Fatalf("GetBid: %v", err)
	}
	if len(got.Reviews) != 2 || got.EvaluationStatus != models.ApprovedBid || got.Documents[0].ObjectKey == "" {
		t.Fatalf("bid = %+v", got)
	}
	r1, err := bidRepo.GetReview(ctx, bid.ID, "r1")
	if err != nil || r1.Status != models.UnderReview {
		t.Fatalf("GetReview(r1) = %+v, %v", r1, err)
	}

	newContract := func() *models.Contract {
		return &models.Contract{
			ID: uuid.NewString(), BidID: &bid.ID, RfxID: &rfx.ID, Title: "Switch supply",
			SupplierID: "supplier-1", SupplierName: "Acme", Value: 42000.5, Currency: "EUR",
			StartDate: now, EndDate: now.AddDate(1, 0, 0), Status: models.DraftContract,
			CreatedBy: "buyer", CreatedAt: now,
		}
	}
	contract := newContract()
	if err := contractRepo.CreateContract(ctx, contract); err != nil {
		t.Fatalf("CreateContract: %v", err)
	}
	if err := contractRepo.CreateContract(ctx, newContract()); !IsDuplicateOf(err, ConstraintContractBid) {
		t.Fatalf("expected contract conflict, got %v", err)
	}
	exists, err := contractRepo.ContractExistsForBid(ctx, bid.ID)
	if err != nil || !exists {
		t.Fatalf("ContractExistsForBid = %v, %v", exists, err)
	}

	if _, err := contractRepo.GetSupplierContractForUpdate(ctx, contract.ID, "supplier-2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign supplier lookup error = %v", err)
	}
	if err := contractRepo.SignContract(ctx, contract.ID, "Jane Doe", now); err != nil {
		t.Fatalf("SignContract: %v", err)
	}
	if err := contractRepo.SignContract(ctx, contract.ID, "Jane Doe", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second SignContract error = %v", err)
	}
	signed, err := contractRepo.GetContract(ctx, contract.ID)
	if err != nil || signed.Status != models.ActiveContract || signed.SupplierSignature == nil {
		t.Fatalf("signed contract = %+v, %v", signed, err)
	}
}

func TestPostgresUserDirectory(t *testing.T) {
	pool := setupPostgres(t)
	users := NewPostgresUserDirectory(pool)

	missing, err := users.FindMissingUsers(context.Background(), []string{"u-a", "ghost", "u-b", "phantom"})
	if err != nil {
		t.Fatalf("FindMissingUsers: %v", err)
	}
	if len(missing) != 2 || missing[0] != "ghost" || missing[1] != "phantom" {
		t.Fatalf("missing = %v", missing)
	}
}

func TestPostgresConcurrentFirstReviews(t *testing.T) {
	pool := setupPostgres(t)
	ctx := context.Background()
	rfxRepo := NewPostgresRfxRepository(pool)
	bidRepo := NewPostgresBidRepository(pool)

	rfx := newTestRfx("RFX-2026-0003")
	if err := rfxRepo.CreateRfx(ctx, rfx); err != nil {
		t.Fatalf("CreateRfx: %v", err)
	}
	bid := &models.SupplierBid{
		ID: uuid.NewString(), RfxID: rfx.ID, BidderID: "supplier-1", Amount: 100, Currency: "EUR",
		DeliveryDate: time.Now().UTC(), Proposal: "p", EvaluationStatus: models.PendingReview,
		SubmittedAt: time.Now().UTC(),
	}
	if err := bidRepo.CreateBid(ctx, bid); err != nil {
		t.Fatalf("CreateBid: %v", err)
	}

	const rounds, writers = 10, 4
	for round := 0; round < rounds; round++ {
		reviewer := fmt.Sprintf("reviewer-%d", round)
		start := make(chan struct{})
		results := make(chan bool, writers)
		errs := make(chan error, writers)
		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_, inserted, err := bidRepo.UpsertReview(ctx, models.BidReview{
					ID: uuid.NewString(), BidID: bid.ID, ReviewerID: reviewer,
					Status: models.UnderReview, UpdatedAt: time.Now().UTC(),
				})
				if err != nil {
					errs <- err
					return
				}
				results <- inserted
			}()
		}
		close(start)
		wg.Wait()
		close(results)
		close(errs)

		for err := range errs {
			t.Fatalf("UpsertReview(%s): %v", reviewer, err)
		}
		inserts := 0
		for inserted := range results {
			if inserted {
				inserts++
			}
		}
		if inserts != 1 {
			t.Fatalf("%s: %d writers reported an insert", reviewer, inserts)
		}

		var rows int
		err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM bid_review WHERE bid_id = $1 AND reviewer_id = $2`, bid.ID, reviewer).Scan(&rows)
		if err != nil || rows != 1 {
			t.Fatalf("%s: %d review rows, %v", reviewer, rows, err)
		}
	}
}

func TestPostgresTransactorRollsBack(t *testing.T) {
	pool := setupPostgres(t)
	ctx := context.Background()
	repo := NewPostgresRfxRepository(pool)
	tx := db.NewTransactor(pool)

	rfx := newTestRfx("RFX-2026-0004")
	failure := errors.New("abort")
	err := tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := repo.CreateRfx(ctx, rfx); err != nil {
			return err
		}
		return failure
	})
	if !errors.Is(err, failure) {
		t.Fatalf("WithinTransaction error = %v", err)
	}
	if _, err := repo.GetRfx(ctx, rfx.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("rolled back rfx is visible: %v", err)
	}
}
