package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/senyabanana/procurement-service/internal/db"
	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
)

var testNow = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func errCode(t *testing.T, err error) models.ErrorCode {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	var errorResponse *models.ErrorResponse
	if !errors.As(err, &errorResponse) {
		t.Fatalf("expected *models.ErrorResponse, got %T: %v", err, err)
	}
	return errorResponse.Code
}

func uniqueViolation(op, constraint string) error {
	return fmt.Errorf("%s: %w: %w", op, repository.ErrDuplicate,
		&pgconn.PgError{Code: db.PgErrUniqueViolation, ConstraintName: constraint})
}

type fakeTx struct {
	calls int
}

func (f *fakeTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

// fakeRfxRepo хранит RFx в памяти и отдает копии, как это делает база.
type fakeRfxRepo struct {
	mu             sync.Mutex
	items          map[string]*models.Rfx
	countCalls     int
	duplicateTimes int
	memberUpdates  int
}

func newFakeRfxRepo() *fakeRfxRepo {
	return &fakeRfxRepo{items: make(map[string]*models.Rfx)}
}

func cloneRfx(rfx *models.Rfx) *models.Rfx {
	c := *rfx
	c.Criteria = append([]models.EvaluationCriterion(nil), rfx.Criteria...)
	c.Committee = append([]models.CommitteeMember(nil), rfx.Committee...)
	c.RequiredDocuments = append([]string(nil), rfx.RequiredDocuments...)
	return &c
}

func (f *fakeRfxRepo) CountCreatedInYear(_ context.Context, year int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countCalls++
	prefix := fmt.Sprintf("%s-%d-", models.ReferencePrefix, year)
	n := 0
	for _, rfx := range f.items {
		if strings.HasPrefix(rfx.ReferenceNumber, prefix) {
			n++
		}
	}
	return n, nil
}

func (f *fakeRfxRepo) CreateRfx(_ context.Context, rfx *models.Rfx) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.duplicateTimes > 0 {
		f.duplicateTimes--
		return uniqueViolation("insert rfx", repository.ConstraintRfxReference)
	}
	for _, existing := range f.items {
		if existing.ReferenceNumber == rfx.ReferenceNumber {
			return uniqueViolation("insert rfx", repository.ConstraintRfxReference)
		}
	}
	f.items[rfx.ID] = cloneRfx(rfx)
	return nil
}

func (f *fakeRfxRepo) GetRfx(_ context.Context, rfxId string) (*models.Rfx, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rfx, ok := f.items[rfxId]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneRfx(rfx), nil
}

func (f *fakeRfxRepo) GetRfxForUpdate(ctx context.Context, rfxId string) (*models.Rfx, error) {
	return f.GetRfx(ctx, rfxId)
}

func (f *fakeRfxRepo) ListRfx(_ context.Context, statuses []string, limit, offset int) ([]models.Rfx, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var list []models.Rfx
	for _, rfx := range f.items {
		if len(statuses) > 0 && !containsString(statuses, string(rfx.Status)) {
			continue
		}
		list = append(list, *cloneRfx(rfx))
	}
	if offset >= len(list) {
		return nil, nil
	}
	list = list[offset:]
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func (f *fakeRfxRepo) UpdateCommitteeMember(_ context.Context, member models.CommitteeMember) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rfx := range f.items {
		for i := range rfx.Committee {
			if rfx.Committee[i].ID == member.ID {
				rfx.Committee[i] = member
				f.memberUpdates++
				return nil
			}
		}
	}
	return repository.ErrNotFound
}

func (f *fakeRfxRepo) UpdateRfxStatus(_ context.Context, rfxId string, status models.RfxStatus, updatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rfx, ok := f.items[rfxId]
	if !ok {
		return repository.ErrNotFound
	}
	rfx.Status = status
	rfx.UpdatedAt = updatedAt
	return nil
}

// put кладет готовый RFx в хранилище.
func (f *fakeRfxRepo) put(rfx *models.Rfx) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[rfx.ID] = cloneRfx(rfx)
}

type fakeUsers struct {
	known map[string]bool
}

func newFakeUsers(ids ...string) *fakeUsers {
	known := make(map[string]bool)
	for _, id := range ids {
		known[id] = true
	}
	return &fakeUsers{known: known}
}

func (f *fakeUsers) FindMissingUsers(_ context.Context, userIds []string) ([]string, error) {
	var missing []string
	for _, id := range userIds {
		if !f.known[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

type fakeBidRepo struct {
	mu      sync.Mutex
	bids    map[string]*models.SupplierBid
	reviews map[string][]models.BidReview
	created int
	failOn  error
}

func newFakeBidRepo() *fakeBidRepo {
	return &fakeBidRepo{
		bids:    make(map[string]*models.SupplierBid),
		reviews: make(map[string][]models.BidReview),
	}
}

func (f *fakeBidRepo) CreateBid(_ context.Context, bid *models.SupplierBid) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != nil {
		return f.failOn
	}
	c := *bid
	f.bids[bid.ID] = &c
	f.created++
	return nil
}

func (f *fakeBidRepo) GetBid(_ context.Context, rfxId, bidId string) (*models.SupplierBid, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bid, ok := f.bids[bidId]
	if !ok || bid.RfxID != rfxId {
		return nil, repository.ErrNotFound
	}
	c := *bid
	c.Reviews = append([]models.BidReview{}, f.reviews[bidId]...)
	return &c, nil
}

func (f *fakeBidRepo) ListRfxBids(_ context.Context, rfxId string, limit, offset int) ([]models.SupplierBid, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var list []models.SupplierBid
	for _, bid := range f.bids {
		if bid.RfxID == rfxId {
			list = append(list, *bid)
		}
	}
	if offset >= len(list) {
		return nil, nil
	}
	list = list[offset:]
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (f *fakeBidRepo) UpsertReview(_ context.Context, review models.BidReview) (*models.BidReview, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := f.reviews[review.BidID]
	for i := range rows {
		if rows[i].ReviewerID == review.ReviewerID {
			rows[i].Status = review.Status
			rows[i].Notes = review.Notes
			rows[i].UpdatedAt = review.UpdatedAt
			saved := rows[i]
			return &saved, false, nil
		}
	}
	f.reviews[review.BidID] = append(rows, review)
	return &review, true, nil
}

func (f *fakeBidRepo) UpdateEvaluationSummary(_ context.Context, bidId string, summary models.EvaluationSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	bid, ok := f.bids[bidId]
	if !ok {
		return repository.ErrNotFound
	}
	evaluatedAt := summary.EvaluatedAt
	evaluatedBy := summary.EvaluatedBy
	bid.EvaluationStatus = summary.Status
	bid.EvaluationNotes = summary.Notes
	bid.EvaluatedAt = &evaluatedAt
	bid.EvaluatedByUserID = &evaluatedBy
	return nil
}

func (f *fakeBidRepo) GetReview(_ context.Context, bidId, reviewerId string) (*models.BidReview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, review := range f.reviews[bidId] {
		if review.ReviewerID == reviewerId {
			r := review
			return &r, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeBidRepo) reviewCount(bidId string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reviews[bidId])
}

type fakeContractRepo struct {
	mu        sync.Mutex
	contracts map[string]*models.Contract
	// hideExisting имитирует гонку: проверка не видит чужой контракт, а вставка упирается в индекс.
	hideExisting bool
}

func newFakeContractRepo() *fakeContractRepo {
	return &fakeContractRepo{contracts: make(map[string]*models.Contract)}
}

func (f *fakeContractRepo) ContractExistsForBid(_ context.Context, bidId string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hideExisting {
		return false, nil
	}
	for _, c := range f.contracts {
		if c.BidID != nil && *c.BidID == bidId {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeContractRepo) CreateContract(_ context.Context, contract *models.Contract) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if contract.BidID != nil {
		for _, c := range f.contracts {
			if c.BidID != nil && *c.BidID == *contract.BidID {
				return uniqueViolation("insert contract", repository.ConstraintContractBid)
			}
		}
	}
	c := *contract
	f.contracts[contract.ID] = &c
	return nil
}

func (f *fakeContractRepo) GetContract(_ context.Context, contractId string) (*models.Contract, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contracts[contractId]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (f *fakeContractRepo) GetSupplierContractForUpdate(ctx context.Context, contractId, supplierId string) (*models.Contract, error) {
	c, err := f.GetContract(ctx, contractId)
	if err != nil {
		return nil, err
	}
	if c.SupplierID != supplierId {
		return nil, repository.ErrNotFound
	}
	return c, nil
}

func (f *fakeContractRepo) SignContract(_ context.Context, contractId, signature string, signedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contracts[contractId]
	if !ok || c.Status != models.DraftContract {
		return repository.ErrNotFound
	}
	c.SupplierSignature = &signature
	c.SignedAt = &signedAt
	c.Status = models.ActiveContract
	return nil
}

type fakeDocuments struct {
	objects   map[string][]byte
	failAt    int
	puts      int
	removed   []string
	removeErr error
}

func newFakeDocuments() *fakeDocuments {
	return &fakeDocuments{objects: make(map[string][]byte)}
}

func (f *fakeDocuments) PutDocument(_ context.Context, key, _ string, data []byte) (string, error) {
	f.puts++
	if f.failAt > 0 && f.puts == f.failAt {
		return "", errors.New("storage unavailable")
	}
	f.objects[key] = data
	return key, nil
}

func (f *fakeDocuments) RemoveDocument(_ context.Context, key string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	delete(f.objects, key)
	f.removed = append(f.removed, key)
	return nil
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }
