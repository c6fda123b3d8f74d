package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sekolahpay/ledger-service/internal/domain"
	"github.com/sekolahpay/ledger-service/internal/store"
)

type paymentServiceRepoStub struct {
	store.Repository

	feeTypes map[uuid.UUID]*domain.FeeType
	accounts map[uuid.UUID]*domain.Account
	payments map[uuid.UUID]*domain.Payment

	referencedFeeTypes map[uuid.UUID]bool

	createCalled   bool
	createdPayment *domain.Payment
	createdItems   []domain.PaymentLineItem

	replaceCalled   bool
	replacedPayment *domain.Payment
	replacedItems   []domain.PaymentLineItem
}

func (s *paymentServiceRepoStub) FindFeeTypeByID(ctx context.Context, feeTypeID uuid.UUID) (*domain.FeeType, error) {
	ft, ok := s.feeTypes[feeTypeID]
	if !ok {
		return nil, store.ErrFeeTypeNotFound
	}
	return ft, nil
}

func (s *paymentServiceRepoStub) FeeTypeReferenced(ctx context.Context, feeTypeID uuid.UUID) (bool, error) {
	return s.referencedFeeTypes[feeTypeID], nil
}

func (s *paymentServiceRepoStub) FindAccountByID(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	account, ok := s.accounts[accountID]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	return account, nil
}

func (s *paymentServiceRepoStub) CreatePaymentWithItems(ctx context.Context, p *domain.Payment, items []domain.PaymentLineItem) error {
	s.createCalled = true
	s.createdPayment = p
	s.createdItems = items
	stored := *p
	stored.Items = items
	s.payments[p.ID] = &stored
	return nil
}

func (s *paymentServiceRepoStub) ReplacePaymentWithItems(ctx context.Context, p *domain.Payment, items []domain.PaymentLineItem) error {
	s.replaceCalled = true
	s.replacedPayment = p
	s.replacedItems = items
	stored := *p
	stored.Items = items
	s.payments[p.ID] = &stored
	return nil
}

func (s *paymentServiceRepoStub) FindPaymentByID(ctx context.Context, paymentID uuid.UUID) (*domain.Payment, error) {
	p, ok := s.payments[paymentID]
	if !ok {
		return nil, store.ErrPaymentNotFound
	}
	copied := *p
	return &copied, nil
}

func (s *paymentServiceRepoStub) ListPayments(ctx context.Context, filter domain.ReportFilter) ([]domain.Payment, error) {
	out := make([]domain.Payment, 0, len(s.payments))
	for _, p := range s.payments {
		out = append(out, *p)
	}
	return out, nil
}

type studentResolverStub struct {
	profiles   map[uuid.UUID]domain.StudentProfile
	getErr     error
	lookupErr  error
	lookupIDs  []uuid.UUID
	getCalled  bool
	lookupHits int
}

func (s *studentResolverStub) GetStudent(ctx context.Context, studentID uuid.UUID) (*domain.StudentProfile, error) {
	s.getCalled = true
	if s.getErr != nil {
		return nil, s.getErr
	}
	profile, ok := s.profiles[studentID]
	if !ok {
		return nil, errors.New("student not found")
	}
	return &profile, nil
}

func (s *studentResolverStub) LookupStudents(ctx context.Context, studentIDs []uuid.UUID) (map[uuid.UUID]domain.StudentProfile, error) {
	s.lookupHits++
	s.lookupIDs = studentIDs
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	out := make(map[uuid.UUID]domain.StudentProfile, len(studentIDs))
	for _, id := range studentIDs {
		if profile, ok := s.profiles[id]; ok {
			out[id] = profile
		}
	}
	return out, nil
}

func newServiceRepoStub() *paymentServiceRepoStub {
	return &paymentServiceRepoStub{
		feeTypes:           make(map[uuid.UUID]*domain.FeeType),
		accounts:           make(map[uuid.UUID]*domain.Account),
		payments:           make(map[uuid.UUID]*domain.Payment),
		referencedFeeTypes: make(map[uuid.UUID]bool),
	}
}

func (s *paymentServiceRepoStub) addFeeType(code string, active bool) uuid.UUID {
	id := uuid.New()
	s.feeTypes[id] = &domain.FeeType{ID: id, Code: code, Name: code, Active: active}
	return id
}

func (s *paymentServiceRepoStub) addAccount() uuid.UUID {
	id := uuid.New()
	s.accounts[id] = &domain.Account{ID: id, BankName: "BCA", HolderName: "Yayasan", AccountNumber: "1234567890"}
	return id
}

func TestCreatePayment_DerivesTotalFromLineAmounts(t *testing.T) {
	repo := newServiceRepoStub()
	sppID := repo.addFeeType("SPP", true)
	booksID := repo.addFeeType("BOOKS", true)
	accountID := repo.addAccount()
	service := NewService(repo, nil, nil)

	payment, err := service.CreatePayment(context.Background(), domain.CreatePaymentInput{
		StudentID:   uuid.New(),
		AccountID:   accountID,
		PaymentDate: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		Items: []domain.NewLineItem{
			{FeeTypeID: sppID, Amount: 200000},
			{FeeTypeID: booksID, Amount: 500000},
		},
	})
	if err != nil {
		t.Fatalf("CreatePayment returned error: %v", err)
	}
	if !repo.createCalled {
		t.Fatal("expected payment to be persisted")
	}
	if payment.Total != 700000 {
		t.Fatalf("expected derived total 700000, got %d", payment.Total)
	}
	if payment.Status != domain.StatusPending {
		t.Fatalf("expected new payment to start pending, got %s", payment.Status)
	}
	if len(repo.createdItems) != 2 {
		t.Fatalf("expected 2 line items persisted, got %d", len(repo.createdItems))
	}
}

func TestCreatePayment_RejectsEmptyLineItems(t *testing.T) {
	repo := newServiceRepoStub()
	accountID := repo.addAccount()
	service := NewService(repo, nil, nil)

	_, err := service.CreatePayment(context.Background(), domain.CreatePaymentInput{
		StudentID:   uuid.New(),
		AccountID:   accountID,
		PaymentDate: time.Now(),
		Items:       nil,
	})
	var validationErr *domain.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError for empty items, got %v", err)
	}
	if validationErr.Field != "items" {
		t.Fatalf("expected items field in validation error, got %q", validationErr.Field)
	}
	if repo.createCalled {
		t.Fatal("did not expect persistence for an invalid submission")
	}
}

func TestCreatePayment_RejectsNonPositiveAmount(t *testing.T) {
	repo := newServiceRepoStub()
	sppID := repo.addFeeType("SPP", true)
	accountID := repo.addAccount()
	service := NewService(repo, nil, nil)

	_, err := service.CreatePayment(context.Background(), domain.CreatePaymentInput{
		StudentID:   uuid.New(),
		AccountID:   accountID,
		PaymentDate: time.Now(),
		Items:       []domain.NewLineItem{{FeeTypeID: sppID, Amount: 0}},
	})
	var validationErr *domain.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError for zero amount, got %v", err)
	}
	if !strings.Contains(validationErr.Field, "amount") {
		t.Fatalf("expected amount field in validation error, got %q", validationErr.Field)
	}
}

func TestCreatePayment_RejectsInactiveUnusedFeeType(t *testing.T) {
	repo := newServiceRepoStub()
	retiredID := repo.addFeeType("OLD", false)
	accountID := repo.addAccount()
	service := NewService(repo, nil, nil)

	_, err := service.CreatePayment(context.Background(), domain.CreatePaymentInput{
		StudentID:   uuid.New(),
		AccountID:   accountID,
		PaymentDate: time.Now(),
		Items:       []domain.NewLineItem{{FeeTypeID: retiredID, Amount: 1000}},
	})
	var validationErr *domain.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError for inactive unused fee type, got %v", err)
	}
}

func TestCreatePayment_AllowsInactiveFeeTypeWithPriorUsage(t *testing.T) {
	repo := newServiceRepoStub()
	retiredID := repo.addFeeType("OLD", false)
	repo.referencedFeeTypes[retiredID] = true
	accountID := repo.addAccount()
	service := NewService(repo, nil, nil)

	_, err := service.CreatePayment(context.Background(), domain.CreatePaymentInput{
		StudentID:   uuid.New(),
		AccountID:   accountID,
		PaymentDate: time.Now(),
		Items:       []domain.NewLineItem{{FeeTypeID: retiredID, Amount: 1000}},
	})
	if err != nil {
		t.Fatalf("expected previously-used inactive fee type to be accepted, got %v", err)
	}
}

func TestUpdatePayment_ReplacesItemsAndRecomputesTotal(t *testing.T) {
	repo := newServiceRepoStub()
	sppID := repo.addFeeType("SPP", true)
	accountID := repo.addAccount()
	service := NewService(repo, nil, nil)

	paymentID := uuid.New()
	repo.payments[paymentID] = &domain.Payment{
		ID: paymentID, StudentID: uuid.New(), AccountID: accountID,
		Status: domain.StatusPending, Total: 100000,
	}

	payment, err := service.UpdatePayment(context.Background(), paymentID, uuid.New(), domain.UpdatePaymentInput{
		StudentID:   repo.payments[paymentID].StudentID,
		AccountID:   accountID,
		PaymentDate: time.Now(),
		Items: []domain.NewLineItem{
			{FeeTypeID: sppID, Amount: 150000},
			{FeeTypeID: sppID, Amount: 50000},
		},
	})
	if err != nil {
		t.Fatalf("UpdatePayment returned error: %v", err)
	}
	if !repo.replaceCalled {
		t.Fatal("expected the line-item set to be replaced")
	}
	if payment.Total != 200000 {
		t.Fatalf("expected recomputed total 200000, got %d", payment.Total)
	}
	if len(repo.replacedItems) != 2 {
		t.Fatalf("expected 2 replacement items, got %d", len(repo.replacedItems))
	}
}

func TestUpdatePayment_ApproveDuringEditStampsValidator(t *testing.T) {
	repo := newServiceRepoStub()
	sppID := repo.addFeeType("SPP", true)
	accountID := repo.addAccount()
	service := NewService(repo, nil, nil)

	stamped := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return stamped }

	paymentID := uuid.New()
	repo.payments[paymentID] = &domain.Payment{
		ID: paymentID, StudentID: uuid.New(), AccountID: accountID,
		Status: domain.StatusPending,
	}

	actorID := uuid.New()
	approved := domain.StatusApproved
	payment, err := service.UpdatePayment(context.Background(), paymentID, actorID, domain.UpdatePaymentInput{
		StudentID:   repo.payments[paymentID].StudentID,
		AccountID:   accountID,
		PaymentDate: time.Now(),
		Status:      &approved,
		Items:       []domain.NewLineItem{{FeeTypeID: sppID, Amount: 75000}},
	})
	if err != nil {
		t.Fatalf("UpdatePayment returned error: %v", err)
	}
	if payment.Status != domain.StatusApproved {
		t.Fatalf("expected approved status, got %s", payment.Status)
	}
	if payment.ValidatorID == nil || *payment.ValidatorID != actorID {
		t.Fatalf("expected validator stamped with acting staff member, got %v", payment.ValidatorID)
	}
	if payment.ValidatedAt == nil || !payment.ValidatedAt.Equal(stamped) {
		t.Fatalf("expected validation timestamp %v, got %v", stamped, payment.ValidatedAt)
	}
}

func TestGetPayment_DegradesWhenStudentResolutionFails(t *testing.T) {
	repo := newServiceRepoStub()
	accountID := repo.addAccount()
	resolver := &studentResolverStub{getErr: errors.New("identity service down")}
	service := NewService(repo, resolver, nil)

	paymentID := uuid.New()
	repo.payments[paymentID] = &domain.Payment{
		ID: paymentID, StudentID: uuid.New(), AccountID: accountID,
		Status: domain.StatusPending, Total: 50000,
	}

	payment, err := service.GetPayment(context.Background(), paymentID)
	if err != nil {
		t.Fatalf("expected read to succeed despite resolution failure, got %v", err)
	}
	if !resolver.getCalled {
		t.Fatal("expected a resolution attempt")
	}
	if payment.Student != nil {
		t.Fatal("expected unresolved student reference")
	}
}

func TestListPayments_ResolvesStudentsInOneBatch(t *testing.T) {
	repo := newServiceRepoStub()
	accountID := repo.addAccount()

	studentID := uuid.New()
	resolver := &studentResolverStub{
		profiles: map[uuid.UUID]domain.StudentProfile{
			studentID: {ID: studentID, Name: "Aisyah", ClassLabel: "7A"},
		},
	}
	service := NewService(repo, resolver, nil)

	for i := 0; i < 3; i++ {
		id := uuid.New()
		repo.payments[id] = &domain.Payment{
			ID: id, StudentID: studentID, AccountID: accountID,
			Status: domain.StatusApproved, Total: 10000,
		}
	}

	payments, err := service.ListPayments(context.Background(), domain.ReportFilter{})
	if err != nil {
		t.Fatalf("ListPayments returned error: %v", err)
	}
	if resolver.lookupHits != 1 {
		t.Fatalf("expected one batched lookup, got %d", resolver.lookupHits)
	}
	if len(resolver.lookupIDs) != 1 {
		t.Fatalf("expected deduplicated student ids, got %d", len(resolver.lookupIDs))
	}
	for _, p := range payments {
		if p.Student == nil || p.Student.Name != "Aisyah" {
			t.Fatalf("expected resolved student on every row, got %+v", p.Student)
		}
	}
}
