package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cryptodegen12/bitcoinfun-bot/internal/model"
	"github.com/cryptodegen12/bitcoinfun-bot/internal/repository"
)

// fakeAccountStore is an in-memory AccountStore with the same atomicity
// semantics as the Postgres repository. The error queues inject one transient
// store failure per entry, consumed before the mutation happens.
type fakeAccountStore struct {
	mu          sync.Mutex
	accounts    map[int64]*model.Account
	depositErrs []error
	creditErrs  []error
}

func newFakeAccountStore() *fakeAccountStore {
	return &fakeAccountStore{accounts: make(map[int64]*model.Account)}
}

func (f *fakeAccountStore) put(a *model.Account) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *a
	f.accounts[a.TelegramID] = &cp
}

func (f *fakeAccountStore) GetByID(_ context.Context, telegramID int64) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[telegramID]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAccountStore) CreateIfAbsent(_ context.Context, telegramID int64, username string, referredBy *int64) (*model.Account, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.accounts[telegramID]; ok {
		cp := *a
		return &cp, false, nil
	}
	now := time.Now()
	a := &model.Account{
		TelegramID: telegramID,
		Username:   username,
		ReferredBy: referredBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	f.accounts[telegramID] = a
	cp := *a
	return &cp, true, nil
}

func (f *fakeAccountStore) UpdateUsername(_ context.Context, telegramID int64, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[telegramID]
	if !ok {
		return repository.ErrAccountNotFound
	}
	a.Username = username
	return nil
}

func (f *fakeAccountStore) CreditBalance(_ context.Context, telegramID int64, amount int64) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.creditErrs) > 0 {
		err := f.creditErrs[0]
		f.creditErrs = f.creditErrs[1:]
		return nil, err
	}
	a, ok := f.accounts[telegramID]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	a.Balance += amount
	cp := *a
	return &cp, nil
}

func (f *fakeAccountStore) ApplyDeposit(_ context.Context, telegramID int64, amount int64) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.depositErrs) > 0 {
		err := f.depositErrs[0]
		f.depositErrs = f.depositErrs[1:]
		return nil, err
	}
	a, ok := f.accounts[telegramID]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	a.Balance += amount
	a.Deposited += amount
	cp := *a
	return &cp, nil
}

func (f *fakeAccountStore) ApplyWithdrawal(_ context.Context, telegramID int64, amount int64) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[telegramID]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	if a.Balance < amount || a.Deposited < amount {
		return nil, repository.ErrInsufficientFunds
	}
	a.Balance -= amount
	a.Deposited -= amount
	cp := *a
	return &cp, nil
}

func (f *fakeAccountStore) CreditReferral(_ context.Context, referrerID int64, bonus int64, boostUntil time.Time) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[referrerID]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	a.Balance += bonus
	a.ReferralCount++
	a.BoostUntil = &boostUntil
	cp := *a
	return &cp, nil
}

func (f *fakeAccountStore) MarkTradeStarted(_ context.Context, telegramID int64, at time.Time) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[telegramID]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	day := at.Truncate(24 * time.Hour)
	if a.TradeDay == nil || !a.TradeDay.Equal(day) {
		a.TradeDay = &day
		a.TradesToday = 0
	}
	a.TradesToday++
	t := at
	a.LastTradeAt = &t
	cp := *a
	return &cp, nil
}

func (f *fakeAccountStore) ListTradeReady(_ context.Context, minDeposit int64, cutoff time.Time, limit int) ([]*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Account
	for _, a := range f.accounts {
		if a.Deposited < minDeposit {
			continue
		}
		if a.LastTradeAt == nil || a.LastTradeAt.After(cutoff) {
			continue
		}
		cp := *a
		out = append(out, &cp)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// fakeApprovalStore mirrors the repository's conditional finalize.
type fakeApprovalStore struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*model.ApprovalRequest
}

func newFakeApprovalStore() *fakeApprovalStore {
	return &fakeApprovalStore{requests: make(map[uuid.UUID]*model.ApprovalRequest)}
}

func (f *fakeApprovalStore) Create(_ context.Context, kind model.RequestKind, userID, amount int64, address, proofFileID *string) (*model.ApprovalRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req := &model.ApprovalRequest{
		ID:          uuid.New(),
		Kind:        kind,
		UserID:      userID,
		Amount:      amount,
		Address:     address,
		ProofFileID: proofFileID,
		Status:      model.StatusPending,
		CreatedAt:   time.Now(),
	}
	f.requests[req.ID] = req
	cp := *req
	return &cp, nil
}

func (f *fakeApprovalStore) GetByID(_ context.Context, id uuid.UUID) (*model.ApprovalRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok {
		return nil, repository.ErrRequestNotFound
	}
	cp := *req
	return &cp, nil
}

func (f *fakeApprovalStore) Finalize(_ context.Context, id uuid.UUID, status model.RequestStatus, decidedBy int64, decidedAt time.Time) (*model.ApprovalRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok {
		return nil, repository.ErrRequestNotFound
	}
	if req.Status != model.StatusPending {
		return nil, repository.ErrRequestFinalized
	}
	req.Status = status
	req.DecidedBy = &decidedBy
	req.DecidedAt = &decidedAt
	cp := *req
	return &cp, nil
}

func (f *fakeApprovalStore) ListPending(_ context.Context, limit int) ([]*model.ApprovalRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.ApprovalRequest
	for _, req := range f.requests {
		if req.Status != model.StatusPending {
			continue
		}
		cp := *req
		out = append(out, &cp)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// fakeTradeStore is an append-only in-memory trade log.
type fakeTradeStore struct {
	mu     sync.Mutex
	trades []*model.Trade
}

func newFakeTradeStore() *fakeTradeStore {
	return &fakeTradeStore{}
}

func (f *fakeTradeStore) Append(_ context.Context, id uuid.UUID, userID int64, direction model.TradeDirection, profit, balanceAfter int64) (*model.Trade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &model.Trade{
		ID:           id,
		UserID:       userID,
		Direction:    direction,
		Profit:       profit,
		BalanceAfter: balanceAfter,
		CreatedAt:    time.Now(),
	}
	f.trades = append(f.trades, t)
	cp := *t
	return &cp, nil
}

func (f *fakeTradeStore) GetRecent(_ context.Context, userID int64, limit int) ([]*model.Trade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Trade
	for i := len(f.trades) - 1; i >= 0 && len(out) < limit; i-- {
		if f.trades[i].UserID != userID {
			continue
		}
		cp := *f.trades[i]
		out = append(out, &cp)
	}
	return out, nil
}

// fakeNotifier records outbound messages.
type fakeNotifier struct {
	mu          sync.Mutex
	userMsgs    map[int64][]string
	adminMsgs   []string
	approvalReq []*model.ApprovalRequest
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{userMsgs: make(map[int64][]string)}
}

func (f *fakeNotifier) SendToUser(userID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userMsgs[userID] = append(f.userMsgs[userID], text)
	return nil
}

func (f *fakeNotifier) SendApprovalRequest(req *model.ApprovalRequest, _ *model.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.approvalReq = append(f.approvalReq, req)
	return nil
}

func (f *fakeNotifier) SendToAdmin(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adminMsgs = append(f.adminMsgs, text)
	return nil
}

func (f *fakeNotifier) userMessages(userID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.userMsgs[userID]...)
}

func (f *fakeNotifier) adminMessages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.adminMsgs...)
}

func (f *fakeNotifier) approvalRequests() []*model.ApprovalRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*model.ApprovalRequest(nil), f.approvalReq...)
}

// fakeScheduler captures scheduled tasks for manual firing, mimicking the real
// scheduler's duplicate-key refusal.
type fakeScheduler struct {
	mu    sync.Mutex
	tasks map[string]func()
	order []string
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{tasks: make(map[string]func())}
}

func (f *fakeScheduler) ScheduleOnce(key string, _ time.Duration, task func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tasks[key]; ok {
		return
	}
	f.tasks[key] = task
	f.order = append(f.order, key)
}

// fire runs every scheduled task once, in scheduling order.
func (f *fakeScheduler) fire() {
	f.mu.Lock()
	keys := append([]string(nil), f.order...)
	tasks := make([]func(), 0, len(keys))
	for _, k := range keys {
		tasks = append(tasks, f.tasks[k])
	}
	f.tasks = make(map[string]func())
	f.order = nil
	f.mu.Unlock()

	for _, task := range tasks {
		task()
	}
}

func (f *fakeScheduler) pendingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}
