package exchange

import (
	"context"
	"sync"
	"testing"

	"github.com/KLLNR/trading-exchange-api/internal/apperrors"
	"github.com/KLLNR/trading-exchange-api/internal/models"
)

type fakeCatalog struct {
	mu       sync.Mutex
	products map[int64]models.Product
	calls    int
}

func (f *fakeCatalog) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	p, ok := f.products[id]
	if !ok {
		return nil, apperrors.NotFound("product %d not found", id)
	}
	return &p, nil
}

func (f *fakeCatalog) ListProductsByOwner(ctx context.Context, ownerID int64) ([]models.Product, error) {
	var out []models.Product
	for _, p := range f.products {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeUsers struct {
	mu           sync.Mutex
	users        map[int64]models.User
	addresses    map[int64]models.ShippingAddress
	addressCalls int
}

func (f *fakeUsers) GetUser(ctx context.Context, id int64) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperrors.NotFound("user %d not found", id)
	}
	return &u, nil
}

func (f *fakeUsers) GetShippingAddress(ctx context.Context, userID int64) (*models.ShippingAddress, error) {
	f.mu.Lock()
	f.addressCalls++
	f.mu.Unlock()

	a, ok := f.addresses[userID]
	if !ok {
		return nil, apperrors.NotFound("no address for user %d", userID)
	}
	return &a, nil
}

// newTestService wires a service over the in-memory store with two users:
// user 1 owns tradeable product 10 (and 11), user 2 owns tradeable products
// 20 and 30. Product 12 is user 1's sale listing, product 21 belongs to
// user 3.
func newTestService() (*Service, *MemoryStore, *fakeCatalog, *fakeUsers) {
	catalog := &fakeCatalog{products: map[int64]models.Product{
		10: {ID: 10, OwnerID: 1, Title: "Vinyl player", IsForTrade: true},
		11: {ID: 11, OwnerID: 1, Title: "Old lens", IsForTrade: true},
		12: {ID: 12, OwnerID: 1, Title: "Laptop", IsForTrade: true, IsForSale: true},
		20: {ID: 20, OwnerID: 2, Title: "Guitar", IsForTrade: true},
		21: {ID: 21, OwnerID: 3, Title: "Drone", IsForTrade: true},
		30: {ID: 30, OwnerID: 2, Title: "Film camera", IsForTrade: true},
	}}
	users := &fakeUsers{
		users: map[int64]models.User{
			1: {ID: 1, FirstName: "Olena", LastName: "Shevchenko"},
			2: {ID: 2, FirstName: "Marko", LastName: "Bondar"},
			3: {ID: 3, FirstName: "Iryna", LastName: "Tkachuk"},
		},
		addresses: map[int64]models.ShippingAddress{
			2: {Country: "UA", City: "Kyiv", Street: "Khreshchatyk 1", PostalCode: "01001", Phone: "+380000000002"},
		},
	}

	store := NewMemoryStore()
	gate := NewAddressGate(users, store, nil)
	return NewService(store, catalog, users, gate), store, catalog, users
}

func mustPropose(t *testing.T, svc *Service) *models.Proposal {
	t.Helper()
	p, err := svc.Propose(context.Background(), 1, 2, []int64{10}, []int64{20})
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	return p
}

func TestPropose(t *testing.T) {
	svc, _, _, _ := newTestService()

	p := mustPropose(t, svc)
	if p.ID == 0 {
		t.Error("proposal must get an ID")
	}
	if p.Status != string(StatusPending) {
		t.Errorf("status = %s, want PENDING", p.Status)
	}
	if p.FromUserID != 1 || p.ToUserID != 2 {
		t.Errorf("parties = %d/%d, want 1/2", p.FromUserID, p.ToUserID)
	}
}

func TestProposeValidation(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	cases := []struct {
		name     string
		from, to int64
		offer    []int64
		request  []int64
		wantKind apperrors.Kind
	}{
		{"self proposal", 1, 1, []int64{10}, []int64{20}, apperrors.KindValidation},
		{"empty offer", 1, 2, nil, []int64{20}, apperrors.KindValidation},
		{"empty request", 1, 2, []int64{10}, nil, apperrors.KindValidation},
		{"duplicate offer entry", 1, 2, []int64{10, 10}, []int64{20}, apperrors.KindValidation},
		{"offer not owned by proposer", 1, 2, []int64{21}, []int64{20}, apperrors.KindOwnership},
		{"offer is a sale listing", 1, 2, []int64{12}, []int64{20}, apperrors.KindOwnership},
		{"offer does not exist", 1, 2, []int64{99}, []int64{20}, apperrors.KindOwnership},
		{"request not owned by recipient", 1, 2, []int64{10}, []int64{21}, apperrors.KindOwnership},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Propose(ctx, tc.from, tc.to, tc.offer, tc.request)
			if !apperrors.Is(err, tc.wantKind) {
				t.Errorf("Propose = %v, want %s error", err, tc.wantKind)
			}
		})
	}
}

func TestAcceptRevealsAddress(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	p := mustPropose(t, svc)

	accepted, addr, err := svc.Accept(ctx, p.ID, 2)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if accepted.Status != string(StatusAccepted) {
		t.Errorf("status = %s, want ACCEPTED", accepted.Status)
	}
	if addr == nil || addr.City != "Kyiv" {
		t.Fatalf("address = %+v, want user 2's Kyiv address", addr)
	}
}

func TestAcceptAuthorization(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	p := mustPropose(t, svc)

	// Neither the proposer nor a stranger may accept.
	for _, actor := range []int64{1, 3} {
		if _, _, err := svc.Accept(ctx, p.ID, actor); !apperrors.Is(err, apperrors.KindAuthorization) {
			t.Errorf("Accept by user %d = %v, want authorization error", actor, err)
		}
	}
}

func TestAcceptIdempotent(t *testing.T) {
	svc, _, _, users := newTestService()
	ctx := context.Background()

	p := mustPropose(t, svc)

	_, first, err := svc.Accept(ctx, p.ID, 2)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}

	// The profile address changes after acceptance; the snapshot must not.
	users.addresses[2] = models.ShippingAddress{Country: "UA", City: "Odesa", Street: "Derybasivska 3", PostalCode: "65000", Phone: "+380000000003"}

	_, second, err := svc.Accept(ctx, p.ID, 2)
	if err != nil {
		t.Fatalf("repeated Accept: %v", err)
	}
	if *second != *first {
		t.Errorf("repeated Accept returned %+v, want the original snapshot %+v", second, first)
	}
	if users.addressCalls != 1 {
		t.Errorf("directory address calls = %d, want 1 (snapshot reused)", users.addressCalls)
	}
}

func TestRejectAndCancelAuthorization(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	p := mustPropose(t, svc)

	if _, err := svc.Reject(ctx, p.ID, 1); !apperrors.Is(err, apperrors.KindAuthorization) {
		t.Errorf("Reject by proposer = %v, want authorization error", err)
	}
	if _, err := svc.Cancel(ctx, p.ID, 2); !apperrors.Is(err, apperrors.KindAuthorization) {
		t.Errorf("Cancel by recipient = %v, want authorization error", err)
	}

	canceled, err := svc.Cancel(ctx, p.ID, 1)
	if err != nil {
		t.Fatalf("Cancel by proposer: %v", err)
	}
	if canceled.Status != string(StatusCanceled) {
		t.Errorf("status = %s, want CANCELED", canceled.Status)
	}
}

func TestTerminalImmutability(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	p := mustPropose(t, svc)
	if _, err := svc.Reject(ctx, p.ID, 2); err != nil {
		t.Fatalf("Reject: %v", err)
	}

	if _, _, err := svc.Accept(ctx, p.ID, 2); !apperrors.Is(err, apperrors.KindInvalidState) {
		t.Errorf("Accept after reject = %v, want invalid-state error", err)
	}
	if _, err := svc.Cancel(ctx, p.ID, 1); !apperrors.Is(err, apperrors.KindInvalidState) {
		t.Errorf("Cancel after reject = %v, want invalid-state error", err)
	}
	if _, err := svc.Counter(ctx, p.ID, 2, []int64{30}); !apperrors.Is(err, apperrors.KindInvalidState) {
		t.Errorf("Counter after reject = %v, want invalid-state error", err)
	}

	got, err := svc.Get(ctx, p.ID, 2)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != string(StatusRejected) {
		t.Errorf("status = %s, want REJECTED to stick", got.Status)
	}
}

func TestCounterRoleReversal(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	p := mustPropose(t, svc)

	counter, err := svc.Counter(ctx, p.ID, 2, []int64{30})
	if err != nil {
		t.Fatalf("Counter: %v", err)
	}
	if counter.FromUserID != 2 || counter.ToUserID != 1 {
		t.Errorf("counter parties = %d/%d, want 2/1", counter.FromUserID, counter.ToUserID)
	}
	if len(counter.ProductFromID) != 1 || counter.ProductFromID[0] != 30 {
		t.Errorf("counter offer = %v, want [30]", counter.ProductFromID)
	}
	if len(counter.ProductToID) != 1 || counter.ProductToID[0] != 10 {
		t.Errorf("counter request = %v, want the original offer [10]", counter.ProductToID)
	}
	if counter.Status != string(StatusPending) {
		t.Errorf("counter status = %s, want PENDING", counter.Status)
	}

	original, err := svc.Get(ctx, p.ID, 1)
	if err != nil {
		t.Fatalf("Get original: %v", err)
	}
	if original.Status != string(StatusRejected) {
		t.Errorf("original status = %s, want REJECTED", original.Status)
	}
}

func TestCounterValidation(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	p := mustPropose(t, svc)

	if _, err := svc.Counter(ctx, p.ID, 1, []int64{11}); !apperrors.Is(err, apperrors.KindAuthorization) {
		t.Errorf("Counter by proposer = %v, want authorization error", err)
	}
	if _, err := svc.Counter(ctx, p.ID, 2, nil); !apperrors.Is(err, apperrors.KindValidation) {
		t.Errorf("Counter with empty offer = %v, want validation error", err)
	}
	if _, err := svc.Counter(ctx, p.ID, 2, []int64{10}); !apperrors.Is(err, apperrors.KindOwnership) {
		t.Errorf("Counter with other party's product = %v, want ownership error", err)
	}
}

func TestConcurrentResolution(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	p := mustPropose(t, svc)

	// Recipient accepts while the proposer cancels. Exactly one must win.
	var wg sync.WaitGroup
	var acceptErr, cancelErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _, acceptErr = svc.Accept(ctx, p.ID, 2)
	}()
	go func() {
		defer wg.Done()
		_, cancelErr = svc.Cancel(ctx, p.ID, 1)
	}()
	wg.Wait()

	wins := 0
	for _, err := range []error{acceptErr, cancelErr} {
		if err == nil {
			wins++
			continue
		}
		kind := apperrors.KindOf(err)
		if kind != apperrors.KindConflict && kind != apperrors.KindInvalidState {
			t.Errorf("loser got %v, want conflict or invalid-state error", err)
		}
	}
	if wins != 1 {
		t.Errorf("winners = %d, want exactly 1", wins)
	}

	final, err := svc.Get(ctx, p.ID, 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if acceptErr == nil && final.Status != string(StatusAccepted) {
		t.Errorf("accept won but status = %s", final.Status)
	}
	if cancelErr == nil && final.Status != string(StatusCanceled) {
		t.Errorf("cancel won but status = %s", final.Status)
	}
}

func TestGetAuthorization(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	p := mustPropose(t, svc)

	for _, actor := range []int64{1, 2} {
		if _, err := svc.Get(ctx, p.ID, actor); err != nil {
			t.Errorf("Get by party %d: %v", actor, err)
		}
	}
	if _, err := svc.Get(ctx, p.ID, 3); !apperrors.Is(err, apperrors.KindAuthorization) {
		t.Errorf("Get by stranger = %v, want authorization error", err)
	}
	if _, err := svc.Get(ctx, 999, 1); !apperrors.Is(err, apperrors.KindNotFound) {
		t.Errorf("Get missing = %v, want not-found error", err)
	}
}

func TestListDecoratesAndBatches(t *testing.T) {
	svc, _, catalog, _ := newTestService()
	ctx := context.Background()

	// Two outgoing proposals sharing product 10 on the offering side.
	if _, err := svc.Propose(ctx, 1, 2, []int64{10}, []int64{20}); err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if _, err := svc.Propose(ctx, 1, 3, []int64{10}, []int64{21}); err != nil {
		t.Fatalf("Propose: %v", err)
	}

	catalog.calls = 0
	page, err := svc.List(ctx, 1, DirectionOutgoing, 0, 10, SortNewestFirst)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Content) != 2 {
		t.Fatalf("content len = %d, want 2", len(page.Content))
	}
	if page.TotalPages != 1 {
		t.Errorf("totalPages = %d, want 1", page.TotalPages)
	}

	// Product 10 appears in both rows but is resolved once: distinct
	// products are 10, 20, 21.
	if catalog.calls != 3 {
		t.Errorf("catalog calls = %d, want 3 (batched per distinct product)", catalog.calls)
	}

	view := page.Content[0]
	if view.FromUser == nil || view.FromUser.FirstName != "Olena" {
		t.Errorf("fromUser = %+v, want Olena", view.FromUser)
	}
	if len(view.ProductFromTitles) != 1 || view.ProductFromTitles[0] != "Vinyl player" {
		t.Errorf("productFromTitles = %v, want [Vinyl player]", view.ProductFromTitles)
	}
}

func TestListPagination(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := svc.Propose(ctx, 2, 1, []int64{20}, []int64{10}); err != nil {
			t.Fatalf("Propose %d: %v", i, err)
		}
	}

	page, err := svc.List(ctx, 1, DirectionIncoming, 0, 2, SortNewestFirst)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.TotalPages != 3 {
		t.Errorf("totalPages = %d, want 3", page.TotalPages)
	}
	if len(page.Content) != 2 {
		t.Errorf("content len = %d, want 2", len(page.Content))
	}

	last, err := svc.List(ctx, 1, DirectionIncoming, 2, 2, SortNewestFirst)
	if err != nil {
		t.Fatalf("List last page: %v", err)
	}
	if len(last.Content) != 1 {
		t.Errorf("last page len = %d, want 1", len(last.Content))
	}
}
