package flow

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	coreconfig "github.com/mochiserver/mochibot/core/config"
	"github.com/mochiserver/mochibot/core/telegram/state"
	"github.com/mochiserver/mochibot/internal/config"
	"github.com/mochiserver/mochibot/internal/ledger"
)

const (
	adminID   = int64(900)
	supportID = int64(901)
)

type fakeNotifier struct {
	mu        sync.Mutex
	user      map[int64][]Outbound
	admin     []Outbound
	nextMsgID int
	adminErr  error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{user: make(map[int64][]Outbound), nextMsgID: 1000}
}

func (f *fakeNotifier) SendUser(_ context.Context, userID int64, out Outbound) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.user[userID] = append(f.user[userID], out)
	return nil
}

func (f *fakeNotifier) SendAdmin(_ context.Context, out Outbound) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.adminErr; err != nil {
		f.adminErr = nil
		return 0, err
	}
	f.admin = append(f.admin, out)
	f.nextMsgID++
	return f.nextMsgID, nil
}

func (f *fakeNotifier) lastUser(userID int64) (Outbound, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.user[userID]
	if len(msgs) == 0 {
		return Outbound{}, false
	}
	return msgs[len(msgs)-1], true
}

func (f *fakeNotifier) lastAdmin() (Outbound, int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.admin) == 0 {
		return Outbound{}, 0, false
	}
	return f.admin[len(f.admin)-1], f.nextMsgID, true
}

func testConfig() *config.Config {
	return &config.Config{
		Core: coreconfig.Config{
			Telegram: coreconfig.TelegramConfig{Token: "t", RunMode: coreconfig.RunModeLongpoll},
		},
		Access: config.AccessConfig{
			AdminIDs:  []int64{adminID},
			SupportID: supportID,
		},
		Shop: config.ShopConfig{
			ReferralBonus: 40000,
			Tiers: []config.Tier{
				{Key: "at_alone", Title: "single", Group: "alone", Price: 150000},
				{Key: "at_small", Title: "small", Group: "alone", Price: 60000},
			},
		},
	}
}

func newTestRouter() (*Router, *ledger.MemoryStore, state.Manager, *fakeNotifier) {
	store := ledger.NewMemoryStore()
	sessions := state.NewMemoryManager()
	notify := newFakeNotifier()
	return NewRouter(testConfig(), store, sessions, notify), store, sessions, notify
}

func TestStartCreditsReferralOnce(t *testing.T) {
	ctx := context.Background()
	r, store, _, notify := newTestRouter()
	u := Identity{ID: 1, Username: "u", FirstName: "F"}

	for i := 0; i < 3; i++ {
		if err := r.Start(ctx, u, 1, "555"); err != nil {
			t.Fatalf("Start #%d: %v", i, err)
		}
	}

	balance, _ := store.GetBalance(ctx, 1)
	if balance != 40000 {
		t.Fatalf("balance = %d, want one-time bonus 40000", balance)
	}
	if out, ok := notify.lastUser(1); !ok || out.Screen != ScreenHome {
		t.Fatalf("Start should end on home screen, got %+v", out)
	}
}

func TestStartWithoutReferral(t *testing.T) {
	ctx := context.Background()
	r, store, _, _ := newTestRouter()

	if err := r.Start(ctx, Identity{ID: 1}, 1, ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	balance, _ := store.GetBalance(ctx, 1)
	if balance != 0 {
		t.Fatalf("balance = %d, want 0 without token", balance)
	}
}

func TestWalletPaymentInsufficientFundsRetryable(t *testing.T) {
	ctx := context.Background()
	r, store, sessions, notify := newTestRouter()
	u := Identity{ID: 1}
	if _, err := store.EnsureUser(ctx, 1, "", "", ""); err != nil {
		t.Fatal(err)
	}
	if err := store.CreditReferral(ctx, 1, 10000); err != nil {
		t.Fatal(err)
	}

	if err := r.SelectMenu(ctx, u, 1, SelTier, "at_alone"); err != nil {
		t.Fatalf("SelectMenu tier: %v", err)
	}

	for i := 0; i < 2; i++ {
		err := r.SelectMenu(ctx, u, 1, SelWallet, "")
		if !errors.Is(err, ledger.ErrInsufficientBalance) {
			t.Fatalf("attempt %d: err = %v, want ErrInsufficientBalance", i, err)
		}
		balance, _ := store.GetBalance(ctx, 1)
		if balance != 10000 {
			t.Fatalf("attempt %d: balance = %d, want untouched 10000", i, balance)
		}
		if sessions.InProgress(1, 1) {
			t.Fatalf("attempt %d: failed payment must not transition state", i)
		}
		out, _ := notify.lastUser(1)
		if out.Notice != NoticeInsufficientFunds {
			t.Fatalf("attempt %d: notice = %q", i, out.Notice)
		}
	}
}

func TestWalletPaymentSuccess(t *testing.T) {
	ctx := context.Background()
	r, store, sessions, notify := newTestRouter()
	u := Identity{ID: 1, FirstName: "F", Username: "u"}
	if _, err := store.EnsureUser(ctx, 1, "u", "F", ""); err != nil {
		t.Fatal(err)
	}
	if err := store.CreditReferral(ctx, 1, 100000); err != nil {
		t.Fatal(err)
	}

	if err := r.SelectMenu(ctx, u, 1, SelTier, "at_small"); err != nil {
		t.Fatalf("SelectMenu tier: %v", err)
	}
	if err := r.SelectMenu(ctx, u, 1, SelWallet, ""); err != nil {
		t.Fatalf("SelectMenu wallet: %v", err)
	}

	balance, _ := store.GetBalance(ctx, 1)
	if balance != 40000 {
		t.Fatalf("balance = %d, want 40000 after debit", balance)
	}
	out, _ := notify.lastUser(1)
	if out.Notice != NoticePaymentAccepted {
		t.Fatalf("user notice = %q", out.Notice)
	}
	rel, _, ok := notify.lastAdmin()
	if !ok || rel.Relay == nil {
		t.Fatal("wallet payment should relay to support")
	}
	if rel.Relay.Amount != 60000 || rel.Relay.Link.UserID != 1 {
		t.Fatalf("unexpected relay: %+v", rel.Relay)
	}
	if !sessions.InProgress(1, 1) {
		t.Fatal("paid order should await the config answer")
	}

	// A second wallet press without a new tier selection must not debit.
	if err := r.SelectMenu(ctx, u, 1, SelWallet, ""); err != nil {
		t.Fatalf("repeat wallet: %v", err)
	}
	balance, _ = store.GetBalance(ctx, 1)
	if balance != 40000 {
		t.Fatalf("repeat wallet press debited again: balance %d", balance)
	}
	out, _ = notify.lastUser(1)
	if out.Notice != NoticeNoTierSelected {
		t.Fatalf("repeat wallet notice = %q", out.Notice)
	}
}

func TestTestConfigSingleUse(t *testing.T) {
	ctx := context.Background()
	r, store, _, notify := newTestRouter()
	u := Identity{ID: 1}
	if _, err := store.EnsureUser(ctx, 1, "", "", ""); err != nil {
		t.Fatal(err)
	}

	if err := r.SelectMenu(ctx, u, 1, SelRequestTest, ""); err != nil {
		t.Fatalf("first request: %v", err)
	}
	out, _ := notify.lastUser(1)
	if out.Notice != NoticeTestRequested {
		t.Fatalf("first request notice = %q", out.Notice)
	}
	rel, _, ok := notify.lastAdmin()
	if !ok || rel.Relay == nil || rel.Relay.Link.Tag != "test_config" {
		t.Fatalf("first request should relay a test_config link, got %+v", rel.Relay)
	}

	err := r.SelectMenu(ctx, u, 1, SelRequestTest, "")
	if !errors.Is(err, ledger.ErrTestConfigUsed) {
		t.Fatalf("second request err = %v, want ErrTestConfigUsed", err)
	}
	out, _ = notify.lastUser(1)
	if out.Notice != NoticeTestAlreadyUsed {
		t.Fatalf("second request notice = %q", out.Notice)
	}
}

func TestTestConfigRequestProvisionsUnknownUser(t *testing.T) {
	ctx := context.Background()
	r, store, _, notify := newTestRouter()

	// No /start happened for this id; the request must still go through.
	if err := r.SelectMenu(ctx, Identity{ID: 3, FirstName: "N"}, 3, SelRequestTest, ""); err != nil {
		t.Fatalf("request without account: %v", err)
	}
	out, _ := notify.lastUser(3)
	if out.Notice != NoticeTestRequested {
		t.Fatalf("notice = %q", out.Notice)
	}
	rel, _, ok := notify.lastAdmin()
	if !ok || rel.Relay == nil || rel.Relay.Link.UserID != 3 {
		t.Fatalf("request should relay to support, got %+v", rel.Relay)
	}
	acc, err := store.GetUser(ctx, 3)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if !acc.TestConfigUsed {
		t.Fatal("claim should flip the flag on the provisioned account")
	}
}

func TestReceiptRetryAfterRelayFailure(t *testing.T) {
	ctx := context.Background()
	r, store, sessions, notify := newTestRouter()
	u := Identity{ID: 7, FirstName: "Sam"}
	if _, err := store.EnsureUser(ctx, 7, "", "Sam", ""); err != nil {
		t.Fatal(err)
	}

	if err := r.SelectMenu(ctx, u, 7, SelReceipt, ""); err != nil {
		t.Fatalf("SelectMenu receipt: %v", err)
	}
	notify.adminErr = errors.New("support unreachable")
	if err := r.SubmitPhoto(ctx, u, 7, "photo-file-id", "paid", 0); err == nil {
		t.Fatal("failed relay should surface an error")
	}
	out, _ := notify.lastUser(7)
	if out.Notice != NoticeRelayFailed {
		t.Fatalf("notice after failure = %q", out.Notice)
	}

	// Pressing the receipt button again resends the stored submission.
	if err := r.SelectMenu(ctx, u, 7, SelReceipt, ""); err != nil {
		t.Fatalf("retry: %v", err)
	}
	rel, _, ok := notify.lastAdmin()
	if !ok || rel.Relay == nil || rel.Relay.Payload.PhotoRef != "photo-file-id" {
		t.Fatalf("retry did not relay the original submission: %+v", rel.Relay)
	}
	out, _ = notify.lastUser(7)
	if out.Notice != NoticeRelayed {
		t.Fatalf("notice after retry = %q", out.Notice)
	}
	if sessions.InProgress(7, 7) {
		t.Fatal("successful retry should complete the flow")
	}
	if _, ok := r.pending.ConsumePayload(7); ok {
		t.Fatal("relayed payload must not linger")
	}
}

func TestSessionExclusivity(t *testing.T) {
	ctx := context.Background()
	r, store, sessions, _ := newTestRouter()
	if _, err := store.EnsureUser(ctx, 5, "", "", ""); err != nil {
		t.Fatal(err)
	}

	admin := Identity{ID: adminID}
	if err := r.AdminEditUser(ctx, admin, 10, 5); err != nil {
		t.Fatalf("AdminEditUser: %v", err)
	}

	if got := sessions.GetState(adminID, 10); got != StateAwaitEditPayload {
		t.Fatalf("admin state = %q", got)
	}
	if got := sessions.GetState(5, 5); got != state.Idle {
		t.Fatalf("bystander state = %q, want idle", got)
	}
}

func TestRelayRoundTrip(t *testing.T) {
	ctx := context.Background()
	r, store, sessions, notify := newTestRouter()
	u := Identity{ID: 7, FirstName: "Sam", Username: "sam"}
	if _, err := store.EnsureUser(ctx, 7, "sam", "Sam", ""); err != nil {
		t.Fatal(err)
	}

	// User enters the receipt flow and submits a photo.
	if err := r.SelectMenu(ctx, u, 7, SelReceipt, ""); err != nil {
		t.Fatalf("SelectMenu receipt: %v", err)
	}
	if err := r.SubmitPhoto(ctx, u, 7, "photo-file-id", "paid 150000", 0); err != nil {
		t.Fatalf("SubmitPhoto: %v", err)
	}
	rel, relayMsgID, ok := notify.lastAdmin()
	if !ok || rel.Relay == nil {
		t.Fatal("photo submission should relay to support")
	}
	if rel.Relay.Link.UserID != 7 || rel.Relay.Payload.PhotoRef != "photo-file-id" {
		t.Fatalf("unexpected relay: %+v", rel.Relay)
	}
	if sessions.InProgress(7, 7) {
		t.Fatal("receipt flow should complete on submission")
	}

	// Operator answers the relayed message.
	admin := Identity{ID: adminID}
	if err := r.SelectMenu(ctx, admin, supportID, SelAnswer, itoa(relayMsgID)); err != nil {
		t.Fatalf("SelectMenu answer: %v", err)
	}
	prompt, promptID, _ := notify.lastAdmin()
	if prompt.Notice != NoticeAnswerPrompt || !prompt.ForceReply || prompt.TargetID != 7 {
		t.Fatalf("unexpected answer prompt: %+v", prompt)
	}

	if err := r.SubmitText(ctx, admin, supportID, "vless://config", promptID); err != nil {
		t.Fatalf("SubmitText answer: %v", err)
	}
	delivered, _ := notify.lastUser(7)
	if delivered.Notice != NoticeConfigDelivery || delivered.Payload == nil || delivered.Payload.Text != "vless://config" {
		t.Fatalf("user did not receive forwarded answer: %+v", delivered)
	}
	confirm, _ := notify.lastUser(adminID)
	if confirm.Notice != NoticeAnswerSent {
		t.Fatalf("operator confirmation = %+v", confirm)
	}
	if sessions.InProgress(adminID, supportID) {
		t.Fatal("operator session should clear after delivery")
	}
}

func TestAnswerUnknownMessageID(t *testing.T) {
	ctx := context.Background()
	r, _, _, notify := newTestRouter()
	admin := Identity{ID: adminID}

	err := r.SelectMenu(ctx, admin, supportID, SelAnswer, "424242")
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	out, _ := notify.lastUser(adminID)
	if out.Notice != NoticeTargetNotFound {
		t.Fatalf("notice = %q", out.Notice)
	}

	// Replying to an unrelated message while in answer state must not reach
	// any user.
	notify.mu.Lock()
	before := len(notify.user[7])
	notify.mu.Unlock()
	if before != 0 {
		t.Fatal("unexpected user traffic before test")
	}
}

func TestAdminEditFlow(t *testing.T) {
	ctx := context.Background()
	r, store, sessions, notify := newTestRouter()
	if _, err := store.EnsureUser(ctx, 5, "old", "Old", "Name"); err != nil {
		t.Fatal(err)
	}
	admin := Identity{ID: adminID}

	if err := r.AdminEditUser(ctx, admin, supportID, 5); err != nil {
		t.Fatalf("AdminEditUser: %v", err)
	}

	// Wrong field count keeps the flow alive for a retry.
	err := r.SubmitText(ctx, admin, supportID, "a,b,c", 0)
	if !errors.Is(err, ErrMalformedInput) {
		t.Fatalf("err = %v, want ErrMalformedInput", err)
	}
	if sessions.GetState(adminID, supportID) != StateAwaitEditPayload {
		t.Fatal("malformed payload must keep the edit state")
	}

	if err := r.SubmitText(ctx, admin, supportID, "newu, New, Name, 77000", 0); err != nil {
		t.Fatalf("SubmitText edit: %v", err)
	}
	acc, err := store.GetUser(ctx, 5)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if acc.Username != "newu" || acc.Balance != 77000 {
		t.Fatalf("edit not applied: %+v", acc)
	}
	if sessions.InProgress(adminID, supportID) {
		t.Fatal("edit completion should clear the state")
	}
	out, _ := notify.lastUser(adminID)
	if out.Notice != NoticeEditSaved {
		t.Fatalf("notice = %q", out.Notice)
	}
}

func TestAdminBlockUser(t *testing.T) {
	ctx := context.Background()
	r, store, _, _ := newTestRouter()
	if _, err := store.EnsureUser(ctx, 5, "", "", ""); err != nil {
		t.Fatal(err)
	}

	if err := r.AdminBlockUser(ctx, Identity{ID: adminID}, 5); err != nil {
		t.Fatalf("AdminBlockUser: %v", err)
	}
	if _, err := store.GetUser(ctx, 5); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatal("blocked user should be gone")
	}
}

func TestNonAdminRejected(t *testing.T) {
	ctx := context.Background()
	r, _, _, notify := newTestRouter()
	u := Identity{ID: 1}

	for _, sel := range []Selection{SelAdminPanel, SelVIP, SelSpecial} {
		if err := r.SelectMenu(ctx, u, 1, sel, ""); !errors.Is(err, ErrNotAllowed) {
			t.Fatalf("%s: err = %v, want ErrNotAllowed", sel, err)
		}
		out, _ := notify.lastUser(1)
		if out.Notice != NoticeNotAllowed {
			t.Fatalf("%s: notice = %q", sel, out.Notice)
		}
	}
	if err := r.AdminEditUser(ctx, u, 1, 5); !errors.Is(err, ErrNotAllowed) {
		t.Fatalf("edit: err = %v", err)
	}
	if err := r.AdminBlockUser(ctx, u, 5); !errors.Is(err, ErrNotAllowed) {
		t.Fatalf("block: err = %v", err)
	}
}

func TestHomeCancelsFlow(t *testing.T) {
	ctx := context.Background()
	r, _, sessions, _ := newTestRouter()
	u := Identity{ID: 1}

	if err := r.SelectMenu(ctx, u, 1, SelReceipt, ""); err != nil {
		t.Fatalf("SelectMenu receipt: %v", err)
	}
	if !sessions.InProgress(1, 1) {
		t.Fatal("receipt selection should enter a flow")
	}

	if err := r.SelectMenu(ctx, u, 1, SelHome, ""); err != nil {
		t.Fatalf("SelectMenu home: %v", err)
	}
	if sessions.InProgress(1, 1) {
		t.Fatal("home navigation should cancel the flow")
	}
}

func TestIdleSmallTalkRelays(t *testing.T) {
	ctx := context.Background()
	r, store, _, notify := newTestRouter()
	u := Identity{ID: 1, FirstName: "F"}
	if _, err := store.EnsureUser(ctx, 1, "", "F", ""); err != nil {
		t.Fatal(err)
	}

	if err := r.SubmitText(ctx, u, 1, "salam", 0); err != nil {
		t.Fatalf("SubmitText idle: %v", err)
	}
	out, _ := notify.lastUser(1)
	if out.Notice != NoticeSmallTalk || out.UserText != "salam" {
		t.Fatalf("small talk reply = %+v", out)
	}
	rel, _, ok := notify.lastAdmin()
	if !ok || rel.Relay == nil || rel.Relay.Link.Tag != "message" {
		t.Fatalf("idle text should relay as generic message, got %+v", rel.Relay)
	}
}

func TestIdlePhotoNotAccepted(t *testing.T) {
	ctx := context.Background()
	r, _, _, notify := newTestRouter()

	if err := r.SubmitPhoto(ctx, Identity{ID: 1}, 1, "ref", "", 0); err != nil {
		t.Fatalf("SubmitPhoto idle: %v", err)
	}
	out, _ := notify.lastUser(1)
	if out.Notice != NoticeContentNotAccepted {
		t.Fatalf("notice = %q", out.Notice)
	}
}

func TestEditFlowRejectsPhoto(t *testing.T) {
	ctx := context.Background()
	r, store, sessions, notify := newTestRouter()
	if _, err := store.EnsureUser(ctx, 5, "", "", ""); err != nil {
		t.Fatal(err)
	}
	admin := Identity{ID: adminID}
	if err := r.AdminEditUser(ctx, admin, supportID, 5); err != nil {
		t.Fatal(err)
	}

	if err := r.SubmitPhoto(ctx, admin, supportID, "ref", "", 0); err != nil {
		t.Fatalf("SubmitPhoto: %v", err)
	}
	out, _ := notify.lastUser(adminID)
	if out.Notice != NoticeContentNotAccepted {
		t.Fatalf("notice = %q", out.Notice)
	}
	if sessions.GetState(adminID, supportID) != StateAwaitEditPayload {
		t.Fatal("rejected content must not change the state")
	}
}

func TestTierSelectionOverwritesPerUser(t *testing.T) {
	ctx := context.Background()
	r, _, _, notify := newTestRouter()

	if err := r.SelectMenu(ctx, Identity{ID: 1}, 1, SelTier, "at_alone"); err != nil {
		t.Fatal(err)
	}
	if err := r.SelectMenu(ctx, Identity{ID: 2}, 2, SelTier, "at_small"); err != nil {
		t.Fatal(err)
	}

	p1, ok1 := r.pending.Price(1)
	p2, ok2 := r.pending.Price(2)
	if !ok1 || !ok2 || p1 != 150000 || p2 != 60000 {
		t.Fatalf("prices crossed between users: %d/%v %d/%v", p1, ok1, p2, ok2)
	}

	out, _ := notify.lastUser(2)
	if out.Screen != ScreenPayment || out.Tier == nil || out.Tier.Key != "at_small" {
		t.Fatalf("payment screen = %+v", out)
	}
}

func itoa(v int) string {
	return strconv.Itoa(v)
}
