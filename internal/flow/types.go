// Package flow is the conversation router. It maps inbound actions onto
// session transitions, ledger mutations, and outbound notifications.
//
// The router is transport-agnostic: it talks to the chat layer only through
// the Notifier interface, which makes every flow testable against in-memory
// fakes. Ledger mutations always happen before notifications; a failed send
// never rolls a mutation back.
package flow

import (
	"context"

	"github.com/mochiserver/mochibot/core/telegram/state"
	"github.com/mochiserver/mochibot/internal/config"
	"github.com/mochiserver/mochibot/internal/ledger"
	"github.com/mochiserver/mochibot/internal/pending"
	"github.com/mochiserver/mochibot/internal/relay"
)

// Conversation states beyond idle.
const (
	// StateAwaitEditPayload marks an admin who selected "edit user" and owes
	// a four-field comma payload.
	StateAwaitEditPayload state.State = "await_edit_payload"
	// StateAwaitReceiptOrAnswer marks a user who owes a receipt/request
	// message, or an operator who owes an answer to a relayed request.
	StateAwaitReceiptOrAnswer state.State = "await_receipt_or_answer"
)

// Identity describes the acting user as seen by the transport.
type Identity struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

// Selection identifies a menu action from the closed set of menu keys.
type Selection string

const (
	SelHome        Selection = "home"
	SelBuy         Selection = "buy"
	SelTest        Selection = "test"
	SelRequestTest Selection = "request_test"
	SelProfile     Selection = "profile"
	SelHelp        Selection = "help"
	SelDiscount    Selection = "discount"
	SelFunds       Selection = "funds"
	SelTier        Selection = "tier"
	SelWallet      Selection = "wallet"
	SelReceipt     Selection = "receipt"
	SelAdminPanel  Selection = "admin"
	SelUserInfo    Selection = "user"
	SelEditUser    Selection = "edit"
	SelBlockUser   Selection = "block"
	SelAnswer      Selection = "answer"
	SelVIP         Selection = "vip"
	SelSpecial     Selection = "special"
)

// Screen identifies a menu view the transport layer renders with its own
// localized texts and keyboards.
type Screen string

const (
	ScreenHome          Screen = "home"
	ScreenBuy           Screen = "buy"
	ScreenTest          Screen = "test"
	ScreenHelp          Screen = "help"
	ScreenFunds         Screen = "funds"
	ScreenDiscount      Screen = "discount"
	ScreenProfile       Screen = "profile"
	ScreenPayment       Screen = "payment"
	ScreenAdminUsers    Screen = "admin_users"
	ScreenAdminUserInfo Screen = "admin_user_info"
	ScreenVIP           Screen = "vip"
	ScreenSpecial       Screen = "special"
)

// Notice identifies a short user-facing status message.
type Notice string

const (
	NoticeTestRequested      Notice = "test_requested"
	NoticeTestAlreadyUsed    Notice = "test_already_used"
	NoticeReceiptPrompt      Notice = "receipt_prompt"
	NoticeRelayed            Notice = "relayed"
	NoticeRelayFailed        Notice = "relay_failed"
	NoticePaymentAccepted    Notice = "payment_accepted"
	NoticeInsufficientFunds  Notice = "insufficient_funds"
	NoticeNoTierSelected     Notice = "no_tier_selected"
	NoticeEditPrompt         Notice = "edit_prompt"
	NoticeEditSaved          Notice = "edit_saved"
	NoticeEditBadFormat      Notice = "edit_bad_format"
	NoticeUserBlocked        Notice = "user_blocked"
	NoticeUserNotFound       Notice = "user_not_found"
	NoticeTargetNotFound     Notice = "target_not_found"
	NoticeAnswerPrompt       Notice = "answer_prompt"
	NoticeAnswerSent         Notice = "answer_sent"
	NoticeConfigDelivery     Notice = "config_delivery"
	NoticeContentNotAccepted Notice = "content_not_accepted"
	NoticeSmallTalk          Notice = "small_talk"
	NoticeNotAllowed         Notice = "not_allowed"
	NoticeStorageError       Notice = "storage_error"
)

// Relay is admin-facing forwarded content together with its link.
type Relay struct {
	Link    relay.Link
	Payload pending.Payload
	// Amount is the paid amount for paid-config relays, 0 otherwise.
	Amount int64
}

// Outbound is one notification for the transport layer to render and send.
// Exactly one of Screen and Notice is set.
type Outbound struct {
	Screen Screen
	Notice Notice

	// From is the acting user, for screens rendering identity data.
	From Identity
	// Balance accompanies ScreenProfile.
	Balance int64
	// Tier accompanies ScreenPayment.
	Tier *config.Tier
	// TargetID accompanies edit/answer prompts.
	TargetID int64
	// Users accompanies ScreenAdminUsers.
	Users []ledger.Account
	// Account accompanies ScreenAdminUserInfo.
	Account *ledger.Account
	// UserText is the original text for small-talk replies.
	UserText string
	// Payload is forwarded content for NoticeConfigDelivery.
	Payload *pending.Payload
	// Relay is set on admin-bound forwards.
	Relay *Relay
	// ForceReply asks the client to reply to this exact message.
	ForceReply bool
}

// Notifier delivers outbound notifications. SendAdmin targets the fixed
// support recipient and returns the delivered message id so the router can
// register relay links against it.
type Notifier interface {
	SendUser(ctx context.Context, userID int64, out Outbound) error
	SendAdmin(ctx context.Context, out Outbound) (messageID int, err error)
}
