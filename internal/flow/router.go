package flow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"log/slog"

	"github.com/mochiserver/mochibot/core/logger"
	"github.com/mochiserver/mochibot/core/telegram/state"
	"github.com/mochiserver/mochibot/internal/config"
	"github.com/mochiserver/mochibot/internal/ledger"
	"github.com/mochiserver/mochibot/internal/pending"
	"github.com/mochiserver/mochibot/internal/relay"
)

// Router dispatches inbound actions. It owns the session store, the
// pending-action context, and the relay registry; the ledger and notifier
// are injected.
type Router struct {
	cfg      *config.Config
	store    ledger.Store
	sessions state.Manager
	pending  *pending.Context
	relays   *relay.Registry
	notify   Notifier
}

// NewRouter wires a conversation router.
func NewRouter(cfg *config.Config, store ledger.Store, sessions state.Manager, notify Notifier) *Router {
	return &Router{
		cfg:      cfg,
		store:    store,
		sessions: sessions,
		pending:  pending.NewContext(),
		relays:   relay.NewRegistry(),
		notify:   notify,
	}
}

// Start handles first contact. Account creation is idempotent; the referral
// bonus is credited only on the creation path, so replaying /start with a
// token never credits twice.
func (r *Router) Start(ctx context.Context, from Identity, chatID int64, referralToken string) error {
	created, err := r.store.EnsureUser(ctx, from.ID, from.Username, from.FirstName, from.LastName)
	if err != nil {
		_ = r.notify.SendUser(ctx, from.ID, Outbound{Notice: NoticeStorageError})
		return err
	}

	if created && referralToken != "" {
		if err := r.store.CreditReferral(ctx, from.ID, r.cfg.Shop.ReferralBonus); err != nil {
			// The account exists; the bonus is lost but the flow continues.
			logger.SVCFlow.LogAttrs(ctx, slog.LevelError, "referral.credit_failed",
				slog.Int64("user_id", from.ID),
				slog.String("err", err.Error()),
			)
		}
	}

	r.sessions.ClearState(from.ID, chatID)
	return r.notify.SendUser(ctx, from.ID, Outbound{Screen: ScreenHome, From: from})
}

// SelectMenu handles a menu selection. Unknown selections are answered with
// nothing; the transport layer has its own fallback for stray callbacks.
func (r *Router) SelectMenu(ctx context.Context, from Identity, chatID int64, sel Selection, payload string) error {
	switch sel {
	case SelHome:
		// Navigating home cancels any in-flight flow.
		r.sessions.ClearState(from.ID, chatID)
		return r.notify.SendUser(ctx, from.ID, Outbound{Screen: ScreenHome, From: from})

	case SelBuy:
		return r.notify.SendUser(ctx, from.ID, Outbound{Screen: ScreenBuy})

	case SelTest:
		return r.notify.SendUser(ctx, from.ID, Outbound{Screen: ScreenTest})

	case SelRequestTest:
		return r.requestTestConfig(ctx, from, chatID)

	case SelProfile:
		balance, err := r.store.GetBalance(ctx, from.ID)
		if err != nil {
			_ = r.notify.SendUser(ctx, from.ID, Outbound{Notice: NoticeStorageError})
			return err
		}
		return r.notify.SendUser(ctx, from.ID, Outbound{Screen: ScreenProfile, From: from, Balance: balance})

	case SelHelp:
		return r.notify.SendUser(ctx, from.ID, Outbound{Screen: ScreenHelp})

	case SelDiscount:
		return r.notify.SendUser(ctx, from.ID, Outbound{Screen: ScreenDiscount, From: from})

	case SelFunds:
		return r.notify.SendUser(ctx, from.ID, Outbound{Screen: ScreenFunds})

	case SelTier:
		tier, ok := r.cfg.TierByKey(payload)
		if !ok {
			return r.notify.SendUser(ctx, from.ID, Outbound{Notice: NoticeTargetNotFound})
		}
		// Price selection is a side channel: it overwrites any previous
		// selection for this user without touching the session state.
		r.pending.SetPrice(from.ID, tier.Price)
		return r.notify.SendUser(ctx, from.ID, Outbound{Screen: ScreenPayment, Tier: &tier})

	case SelWallet:
		return r.walletPayment(ctx, from, chatID)

	case SelReceipt:
		// A payload left behind by a failed relay is resent instead of
		// asking the user to submit again.
		if p, ok := r.pending.ConsumePayload(from.ID); ok {
			return r.relayToSupport(ctx, from, chatID, p, relay.TagPaidConfig, true)
		}
		r.sessions.SetState(from.ID, chatID, StateAwaitReceiptOrAnswer)
		return r.notify.SendUser(ctx, from.ID, Outbound{Notice: NoticeReceiptPrompt})

	case SelAdminPanel:
		if !r.cfg.IsAdmin(from.ID) {
			_ = r.notify.SendUser(ctx, from.ID, Outbound{Notice: NoticeNotAllowed})
			return ErrNotAllowed
		}
		users, err := r.store.ListUsers(ctx)
		if err != nil {
			_ = r.notify.SendUser(ctx, from.ID, Outbound{Notice: NoticeStorageError})
			return err
		}
		return r.notify.SendUser(ctx, from.ID, Outbound{Screen: ScreenAdminUsers, Users: users})

	case SelUserInfo:
		if !r.cfg.IsAdmin(from.ID) {
			_ = r.notify.SendUser(ctx, from.ID, Outbound{Notice: NoticeNotAllowed})
			return ErrNotAllowed
		}
		target, err := parseTarget(payload)
		if err != nil {
			_ = r.notify.SendUser(ctx, from.ID, Outbound{Notice: NoticeUserNotFound})
			return err
		}
		acc, err := r.store.GetUser(ctx, target)
		if errors.Is(err, ledger.ErrNotFound) {
			_ = r.notify.SendUser(ctx, from.ID, Outbound{Notice: NoticeUserNotFound})
			return err
		}
		if err != nil {
			_ = r.notify.SendUser(ctx, from.ID, Outbound{Notice: NoticeStorageError})
			return err
		}
		return r.notify.SendUser(ctx, from.ID, Outbound{Screen: ScreenAdminUserInfo, Account: acc})

	case SelEditUser:
		target, err := parseTarget(payload)
		if err != nil {
			_ = r.notify.SendUser(ctx, from.ID, Outbound{Notice: NoticeUserNotFound})
			return err
		}
		return r.AdminEditUser(ctx, from, chatID, target)

	case SelBlockUser:
		target, err := parseTarget(payload)
		if err != nil {
			_ = r.notify.SendUser(ctx, from.ID, Outbound{Notice: NoticeUserNotFound})
			return err
		}
		return r.AdminBlockUser(ctx, from, target)

	case SelAnswer:
		return r.beginAnswer(ctx, from, chatID, payload)

	case SelVIP:
		if !r.cfg.IsVIP(from.ID) && !r.cfg.IsAdmin(from.ID) {
			_ = r.notify.SendUser(ctx, from.ID, Outbound{Notice: NoticeNotAllowed})
			return ErrNotAllowed
		}
		return r.notify.SendUser(ctx, from.ID, Outbound{Screen: ScreenVIP})

	case SelSpecial:
		if from.ID != r.cfg.Access.SpecialID && !r.cfg.IsAdmin(from.ID) {
			_ = r.notify.SendUser(ctx, from.ID, Outbound{Notice: NoticeNotAllowed})
			return ErrNotAllowed
		}
		return r.notify.SendUser(ctx, from.ID, Outbound{Screen: ScreenSpecial})
	}

	return nil
}

// SubmitText routes free text by the caller's current session state.
func (r *Router) SubmitText(ctx context.Context, from Identity, chatID int64, text string, replyTo int) error {
	switch r.sessions.GetState(from.ID, chatID) {
	case StateAwaitEditPayload:
		return r.applyEdit(ctx, from, chatID, text)

	case StateAwaitReceiptOrAnswer:
		if r.cfg.IsAdmin(from.ID) && replyTo != 0 {
			return r.deliverAnswer(ctx, from, chatID, replyTo,
				pending.Payload{Kind: pending.PayloadText, Text: text})
		}
		return r.relayToSupport(ctx, from, chatID,
			pending.Payload{Kind: pending.PayloadText, Text: text}, relay.TagPaidConfig, true)

	default:
		// Idle chatter: reply in kind and pass the message on to support.
		if err := r.notify.SendUser(ctx, from.ID, Outbound{Notice: NoticeSmallTalk, UserText: text}); err != nil {
			return err
		}
		return r.relayToSupport(ctx, from, chatID,
			pending.Payload{Kind: pending.PayloadText, Text: text}, relay.TagMessage, false)
	}
}

// SubmitPhoto routes a photo by the caller's current session state.
func (r *Router) SubmitPhoto(ctx context.Context, from Identity, chatID int64, photoRef, caption string, replyTo int) error {
	switch r.sessions.GetState(from.ID, chatID) {
	case StateAwaitEditPayload:
		// Edit flow accepts text only.
		return r.notify.SendUser(ctx, from.ID, Outbound{Notice: NoticeContentNotAccepted})

	case StateAwaitReceiptOrAnswer:
		if r.cfg.IsAdmin(from.ID) && replyTo != 0 {
			return r.deliverAnswer(ctx, from, chatID, replyTo,
				pending.Payload{Kind: pending.PayloadPhoto, PhotoRef: photoRef, Caption: caption})
		}
		return r.relayToSupport(ctx, from, chatID,
			pending.Payload{Kind: pending.PayloadPhoto, PhotoRef: photoRef, Caption: caption}, relay.TagPaidConfig, true)

	default:
		return r.notify.SendUser(ctx, from.ID, Outbound{Notice: NoticeContentNotAccepted})
	}
}

// AdminEditUser begins the edit flow: record the target and expect a
// four-field payload next.
func (r *Router) AdminEditUser(ctx context.Context, from Identity, chatID int64, target int64) error {
	if !r.cfg.IsAdmin(from.ID) {
		_ = r.notify.SendUser(ctx, from.ID, Outbound{Notice: NoticeNotAllowed})
		return ErrNotAllowed
	}
	r.pending.SetEditTarget(from.ID, target)
	r.sessions.SetState(from.ID, chatID, StateAwaitEditPayload)
	return r.notify.SendUser(ctx, from.ID, Outbound{Notice: NoticeEditPrompt, TargetID: target})
}

// AdminBlockUser removes the target account entirely.
func (r *Router) AdminBlockUser(ctx context.Context, from Identity, target int64) error {
	if !r.cfg.IsAdmin(from.ID) {
		_ = r.notify.SendUser(ctx, from.ID, Outbound{Notice: NoticeNotAllowed})
		return ErrNotAllowed
	}
	if err := r.store.DeleteUser(ctx, target); err != nil {
		_ = r.notify.SendUser(ctx, from.ID, Outbound{Notice: NoticeStorageError})
		return err
	}
	logger.SVCFlow.LogAttrs(ctx, slog.LevelInfo, "user.blocked",
		slog.Int64("user_id", from.ID),
		slog.Int64("target_id", target),
	)
	return r.notify.SendUser(ctx, from.ID, Outbound{Notice: NoticeUserBlocked, TargetID: target})
}

// requestTestConfig claims the one-time test config and relays the request.
func (r *Router) requestTestConfig(ctx context.Context, from Identity, chatID int64) error {
	first, err := r.store.MarkTestConfigUsed(ctx, from.ID)
	if errors.Is(err, ledger.ErrNotFound) {
		// The button is reachable without an account row, e.g. after an
		// admin block. Provision and claim.
		if _, err = r.store.EnsureUser(ctx, from.ID, from.Username, from.FirstName, from.LastName); err == nil {
			first, err = r.store.MarkTestConfigUsed(ctx, from.ID)
		}
	}
	if err != nil {
		_ = r.notify.SendUser(ctx, from.ID, Outbound{Notice: NoticeStorageError})
		return err
	}
	if !first {
		_ = r.notify.SendUser(ctx, from.ID, Outbound{Notice: NoticeTestAlreadyUsed})
		return ledger.ErrTestConfigUsed
	}

	link := r.linkFor(from, relay.TagTestConfig)
	msgID, err := r.notify.SendAdmin(ctx, Outbound{Relay: &Relay{
		Link:    link,
		Payload: pending.Payload{Kind: pending.PayloadText, Text: "Request Test Config"},
	}})
	if err != nil {
		// The flag is already flipped and stays flipped; support just has
		// to be reached another way.
		_ = r.notify.SendUser(ctx, from.ID, Outbound{Notice: NoticeRelayFailed})
		return err
	}
	r.relays.Add(msgID, link)
	r.sessions.SetState(from.ID, chatID, StateAwaitReceiptOrAnswer)

	logger.SVCFlow.LogAttrs(ctx, slog.LevelInfo, "test_config.requested",
		slog.Int64("user_id", from.ID),
	)
	return r.notify.SendUser(ctx, from.ID, Outbound{Notice: NoticeTestRequested})
}

// walletPayment debits the pending price atomically and relays the order.
// An insufficient balance changes nothing and is safely retryable.
func (r *Router) walletPayment(ctx context.Context, from Identity, chatID int64) error {
	price, ok := r.pending.Price(from.ID)
	if !ok {
		return r.notify.SendUser(ctx, from.ID, Outbound{Notice: NoticeNoTierSelected})
	}

	debited, err := r.store.Debit(ctx, from.ID, price)
	if err != nil {
		_ = r.notify.SendUser(ctx, from.ID, Outbound{Notice: NoticeStorageError})
		return err
	}
	if !debited {
		_ = r.notify.SendUser(ctx, from.ID, Outbound{Notice: NoticeInsufficientFunds})
		return ledger.ErrInsufficientBalance
	}

	// Money moved; everything after this point is delivery.
	r.pending.ClearPrice(from.ID)
	payload := pending.Payload{
		Kind: pending.PayloadText,
		Text: "Payment successful, please send the config.",
	}
	r.pending.SetPayload(from.ID, payload)

	link := r.linkFor(from, relay.TagPaidConfig)
	msgID, err := r.notify.SendAdmin(ctx, Outbound{Relay: &Relay{
		Link:    link,
		Payload: payload,
		Amount:  price,
	}})
	if err != nil {
		_ = r.notify.SendUser(ctx, from.ID, Outbound{Notice: NoticeRelayFailed})
		return err
	}
	r.relays.Add(msgID, link)
	r.pending.ConsumePayload(from.ID)
	r.sessions.SetState(from.ID, chatID, StateAwaitReceiptOrAnswer)

	logger.SVCFlow.LogAttrs(ctx, slog.LevelInfo, "wallet.paid",
		slog.Int64("user_id", from.ID),
		slog.Int64("amount", price),
	)
	return r.notify.SendUser(ctx, from.ID, Outbound{Notice: NoticePaymentAccepted})
}

// beginAnswer resolves the relayed message the operator wants to answer and
// prompts for the reply.
func (r *Router) beginAnswer(ctx context.Context, from Identity, chatID int64, payload string) error {
	if !r.cfg.IsAdmin(from.ID) {
		_ = r.notify.SendUser(ctx, from.ID, Outbound{Notice: NoticeNotAllowed})
		return ErrNotAllowed
	}
	msgID, err := strconv.Atoi(strings.TrimSpace(payload))
	if err != nil {
		_ = r.notify.SendUser(ctx, from.ID, Outbound{Notice: NoticeTargetNotFound})
		return ledger.ErrNotFound
	}

	link, ok := r.relays.Lookup(msgID)
	if !ok {
		_ = r.notify.SendUser(ctx, from.ID, Outbound{Notice: NoticeTargetNotFound})
		return ledger.ErrNotFound
	}

	promptID, err := r.notify.SendAdmin(ctx, Outbound{
		Notice:     NoticeAnswerPrompt,
		TargetID:   link.UserID,
		ForceReply: true,
	})
	if err != nil {
		return err
	}
	// The reply arrives referencing the prompt, so the prompt gets the same
	// link as the original relay.
	r.relays.Add(promptID, link)
	r.sessions.SetState(from.ID, chatID, StateAwaitReceiptOrAnswer)
	return nil
}

// deliverAnswer forwards the operator's reply to the originating user.
func (r *Router) deliverAnswer(ctx context.Context, from Identity, chatID int64, replyTo int, payload pending.Payload) error {
	link, ok := r.relays.Lookup(replyTo)
	if !ok {
		_ = r.notify.SendUser(ctx, from.ID, Outbound{Notice: NoticeTargetNotFound})
		return ledger.ErrNotFound
	}

	if err := r.notify.SendUser(ctx, link.UserID, Outbound{
		Notice:  NoticeConfigDelivery,
		Payload: &payload,
	}); err != nil {
		return err
	}

	r.sessions.ClearState(from.ID, chatID)
	logger.SVCFlow.LogAttrs(ctx, slog.LevelInfo, "answer.delivered",
		slog.Int64("user_id", link.UserID),
		slog.String("tag", string(link.Tag)),
	)
	return r.notify.SendUser(ctx, from.ID, Outbound{Notice: NoticeAnswerSent, TargetID: link.UserID})
}

// relayToSupport forwards a user submission to the support recipient and
// registers a relay link for later answer routing. When completesFlow is
// set the caller's session is cleared and a confirmation is sent.
func (r *Router) relayToSupport(ctx context.Context, from Identity, chatID int64, payload pending.Payload, tag relay.Tag, completesFlow bool) error {
	// The submission stays stored until the relay succeeds; after a failure
	// the receipt action picks it up and resends it.
	r.pending.SetPayload(from.ID, payload)

	link := r.linkFor(from, tag)
	msgID, err := r.notify.SendAdmin(ctx, Outbound{Relay: &Relay{Link: link, Payload: payload}})
	if err != nil {
		if completesFlow {
			_ = r.notify.SendUser(ctx, from.ID, Outbound{Notice: NoticeRelayFailed})
		}
		return err
	}
	r.relays.Add(msgID, link)
	r.pending.ConsumePayload(from.ID)

	if !completesFlow {
		return nil
	}
	r.sessions.ClearState(from.ID, chatID)
	return r.notify.SendUser(ctx, from.ID, Outbound{Notice: NoticeRelayed})
}

// applyEdit parses and applies the four-field admin edit payload.
// A malformed payload keeps the state so the operator can retry.
func (r *Router) applyEdit(ctx context.Context, from Identity, chatID int64, text string) error {
	target, ok := r.pending.EditTarget(from.ID)
	if !ok {
		r.sessions.ClearState(from.ID, chatID)
		_ = r.notify.SendUser(ctx, from.ID, Outbound{Notice: NoticeTargetNotFound})
		return ledger.ErrNotFound
	}

	fields := strings.Split(text, ",")
	if len(fields) != 4 {
		_ = r.notify.SendUser(ctx, from.ID, Outbound{Notice: NoticeEditBadFormat})
		return ErrMalformedInput
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	balance, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil || balance < 0 {
		_ = r.notify.SendUser(ctx, from.ID, Outbound{Notice: NoticeEditBadFormat})
		return fmt.Errorf("%w: balance %q", ErrMalformedInput, fields[3])
	}

	err = r.store.UpdateProfile(ctx, target, fields[0], fields[1], fields[2], balance)
	if errors.Is(err, ledger.ErrNotFound) {
		r.sessions.ClearState(from.ID, chatID)
		r.pending.ClearEditTarget(from.ID)
		_ = r.notify.SendUser(ctx, from.ID, Outbound{Notice: NoticeUserNotFound})
		return err
	}
	if err != nil {
		_ = r.notify.SendUser(ctx, from.ID, Outbound{Notice: NoticeStorageError})
		return err
	}

	r.sessions.ClearState(from.ID, chatID)
	r.pending.ClearEditTarget(from.ID)
	logger.SVCFlow.LogAttrs(ctx, slog.LevelInfo, "edit.applied",
		slog.Int64("user_id", from.ID),
		slog.Int64("target_id", target),
		slog.Int64("balance", balance),
	)
	return r.notify.SendUser(ctx, from.ID, Outbound{Notice: NoticeEditSaved, TargetID: target})
}

func (r *Router) linkFor(from Identity, tag relay.Tag) relay.Link {
	return relay.Link{
		UserID:    from.ID,
		FirstName: from.FirstName,
		Username:  from.Username,
		Tag:       tag,
	}
}

func parseTarget(payload string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(payload), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: target %q", ErrMalformedInput, payload)
	}
	return id, nil
}
