package bot

import (
	"fmt"

	tele "gopkg.in/telebot.v4"

	"github.com/mochiserver/mochibot/core/telegram/format"
	"github.com/mochiserver/mochibot/core/telegram/keyboard"
	"github.com/mochiserver/mochibot/internal/config"
	"github.com/mochiserver/mochibot/internal/flow"
	"github.com/mochiserver/mochibot/internal/pending"
)

// message is one renderable unit. What is either a string or a *tele.Photo.
type message struct {
	what any
	opts *tele.SendOptions
}

type renderer struct {
	cfg *config.Config
}

func withMarkup(markup *tele.ReplyMarkup) *tele.SendOptions {
	return &tele.SendOptions{ReplyMarkup: markup}
}

func backRow(unique string) []keyboard.InlineBtn {
	return []keyboard.InlineBtn{{Text: btnBack, Unique: unique}}
}

func backHomeMarkup() *tele.ReplyMarkup {
	return keyboard.InlineButtons([]keyboard.InlineBtn{{Text: btnBackHome, Unique: "home"}})
}

// renderUser turns an outbound into the ordered messages for its recipient.
func (r *renderer) renderUser(out flow.Outbound) []message {
	if out.Screen != "" {
		return r.renderScreen(out)
	}
	return r.renderNotice(out)
}

func (r *renderer) renderScreen(out flow.Outbound) []message {
	switch out.Screen {
	case flow.ScreenHome:
		return []message{{what: textHome, opts: withMarkup(r.homeMarkup(out.From.ID))}}

	case flow.ScreenBuy:
		rows := [][]keyboard.InlineBtn{
			{{Text: "خرید کانفیگ تک نفره 🧜‍♂️", Unique: "buygrp", Data: "alone"}},
			{{Text: "خرید کانفیگ خانوادگی 👫", Unique: "buygrp", Data: "family"}},
			backRow("home"),
		}
		return []message{{what: textBuy, opts: withMarkup(keyboard.InlineButtonsRows(rows...))}}

	case flow.ScreenTest:
		rows := [][]keyboard.InlineBtn{
			{
				{Text: "ایرانسل - رایتل 🎏️", Unique: "request_test"},
				{Text: "همراه اول - مخابرات 🎏", Unique: "request_test"},
			},
			backRow("home"),
		}
		return []message{{what: textTest, opts: withMarkup(keyboard.InlineButtonsRows(rows...))}}

	case flow.ScreenPayment:
		tier := out.Tier
		if tier == nil {
			return []message{{what: textNoTier}}
		}
		rows := [][]keyboard.InlineBtn{
			{{Text: "🌐 پرداخت اینترنتی", URL: tier.PayURL}},
			{
				{Text: "💳 پرداخت با موجودی", Unique: "wallet"},
				{Text: "📨 ارسال رسید", Unique: "receipt"},
			},
			backRow("buy"),
		}
		text := fmt.Sprintf("قیمت: %d تومان 🪙%s", tier.Price, textTransaction)
		return []message{{what: text, opts: withMarkup(keyboard.InlineButtonsRows(rows...))}}

	case flow.ScreenProfile:
		text := fmt.Sprintf(`پروفایل من 👩‍🦰🧑‍🦰

🌐 شناسه کاربری: %d
🍀 یوزرنیم: %s
🍷 نام: %s
💰 موجودی: %d`, out.From.ID, out.From.Username, out.From.FirstName, out.Balance)
		return []message{{what: text, opts: withMarkup(keyboard.InlineButtonsRows(backRow("home")))}}

	case flow.ScreenHelp:
		rows := [][]keyboard.InlineBtn{
			{
				{Text: "ios - V2Box", URL: "https://apps.apple.com/us/app/v2box-v2ray-client/id6446814690"},
				{Text: "android - V2rayNG", URL: "https://play.google.com/store/apps/details?id=com.v2ray.ang"},
			},
			{
				{Text: "windows - V2rayN", URL: "https://sourceforge.net/projects/v2rayn.mirror/"},
				{Text: "mac - Fair", URL: "https://apps.apple.com/us/app/fair-vpn/id1533873488"},
			},
			backRow("home"),
		}
		return []message{{what: textHelp, opts: withMarkup(keyboard.InlineButtonsRows(rows...))}}

	case flow.ScreenFunds:
		links := make([]keyboard.InlineBtn, 0, len(r.cfg.Shop.FundsLinks))
		for _, l := range r.cfg.Shop.FundsLinks {
			links = append(links, keyboard.InlineBtn{Text: l.Label, URL: l.URL})
		}
		markup := keyboard.InlineButtonsRows(
			append(chunk(links, 2), backRow("home"))...,
		)
		return []message{{what: textFunds, opts: withMarkup(markup)}}

	case flow.ScreenDiscount:
		text := fmt.Sprintf("🎖 لینک رفرال: https://t.me/%s?start=%d\n\n%s",
			r.cfg.Shop.BotUsername, out.From.ID, textDiscount)
		return []message{{what: text, opts: withMarkup(keyboard.InlineButtonsRows(backRow("home")))}}

	case flow.ScreenAdminUsers:
		btns := make([]keyboard.InlineBtn, 0, len(out.Users))
		for _, u := range out.Users {
			btns = append(btns, keyboard.InlineBtn{
				Text:   fmt.Sprintf("%s (%d)", u.FirstName, u.ID),
				Unique: "user",
				Data:   fmt.Sprintf("%d", u.ID),
			})
		}
		markup := keyboard.InlineButtonsRows(append(chunk(btns, 2), backRow("home"))...)
		return []message{{what: textAdminPanel, opts: withMarkup(markup)}}

	case flow.ScreenAdminUserInfo:
		acc := out.Account
		if acc == nil {
			return []message{{what: textUserMissing}}
		}
		text := fmt.Sprintf(`👤 اطلاعات کاربر:
🌐 شناسه کاربری: %d
🍀 یوزرنیم: %s
🍷 نام: %s
🍷 نام خانوادگی: %s
💰 موجودی: %d`, acc.ID, acc.Username, acc.FirstName, acc.LastName, acc.Balance)
		target := fmt.Sprintf("%d", acc.ID)
		rows := [][]keyboard.InlineBtn{
			{
				{Text: "✏️ ویرایش اطلاعات", Unique: "edit", Data: target},
				{Text: "🚫 مسدود کردن", Unique: "block", Data: target},
			},
			backRow("admin"),
		}
		return []message{{what: text, opts: withMarkup(keyboard.InlineButtonsRows(rows...))}}

	case flow.ScreenVIP:
		return []message{
			{what: textVIP, opts: withMarkup(keyboard.InlineButtonsRows(backRow("home")))},
			{what: r.cfg.Shop.VIPPayload},
		}

	case flow.ScreenSpecial:
		return []message{
			{what: textSpecial, opts: withMarkup(keyboard.InlineButtonsRows(backRow("home")))},
			{what: r.cfg.Shop.SpecialPayload},
		}
	}

	return nil
}

func (r *renderer) renderNotice(out flow.Outbound) []message {
	switch out.Notice {
	case flow.NoticeTestRequested, flow.NoticeRelayed:
		return []message{{what: textReceiptOK, opts: withMarkup(backHomeMarkup())}}
	case flow.NoticeTestAlreadyUsed:
		return []message{{what: textTestUsed}}
	case flow.NoticeReceiptPrompt:
		return []message{{what: textReceiptAsk}}
	case flow.NoticeRelayFailed:
		return []message{{what: textRelayFailed}}
	case flow.NoticePaymentAccepted:
		return []message{{what: textPaymentOK, opts: withMarkup(backHomeMarkup())}}
	case flow.NoticeInsufficientFunds:
		return []message{{what: textNoFunds, opts: withMarkup(backHomeMarkup())}}
	case flow.NoticeNoTierSelected:
		return []message{{what: textNoTier}}
	case flow.NoticeEditPrompt:
		text := fmt.Sprintf("✏️ اطلاعات جدید کاربر %d را وارد کنید (فرمت: username,first_name,last_name,balance):", out.TargetID)
		return []message{{what: text}}
	case flow.NoticeEditSaved:
		return []message{{what: textEditSaved}}
	case flow.NoticeEditBadFormat:
		return []message{{what: textEditBad}}
	case flow.NoticeUserBlocked:
		return []message{{what: textBlocked}}
	case flow.NoticeUserNotFound:
		return []message{{what: textUserMissing}}
	case flow.NoticeTargetNotFound:
		return []message{{what: "User ID not found."}}
	case flow.NoticeAnswerPrompt:
		m := message{what: fmt.Sprintf("Send your answer to: %d", out.TargetID)}
		if out.ForceReply {
			m.opts = &tele.SendOptions{ReplyMarkup: keyboard.ForceReply()}
		}
		return []message{m}
	case flow.NoticeAnswerSent:
		return []message{{what: textAnswerSent}}
	case flow.NoticeConfigDelivery:
		return renderDelivery(out.Payload)
	case flow.NoticeContentNotAccepted:
		return []message{{what: textNotAccepted}}
	case flow.NoticeSmallTalk:
		return []message{{what: smallTalk(out.UserText)}}
	case flow.NoticeNotAllowed:
		return []message{{what: textNotAllowed}}
	case flow.NoticeStorageError:
		return []message{{what: textStorageFail}}
	}
	return nil
}

// renderAdmin renders support-bound outbounds. Relays carry the answer
// button; the first message is the one whose id anchors the relay link.
func (r *renderer) renderAdmin(out flow.Outbound) []message {
	if out.Relay == nil {
		return r.renderNotice(out)
	}

	rel := out.Relay
	body := rel.Payload.Text
	if rel.Payload.Kind == pending.PayloadPhoto {
		body = rel.Payload.Caption
	}
	header := fmt.Sprintf("Received a message from: %d\nName: %s\nUsername: @%s\n\nMessage text:\n%s",
		rel.Link.UserID, escapeV2(rel.Link.FirstName), escapeV2(rel.Link.Username), escapeV2(body))
	if rel.Amount > 0 {
		header += fmt.Sprintf("\nAmount paid: %d تومان", rel.Amount)
	}

	markup := keyboard.InlineButtons([]keyboard.InlineBtn{{Text: "Send Config", Unique: "answer"}})
	opts := &tele.SendOptions{ParseMode: tele.ModeMarkdownV2, ReplyMarkup: markup}

	if rel.Payload.Kind == pending.PayloadPhoto {
		photo := &tele.Photo{File: tele.File{FileID: rel.Payload.PhotoRef}, Caption: header}
		return []message{{what: photo, opts: opts}}
	}
	return []message{{what: header, opts: opts}}
}

func renderDelivery(p *pending.Payload) []message {
	if p == nil {
		return nil
	}
	msgs := []message{{what: textConfigHeader}}
	if p.Kind == pending.PayloadPhoto {
		msgs = append(msgs, message{what: &tele.Photo{File: tele.File{FileID: p.PhotoRef}, Caption: p.Caption}})
		return msgs
	}
	return append(msgs, message{what: p.Text})
}

// homeMarkup builds the role-dependent home keyboard.
func (r *renderer) homeMarkup(userID int64) *tele.ReplyMarkup {
	base := []keyboard.InlineBtn{
		{Text: "🔑 کانفیگ تستی", Unique: "test"},
		{Text: "🛒 خرید کانفیگ", Unique: "buy"},
		{Text: "👩‍🧑‍🦰 پروفایل من", Unique: "profile"},
		{Text: "📋 راهنمای استفاده", Unique: "help"},
		{Text: "🎁 تخفیف ریفرال", Unique: "discount"},
		{Text: "💰 افزایش موجودی", Unique: "funds"},
	}

	var rows [][]keyboard.InlineBtn
	switch {
	case r.cfg.IsAdmin(userID):
		rows = append(rows,
			[]keyboard.InlineBtn{{Text: "💻 Admin Panel 💻", Unique: "admin"}},
			[]keyboard.InlineBtn{
				{Text: "🌟 VIP 🌟", Unique: "vip"},
				{Text: "❤️ Special ❤️", Unique: "special"},
			},
		)
	case r.cfg.IsVIP(userID):
		rows = append(rows, []keyboard.InlineBtn{{Text: "🌟 VIP 🌟", Unique: "vip"}})
	case userID == r.cfg.Access.SpecialID:
		rows = append(rows, []keyboard.InlineBtn{{Text: "❤️ Special ❤️", Unique: "special"}})
	}

	return keyboard.InlineButtonsRows(append(rows, chunk(base, 2)...)...)
}

// renderBuyGroup lists the tiers of one purchase group.
func (r *renderer) renderBuyGroup(group string) message {
	text := textBuyAlone
	if group == "family" {
		text = textBuyFamily
	}
	var btns []keyboard.InlineBtn
	for _, t := range r.cfg.Shop.Tiers {
		if t.Group != group {
			continue
		}
		btns = append(btns, keyboard.InlineBtn{Text: t.Title, Unique: "tier", Data: t.Key})
	}
	markup := keyboard.InlineButtonsRows(append(chunk(btns, 2), backRow("buy"))...)
	return message{what: text, opts: withMarkup(markup)}
}

func escapeV2(s string) string {
	escaped, err := format.EscapeMarkdown(s, format.MarkdownV2, "")
	if err != nil {
		return s
	}
	return escaped
}

func chunk(btns []keyboard.InlineBtn, n int) [][]keyboard.InlineBtn {
	var rows [][]keyboard.InlineBtn
	for i := 0; i < len(btns); i += n {
		end := i + n
		if end > len(btns) {
			end = len(btns)
		}
		rows = append(rows, btns[i:end])
	}
	return rows
}
