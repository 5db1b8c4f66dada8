package bot

import (
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	tg "github.com/mochiserver/mochibot/core/telegram"
	"github.com/mochiserver/mochibot/core/telegram/callbacks"
	"github.com/mochiserver/mochibot/core/telegram/commands"
	tghelpers "github.com/mochiserver/mochibot/core/telegram/helpers"
	"github.com/mochiserver/mochibot/internal/flow"
)

func identityOf(u *tele.User) flow.Identity {
	if u == nil {
		return flow.Identity{}
	}
	return flow.Identity{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

// buildRegistry wires commands and callbacks into the shared registry.
func (a *App) buildRegistry() *tg.Registry {
	reg := tg.NewRegistry()

	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.handleStart,
		Description: "شروع و نمایش منوی اصلی",
	})

	selections := map[string]flow.Selection{
		"home":         flow.SelHome,
		"buy":          flow.SelBuy,
		"test":         flow.SelTest,
		"request_test": flow.SelRequestTest,
		"profile":      flow.SelProfile,
		"help":         flow.SelHelp,
		"discount":     flow.SelDiscount,
		"funds":        flow.SelFunds,
		"tier":         flow.SelTier,
		"wallet":       flow.SelWallet,
		"receipt":      flow.SelReceipt,
		"admin":        flow.SelAdminPanel,
		"user":         flow.SelUserInfo,
		"edit":         flow.SelEditUser,
		"block":        flow.SelBlockUser,
		"vip":          flow.SelVIP,
		"special":      flow.SelSpecial,
	}
	for key, sel := range selections {
		_ = reg.RegisterCallback(key, a.selectionHandler(sel))
	}
	_ = reg.RegisterCallback("buygrp", a.handleBuyGroup)
	_ = reg.RegisterCallback("answer", a.handleAnswer)

	reg.SetTextFallback(a.handleIdleText)
	return reg
}

func (a *App) handleStart(c tele.Context) error {
	ctx := tghelpers.WithHandler(c, "start")

	token := ""
	if m := c.Message(); m != nil {
		token = strings.TrimSpace(m.Payload)
	}
	return a.flow.Start(ctx, identityOf(c.Sender()), c.Chat().ID, token)
}

// selectionHandler adapts a menu callback onto the flow router. The tapped
// menu message is removed so screens replace each other.
func (a *App) selectionHandler(sel flow.Selection) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.WithHandler(c, "select."+string(sel))
		_ = c.Delete()
		payload := callbacks.CallbackPayload(c)
		return a.flow.SelectMenu(ctx, identityOf(c.Sender()), c.Chat().ID, sel, payload)
	}
}

// handleAnswer starts answering the relayed request the button is attached
// to. The message must survive: its id anchors the relay link.
func (a *App) handleAnswer(c tele.Context) error {
	ctx := tghelpers.WithHandler(c, "select.answer")

	cb := c.Callback()
	if cb == nil || cb.Message == nil {
		return nil
	}
	anchor := strconv.Itoa(cb.Message.ID)
	return a.flow.SelectMenu(ctx, identityOf(c.Sender()), c.Chat().ID, flow.SelAnswer, anchor)
}

// handleBuyGroup is pure menu navigation; no state or ledger involved.
func (a *App) handleBuyGroup(c tele.Context) error {
	tghelpers.WithHandler(c, "select.buygrp")
	_ = c.Delete()

	m := a.notifier.render.renderBuyGroup(callbacks.CallbackPayload(c))
	text, _ := m.what.(string)
	return tghelpers.SendText(c, text, m.opts)
}

func (a *App) handleIdleText(c tele.Context) error {
	ctx := tghelpers.WithHandler(c, "idle_text")
	return a.flow.SubmitText(ctx, identityOf(c.Sender()), c.Chat().ID, c.Text(), replyToID(c))
}

func (a *App) handleIdlePhoto(c tele.Context) error {
	ctx := tghelpers.WithHandler(c, "idle_photo")
	photoRef, caption := photoOf(c)
	return a.flow.SubmitPhoto(ctx, identityOf(c.Sender()), c.Chat().ID, photoRef, caption, replyToID(c))
}

// conversation adapts the flow router to the message router's FSM interface.
type conversation struct {
	app *App
}

func (f *conversation) InProgress(userID, chatID int64) bool {
	return f.app.sessions.InProgress(userID, chatID)
}

func (f *conversation) ManagerHandler(c tele.Context) error {
	ctx := tghelpers.WithHandler(c, "conversation")
	from := identityOf(c.Sender())

	if ref, caption := photoOf(c); ref != "" {
		return f.app.flow.SubmitPhoto(ctx, from, c.Chat().ID, ref, caption, replyToID(c))
	}
	return f.app.flow.SubmitText(ctx, from, c.Chat().ID, c.Text(), replyToID(c))
}

func replyToID(c tele.Context) int {
	if m := c.Message(); m != nil && m.ReplyTo != nil {
		return m.ReplyTo.ID
	}
	return 0
}

func photoOf(c tele.Context) (ref, caption string) {
	m := c.Message()
	if m == nil || m.Photo == nil {
		return "", ""
	}
	return m.Photo.FileID, m.Caption
}
