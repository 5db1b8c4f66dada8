package bot

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"github.com/mochiserver/mochibot/core/telegram/sender"
	"github.com/mochiserver/mochibot/internal/config"
	"github.com/mochiserver/mochibot/internal/flow"
)

// Notifier delivers flow outbounds over Telegram. User-bound messages go
// through the async sender dispatcher; support-bound messages are sent
// synchronously because the router needs the delivered message id to anchor
// relay links.
type Notifier struct {
	cfg    *config.Config
	render *renderer
	bot    atomic.Pointer[tele.Bot]
	disp   atomic.Pointer[sender.Dispatcher]
}

// NewNotifier constructs a notifier with the transport unbound. Bind must be
// called before the first send.
func NewNotifier(cfg *config.Config) *Notifier {
	return &Notifier{
		cfg:    cfg,
		render: &renderer{cfg: cfg},
	}
}

// Bind attaches the live bot and dispatcher once the runtime exists.
func (n *Notifier) Bind(b *tele.Bot, d *sender.Dispatcher) {
	n.bot.Store(b)
	if d != nil {
		n.disp.Store(d)
	}
}

func (n *Notifier) SendUser(ctx context.Context, userID int64, out flow.Outbound) error {
	b := n.bot.Load()
	if b == nil {
		return errors.New("notifier: transport not bound")
	}
	msgs := n.render.renderUser(out)
	if len(msgs) == 0 {
		return nil
	}

	to := &tele.User{ID: userID}
	run := func() error {
		return sendAll(b, to, msgs)
	}

	if d := n.disp.Load(); d != nil {
		err := d.Enqueue(ctx, "notify.user", "sendMessage", run)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sender.ErrQueueFull) && !errors.Is(err, sender.ErrQueueClosed) {
			return err
		}
		// Queue saturated: deliver inline rather than drop.
	}
	return run()
}

func (n *Notifier) SendAdmin(_ context.Context, out flow.Outbound) (int, error) {
	b := n.bot.Load()
	if b == nil {
		return 0, errors.New("notifier: transport not bound")
	}
	msgs := n.render.renderAdmin(out)
	if len(msgs) == 0 {
		return 0, nil
	}

	to := &tele.User{ID: n.cfg.Access.SupportID}

	first, err := send(b, to, msgs[0])
	if err != nil {
		return 0, fmt.Errorf("notifier: relay to support failed: %w", err)
	}
	if err := sendAll(b, to, msgs[1:]); err != nil {
		return first.ID, err
	}
	return first.ID, nil
}

func send(b *tele.Bot, to tele.Recipient, m message) (*tele.Message, error) {
	if m.opts != nil {
		return b.Send(to, m.what, m.opts)
	}
	return b.Send(to, m.what)
}

func sendAll(b *tele.Bot, to tele.Recipient, msgs []message) error {
	for _, m := range msgs {
		if _, err := send(b, to, m); err != nil {
			return err
		}
	}
	return nil
}
