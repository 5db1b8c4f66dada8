package bot

import (
	"strings"
	"testing"

	"github.com/mochiserver/mochibot/internal/config"
	"github.com/mochiserver/mochibot/internal/flow"
	"github.com/mochiserver/mochibot/internal/pending"
	"github.com/mochiserver/mochibot/internal/relay"
)

func TestRenderAnswerPromptForceReply(t *testing.T) {
	r := &renderer{cfg: &config.Config{}}

	msgs := r.renderAdmin(flow.Outbound{
		Notice:     flow.NoticeAnswerPrompt,
		TargetID:   7,
		ForceReply: true,
	})
	if len(msgs) != 1 {
		t.Fatalf("message count = %d", len(msgs))
	}
	if msgs[0].opts == nil || msgs[0].opts.ReplyMarkup == nil || !msgs[0].opts.ReplyMarkup.ForceReply {
		t.Fatalf("prompt should carry force-reply markup, got %+v", msgs[0].opts)
	}

	msgs = r.renderAdmin(flow.Outbound{Notice: flow.NoticeAnswerPrompt, TargetID: 7})
	if len(msgs) != 1 {
		t.Fatalf("message count = %d", len(msgs))
	}
	if msgs[0].opts != nil {
		t.Fatalf("plain prompt should not force a reply, got %+v", msgs[0].opts)
	}
}

func TestRenderRelayHeader(t *testing.T) {
	r := &renderer{cfg: &config.Config{}}

	msgs := r.renderAdmin(flow.Outbound{Relay: &flow.Relay{
		Link:    relay.Link{UserID: 7, FirstName: "Sam", Username: "sam", Tag: relay.TagPaidConfig},
		Payload: pending.Payload{Kind: pending.PayloadText, Text: "paid"},
		Amount:  60000,
	}})
	if len(msgs) != 1 {
		t.Fatalf("message count = %d", len(msgs))
	}
	header, ok := msgs[0].what.(string)
	if !ok {
		t.Fatalf("relay message is %T, want string", msgs[0].what)
	}
	if !strings.Contains(header, "from: 7") || !strings.Contains(header, "Amount paid: 60000") {
		t.Fatalf("unexpected relay header: %q", header)
	}
	if msgs[0].opts == nil || msgs[0].opts.ReplyMarkup == nil {
		t.Fatal("relay must carry the answer button")
	}
}
