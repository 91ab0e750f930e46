package alerts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/soladkov/beatkeeper/internal/domain/channel"
	"github.com/soladkov/beatkeeper/internal/domain/check"
	"github.com/soladkov/beatkeeper/internal/domain/notification"
	"github.com/soladkov/beatkeeper/internal/signing"
)

// Email delivers alerts over SMTP. Unverified addresses are skipped without
// a record: until the owner confirms the address, the channel is inert.
type Email struct {
	cfg  *channel.EmailConfig
	ch   *channel.Channel
	deps *Deps
}

func NewEmail(ch *channel.Channel, d *Deps) (Transport, error) {
	cfg, err := ch.EmailConfig()
	if err != nil {
		return nil, err
	}
	return &Email{cfg: cfg, ch: ch, deps: d}, nil
}

func (e *Email) IsNoop(_ *check.Check) bool {
	return !e.ch.EmailVerified
}

func (e *Email) Notify(ctx context.Context, chk *check.Check, n *notification.Notification) error {
	subject := alertText(chk)

	var b strings.Builder
	fmt.Fprintf(&b, "Hello,\n\n%s.\n\n", alertText(chk))
	if chk.LastPing != nil {
		fmt.Fprintf(&b, "Last ping was received at %s.\n", chk.LastPing.UTC().Format(time.RFC3339))
	} else {
		b.WriteString("No pings have been received yet.\n")
	}
	fmt.Fprintf(&b, "\nDetails: %s/checks/%s\n", e.deps.App.SiteRoot, chk.Code)
	fmt.Fprintf(&b, "Bounce reports: %s\n", n.BounceURL(e.deps.App.SiteRoot))
	fmt.Fprintf(&b, "\nTo stop receiving these alerts, visit:\n%s\n", e.unsubURL())

	return e.deps.Mail.Send(ctx, e.cfg.To, subject, b.String())
}

func (e *Email) unsubURL() string {
	code := e.ch.Code.String()
	token := signing.Token(code, e.deps.App.SecretKey)
	return fmt.Sprintf("%s/unsubscribe/%s/%s", e.deps.App.SiteRoot, code, token)
}
