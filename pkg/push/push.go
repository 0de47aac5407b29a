// Package push forwards user notifications to external channels through
// shoutrrr service URLs (Slack, Telegram, Discord, generic webhooks, ...).
package push

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"strings"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/noah-isme/topfive-api/pkg/config"
)

// Message is one notification ready for delivery.
type Message struct {
	Title string
	Body  string
}

// Forwarder delivers messages to every configured URL. A forwarder built
// without URLs is disabled and Send is a no-op.
type Forwarder struct {
	sender *router.ServiceRouter
}

// NewForwarder validates the configured URLs and builds a sender.
func NewForwarder(cfg config.PushConfig) (*Forwarder, error) {
	if len(cfg.URLs) == 0 {
		return &Forwarder{}, nil
	}
	sender, err := shoutrrr.CreateSender(cfg.URLs...)
	if err != nil {
		return nil, fmt.Errorf("push: %s", redact(err.Error(), cfg.URLs))
	}
	if cfg.Timeout > 0 {
		sender.Timeout = cfg.Timeout
	} else {
		sender.Timeout = 10 * time.Second
	}
	sender.SetLogger(log.New(io.Discard, "", 0))
	return &Forwarder{sender: sender}, nil
}

// Enabled reports whether at least one URL is configured.
func (f *Forwarder) Enabled() bool {
	return f != nil && f.sender != nil
}

// Send delivers msg to all services and joins their failures.
func (f *Forwarder) Send(ctx context.Context, msg Message) error {
	if !f.Enabled() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := stypes.Params{}
	if msg.Title != "" {
		params.SetTitle(msg.Title)
	}

	var failures []error
	for _, err := range f.sender.Send(msg.Body, &params) {
		if err != nil {
			failures = append(failures, err)
		}
	}
	return errors.Join(failures...)
}

// redact strips credentials from any service URL echoed back in an error.
func redact(text string, urls []string) string {
	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil || u.User == nil {
			continue
		}
		masked := *u
		masked.User = url.User("***")
		text = strings.ReplaceAll(text, raw, masked.String())
	}
	return text
}
