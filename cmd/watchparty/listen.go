package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"watchparty/internal/config"
	"watchparty/internal/realtime"
	"watchparty/internal/relay"
	"watchparty/internal/settings"
)

// ListenCmd connects to a realtime channel and prints its events.
type ListenCmd struct {
	Path     string        `arg:"" help:"Channel path, e.g. /parties/1/"`
	Events   []string      `help:"Event types to print" default:"user_joined,chat_message,echo"`
	Send     []string      `short:"s" help:"Message to send after connecting (JSON or text, repeatable)"`
	Relay    string        `help:"AMQP URL to republish events to (overrides relay.url)"`
	Duration time.Duration `short:"d" help:"Stop after this long (0 waits for Ctrl+C)"`
	Raw      bool          `short:"r" help:"Print events as JSON lines"`
}

func (c *ListenCmd) Run(app *App) error {
	if !app.cfg.Feature(config.FeatureRealTimeChat) {
		return fmt.Errorf("feature %s is disabled", config.FeatureRealTimeChat)
	}

	token := app.token
	if token == "" && !app.cfg.UseMockData {
		if s, err := app.Settings(); err == nil {
			token, _ = settings.TokenSource{Store: s}.Token()
		}
	}

	var publisher *relay.Client
	if url := firstNonEmpty(c.Relay, app.cfg.RelayURL); url != "" {
		p, err := relay.NewClient(url, relay.Config{Logger: app.logger})
		if err != nil {
			return err
		}
		defer p.Close()
		publisher = p
	}

	base := app.ctx
	if c.Duration > 0 {
		var cancel context.CancelFunc
		base, cancel = context.WithTimeout(base, c.Duration)
		defer cancel()
	}
	ctx, cancel := context.WithCancelCause(base)
	defer cancel(nil)

	channel := realtime.New(c.Path, realtime.Options{
		Mock:    app.cfg.UseMockData,
		BaseURL: app.cfg.WSBaseURL,
		Logger:  app.logger,
	})
	for _, eventType := range c.Events {
		eventType = strings.TrimSpace(eventType)
		channel.On(eventType, func(data json.RawMessage) {
			now := time.Now()
			printEvent(stdout, now, eventType, data, c.Raw)
			if publisher == nil {
				return
			}
			if !publisher.IsConnected() {
				app.logger.Debug("Relay offline, dropping event", "type", eventType)
				return
			}
			body, err := relay.Encode(c.Path, eventType, data, now)
			if err == nil {
				err = publisher.Publish(ctx, eventType, body)
			}
			if err != nil {
				app.logger.Warn("Failed to relay event", "type", eventType, "error", err)
			}
		})
	}
	channel.OnGiveUp(func(attempts int) {
		cancel(fmt.Errorf("gave up after %d reconnection attempts", attempts))
	})

	if err := channel.Connect(ctx, token); err != nil {
		return err
	}
	defer channel.Disconnect()

	if !c.Raw {
		fmt.Fprintf(stdout, "Listening on %s (Ctrl+C to exit)\n", channel.URL(""))
		fmt.Fprintln(stdout, strings.Repeat("-", 40))
	}

	for _, msg := range c.Send {
		if err := channel.Send(ctx, parseValue(msg)); err != nil {
			return err
		}
	}

	<-ctx.Done()
	if err := context.Cause(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// RelayCmd groups relay commands.
type RelayCmd struct {
	Tail RelayTailCmd `cmd:"" help:"Print events published by listen --relay"`
}

// RelayTailCmd consumes relayed events.
type RelayTailCmd struct {
	Patterns []string `arg:"" optional:"" help:"Event type patterns (* one word, ** any)"`
	URL      string   `help:"AMQP URL (overrides relay.url)"`
	Raw      bool     `short:"r" help:"Print message bodies only"`
}

func (c *RelayTailCmd) Run(app *App) error {
	url := firstNonEmpty(c.URL, app.cfg.RelayURL)
	if url == "" {
		return fmt.Errorf("no relay URL configured")
	}
	client, err := relay.NewClient(url, relay.Config{Logger: app.logger})
	if err != nil {
		return err
	}
	defer client.Close()

	patterns := c.Patterns
	if len(patterns) == 0 {
		patterns = []string{"**"}
	}
	msgs, err := client.Subscribe(patterns)
	if err != nil {
		return err
	}

	for {
		select {
		case <-app.ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("relay subscription closed")
			}
			if c.Raw {
				fmt.Fprintln(stdout, string(msg.Body))
				continue
			}
			var env relay.Envelope
			if err := json.Unmarshal(msg.Body, &env); err != nil {
				app.logger.Warn("Skipping malformed relay message", "routing_key", msg.RoutingKey, "error", err)
				continue
			}
			printEvent(stdout, env.ReceivedAt.Local(), env.Type, env.Data, false)
		}
	}
}
