// Package telegram delivers agent alerts through the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fd1az/flashloan-arb/business/agent/app"
	"github.com/fd1az/flashloan-arb/internal/httpclient"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

const (
	DefaultBaseURL = "https://api.telegram.org"
	defaultTimeout = 10 * time.Second
	parseMode      = "MarkdownV2"
)

var _ app.Alerter = (*Alerter)(nil)

// Config holds the bot credentials.
type Config struct {
	BaseURL  string
	BotToken string
	ChatID   string
	Timeout  time.Duration
}

// Alerter posts every alert as a MarkdownV2 message. Failed deliveries
// are logged and dropped.
type Alerter struct {
	client httpclient.Client
	path   string
	chatID string
	logger logger.LoggerInterface
}

type sendMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// NewAlerter builds an alerter on an instrumented client.
func NewAlerter(cfg Config, log logger.LoggerInterface, opts ...httpclient.ClientOption) (*Alerter, error) {
	if cfg.BotToken == "" || cfg.ChatID == "" {
		return nil, errors.New("telegram: bot token and chat id are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	token := cfg.BotToken
	clientOpts := append([]httpclient.ClientOption{
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithProviderName("telegram"),
		httpclient.WithRequestTimeout(cfg.Timeout),
		httpclient.WithHeaders(map[string]string{"Accept": "application/json"}),
		httpclient.WithURLRedactor(func(u string) string {
			return strings.ReplaceAll(u, token, "<redacted>")
		}),
	}, opts...)
	client, err := httpclient.NewInstrumentedClient(clientOpts...)
	if err != nil {
		return nil, err
	}

	return &Alerter{
		client: client,
		path:   "/bot" + token + "/sendMessage",
		chatID: cfg.ChatID,
		logger: log,
	}, nil
}

// Alert sends text, escaped for MarkdownV2.
func (a *Alerter) Alert(ctx context.Context, text string) {
	resp, err := a.client.NewRequest().
		SetBody(sendMessage{ChatID: a.chatID, Text: Escape(text), ParseMode: parseMode}).
		Post(ctx, a.path)
	if err != nil {
		a.logger.Error(ctx, "telegram alert error", "error", err)
		return
	}
	if resp.StatusCode != 200 {
		a.logger.Error(ctx, "failed to send telegram alert", "status", resp.StatusCode, "body", resp.String())
	}
}

var escaper = strings.NewReplacer(
	`\`, `\\`,
	"_", `\_`, "*", `\*`, "[", `\[`, "]", `\]`, "(", `\(`, ")", `\)`,
	"~", `\~`, "`", "\\`", ">", `\>`, "#", `\#`, "+", `\+`, "-", `\-`,
	"=", `\=`, "|", `\|`, "{", `\{`, "}", `\}`, ".", `\.`, "!", `\!`,
)

// Escape backslash-escapes the characters MarkdownV2 reserves.
func Escape(text string) string {
	return escaper.Replace(text)
}
