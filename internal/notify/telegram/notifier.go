// Package telegram delivers deal notifications through the Telegram Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/farewatch/farewatch/internal/deal"
	"github.com/farewatch/farewatch/internal/flight"
	"github.com/farewatch/farewatch/internal/resilience"
)

// DefaultBaseURL is the Telegram Bot API host.
const DefaultBaseURL = "https://api.telegram.org"

// Typed delivery failures, for callers that branch on cause.
var (
	// ErrInvalidToken is returned when the bot token is rejected.
	ErrInvalidToken = errors.New("telegram bot token rejected")

	// ErrChatUnavailable is returned when the chat does not exist or the
	// user has blocked the bot.
	ErrChatUnavailable = errors.New("telegram chat unavailable")
)

// DeliveryError is any other failure to deliver a message.
type DeliveryError struct {
	StatusCode  int
	Description string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("telegram delivery failed (%d): %s", e.StatusCode, e.Description)
}

// Config holds Telegram notifier configuration.
type Config struct {
	// BotToken is the token issued by @BotFather (required).
	BotToken string

	// BaseURL defaults to the Telegram API host.
	BaseURL string

	// UseTestEnvironment routes calls to Telegram's test environment.
	UseTestEnvironment bool

	// HTTPClient is the resilient transport. If nil, one is created with
	// defaults.
	HTTPClient *resilience.Client

	// Logger for notifier operations. The bot token is never logged.
	Logger zerolog.Logger
}

// Notifier sends formatted deal messages via the Bot API. Safe for
// concurrent use.
type Notifier struct {
	methodBase string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewNotifier creates a Telegram notifier.
func NewNotifier(cfg Config) *Notifier {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	methodBase := baseURL + "/bot" + cfg.BotToken
	if cfg.UseTestEnvironment {
		methodBase += "/test"
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.ClientConfig{Name: "telegram"})
	}

	return &Notifier{
		methodBase: methodBase,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// SendDeal formats the matched offer and delivers it to the chat.
func (n *Notifier) SendDeal(ctx context.Context, chatID int64, offer flight.Offer, result deal.MatchResult) error {
	if err := n.SendMessage(ctx, chatID, FormatDeal(offer, result)); err != nil {
		return err
	}
	n.logger.Info().
		Int64("chat_id", chatID).
		Str("offer_id", offer.ID).
		Str("price", offer.Price.Total.String()).
		Str("currency", offer.Price.Currency).
		Msg("deal notification sent")
	return nil
}

type sendMessageRequest struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

// SendMessage delivers a MarkdownV2 message to the chat.
func (n *Notifier) SendMessage(ctx context.Context, chatID int64, text string) error {
	payload, err := json.Marshal(sendMessageRequest{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "MarkdownV2",
	})
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.methodBase+"/sendMessage", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(ctx, req)
	if err != nil {
		var statusErr *resilience.StatusError
		if errors.As(err, &statusErr) {
			defer resp.Body.Close()
			return n.deliveryError(resp)
		}
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return n.deliveryError(resp)
	}
	return nil
}

// deliveryError maps a Bot API error response to the typed failure set:
// 401 means a bad token, 400/403 an unreachable chat, anything else a plain
// delivery failure.
func (n *Notifier) deliveryError(resp *http.Response) error {
	var envelope apiResponse
	_ = json.NewDecoder(resp.Body).Decode(&envelope)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return ErrInvalidToken
	case http.StatusForbidden, http.StatusBadRequest:
		if envelope.Description != "" {
			return fmt.Errorf("%w: %s", ErrChatUnavailable, envelope.Description)
		}
		return ErrChatUnavailable
	}
	return &DeliveryError{StatusCode: resp.StatusCode, Description: envelope.Description}
}
