package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultTelegramBaseURL = "https://api.telegram.org"

// TelegramService sends admin notifications through the Telegram Bot API.
type TelegramService struct {
	baseURL     string
	botToken    string
	adminChatID string
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewTelegramService creates a new TelegramService. An empty baseURL selects
// the public Bot API.
func NewTelegramService(baseURL, botToken, adminChatID string, logger *zap.Logger) *TelegramService {
	if baseURL == "" {
		baseURL = defaultTelegramBaseURL
	}
	return &TelegramService{
		baseURL:     strings.TrimRight(baseURL, "/"),
		botToken:    botToken,
		adminChatID: adminChatID,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		logger:      logger,
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends an HTML message to chatID.
func (s *TelegramService) SendMessage(ctx context.Context, chatID, text string) error {
	if s.botToken == "" {
		s.logger.Debug("telegram bot token not configured")
		return nil
	}

	body, err := json.Marshal(telegramMessage{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}
	return nil
}

// SendToAdmin sends a message to the admin chat.
func (s *TelegramService) SendToAdmin(ctx context.Context, text string) error {
	if s.adminChatID == "" {
		s.logger.Debug("telegram admin chat id not configured")
		return nil
	}
	return s.SendMessage(ctx, s.adminChatID, text)
}

// PaymentCapturedNotification describes a confirmed capture.
type PaymentCapturedNotification struct {
	OrderID     string
	GatewayName string
	UserID      string
}

// NotifyPaymentCaptured tells the admin chat about a confirmed capture.
// Delivery failures are logged and swallowed.
func (s *TelegramService) NotifyPaymentCaptured(ctx context.Context, payment PaymentCapturedNotification) {
	message := fmt.Sprintf(`<b>✅ PAYMENT CAPTURED</b>
<b>📋 Order:</b> %s
<b>💳 Gateway:</b> %s
<b>👤 User:</b> %s
━━━━━━━━━━━━━━━━━━`,
		html.EscapeString(payment.OrderID),
		html.EscapeString(payment.GatewayName),
		html.EscapeString(orDash(payment.UserID)),
	)

	if err := s.SendToAdmin(ctx, message); err != nil {
		s.logger.Warn("failed to send telegram notification",
			zap.String("order_id", payment.OrderID),
			zap.Error(err))
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
