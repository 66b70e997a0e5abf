package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mkasimov/beat808-backend/pkg/config"
	"github.com/mkasimov/beat808-backend/pkg/db/models"
	"github.com/mkasimov/beat808-backend/pkg/enums"
	"github.com/mkasimov/beat808-backend/pkg/logger"
	"github.com/mkasimov/beat808-backend/pkg/money"
)

// Telegram posts operator notifications to a Telegram chat. Sends are
// best-effort: failures are logged and never propagate to the caller's
// request path.
type Telegram struct {
	apiBase  string
	botToken string
	chatID   string
	client   *http.Client
	logg     *logger.Logger
}

// NewTelegram builds the Telegram notifier. Returns a disabled no-op
// sink when the bot is not configured.
func NewTelegram(cfg config.TelegramConfig, logg *logger.Logger) *Telegram {
	if logg == nil {
		return nil
	}
	if !cfg.Enabled() {
		return &Telegram{logg: logg}
	}
	return &Telegram{
		apiBase:  cfg.APIBase,
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		client:   &http.Client{Timeout: 10 * time.Second},
		logg:     logg,
	}
}

func (t *Telegram) enabled() bool {
	return t != nil && t.client != nil
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

func (t *Telegram) send(ctx context.Context, text string) {
	if !t.enabled() {
		return
	}

	payload, err := json.Marshal(sendMessageRequest{ChatID: t.chatID, Text: text})
	if err != nil {
		t.logg.Error(ctx, "encode telegram message", err)
		return
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.logg.Error(ctx, "build telegram request", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		t.logg.Error(ctx, "send telegram message", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.logg.Error(ctx, "send telegram message", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
}

func (t *Telegram) NotifyNewOrder(ctx context.Context, order *models.Order) {
	t.send(ctx, fmt.Sprintf(
		"New order %s\nBeat: %s (%s)\nBuyer: %s\nSeller: %s\nPrice: %s",
		order.OrderRef, order.BeatTitle, order.License,
		order.BuyerName, order.SellerName, money.Format(order.PriceCents),
	))
}

func (t *Telegram) NotifyDispute(ctx context.Context, order *models.Order, reason string, raisedBy enums.ActorRole) {
	t.send(ctx, fmt.Sprintf(
		"Dispute opened on %s by %s\nBeat: %s\nReason: %s",
		order.OrderRef, raisedBy, order.BeatTitle, reason,
	))
}

func (t *Telegram) NotifyRefund(ctx context.Context, purchase *models.Purchase) {
	t.send(ctx, fmt.Sprintf(
		"Refund issued\nBeat: %s (%s)\nBuyer: %s\nAmount: %s",
		purchase.BeatTitle, purchase.License,
		purchase.BuyerName, money.Format(purchase.PriceCents),
	))
}

func (t *Telegram) NotifyWithdrawalRequest(ctx context.Context, withdrawal *models.Withdrawal) {
	t.send(ctx, fmt.Sprintf(
		"Withdrawal requested by %s\nAmount: %s\nMethod: %s",
		withdrawal.UserName, money.Format(withdrawal.AmountCents), withdrawal.Method,
	))
}
