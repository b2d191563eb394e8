package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gouchan/seatsniper-sub001/internal/listing"
	"github.com/gouchan/seatsniper-sub001/internal/scoring"
)

// Notification carries one event's ranked picks to a delivery channel.
type Notification struct {
	SweepTS   time.Time
	Event     listing.Event
	Top       []listing.TopValueListing
	Recipient string
	Channels  []string
}

// Notifier delivers alert notifications.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier pushes messages through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram notifier.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify sends the rendered message via the sendMessage API.
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram unexpected status: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram returned ok=false")
		}
	}

	n.logger.Info().Time("sweep", note.SweepTS).
		Str("event_id", note.Event.ID).
		Str("recipient", note.Recipient).
		Str("channels", strings.Join(note.Channels, ",")).
		Msg("alert dispatched (Telegram)")
	return nil
}

func renderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("[seatsniper] %s\n", note.Event.Name))
	builder.WriteString(fmt.Sprintf("%s | %s UTC\n", note.Event.Venue, note.Event.Date.UTC().Format("Jan 2 15:04")))
	builder.WriteString(fmt.Sprintf("Sweep: %s UTC\n\n", note.SweepTS.UTC().Format(time.RFC3339)))

	for _, top := range note.Top {
		builder.WriteString(fmt.Sprintf("#%d %s | sec %s row %s | $%s x%d\n",
			top.Rank, top.Platform, top.Section, top.Row, top.PricePerTicket.StringFixed(2), top.Quantity))
		builder.WriteString(fmt.Sprintf("    score %d/100 - %s\n", top.ValueScore, top.Recommendation))
		if top.ROIConfidence != scoring.ConfidenceLow {
			builder.WriteString(fmt.Sprintf("    est. resale ROI %+d%% (%s confidence)\n", top.EstimatedROI, top.ROIConfidence))
		}
		if top.DeepLink != "" {
			builder.WriteString(fmt.Sprintf("    %s\n", top.DeepLink))
		}
	}
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
