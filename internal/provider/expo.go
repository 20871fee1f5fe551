package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultPushTimeout = 10 * time.Second

// Per-message error codes that mean the endpoint itself is unusable and
// should be deactivated.
var permanentReceiptErrors = map[string]struct{}{
	"DeviceNotRegistered": {},
	"InvalidCredentials":  {},
}

type expoMessage struct {
	To        string         `json:"to"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Data      map[string]any `json:"data,omitempty"`
	ChannelID string         `json:"channelId,omitempty"`
	Sound     string         `json:"sound,omitempty"`
}

type expoTicket struct {
	Status  string `json:"status"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
	Details struct {
		Error string `json:"error,omitempty"`
	} `json:"details"`
}

type expoResponse struct {
	Data []expoTicket `json:"data"`
}

// ExpoPushProvider submits message batches to an Expo-compatible push API
// and maps its per-message tickets onto receipts.
type ExpoPushProvider struct {
	client   *resty.Client
	endpoint string
}

func NewExpoPushProvider(endpoint string, accessToken string) (*ExpoPushProvider, error) {
	client := resty.New()
	client.SetTimeout(defaultPushTimeout)
	client.SetRetryCount(0)
	if token := strings.TrimSpace(accessToken); token != "" {
		client.SetHeader("Authorization", "Bearer "+token)
	}

	return NewExpoPushProviderWithClient(endpoint, client)
}

func NewExpoPushProviderWithClient(endpoint string, client *resty.Client) (*ExpoPushProvider, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("push endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid push endpoint: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultPushTimeout)
	}
	client.SetRetryCount(0)

	return &ExpoPushProvider{
		client:   client,
		endpoint: trimmedEndpoint,
	}, nil
}

func (p *ExpoPushProvider) SendBatch(ctx context.Context, messages []PushMessage) ([]Receipt, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}
	if len(messages) == 0 {
		return nil, nil
	}
	if len(messages) > MaxBatchSize {
		return nil, fmt.Errorf("batch of %d exceeds provider limit of %d", len(messages), MaxBatchSize)
	}

	reqBody := make([]expoMessage, 0, len(messages))
	for _, msg := range messages {
		reqBody = append(reqBody, expoMessage{
			To:        msg.Token,
			Title:     msg.Title,
			Body:      msg.Body,
			Data:      msg.Data,
			ChannelID: msg.Channel.String(),
			Sound:     "default",
		})
	}

	var parsed expoResponse
	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		SetResult(&parsed).
		Post(p.endpoint)
	if err != nil {
		return nil, &ProviderError{
			Message:   "push request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return nil, &ProviderError{
			Message:   "push provider returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return nil, &ProviderError{
			StatusCode: statusCode,
			Message:    providerErrorMessage(statusCode, strings.TrimSpace(response.String())),
			Transient:  isTransientHTTPStatus(statusCode),
		}
	}

	if len(parsed.Data) != len(messages) {
		return nil, &ProviderError{
			StatusCode: statusCode,
			Message:    fmt.Sprintf("push provider returned %d tickets for %d messages", len(parsed.Data), len(messages)),
			Transient:  true,
		}
	}

	receipts := make([]Receipt, 0, len(parsed.Data))
	for _, ticket := range parsed.Data {
		receipts = append(receipts, receiptFromTicket(ticket))
	}
	return receipts, nil
}

func receiptFromTicket(ticket expoTicket) Receipt {
	if strings.EqualFold(ticket.Status, "ok") {
		return Receipt{Status: ReceiptOK}
	}

	reason := strings.TrimSpace(ticket.Details.Error)
	if reason == "" {
		reason = strings.TrimSpace(ticket.Message)
	}
	if reason == "" {
		reason = "unspecified provider error"
	}

	if _, permanent := permanentReceiptErrors[ticket.Details.Error]; permanent {
		return Receipt{Status: ReceiptPermanent, Reason: reason}
	}
	return Receipt{Status: ReceiptTransient, Reason: reason}
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func providerErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("push provider returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}
