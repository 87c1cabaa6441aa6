package notify

import (
	"context"
	"fmt"
	"strings"

	"bloodlink/internal/utils"
	"bloodlink/pkg/types"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// MaxMulticastTokens is the FCM limit on tokens per multicast request.
const MaxMulticastTokens = 500

type multicastClient interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

type FirebaseConfig struct {
	ProjectID   string
	ClientEmail string
	PrivateKey  string
}

// FCMSender submits multicast pushes through Firebase Cloud Messaging.
type FCMSender struct {
	client multicastClient
}

// NewFCMSender builds a sender from service account fields. Missing fields
// yield an unconfigured sender rather than an error.
func NewFCMSender(ctx context.Context, cfg FirebaseConfig) (*FCMSender, error) {
	if cfg.ProjectID == "" || cfg.ClientEmail == "" || cfg.PrivateKey == "" {
		return &FCMSender{}, nil
	}

	credentials := utils.MustMarshalJSON(map[string]string{
		"type":         "service_account",
		"project_id":   cfg.ProjectID,
		"client_email": cfg.ClientEmail,
		// env files usually carry the PEM with escaped newlines
		"private_key": strings.ReplaceAll(cfg.PrivateKey, `\n`, "\n"),
		"token_uri":   "https://oauth2.googleapis.com/token",
	})

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, option.WithCredentialsJSON(credentials))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase messaging: %w", err)
	}

	return &FCMSender{client: client}, nil
}

func (s *FCMSender) Configured() bool {
	return s != nil && s.client != nil
}

// SendMulticast sends msg to every token. Tokens beyond the provider limit are
// split into several provider calls and the responses merged in token order.
func (s *FCMSender) SendMulticast(ctx context.Context, msg types.PushMessage) (*types.PushResult, error) {
	if !s.Configured() {
		return nil, types.ErrChannelUnavailable
	}

	result := &types.PushResult{
		Responses: make([]types.PushTokenResult, 0, len(msg.Tokens)),
	}

	var lastErr error
	chunks, failedChunks := 0, 0

	for start := 0; start < len(msg.Tokens); start += MaxMulticastTokens {
		end := min(start+MaxMulticastTokens, len(msg.Tokens))
		chunk := msg.Tokens[start:end]
		chunks++

		resp, err := s.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
			Tokens: chunk,
			Notification: &messaging.Notification{
				Title: msg.Title,
				Body:  msg.Body,
			},
			Data: msg.Data,
		})
		if err != nil {
			lastErr = err
			failedChunks++
			for _, token := range chunk {
				result.Responses = append(result.Responses, types.PushTokenResult{Token: token, Error: err})
				result.FailureCount++
			}
			continue
		}

		for i, token := range chunk {
			r := types.PushTokenResult{Token: token}
			if i < len(resp.Responses) && resp.Responses[i] != nil {
				r.Success = resp.Responses[i].Success
				r.MessageID = resp.Responses[i].MessageID
				r.Error = resp.Responses[i].Error
			} else {
				r.Error = fmt.Errorf("missing response for token")
			}

			if r.Success {
				result.SuccessCount++
			} else {
				result.FailureCount++
			}
			result.Responses = append(result.Responses, r)
		}
	}

	if chunks > 0 && failedChunks == chunks {
		return nil, fmt.Errorf("failed to send multicast: %w", lastErr)
	}

	return result, nil
}
