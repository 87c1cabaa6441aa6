// Package notify fans blood request alerts out to matched donors over email
// and push. Delivery is best effort: failures are recorded per donor and
// never returned to the caller.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bloodlink/pkg/types"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// MinPushTokenLength is the shortest token accepted for a push submission.
const MinPushTokenLength = 11

const defaultEmailConcurrency = 8

var ErrInvalidPushToken = errors.New("invalid push token")

type EmailSender interface {
	Configured() bool
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type PushSender interface {
	Configured() bool
	SendMulticast(ctx context.Context, msg types.PushMessage) (*types.PushResult, error)
}

type Dispatcher struct {
	logger           logrus.FieldLogger
	email            EmailSender
	push             PushSender
	baseURL          string
	emailConcurrency int
}

func NewDispatcher(logger logrus.FieldLogger, email EmailSender, push PushSender, baseURL string, emailConcurrency int) *Dispatcher {
	if emailConcurrency <= 0 {
		emailConcurrency = defaultEmailConcurrency
	}

	return &Dispatcher{
		logger:           logger,
		email:            email,
		push:             push,
		baseURL:          baseURL,
		emailConcurrency: emailConcurrency,
	}
}

type emailRecipient struct {
	donorID string
	address string
}

// NotifyAll emails every matched donor with an address and sends one push
// multicast covering every matched donor with a usable token. Each donor is
// contacted at most once per channel.
func (d *Dispatcher) NotifyAll(ctx context.Context, matches []types.Match, req *types.BloodRequest) []types.NotificationOutcome {
	if len(matches) == 0 {
		return []types.NotificationOutcome{}
	}

	entry := d.logger.WithField("request_id", req.ID)

	var recipients []emailRecipient
	var pushDonors []*types.Donor

	seen := make(map[string]bool, len(matches))
	for _, m := range matches {
		if m.Donor == nil || seen[m.Donor.ID] {
			continue
		}
		seen[m.Donor.ID] = true

		if m.Donor.Email != nil && strings.TrimSpace(*m.Donor.Email) != "" {
			recipients = append(recipients, emailRecipient{
				donorID: m.Donor.ID,
				address: strings.TrimSpace(*m.Donor.Email),
			})
		}

		if m.Donor.PushToken != nil {
			pushDonors = append(pushDonors, m.Donor)
		}
	}

	msg, err := renderContent(d.baseURL, req)
	if err != nil {
		entry.WithError(err).Error("failed to render notification content")
		return failAll(recipients, pushDonors, err)
	}

	outcomes := make([]types.NotificationOutcome, 0, len(recipients)+len(pushDonors))
	outcomes = append(outcomes, d.sendEmails(ctx, entry, msg, recipients)...)
	outcomes = append(outcomes, d.sendPush(ctx, entry, msg, pushDonors)...)

	return outcomes
}

func (d *Dispatcher) sendEmails(ctx context.Context, entry logrus.FieldLogger, msg *content, recipients []emailRecipient) []types.NotificationOutcome {
	if len(recipients) == 0 {
		return nil
	}

	results := make([]types.NotificationOutcome, len(recipients))

	if d.email == nil || !d.email.Configured() {
		for i, r := range recipients {
			results[i] = types.FailedOutcome(r.donorID, types.ChannelEmail, types.ErrChannelUnavailable)
		}
		entry.WithFields(logrus.Fields{
			"channel":     types.ChannelEmail,
			"unavailable": len(recipients),
		}).Warn("email channel not configured, skipping")
		return results
	}

	var g errgroup.Group
	g.SetLimit(d.emailConcurrency)

	for i, r := range recipients {
		g.Go(func() error {
			err := d.email.Send(ctx, r.address, msg.EmailSubject, msg.EmailHTML)
			if err != nil {
				entry.WithError(err).WithField("donor_id", r.donorID).Warn("email delivery failed")
				results[i] = types.FailedOutcome(r.donorID, types.ChannelEmail, deliveryError(err))
				return nil
			}

			results[i] = types.SentOutcome(r.donorID, types.ChannelEmail)
			return nil
		})
	}

	// goroutines never return an error; failures live in results
	_ = g.Wait()

	sent, failed := countOutcomes(results)
	entry.WithFields(logrus.Fields{
		"channel": types.ChannelEmail,
		"sent":    sent,
		"failed":  failed,
	}).Info("email dispatch complete")

	return results
}

func (d *Dispatcher) sendPush(ctx context.Context, entry logrus.FieldLogger, msg *content, donors []*types.Donor) []types.NotificationOutcome {
	if len(donors) == 0 {
		return nil
	}

	results := make([]types.NotificationOutcome, 0, len(donors))

	// several donors may share a device token; the token is sent once
	var tokens []string
	tokenDonors := make(map[string][]string)

	for _, donor := range donors {
		token := strings.TrimSpace(*donor.PushToken)
		if len(token) < MinPushTokenLength {
			results = append(results, types.FailedOutcome(donor.ID, types.ChannelPush, ErrInvalidPushToken))
			continue
		}

		if _, ok := tokenDonors[token]; !ok {
			tokens = append(tokens, token)
		}
		tokenDonors[token] = append(tokenDonors[token], donor.ID)
	}

	if len(tokens) == 0 {
		return results
	}

	if d.push == nil || !d.push.Configured() {
		unavailable := 0
		for _, token := range tokens {
			for _, donorID := range tokenDonors[token] {
				results = append(results, types.FailedOutcome(donorID, types.ChannelPush, types.ErrChannelUnavailable))
				unavailable++
			}
		}
		entry.WithFields(logrus.Fields{
			"channel":     types.ChannelPush,
			"unavailable": unavailable,
		}).Warn("push channel not configured, skipping")
		return results
	}

	resp, err := d.push.SendMulticast(ctx, types.PushMessage{
		Tokens: tokens,
		Title:  msg.PushTitle,
		Body:   msg.PushBody,
		Data:   msg.PushData,
	})
	if err != nil {
		entry.WithError(err).WithField("tokens", len(tokens)).Error("push multicast failed")
		for _, token := range tokens {
			for _, donorID := range tokenDonors[token] {
				results = append(results, types.FailedOutcome(donorID, types.ChannelPush, deliveryError(err)))
			}
		}
		return results
	}
	if resp == nil {
		resp = &types.PushResult{}
	}

	byToken := make(map[string]types.PushTokenResult, len(resp.Responses))
	for _, r := range resp.Responses {
		byToken[r.Token] = r
	}

	for _, token := range tokens {
		r, ok := byToken[token]
		for _, donorID := range tokenDonors[token] {
			switch {
			case !ok:
				results = append(results, types.FailedOutcome(donorID, types.ChannelPush, fmt.Errorf("%w: no provider response for token", types.ErrDeliveryFailed)))
			case r.Success:
				results = append(results, types.SentOutcome(donorID, types.ChannelPush))
			default:
				results = append(results, types.FailedOutcome(donorID, types.ChannelPush, deliveryError(r.Error)))
			}
		}
	}

	fields := logrus.Fields{
		"channel": types.ChannelPush,
		"tokens":  len(tokens),
		"sent":    resp.SuccessCount,
		"failed":  resp.FailureCount,
	}
	if failed := resp.FailedTokens(); len(failed) > 0 {
		fields["failed_tokens"] = failed
	}
	entry.WithFields(fields).Info("push dispatch complete")

	return results
}

func deliveryError(err error) error {
	if err == nil {
		return fmt.Errorf("%w: rejected by provider", types.ErrDeliveryFailed)
	}
	return fmt.Errorf("%w: %w", types.ErrDeliveryFailed, err)
}

func failAll(recipients []emailRecipient, pushDonors []*types.Donor, err error) []types.NotificationOutcome {
	out := make([]types.NotificationOutcome, 0, len(recipients)+len(pushDonors))
	for _, r := range recipients {
		out = append(out, types.FailedOutcome(r.donorID, types.ChannelEmail, err))
	}
	for _, donor := range pushDonors {
		out = append(out, types.FailedOutcome(donor.ID, types.ChannelPush, err))
	}
	return out
}

func countOutcomes(outcomes []types.NotificationOutcome) (sent, failed int) {
	for _, o := range outcomes {
		if o.Success {
			sent++
		} else {
			failed++
		}
	}
	return sent, failed
}
