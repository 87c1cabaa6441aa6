package types

import "errors"

// Match pairs a donor with their distance to a request. Matches are never
// persisted.
type Match struct {
	Donor    *Donor
	Distance Distance
}

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
)

// NotificationOutcome is the result of one channel attempt for one donor.
type NotificationOutcome struct {
	DonorID string  `json:"donorId"`
	Channel Channel `json:"channel"`
	Success bool    `json:"success"`
	Error   string  `json:"error,omitempty"`

	Err error `json:"-"`
}

func SentOutcome(donorID string, channel Channel) NotificationOutcome {
	return NotificationOutcome{DonorID: donorID, Channel: channel, Success: true}
}

func FailedOutcome(donorID string, channel Channel, err error) NotificationOutcome {
	o := NotificationOutcome{DonorID: donorID, Channel: channel, Err: err}
	if err != nil {
		o.Error = err.Error()
	}
	return o
}

// Unavailable reports whether the channel was skipped for lack of configuration.
func (o NotificationOutcome) Unavailable() bool {
	return errors.Is(o.Err, ErrChannelUnavailable)
}

// MatchResult is what a single matching run hands back to the publisher.
type MatchResult struct {
	Matches   []Match
	BestMatch *Match
	Outcomes  []NotificationOutcome
}

// PushMessage is one multicast push submission.
type PushMessage struct {
	Tokens []string
	Title  string
	Body   string
	Data   map[string]string
}

type PushTokenResult struct {
	Token     string
	Success   bool
	MessageID string
	Error     error
}

// PushResult mirrors the provider's multicast response. Responses are in the
// same order as PushMessage.Tokens.
type PushResult struct {
	SuccessCount int
	FailureCount int
	Responses    []PushTokenResult
}

// FailedTokens returns the tokens the provider rejected.
func (r *PushResult) FailedTokens() []string {
	if r == nil {
		return nil
	}

	out := make([]string, 0, r.FailureCount)
	for _, resp := range r.Responses {
		if !resp.Success {
			out = append(out, resp.Token)
		}
	}
	return out
}
