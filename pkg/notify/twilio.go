package notify

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioProvider sends the member an SMS for notifications that warrant
// immediate attention (rank upgrades, payouts).
type TwilioProvider struct {
	client     *twilio.RestClient
	fromNumber string
}

func NewTwilioProvider(accountSID, authToken, fromNumber string) *TwilioProvider {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return &TwilioProvider{
		client:     client,
		fromNumber: fromNumber,
	}
}

func (p *TwilioProvider) Publish(ctx context.Context, message *Message) error {
	if message.Phone == "" {
		return nil
	}

	params := &api.CreateMessageParams{}
	params.SetTo(message.Phone)
	params.SetFrom(p.fromNumber)
	params.SetBody(message.Body)

	if _, err := p.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	return nil
}

func (p *TwilioProvider) Name() string {
	return "twilio"
}
