package flows

import (
	"context"
	"fmt"

	"github.com/MrEthical07/goStudyAuth/notify"
)

// message is a rendered-later notification bound for one address.
type message struct {
	channel   Channel
	tenantID  string
	to        string
	template  string
	variables map[string]string
}

func newMessage(ch Channel, tenant Tenant, to, template string) *message {
	return &message{
		channel:  ch,
		tenantID: tenant.ID,
		to:       to,
		template: template,
		variables: map[string]string{
			notify.VarStudyName: tenant.Name,
		},
	}
}

func (m *message) set(name, value string) *message {
	m.variables[name] = value
	return m
}

func (m *message) send(ctx context.Context, d notify.Dispatcher) error {
	var err error
	switch m.channel {
	case ChannelPhone:
		err = d.SendSMS(ctx, notify.SMSMessage{
			TemplateKey: m.template,
			TenantID:    m.tenantID,
			To:          m.to,
			Variables:   m.variables,
		})
	default:
		err = d.SendEmail(ctx, notify.EmailMessage{
			TemplateKey: m.template,
			TenantID:    m.tenantID,
			To:          m.to,
			Variables:   m.variables,
		})
	}
	if err != nil {
		return fmt.Errorf("send %s: %w", m.template, err)
	}
	return nil
}

// unavailable wraps an infrastructure failure in the public sentinel.
func unavailable(sentinel, err error) error {
	if sentinel == nil {
		return err
	}
	return fmt.Errorf("%w: %v", sentinel, err)
}
