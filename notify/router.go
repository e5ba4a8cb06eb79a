package notify

import (
	"context"

	"go.uber.org/zap"
)

// Router renders templates and hands the result to a transport.
type Router struct {
	templates Templates
	email     EmailSender
	sms       SMSSender
	log       *zap.Logger
}

// NewRouter returns a Dispatcher. A nil sender disables that channel.
func NewRouter(templates Templates, email EmailSender, sms SMSSender, log *zap.Logger) *Router {
	if templates == nil {
		templates = DefaultTemplates()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{templates: templates, email: email, sms: sms, log: log.Named("notify")}
}

// SendEmail implements Dispatcher.
func (r *Router) SendEmail(ctx context.Context, msg EmailMessage) error {
	if r.email == nil {
		return ErrNoTransport
	}
	out, err := r.templates.Render(msg.TemplateKey, msg.Variables)
	if err != nil {
		return err
	}
	if err := r.email.SendEmail(ctx, msg.To, out.Subject, out.Body, out.HTML); err != nil {
		r.log.Warn("email delivery failed",
			zap.String("template", msg.TemplateKey),
			zap.String("tenant_id", msg.TenantID),
			zap.Error(err),
		)
		return err
	}
	r.log.Debug("email sent", zap.String("template", msg.TemplateKey), zap.String("tenant_id", msg.TenantID))
	return nil
}

// SendSMS implements Dispatcher.
func (r *Router) SendSMS(ctx context.Context, msg SMSMessage) error {
	if r.sms == nil {
		return ErrNoTransport
	}
	out, err := r.templates.Render(msg.TemplateKey, msg.Variables)
	if err != nil {
		return err
	}
	if err := r.sms.SendSMS(ctx, msg.To, out.Body); err != nil {
		r.log.Warn("sms delivery failed",
			zap.String("template", msg.TemplateKey),
			zap.String("tenant_id", msg.TenantID),
			zap.Error(err),
		)
		return err
	}
	r.log.Debug("sms sent", zap.String("template", msg.TemplateKey), zap.String("tenant_id", msg.TenantID))
	return nil
}

// LogSender writes messages to a logger instead of delivering them.
// It satisfies both EmailSender and SMSSender and is meant for local runs.
type LogSender struct {
	Log *zap.Logger
}

func (l LogSender) SendEmail(_ context.Context, to, subject, body string, _ bool) error {
	l.logger().Info("email", zap.String("to", to), zap.String("subject", subject), zap.String("body", body))
	return nil
}

func (l LogSender) SendSMS(_ context.Context, to, body string) error {
	l.logger().Info("sms", zap.String("to", to), zap.String("body", body))
	return nil
}

func (l LogSender) logger() *zap.Logger {
	if l.Log == nil {
		return zap.NewNop()
	}
	return l.Log
}
