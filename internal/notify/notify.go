// Package notify es el sink de notificaciones salientes (email).
//
// El core lo trata como fire-and-forget: el despacho ocurre después de que el
// write de estado commiteó, y un fallo de envío nunca lo revierte. A lo sumo
// deja una línea de log y un contador.
package notify

import (
	"context"

	"github.com/dropDatabas3/loandesk/internal/metrics"
	"github.com/dropDatabas3/loandesk/internal/observability/logger"
)

// Sender envía un email con contenido HTML y texto plano.
// Implementada por SMTPSender y LogSender.
type Sender interface {
	Send(to, subject, htmlBody, textBody string) error
}

// Dispatcher despacha mensajes en background sobre un Sender.
type Dispatcher struct {
	sender Sender
}

func NewDispatcher(sender Sender) *Dispatcher {
	if sender == nil {
		sender = LogSender{}
	}
	return &Dispatcher{sender: sender}
}

// Dispatch envía en una goroutine y retorna de inmediato. El contexto del
// request no se propaga al envío: el request ya no espera nada de esto.
func (d *Dispatcher) Dispatch(ctx context.Context, to, subject, htmlBody, textBody string) {
	log := logger.From(ctx)
	go func() {
		if err := d.sender.Send(to, subject, htmlBody, textBody); err != nil {
			metrics.NotifyFailures.Inc()
			log.Warn("notification dispatch failed",
				logger.Op("notify.Dispatch"),
				logger.Email(to),
				logger.String("subject", subject),
				logger.Err(err),
			)
		}
	}()
}

// LogSender es el fallback cuando no hay SMTP configurado (dev y tests):
// loguea el mensaje en lugar de enviarlo.
type LogSender struct{}

func (LogSender) Send(to, subject, htmlBody, textBody string) error {
	logger.L().Info("email (log sender)",
		logger.Email(to),
		logger.String("subject", subject),
		logger.String("body", textBody),
	)
	return nil
}
