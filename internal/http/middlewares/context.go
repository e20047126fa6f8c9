package middlewares

import (
	"context"

	"github.com/dropDatabas3/loandesk/internal/session"
)

type ctxKey int

const (
	ctxRequestID ctxKey = iota
	ctxPrincipal
	ctxSessionToken
)

func setRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, ctxRequestID, rid)
}

// GetRequestID extrae el request ID del contexto, o "" si no hay.
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxRequestID).(string); ok {
		return v
	}
	return ""
}

func setPrincipal(ctx context.Context, p *session.Principal, token string) context.Context {
	ctx = context.WithValue(ctx, ctxPrincipal, p)
	return context.WithValue(ctx, ctxSessionToken, token)
}

// GetPrincipal extrae el principal autenticado, o nil en rutas públicas.
func GetPrincipal(ctx context.Context) *session.Principal {
	if v, ok := ctx.Value(ctxPrincipal).(*session.Principal); ok {
		return v
	}
	return nil
}

// GetSessionToken extrae la credencial bearer cruda del request autenticado.
func GetSessionToken(ctx context.Context) string {
	if v, ok := ctx.Value(ctxSessionToken).(string); ok {
		return v
	}
	return ""
}
