// Package validation contains syntactic validators shared across services.
package validation

import (
	"net/mail"
	"strings"
)

// ValidEmail verifica la sintaxis de un email. No hace lookup de MX ni
// verificación de entrega; eso es responsabilidad del sink de notificaciones.
func ValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 254 {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	// mail.ParseAddress acepta "Name <a@b>"; solo aceptamos la forma pura.
	return addr.Address == s
}

// ValidTenantName acepta nombres de workspace no vacíos con al menos un
// carácter alfanumérico (para que el slug derivado no quede vacío).
func ValidTenantName(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 120 {
		return false
	}
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return true
		}
	}
	return false
}
