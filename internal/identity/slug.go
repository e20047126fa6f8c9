package identity

import "strings"

// Slugify normaliza un nombre de workspace a su slug: minúsculas, cada run de
// caracteres no alfanuméricos colapsa a un solo guion y se recortan los guiones
// de los extremos. "Acme Lending!!" produce "acme-lending".
func Slugify(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	pendingHyphen := false
	for _, r := range strings.ToLower(name) {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !alnum {
			pendingHyphen = b.Len() > 0
			continue
		}
		if pendingHyphen {
			b.WriteByte('-')
			pendingHyphen = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
