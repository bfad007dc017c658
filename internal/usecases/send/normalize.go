package send

import (
	"errors"
	"regexp"
)

// ErrInvalidRecipient indica um número fora do formato aceito
var ErrInvalidRecipient = errors.New("invalid recipient number")

var (
	nonDigits        = regexp.MustCompile(`[^\d]`)
	recipientPattern = regexp.MustCompile(`^\d{9,15}$`)
)

// NormalizeRecipient canonicaliza um telefone para a forma internacional
// apenas com dígitos. Remove separadores e o + inicial; o resultado deve
// ter entre 9 e 15 dígitos. A operação é idempotente.
func NormalizeRecipient(raw string) (string, error) {
	cleaned := nonDigits.ReplaceAllString(raw, "")
	if !recipientPattern.MatchString(cleaned) {
		return "", ErrInvalidRecipient
	}
	return cleaned, nil
}
