package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

var ErrValidationFailed = fmt.Errorf("validation failed")

const (
	DefaultMaxStringLength = 255
	MaxNameLength          = 100
	MaxPhoneLength         = 20
	MaxAPITokenLength      = 512
	MaxPreferencesLength   = 4096
)

// --- String Validators ---

// ValidateStringNotEmpty checks if a string is not empty after trimming.
func ValidateStringNotEmpty(s, fieldName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrValidationFailed, fieldName)
	}
	return nil
}

// ValidateStringMaxLength checks if a string's UTF-8 character count is within max bounds.
func ValidateStringMaxLength(s string, maxLength int, fieldName string) error {
	if utf8.RuneCountInString(s) > maxLength {
		return fmt.Errorf("%w: %s exceeds maximum length of %d characters", ErrValidationFailed, fieldName, maxLength)
	}
	return nil
}

// ValidateStringRegex checks if a string matches a given regex pattern.
func ValidateStringRegex(s string, pattern *regexp.Regexp, fieldName, formatDescription string) error {
	if !pattern.MatchString(s) {
		return fmt.Errorf("%w: %s ('%s') is not in the expected format (%s)", ErrValidationFailed, fieldName, s, formatDescription)
	}
	return nil
}

// --- Specific Format Validators ---

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	phoneRegex    = regexp.MustCompile(`^\+?[0-9()\s\-]{8,20}$`)
	cpfDigitRegex = regexp.MustCompile(`[^0-9]`)
)

// ValidateEmail checks email format and length.
func ValidateEmail(s string) error {
	trimmed := strings.TrimSpace(s)
	if err := ValidateStringNotEmpty(trimmed, "email"); err != nil {
		return err
	}
	if err := ValidateStringMaxLength(trimmed, DefaultMaxStringLength, "email"); err != nil {
		return err
	}
	return ValidateStringRegex(trimmed, emailRegex, "email", "user@domain.tld")
}

// ValidatePassword enforces the minimum password length.
func ValidatePassword(s string) error {
	if utf8.RuneCountInString(s) < 6 {
		return fmt.Errorf("%w: a senha deve ter pelo menos 6 caracteres", ErrValidationFailed)
	}
	return nil
}

// ValidatePhone accepts Brazilian phone numbers with optional country code
// and common separators. Empty is allowed, the field is optional.
func ValidatePhone(s string) error {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	return ValidateStringRegex(trimmed, phoneRegex, "telefone", "digits with optional +, spaces, - and ()")
}

// NormalizeCPF strips everything but digits from a CPF.
func NormalizeCPF(s string) string {
	return cpfDigitRegex.ReplaceAllString(s, "")
}

// ValidateCPF checks the 11-digit CPF including both check digits.
// Rejects the known-invalid repeated sequences (000..., 111..., etc).
func ValidateCPF(s string) error {
	cpf := NormalizeCPF(s)
	if len(cpf) != 11 {
		return fmt.Errorf("%w: CPF deve ter 11 dígitos", ErrValidationFailed)
	}

	allEqual := true
	for i := 1; i < 11; i++ {
		if cpf[i] != cpf[0] {
			allEqual = false
			break
		}
	}
	if allEqual {
		return fmt.Errorf("%w: CPF inválido", ErrValidationFailed)
	}

	digit := func(upTo, startWeight int) int {
		sum := 0
		for i := 0; i < upTo; i++ {
			sum += int(cpf[i]-'0') * (startWeight - i)
		}
		rest := (sum * 10) % 11
		if rest == 10 {
			rest = 0
		}
		return rest
	}

	if digit(9, 10) != int(cpf[9]-'0') || digit(10, 11) != int(cpf[10]-'0') {
		return fmt.Errorf("%w: CPF inválido", ErrValidationFailed)
	}
	return nil
}

// ValidateBirthDate checks a dd/MM/yyyy date, rejecting calendar-invalid
// values like 31/02. Empty is allowed, the field is optional.
func ValidateBirthDate(s string) error {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	t, err := time.Parse("02/01/2006", trimmed)
	if err != nil {
		return fmt.Errorf("%w: nascimento ('%s') não é uma data válida (esperado dd/MM/aaaa)", ErrValidationFailed, s)
	}
	if t.Format("02/01/2006") != trimmed {
		return fmt.Errorf("%w: nascimento ('%s') não existe no calendário", ErrValidationFailed, s)
	}
	if t.After(time.Now()) {
		return fmt.Errorf("%w: nascimento não pode estar no futuro", ErrValidationFailed)
	}
	return nil
}
