package util

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

// ValidateEmail retorna erro para e-mails inválidos.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.New("email obrigatório")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return errors.New("email inválido")
	}
	return nil
}

// ValidateEmails valida cada e-mail e devolve a lista sem espaços nas bordas.
func ValidateEmails(emails []string) ([]string, error) {
	out := make([]string, 0, len(emails))
	for i, email := range emails {
		email = strings.TrimSpace(email)
		if err := ValidateEmail(email); err != nil {
			return nil, fmt.Errorf("item %d: %w", i+1, err)
		}
		out = append(out, email)
	}
	return out, nil
}

// RequireString garante string não vazia.
func RequireString(value, field string) error {
	if strings.TrimSpace(value) == "" {
		return errors.New(field + " obrigatório")
	}
	return nil
}
