package auth

import (
	"context"
	"errors"
)

var (
	// ErrUnauthenticated indica ausência de usuário autenticado no contexto.
	ErrUnauthenticated = errors.New("usuário não autenticado")
)

// User identifica quem faz a requisição. Email é a chave de identidade.
type User struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Position string `json:"position"`
}

type contextKey struct{}

// WithUser injeta o usuário autenticado no contexto.
func WithUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// UserFromContext recupera o usuário autenticado.
func UserFromContext(ctx context.Context) (User, bool) {
	user, ok := ctx.Value(contextKey{}).(User)
	if !ok || user.Email == "" {
		return User{}, false
	}
	return user, true
}

// ContextIdentity resolve o usuário corrente a partir do contexto da requisição.
type ContextIdentity struct{}

// CurrentUser devolve o usuário ou ErrUnauthenticated.
func (ContextIdentity) CurrentUser(ctx context.Context) (User, error) {
	user, ok := UserFromContext(ctx)
	if !ok {
		return User{}, ErrUnauthenticated
	}
	return user, nil
}
