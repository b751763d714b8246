package repo

import "errors"

var (
	// ErrNotFound é retornado quando nenhum registro é encontrado.
	ErrNotFound = errors.New("registro não encontrado")
	// ErrInvalidStatus indica status de tarefa fora do catálogo.
	ErrInvalidStatus = errors.New("status de tarefa inválido")
)
