package repo

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskStatus representa a coluna de status de uma tarefa.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pendente"
	StatusInProgress TaskStatus = "em_andamento"
	StatusDone       TaskStatus = "concluída"
	StatusBlocked    TaskStatus = "bloqueada"
)

var statusAliases = map[string]TaskStatus{
	"pendente":     StatusPending,
	"pending":      StatusPending,
	"em_andamento": StatusInProgress,
	"em andamento": StatusInProgress,
	"in_progress":  StatusInProgress,
	"in-progress":  StatusInProgress,
	"concluída":    StatusDone,
	"concluida":    StatusDone,
	"done":         StatusDone,
	"bloqueada":    StatusBlocked,
	"blocked":      StatusBlocked,
}

// ParseTaskStatus normaliza o status recebido. Retorna false para valores fora do catálogo.
func ParseTaskStatus(value string) (TaskStatus, bool) {
	status, ok := statusAliases[strings.ToLower(strings.TrimSpace(value))]
	return status, ok
}

// Valid indica se o status pertence ao catálogo canônico.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusDone, StatusBlocked:
		return true
	}
	return false
}

// Project representa um projeto com responsável e participantes.
type Project struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	Responsible      string    `json:"responsible"`
	Participants     []string  `json:"participants"`
	Progress         int       `json:"progress"`
	LastModifiedDate time.Time `json:"last_modified_date"`
	CreatedAt        time.Time `json:"created_at"`
}

// Task representa uma tarefa vinculada a um projeto.
type Task struct {
	ID               uuid.UUID  `json:"id"`
	ProjectID        uuid.UUID  `json:"project_id"`
	Title            string     `json:"title"`
	AssignedTo       string     `json:"assigned_to"`
	Status           TaskStatus `json:"status"`
	LastModifiedDate time.Time  `json:"last_modified_date"`
	CreatedAt        time.Time  `json:"created_at"`
}

// CreateProjectInput contém campos para cadastrar projeto.
type CreateProjectInput struct {
	Name         string
	Responsible  string
	Participants []string
}

// ProjectPatch descreve atualização parcial de projeto.
type ProjectPatch struct {
	Name             *string
	Responsible      *string
	Participants     []string
	SetParticipants  bool
	Progress         *int
	LastModifiedDate *time.Time
}

// CreateTaskInput contém campos para cadastrar tarefa.
type CreateTaskInput struct {
	ProjectID  uuid.UUID
	Title      string
	AssignedTo string
	Status     TaskStatus
}

// TaskPatch descreve atualização parcial de tarefa.
type TaskPatch struct {
	Title            *string
	AssignedTo       *string
	Status           *TaskStatus
	LastModifiedDate *time.Time
}

// TaskFilter restringe listagem de tarefas.
type TaskFilter struct {
	ProjectID  *uuid.UUID
	AssignedTo string
	Status     []TaskStatus
}

// NormalizeEmail padroniza e-mails usados como chave de identidade.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeEmails aplica NormalizeEmail e descarta vazios e duplicados.
func NormalizeEmails(emails []string) []string {
	out := make([]string, 0, len(emails))
	seen := make(map[string]struct{}, len(emails))
	for _, email := range emails {
		email = NormalizeEmail(email)
		if email == "" {
			continue
		}
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		out = append(out, email)
	}
	return out
}
