package http

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/gestaozabele/projetos/internal/access"
)

// CheckPermissions resolve permissões declarativas para renderização condicional.
// Sem parâmetro permission, resolve o catálogo inteiro.
func (h *Handler) CheckPermissions(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w, r); !ok {
		return
	}

	query := r.URL.Query()

	projectID := uuid.Nil
	if raw := strings.TrimSpace(query.Get("project_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "project_id inválido", nil)
			return
		}
		projectID = id
	}

	var (
		permissions []access.Permission
		unknown     []string
	)
	for _, item := range queryList(query, "permission") {
		p, ok := access.ParsePermission(item)
		if !ok {
			unknown = append(unknown, item)
			continue
		}
		permissions = append(permissions, p)
	}
	if len(unknown) > 0 {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "permissões desconhecidas", map[string]any{"permissions": unknown})
		return
	}
	if len(permissions) == 0 {
		permissions = access.AllPermissions()
	}

	results := h.permissions.CheckAll(r.Context(), permissions, projectID)
	out := make(map[string]bool, len(results))
	for p, allowed := range results {
		out[string(p)] = allowed
	}

	WriteJSON(w, http.StatusOK, map[string]any{"permissions": out})
}
