package access

import (
	"errors"

	"github.com/gestaozabele/projetos/internal/repo"
)

var (
	// ErrForbidden indica ausência de permissão.
	ErrForbidden = errors.New("acesso negado")
)

// CanEditProject permite edição a cargos com edição global ou ao responsável do projeto.
func (p *Policy) CanEditProject(project repo.Project, userEmail, userPosition string) bool {
	if p.CapabilityOf(userPosition).CanEditAllProjects {
		return true
	}
	return sameEmail(project.Responsible, repo.NormalizeEmail(userEmail))
}

// CanModifyTask é a regra única usada para editar e para excluir tarefas.
func (p *Policy) CanModifyTask(task repo.Task, userEmail, userPosition, projectResponsible string) bool {
	if p.CapabilityOf(userPosition).CanEditAllTasks {
		return true
	}
	email := repo.NormalizeEmail(userEmail)
	return sameEmail(projectResponsible, email) || sameEmail(task.AssignedTo, email)
}

// CanEditTask delega para CanModifyTask.
func (p *Policy) CanEditTask(task repo.Task, userEmail, userPosition, projectResponsible string) bool {
	return p.CanModifyTask(task, userEmail, userPosition, projectResponsible)
}

// CanDeleteTask delega para CanModifyTask; não existe capacidade própria de exclusão.
func (p *Policy) CanDeleteTask(task repo.Task, userEmail, userPosition, projectResponsible string) bool {
	return p.CanModifyTask(task, userEmail, userPosition, projectResponsible)
}
