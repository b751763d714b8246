package access

import (
	"github.com/google/uuid"

	"github.com/gestaozabele/projetos/internal/repo"
)

// VisibleProjects filtra os projetos visíveis ao usuário preservando a ordem de entrada.
// Sem visão global, o usuário vê projetos em que é responsável, participante ou tem tarefa atribuída.
func (p *Policy) VisibleProjects(projects []repo.Project, tasks []repo.Task, userEmail, userPosition string) []repo.Project {
	if len(projects) == 0 {
		return []repo.Project{}
	}
	if p.CapabilityOf(userPosition).CanViewAllProjects {
		out := make([]repo.Project, len(projects))
		copy(out, projects)
		return out
	}

	email := repo.NormalizeEmail(userEmail)
	if email == "" {
		return []repo.Project{}
	}

	assigned := make(map[uuid.UUID]struct{})
	for _, task := range tasks {
		if sameEmail(task.AssignedTo, email) {
			assigned[task.ProjectID] = struct{}{}
		}
	}

	out := make([]repo.Project, 0, len(projects))
	for _, project := range projects {
		if sameEmail(project.Responsible, email) || isParticipant(project, email) {
			out = append(out, project)
			continue
		}
		if _, ok := assigned[project.ID]; ok {
			out = append(out, project)
		}
	}
	return out
}

// VisibleTasks filtra as tarefas visíveis ao usuário preservando a ordem de entrada.
// projectResponsible vazio significa que o responsável do projeto não foi informado.
func (p *Policy) VisibleTasks(tasks []repo.Task, userEmail, userPosition, projectResponsible string) []repo.Task {
	if len(tasks) == 0 {
		return []repo.Task{}
	}

	email := repo.NormalizeEmail(userEmail)
	if p.CapabilityOf(userPosition).CanViewAllTasks || (email != "" && sameEmail(projectResponsible, email)) {
		out := make([]repo.Task, len(tasks))
		copy(out, tasks)
		return out
	}
	if email == "" {
		return []repo.Task{}
	}

	out := make([]repo.Task, 0, len(tasks))
	for _, task := range tasks {
		if sameEmail(task.AssignedTo, email) {
			out = append(out, task)
		}
	}
	return out
}

func isParticipant(project repo.Project, email string) bool {
	for _, participant := range project.Participants {
		if sameEmail(participant, email) {
			return true
		}
	}
	return false
}

// sameEmail compara um e-mail armazenado com um e-mail já normalizado.
func sameEmail(stored, normalized string) bool {
	return normalized != "" && repo.NormalizeEmail(stored) == normalized
}
