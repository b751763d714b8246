package access

import "strings"

// Permission identifica uma ação declarada para a camada de apresentação.
type Permission string

const (
	PermProjectView    Permission = "project.view"
	PermProjectViewAll Permission = "project.view_all"
	PermProjectCreate  Permission = "project.create"
	PermProjectEdit    Permission = "project.edit"
	PermProjectEditAll Permission = "project.edit_all"
	PermProjectDelete  Permission = "project.delete"

	PermTaskView    Permission = "task.view"
	PermTaskViewAll Permission = "task.view_all"
	PermTaskCreate  Permission = "task.create"
	PermTaskEdit    Permission = "task.edit"
	PermTaskEditAll Permission = "task.edit_all"
	PermTaskDelete  Permission = "task.delete"

	PermMeetingView   Permission = "meeting.view"
	PermMeetingCreate Permission = "meeting.create"
	PermMeetingEdit   Permission = "meeting.edit"

	PermBudgetView Permission = "budget.view"
	PermBudgetEdit Permission = "budget.edit"

	PermReportView   Permission = "report.view"
	PermReportExport Permission = "report.export"

	PermUserView   Permission = "user.view"
	PermUserManage Permission = "user.manage"

	PermSettingsView Permission = "settings.view"
	PermSettingsEdit Permission = "settings.edit"

	PermAIUse    Permission = "ai.use"
	PermAIUpload Permission = "ai.upload"
)

var allPermissions = []Permission{
	PermProjectView, PermProjectViewAll, PermProjectCreate, PermProjectEdit, PermProjectEditAll, PermProjectDelete,
	PermTaskView, PermTaskViewAll, PermTaskCreate, PermTaskEdit, PermTaskEditAll, PermTaskDelete,
	PermMeetingView, PermMeetingCreate, PermMeetingEdit,
	PermBudgetView, PermBudgetEdit,
	PermReportView, PermReportExport,
	PermUserView, PermUserManage,
	PermSettingsView, PermSettingsEdit,
	PermAIUse, PermAIUpload,
}

var knownPermissions = func() map[Permission]struct{} {
	m := make(map[Permission]struct{}, len(allPermissions))
	for _, p := range allPermissions {
		m[p] = struct{}{}
	}
	return m
}()

// AllPermissions devolve o catálogo completo em ordem de domínio.
func AllPermissions() []Permission {
	out := make([]Permission, len(allPermissions))
	copy(out, allPermissions)
	return out
}

// ParsePermission normaliza o identificador e rejeita valores fora do catálogo.
func ParsePermission(value string) (Permission, bool) {
	p := Permission(strings.ToLower(strings.TrimSpace(value)))
	return p, p.Valid()
}

// Valid indica se a permissão pertence ao catálogo.
func (p Permission) Valid() bool {
	_, ok := knownPermissions[p]
	return ok
}

// Domain devolve o agrupamento da permissão (project, task, meeting...).
func (p Permission) Domain() string {
	domain, _, _ := strings.Cut(string(p), ".")
	return domain
}

// projectScoped indica permissões que dependem do projeto quando há um projeto em contexto.
func (p Permission) projectScoped() bool {
	switch p {
	case PermProjectView, PermProjectEdit, PermProjectDelete,
		PermTaskView, PermTaskCreate, PermTaskEdit, PermTaskDelete:
		return true
	}
	return false
}

// Implies indica se as capacidades do cargo concedem a permissão sem consultar papéis.
func (c CapabilitySet) Implies(p Permission) bool {
	switch p {
	case PermProjectView, PermProjectViewAll:
		return c.CanViewAllProjects
	case PermProjectEdit, PermProjectEditAll:
		return c.CanEditAllProjects
	case PermTaskView, PermTaskViewAll:
		return c.CanViewAllTasks
	case PermTaskEdit, PermTaskEditAll, PermTaskDelete:
		return c.CanEditAllTasks
	case PermUserView, PermUserManage:
		return c.CanManageUsers
	}
	return false
}
