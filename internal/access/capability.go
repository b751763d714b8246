package access

import "strings"

// Position é o cargo executivo reconhecido. PositionUnknown nunca concede capacidade.
type Position uint8

const (
	PositionUnknown Position = iota
	PositionCEO
	PositionDiretorExecutivo
	PositionDiretorOperacoes
	PositionGerenteProjetos
	PositionCoordenadorProjetos
)

var positionNames = [...]string{
	PositionUnknown:             "",
	PositionCEO:                 "CEO",
	PositionDiretorExecutivo:    "Diretor Executivo",
	PositionDiretorOperacoes:    "Diretor de Operações",
	PositionGerenteProjetos:     "Gerente de Projetos",
	PositionCoordenadorProjetos: "Coordenador de Projetos",
}

var positionsByKey = func() map[string]Position {
	m := make(map[string]Position, len(positionNames))
	for i, name := range positionNames {
		if name == "" {
			continue
		}
		m[name] = Position(i)
	}
	return m
}()

// String devolve o nome canônico do cargo.
func (p Position) String() string {
	if int(p) < len(positionNames) && p != PositionUnknown {
		return positionNames[p]
	}
	return "desconhecido"
}

// ParsePosition reconhece apenas o nome canônico do cargo, descartando espaços nas pontas.
// Grafias diferentes ("ceo", "Diretor de Operacoes") são PositionUnknown.
func ParsePosition(value string) Position {
	if p, ok := positionsByKey[strings.TrimSpace(value)]; ok {
		return p
	}
	return PositionUnknown
}

// Positions lista os cargos executivos conhecidos.
func Positions() []Position {
	out := make([]Position, 0, len(positionNames)-1)
	for i := range positionNames {
		if Position(i) != PositionUnknown {
			out = append(out, Position(i))
		}
	}
	return out
}

// CapabilitySet descreve o que um cargo executivo pode fazer.
type CapabilitySet struct {
	CanViewAllProjects bool `yaml:"can_view_all_projects" json:"can_view_all_projects"`
	CanEditAllProjects bool `yaml:"can_edit_all_projects" json:"can_edit_all_projects"`
	CanViewAllTasks    bool `yaml:"can_view_all_tasks" json:"can_view_all_tasks"`
	CanEditAllTasks    bool `yaml:"can_edit_all_tasks" json:"can_edit_all_tasks"`
	CanManageUsers     bool `yaml:"can_manage_users" json:"can_manage_users"`
}

// Catalog associa cargos executivos às suas capacidades.
type Catalog map[Position]CapabilitySet

// DefaultCatalog devolve uma cópia nova do catálogo embutido.
func DefaultCatalog() Catalog {
	full := CapabilitySet{
		CanViewAllProjects: true,
		CanEditAllProjects: true,
		CanViewAllTasks:    true,
		CanEditAllTasks:    true,
		CanManageUsers:     true,
	}
	return Catalog{
		PositionCEO:              full,
		PositionDiretorExecutivo: full,
		PositionDiretorOperacoes: {
			CanViewAllProjects: true,
			CanEditAllProjects: true,
			CanViewAllTasks:    true,
			CanEditAllTasks:    true,
		},
		PositionGerenteProjetos: {
			CanViewAllProjects: true,
			CanEditAllProjects: true,
			CanViewAllTasks:    true,
			CanEditAllTasks:    true,
		},
		PositionCoordenadorProjetos: {
			CanViewAllProjects: true,
			CanViewAllTasks:    true,
		},
	}
}

func (c Catalog) clone() Catalog {
	out := make(Catalog, len(c))
	for position, caps := range c {
		if position == PositionUnknown {
			continue
		}
		out[position] = caps
	}
	return out
}

// Policy resolve capacidades e aplica as regras de visibilidade e edição.
type Policy struct {
	catalog Catalog
}

// NewPolicy cria política a partir do catálogo informado. Catálogo nil não concede nada.
func NewPolicy(catalog Catalog) *Policy {
	return &Policy{catalog: catalog.clone()}
}

// CapabilityOf devolve as capacidades do cargo; cargos desconhecidos recebem tudo falso.
func (p *Policy) CapabilityOf(position string) CapabilitySet {
	if p == nil {
		return CapabilitySet{}
	}
	return p.catalog[ParsePosition(position)]
}
