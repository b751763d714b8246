package access

import (
	"strings"
	"testing"
)

func TestCapabilityOfUnknownPositions(t *testing.T) {
	policy := NewPolicy(DefaultCatalog())

	for _, position := range []string{"", "   ", "Estagiário", "ceo executivo", "Analista"} {
		if caps := policy.CapabilityOf(position); caps != (CapabilitySet{}) {
			t.Fatalf("expected no capability for %q got %+v", position, caps)
		}
	}
}

func TestParsePositionMatchesCanonicalNames(t *testing.T) {
	tests := []struct {
		input string
		want  Position
	}{
		{"CEO", PositionCEO},
		{"  Diretor de Operações ", PositionDiretorOperacoes},
		{"Gerente de Projetos", PositionGerenteProjetos},
		{"Coordenador de Projetos", PositionCoordenadorProjetos},
		{"ceo", PositionUnknown},
		{"diretor de operacoes", PositionUnknown},
		{"Diretor de Operacoes", PositionUnknown},
		{"GERENTE DE PROJETOS", PositionUnknown},
		{"Gerente  de Projetos", PositionUnknown},
		{"Diretor", PositionUnknown},
		{"", PositionUnknown},
	}

	for _, tt := range tests {
		if got := ParsePosition(tt.input); got != tt.want {
			t.Fatalf("ParsePosition(%q): expected %v got %v", tt.input, tt.want, got)
		}
	}
}

func TestCapabilityOfVariantSpellingsGrantNothing(t *testing.T) {
	policy := NewPolicy(DefaultCatalog())

	for _, position := range Positions() {
		name := position.String()
		variants := []string{
			strings.ToLower(name),
			strings.ToUpper(name),
			strings.ReplaceAll(name, " ", "   "),
			strings.NewReplacer("ç", "c", "õ", "o", "é", "e").Replace(strings.ToLower(name)),
		}
		for _, variant := range variants {
			if variant == name {
				continue
			}
			if caps := policy.CapabilityOf(variant); caps != (CapabilitySet{}) {
				t.Fatalf("expected no capability for %q got %+v", variant, caps)
			}
		}
	}
	for _, position := range []string{"DIRETOR   EXECUTIVO", "Diretor de Operacoes", "ceo"} {
		if caps := policy.CapabilityOf(position); caps != (CapabilitySet{}) {
			t.Fatalf("expected no capability for %q got %+v", position, caps)
		}
	}
}

func TestDefaultCatalogCoversEveryPosition(t *testing.T) {
	catalog := DefaultCatalog()
	for _, position := range Positions() {
		caps, ok := catalog[position]
		if !ok {
			t.Fatalf("expected catalog entry for %s", position)
		}
		if !caps.CanViewAllProjects || !caps.CanViewAllTasks {
			t.Fatalf("expected %s to see everything", position)
		}
	}
	if catalog[PositionCoordenadorProjetos].CanEditAllTasks {
		t.Fatalf("expected coordenador without global task edit")
	}
	if catalog[PositionGerenteProjetos].CanManageUsers {
		t.Fatalf("expected gerente without user management")
	}
}

func TestPolicyUsesInjectedCatalog(t *testing.T) {
	policy := NewPolicy(Catalog{
		PositionCoordenadorProjetos: {CanEditAllTasks: true},
		PositionUnknown:             {CanViewAllProjects: true},
	})

	if !policy.CapabilityOf("Coordenador de Projetos").CanEditAllTasks {
		t.Fatalf("expected injected capability")
	}
	if policy.CapabilityOf("CEO") != (CapabilitySet{}) {
		t.Fatalf("expected CEO absent from injected catalog")
	}
	if policy.CapabilityOf("qualquer coisa").CanViewAllProjects {
		t.Fatalf("unknown position must never be elevated")
	}
}

func TestPolicyCatalogIsCopied(t *testing.T) {
	catalog := DefaultCatalog()
	policy := NewPolicy(catalog)
	catalog[PositionCEO] = CapabilitySet{}

	if !policy.CapabilityOf("CEO").CanEditAllProjects {
		t.Fatalf("expected policy isolated from caller mutation")
	}
}

func TestNilPolicyGrantsNothing(t *testing.T) {
	var policy *Policy
	if policy.CapabilityOf("CEO") != (CapabilitySet{}) {
		t.Fatalf("expected empty capability from nil policy")
	}
}

func TestPositionString(t *testing.T) {
	if PositionDiretorExecutivo.String() != "Diretor Executivo" {
		t.Fatalf("unexpected name %q", PositionDiretorExecutivo.String())
	}
	if PositionUnknown.String() != "desconhecido" || Position(200).String() != "desconhecido" {
		t.Fatalf("expected desconhecido for unknown positions")
	}
}
