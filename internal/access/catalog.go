package access

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type catalogFile struct {
	Positions map[string]CapabilitySet `yaml:"positions"`
}

// LoadCatalog lê catálogo de cargos em YAML. Cargos fora da enumeração são rejeitados.
//
//	positions:
//	  Gerente de Projetos:
//	    can_view_all_projects: true
//	    can_view_all_tasks: true
func LoadCatalog(r io.Reader) (Catalog, error) {
	var file catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return Catalog{}, nil
		}
		return nil, fmt.Errorf("catálogo inválido: %w", err)
	}

	catalog := make(Catalog, len(file.Positions))
	for name, caps := range file.Positions {
		position := ParsePosition(name)
		if position == PositionUnknown {
			return nil, fmt.Errorf("cargo desconhecido no catálogo: %q", name)
		}
		if _, dup := catalog[position]; dup {
			return nil, fmt.Errorf("cargo duplicado no catálogo: %q", name)
		}
		catalog[position] = caps
	}
	return catalog, nil
}

// LoadCatalogFile abre e interpreta o arquivo de catálogo.
func LoadCatalogFile(path string) (Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadCatalog(f)
}
