package dictionary

import (
	"fmt"

	"github.com/iuslabs/lexdex/internal/domain/entity"
)

// seedSpec is the raw catalog entry before validation.
type seedSpec struct {
	t        entity.Type
	name     string
	synonyms []string
	pattern  string
	weight   int
	meta     entity.Metadata
}

// The seed catalog covers the Ecuadorian legal corpus the reference library
// ships with. Weights follow the normative hierarchy: constitution above
// organic codes above ordinary laws above regulations and agency sources.
var seedSpecs = []seedSpec{
	{
		t: entity.Constitution, name: "Constitución de la República del Ecuador",
		synonyms: []string{"Constitución", "Carta Magna", "CRE"},
		pattern:  `(?i)constituci[oó]n(\s+de\s+la\s+rep[uú]blica)?`,
		weight:   100,
		meta:     entity.Metadata{HierarchyLevel: 1, Status: "vigente", Abbreviations: []string{"CRE"}},
	},
	{
		t: entity.Code, name: "Código Civil",
		synonyms: []string{"CC"},
		pattern:  `(?i)c[oó]digo\s+civil`,
		weight:   90,
		meta:     entity.Metadata{HierarchyLevel: 2, Status: "vigente", Abbreviations: []string{"CC"}},
	},
	{
		t: entity.Code, name: "Código Orgánico Integral Penal",
		synonyms: []string{"Código Penal", "COIP"},
		pattern:  `(?i)(c[oó]digo\s+(org[aá]nico\s+integral\s+)?penal|\bcoip\b)`,
		weight:   90,
		meta:     entity.Metadata{HierarchyLevel: 2, Status: "vigente", Abbreviations: []string{"COIP"}},
	},
	{
		t: entity.Code, name: "Código del Trabajo",
		synonyms: []string{"Código Laboral", "CT"},
		pattern:  `(?i)c[oó]digo\s+(del\s+trabajo|laboral)`,
		weight:   88,
		meta:     entity.Metadata{HierarchyLevel: 2, Status: "vigente", Abbreviations: []string{"CT"}},
	},
	{
		t: entity.Code, name: "Código Orgánico General de Procesos",
		synonyms: []string{"COGEP"},
		pattern:  `(?i)\bcogep\b`,
		weight:   85,
		meta:     entity.Metadata{HierarchyLevel: 2, Status: "vigente", Abbreviations: []string{"COGEP"}},
	},
	{
		t: entity.Code, name: "Código Orgánico de la Función Judicial",
		synonyms: []string{"COFJ"},
		weight:   84,
		meta:     entity.Metadata{HierarchyLevel: 2, Status: "vigente", Abbreviations: []string{"COFJ"}},
	},
	{
		t: entity.Code, name: "Código Tributario",
		synonyms: []string{"CTrib"},
		pattern:  `(?i)c[oó]digo\s+tributario`,
		weight:   84,
		meta:     entity.Metadata{HierarchyLevel: 2, Status: "vigente"},
	},
	{
		t: entity.Code, name: "Código de Comercio",
		weight: 82,
		meta:   entity.Metadata{HierarchyLevel: 2, Status: "vigente"},
	},
	{
		t: entity.Code, name: "Código de la Niñez y Adolescencia",
		synonyms: []string{"CONA"},
		weight:   82,
		meta:     entity.Metadata{HierarchyLevel: 2, Status: "vigente"},
	},
	{
		t: entity.Law, name: "Ley Orgánica de Servicio Público",
		synonyms: []string{"LOSEP"},
		pattern:  `(?i)\blosep\b`,
		weight:   70,
		meta:     entity.Metadata{HierarchyLevel: 3, Status: "vigente", Abbreviations: []string{"LOSEP"}},
	},
	{
		t: entity.Law, name: "Ley Orgánica de Régimen Tributario Interno",
		synonyms: []string{"LORTI"},
		pattern:  `(?i)\blorti\b`,
		weight:   70,
		meta:     entity.Metadata{HierarchyLevel: 3, Status: "vigente", Abbreviations: []string{"LORTI"}},
	},
	{
		t: entity.Law, name: "Ley de Seguridad Social",
		weight: 68,
		meta:   entity.Metadata{HierarchyLevel: 3, Status: "vigente"},
	},
	{
		t: entity.Law, name: "Ley Orgánica de Transporte Terrestre, Tránsito y Seguridad Vial",
		synonyms: []string{"Ley de Tránsito", "LOTTTSV"},
		weight:   66,
		meta:     entity.Metadata{HierarchyLevel: 3, Status: "vigente"},
	},
	{
		t: entity.Law, name: "Ley de Compañías",
		weight: 66,
		meta:   entity.Metadata{HierarchyLevel: 3, Status: "vigente"},
	},
	{
		t: entity.Regulation, name: "Reglamento General a la Ley Orgánica de Servicio Público",
		weight: 50,
		meta:   entity.Metadata{HierarchyLevel: 4, Status: "vigente"},
	},
	{
		t: entity.Jurisdiction, name: "Ecuador",
		synonyms: []string{"República del Ecuador", "nacional"},
		weight:   60,
		meta:     entity.Metadata{HierarchyLevel: 1, Status: "activa"},
	},
	{
		t: entity.Jurisdiction, name: "Pichincha",
		synonyms: []string{"provincia de Pichincha"},
		weight:   40,
		meta:     entity.Metadata{HierarchyLevel: 2, Status: "activa"},
	},
	{
		t: entity.Jurisdiction, name: "Guayas",
		synonyms: []string{"provincia del Guayas"},
		weight:   40,
		meta:     entity.Metadata{HierarchyLevel: 2, Status: "activa"},
	},
	{
		t: entity.Jurisdiction, name: "Quito",
		synonyms: []string{"Distrito Metropolitano de Quito", "DMQ"},
		weight:   38,
		meta:     entity.Metadata{HierarchyLevel: 3, Status: "activa"},
	},
	{
		t: entity.Jurisdiction, name: "Guayaquil",
		weight: 38,
		meta:   entity.Metadata{HierarchyLevel: 3, Status: "activa"},
	},
	{
		t: entity.Court, name: "Corte Constitucional del Ecuador",
		synonyms: []string{"Corte Constitucional"},
		weight:   55,
		meta:     entity.Metadata{HierarchyLevel: 1, Status: "activa"},
	},
	{
		t: entity.Court, name: "Corte Nacional de Justicia",
		synonyms: []string{"CNJ"},
		weight:   54,
		meta:     entity.Metadata{HierarchyLevel: 1, Status: "activa", Abbreviations: []string{"CNJ"}},
	},
	{
		t: entity.Ministry, name: "Ministerio del Trabajo",
		synonyms: []string{"MDT"},
		weight:   45,
		meta:     entity.Metadata{HierarchyLevel: 2, Status: "activa"},
	},
	{
		t: entity.Ministry, name: "Ministerio de Economía y Finanzas",
		weight: 44,
		meta:   entity.Metadata{HierarchyLevel: 2, Status: "activa"},
	},
	{
		t: entity.Agency, name: "Servicio de Rentas Internas",
		synonyms: []string{"SRI"},
		pattern:  `(?i)\bsri\b`,
		weight:   48,
		meta:     entity.Metadata{HierarchyLevel: 2, Status: "activa", Abbreviations: []string{"SRI"}},
	},
	{
		t: entity.Agency, name: "Instituto Ecuatoriano de Seguridad Social",
		synonyms: []string{"IESS"},
		pattern:  `(?i)\biess\b`,
		weight:   48,
		meta:     entity.Metadata{HierarchyLevel: 2, Status: "activa", Abbreviations: []string{"IESS"}},
	},
	{
		t: entity.Agency, name: "Superintendencia de Compañías, Valores y Seguros",
		synonyms: []string{"Superintendencia de Compañías", "Supercias"},
		weight:   44,
		meta:     entity.Metadata{HierarchyLevel: 2, Status: "activa"},
	},
	{
		t: entity.Concept, name: "Derecho Laboral",
		synonyms: []string{"derecho del trabajo"},
		weight:   30,
		meta:     entity.Metadata{HierarchyLevel: 5, Status: "vigente"},
	},
	{
		t: entity.Concept, name: "Derecho Tributario",
		synonyms: []string{"derecho fiscal"},
		weight:   30,
		meta:     entity.Metadata{HierarchyLevel: 5, Status: "vigente"},
	},
	{
		t: entity.Concept, name: "Debido Proceso",
		weight: 28,
		meta:   entity.Metadata{HierarchyLevel: 5, Status: "vigente"},
	},
}

// seedEntities materializes the seed catalog.
func seedEntities() ([]entity.Entity, error) {
	out := make([]entity.Entity, 0, len(seedSpecs))
	for _, s := range seedSpecs {
		e, err := entity.New(s.t, s.name, s.synonyms, s.pattern, s.weight, s.meta)
		if err != nil {
			return nil, fmt.Errorf("seed %q: %w", s.name, err)
		}
		out = append(out, e)
	}
	return out, nil
}
