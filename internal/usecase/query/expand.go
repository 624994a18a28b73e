package query

import (
	"strings"

	"github.com/iuslabs/lexdex/internal/domain/entity"
)

// expansionTable maps a normalized-lowercase term to its legal variants.
// Abbreviations expand to the canonical phrase; generic terms expand to
// corpus synonyms so lexical retrieval catches drafting variation.
var expansionTable = map[string][]string{
	"ley":          {"norma", "legislacion"},
	"norma":        {"ley", "disposicion"},
	"codigo":       {"ley"},
	"articulo":     {"art", "disposicion"},
	"art":          {"articulo"},
	"demanda":      {"accion", "pretension"},
	"juicio":       {"proceso", "litigio"},
	"sentencia":    {"fallo", "resolucion"},
	"contrato":     {"convenio", "acuerdo"},
	"despido":      {"terminacion laboral", "visto bueno"},
	"trabajador":   {"empleado", "obrero"},
	"empleador":    {"patrono"},
	"impuesto":     {"tributo", "contribucion"},
	"delito":       {"infraccion penal"},
	"pena":         {"sancion"},
	"matrimonio":   {"union conyugal"},
	"divorcio":     {"disolucion conyugal"},
	"herencia":     {"sucesion"},
	"propiedad":    {"dominio"},
	"arriendo":     {"arrendamiento", "alquiler"},
	"coip":         {"codigo organico integral penal"},
	"cogep":        {"codigo organico general de procesos"},
	"losep":        {"ley organica de servicio publico"},
	"lorti":        {"ley organica de regimen tributario interno"},
	"sri":          {"servicio de rentas internas"},
	"iess":         {"instituto ecuatoriano de seguridad social"},
	"cre":          {"constitucion de la republica"},
	"constitucion": {"carta magna"},
}

// expandTerms returns the input tokens plus table variants, deduplicated,
// input order first.
func expandTerms(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	add := func(term string) {
		if term == "" {
			return
		}
		if _, ok := seen[term]; ok {
			return
		}
		seen[term] = struct{}{}
		out = append(out, term)
	}

	for _, tok := range tokens {
		add(tok)
	}
	for _, tok := range tokens {
		for _, variant := range expansionTable[tok] {
			add(variant)
		}
	}
	return out
}

// normalizeLower is the pipeline-wide token normalization: accent-stripped
// lowercase with collapsed whitespace.
func normalizeLower(s string) string {
	return strings.ToLower(entity.Normalize(s))
}
