package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/beroea/beroea/internal/ratelimit"
)

// AnalysisKind selects one of the passage-analysis prompt templates.
type AnalysisKind string

const (
	Exegesis    AnalysisKind = "exegesis"
	Application AnalysisKind = "application"
	Related     AnalysisKind = "related"
	Prayer      AnalysisKind = "prayer"
)

// Devotional generates a short daily devotional for a verse.
func (c *Client) Devotional(ctx context.Context, verseText, verseRef string) string {
	prompt := fmt.Sprintf(
		`Escribe un devocional corto y profundo para el día de hoy, basado en el versículo: "%s" (%s). Enfócate en la aplicación práctica y espiritual.`,
		verseText, verseRef)
	return c.friendly(ctx, prompt,
		"No se pudo generar el devocional.",
		"Hubo un error al contactar a la IA. Por favor, verifica tu conexión.")
}

// Definition generates a theological definition of a biblical term.
func (c *Client) Definition(ctx context.Context, term string) string {
	prompt := fmt.Sprintf(
		`Define la palabra bíblica "%s" con un enfoque teológico y etimológico si es relevante. Sé conciso pero profundo.`,
		term)
	return c.friendly(ctx, prompt,
		"No se pudo encontrar la definición.",
		"Error al buscar la definición.")
}

// AnalyzePassage generates one of the four passage analyses for a reference.
func (c *Client) AnalyzePassage(ctx context.Context, kind AnalysisKind, reference string) string {
	var prompt string
	switch kind {
	case Exegesis:
		prompt = fmt.Sprintf(`Realiza una exégesis concisa del pasaje %s. Explica el contexto histórico y el significado original.`, reference)
	case Application:
		prompt = fmt.Sprintf(`Basado en una correcta hermenéutica, ¿cómo podemos aplicar el pasaje %s hoy en día de manera práctica? Dame 3 puntos clave.`, reference)
	case Related:
		prompt = fmt.Sprintf(`Sugiere 3 a 5 versículos o pasajes relacionados con el tema principal de %s, explicando brevemente la conexión teológica.`, reference)
	case Prayer:
		prompt = fmt.Sprintf(`Escribe una oración personal, profunda y reverente, inspirada en las verdades del pasaje %s.`, reference)
	default:
		return "Tipo de análisis no válido."
	}
	return c.friendly(ctx, prompt,
		"No se pudo generar el análisis.",
		"Hubo un error al procesar la solicitud.")
}

// SermonSummary condenses a sermon outline into three points and a closing line.
func (c *Client) SermonSummary(ctx context.Context, title, notes, verses string) string {
	prompt := fmt.Sprintf(`Actúa como un editor experto en homilética. Resume el siguiente bosquejo de sermón en 3 puntos principales claros y una frase de conclusión impactante.

Título: %s
Versículos: %s
Notas: %s`, title, verses, notes)
	return c.friendly(ctx, prompt,
		"No se pudo generar el resumen.",
		"Hubo un error al generar el resumen.")
}

// DefineWord generates a dictionary-style definition in the given language.
// Unlike the other generators it returns errors (ratelimit.ErrRateLimited,
// *ratelimit.PacedError) because the dictionary cascade does its own gate
// handling and caching around it. The minimum call spacing applies here the
// same as on the friendly paths.
func (c *Client) DefineWord(ctx context.Context, term, language string) (string, error) {
	if wait, ok := c.reserve(); !ok {
		return "", &ratelimit.PacedError{Wait: wait}
	}
	var prompt string
	if language == "pt" {
		prompt = fmt.Sprintf(`Defina a palavra "%s" em português, com um enfoque bíblico e teológico quando aplicável. Seja conciso.`, term)
	} else {
		prompt = fmt.Sprintf(`Define la palabra "%s" en español, con un enfoque bíblico y teológico cuando aplique. Sé conciso.`, term)
	}
	return c.Generate(ctx, prompt)
}

func errorsIsRateLimited(err error) bool {
	return errors.Is(err, ratelimit.ErrRateLimited)
}
