package scorer

import "fmt"

const (
	classifyMaxTokens = 150
	scoreMaxTokens    = 10

	classifyTemperature      = 0.1
	classifyImageTemperature = 0.2
)

func describe(k Kind) string {
	switch k {
	case KindJSON:
		return "JSON data"
	case KindImage:
		return "image"
	default:
		return "text content"
	}
}

func classifyPrompt(c Content) string {
	switch c.Kind {
	case KindImage:
		return fmt.Sprintf(
			"Analyze this image (filename: '%s'). Provide 8-15 keywords in English and Chinese describing "+
				"its content, objects, scene, style and colors. Output only a comma-separated list of tags "+
				"with no explanation. Example: cityscape,skyscraper,night view,blue,城市夜景,摩天大楼",
			c.Filename)
	case KindJSON:
		return fmt.Sprintf(
			"You are a data classification expert. Analyze the JSON data from file '%s'. Extract 8-15 of the "+
				"most relevant tags in English and Chinese describing its data domain, purpose or key fields. "+
				"Cover: 1. data domain (e.g. 'stock quotes') 2. key metrics (e.g. 'closing price') "+
				"3. structure (e.g. 'time series', 'object list') 4. broader field (e.g. 'finance'). "+
				"Output only a comma-separated list of tags with no explanation.\nJSON: %s",
			c.Filename, c.Text)
	default:
		return fmt.Sprintf(
			"You are a data classification expert. Analyze the text content from file '%s'. Extract 8-15 of "+
				"the most relevant keywords or tags in English and Chinese. Cover: 1. core topics "+
				"(e.g. 'macroeconomics') 2. specific entities (e.g. 'central bank') 3. content type "+
				"(e.g. 'research report') 4. broader field (e.g. 'finance'). Output only a comma-separated "+
				"list of tags with no explanation.\nContent: %q",
			c.Filename, c.Text)
	}
}

func scorePrompt(c Content) string {
	if c.Kind == KindImage {
		return fmt.Sprintf(
			"Rate the quality of this image (filename: '%s'). Consider clarity, lighting, composition and "+
				"visual information. Give a score from 0 to 100 (100 is best). Output only the number.",
			c.Filename)
	}
	return fmt.Sprintf(
		"Rate the quality of the %s in file '%s'. Consider clarity, completeness, coherence, structure "+
			"(if applicable) and informational value. Give a score from 0 to 100 (100 is best). "+
			"Output only the number.\n%s: %q",
		describe(c.Kind), c.Filename, describe(c.Kind), c.Text)
}

func classifyTemperatureFor(c Content) float64 {
	if c.Kind == KindImage {
		return classifyImageTemperature
	}
	return classifyTemperature
}
