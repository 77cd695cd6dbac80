package postgres

import (
	"github.com/abadojack/whatlanggo"
)

// tsConfigs maps detected languages to built-in Postgres text search configurations.
var tsConfigs = map[whatlanggo.Lang]string{
	whatlanggo.Eng: "english",
	whatlanggo.Spa: "spanish",
	whatlanggo.Por: "portuguese",
	whatlanggo.Fra: "french",
	whatlanggo.Deu: "german",
	whatlanggo.Ita: "italian",
	whatlanggo.Nld: "dutch",
	whatlanggo.Rus: "russian",
	whatlanggo.Swe: "swedish",
	whatlanggo.Fin: "finnish",
	whatlanggo.Dan: "danish",
	whatlanggo.Hun: "hungarian",
	whatlanggo.Tur: "turkish",
	whatlanggo.Ron: "romanian",
}

// textSearchConfig picks the configuration used to build a section's tsvector.
// Unreliable detections and unsupported languages use "simple", which only
// lowercases tokens.
func textSearchConfig(text string) string {
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return "simple"
	}
	if cfg, ok := tsConfigs[info.Lang]; ok {
		return cfg
	}
	return "simple"
}
