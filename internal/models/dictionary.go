package models

// DictionarySource identifies which cascade stage produced a result.
type DictionarySource string

const (
	SourceStructuredAPI DictionarySource = "structured-api"
	SourceWiki          DictionarySource = "wiki"
	SourceAI            DictionarySource = "ai"
)

// DictionaryResult is a transient definition lookup result. It is not
// persisted unless the caller saves it as a SavedWord.
type DictionaryResult struct {
	Source      DictionarySource `json:"source"`
	Word        string           `json:"word"`
	Language    string           `json:"language,omitempty"`
	Definitions []string         `json:"definitions"`
}
