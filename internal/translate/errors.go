// Package translate routes natural-language queries into execution lanes and
// renders the structured lane into executable SQL with bound arguments.
package translate

// TranslationError reports that a query could not be rendered into SQL,
// usually because the schema mapping lacks a required table or column.
type TranslationError struct {
	Reason string
}

func (e *TranslationError) Error() string {
	return "translation failed: " + e.Reason
}
