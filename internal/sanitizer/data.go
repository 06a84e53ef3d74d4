package sanitizer

// SanitizeParam holds configuration parameters for the sanitization process.
type SanitizeParam struct {
	// DroppedTags are removed along with everything below them.
	DroppedTags []string
	// RemoveDuplicates drops an element identical to its previous element sibling.
	RemoveDuplicates bool
}

func DefaultSanitizeParam() SanitizeParam {
	return SanitizeParam{
		DroppedTags:      []string{"script", "style", "noscript", "template"},
		RemoveDuplicates: true,
	}
}
