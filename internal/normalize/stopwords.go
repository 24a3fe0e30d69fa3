package normalize

// stopwords are conjunctions and prepositions that carry no discriminative
// value when comparing filenames against titles and authors. The catalog is
// predominantly Russian with a long tail of English titles, so both
// languages are covered.
var stopwords = map[string]struct{}{
	// Russian
	"и": {}, "в": {}, "во": {}, "на": {}, "с": {}, "со": {}, "по": {},
	"из": {}, "от": {}, "до": {}, "за": {}, "к": {}, "ко": {}, "у": {},
	"о": {}, "об": {}, "обо": {}, "не": {}, "ни": {}, "но": {}, "а": {},
	"же": {}, "ли": {}, "бы": {}, "для": {}, "под": {}, "над": {},
	"при": {}, "про": {}, "без": {}, "через": {}, "или": {},
	// English
	"the": {}, "a": {}, "an": {}, "of": {}, "and": {}, "or": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "by": {},
	"with": {}, "from": {},
}

// bibliographicWords are catalog furniture that appears in filenames but
// never helps identify a specific book.
var bibliographicWords = map[string]struct{}{
	// Russian
	"серия": {}, "цикл": {}, "том": {}, "книга": {}, "издание": {},
	"сборник": {}, "часть": {},
	// English
	"series": {}, "volume": {}, "vol": {}, "book": {}, "edition": {},
	"ed": {}, "part": {}, "collection": {},
	// Language tags
	"rus": {}, "eng": {}, "russian": {}, "english": {},
}

// extensionTokens are file-format suffixes that survive tokenization when a
// filename uses dots or spaces around its extension.
var extensionTokens = map[string]struct{}{
	"fb2": {}, "epub": {}, "mobi": {}, "azw": {}, "azw3": {},
	"pdf": {}, "djvu": {}, "txt": {}, "doc": {}, "docx": {}, "rtf": {},
	"zip": {}, "rar": {}, "7z": {}, "gz": {},
}

func isDroppedToken(token string) bool {
	if _, ok := stopwords[token]; ok {
		return true
	}
	if _, ok := bibliographicWords[token]; ok {
		return true
	}
	if _, ok := extensionTokens[token]; ok {
		return true
	}
	return false
}
