package chunking

import (
	"fmt"
	"sort"
	"strings"
)

// Language selects the separator profile used by the recursive splitter.
// One profile is applied to every file of an ingestion run.
type Language string

const (
	Python     Language = "PYTHON"
	Go         Language = "GO"
	JavaScript Language = "JS"
	TypeScript Language = "TS"
	Java       Language = "JAVA"
	Rust       Language = "RUST"
	Ruby       Language = "RUBY"
	CPP        Language = "CPP"
	Markdown   Language = "MARKDOWN"
	Text       Language = "TEXT"
)

// DefaultLanguage is used when no language is configured.
const DefaultLanguage = Python

// separators are ordered from the coarsest syntactic boundary to raw characters.
var separators = map[Language][]string{
	Python: {"\nclass ", "\ndef ", "\n\tdef ", "\n\n", "\n", " ", ""},
	Go: {
		"\nfunc ", "\nvar ", "\nconst ", "\ntype ",
		"\nif ", "\nfor ", "\nswitch ", "\ncase ",
		"\n\n", "\n", " ", "",
	},
	JavaScript: {
		"\nfunction ", "\nconst ", "\nlet ", "\nvar ", "\nclass ",
		"\nif ", "\nfor ", "\nwhile ", "\nswitch ", "\ncase ", "\ndefault ",
		"\n\n", "\n", " ", "",
	},
	TypeScript: {
		"\nenum ", "\ninterface ", "\nnamespace ", "\ntype ", "\nclass ",
		"\nfunction ", "\nconst ", "\nlet ", "\nvar ",
		"\nif ", "\nfor ", "\nwhile ", "\nswitch ", "\ncase ", "\ndefault ",
		"\n\n", "\n", " ", "",
	},
	Java: {
		"\nclass ", "\npublic ", "\nprotected ", "\nprivate ", "\nstatic ",
		"\nif ", "\nfor ", "\nwhile ", "\nswitch ", "\ncase ",
		"\n\n", "\n", " ", "",
	},
	Rust: {
		"\nfn ", "\nconst ", "\nlet ",
		"\nif ", "\nwhile ", "\nfor ", "\nloop ", "\nmatch ",
		"\n\n", "\n", " ", "",
	},
	Ruby: {
		"\ndef ", "\nclass ",
		"\nif ", "\nunless ", "\nwhile ", "\nfor ", "\ndo ", "\nbegin ", "\nrescue ",
		"\n\n", "\n", " ", "",
	},
	CPP: {
		"\nclass ", "\nvoid ", "\nint ", "\nfloat ", "\ndouble ",
		"\nif ", "\nfor ", "\nwhile ", "\nswitch ", "\ncase ",
		"\n\n", "\n", " ", "",
	},
	// Headings are handled by the sectioner before splitting.
	Markdown: {"\n```\n", "\n\n", "\n", " ", ""},
	Text:     {"\n\n", "\n", " ", ""},
}

// ParseLanguage resolves a configured language name, case-insensitively.
func ParseLanguage(name string) (Language, error) {
	if name == "" {
		return DefaultLanguage, nil
	}
	lang := Language(strings.ToUpper(strings.TrimSpace(name)))
	if _, ok := separators[lang]; !ok {
		return "", fmt.Errorf("unsupported language %q (supported: %s)", name, strings.Join(SupportedLanguages(), ", "))
	}
	return lang, nil
}

// SupportedLanguages lists the known profiles in sorted order.
func SupportedLanguages() []string {
	names := make([]string, 0, len(separators))
	for lang := range separators {
		names = append(names, string(lang))
	}
	sort.Strings(names)
	return names
}

// Separators returns a copy of the separator list for lang.
func Separators(lang Language) []string {
	return append([]string(nil), separators[lang]...)
}
