package parser

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
)

// Language couples a grammar with the files it applies to and the query
// used to pull symbols out of its trees. Every capture in SymbolQuery
// except @name names a symbol kind; @name marks the symbol's identifier.
type Language struct {
	Name        string
	Extensions  []string
	Grammar     *sitter.Language
	SymbolQuery string
}

var languages = map[string]*Language{
	"go": {
		Name:       "go",
		Extensions: []string{".go"},
		Grammar:    golang.GetLanguage(),
		SymbolQuery: `
(function_declaration name: (identifier) @name) @function
(method_declaration name: (field_identifier) @name) @method
(type_spec name: (type_identifier) @name) @type
`,
	},
	"c": {
		Name:       "c",
		Extensions: []string{".c", ".h"},
		Grammar:    c.GetLanguage(),
		SymbolQuery: `
(function_definition declarator: (function_declarator declarator: (identifier) @name)) @function
(struct_specifier name: (type_identifier) @name body: (field_declaration_list)) @struct
`,
	},
	"python": {
		Name:       "python",
		Extensions: []string{".py"},
		Grammar:    python.GetLanguage(),
		SymbolQuery: `
(function_definition name: (identifier) @name) @function
(class_definition name: (identifier) @name) @class
`,
	},
	"javascript": {
		Name:       "javascript",
		Extensions: []string{".js", ".mjs", ".cjs"},
		Grammar:    javascript.GetLanguage(),
		SymbolQuery: `
(function_declaration name: (identifier) @name) @function
(class_declaration name: (identifier) @name) @class
(method_definition name: (property_identifier) @name) @method
`,
	},
}

// Lookup returns the language registered under name.
func Lookup(name string) (*Language, error) {
	lang, ok := languages[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, name)
	}
	return lang, nil
}

// ForPath picks a language from the extension of path. overrides maps
// extensions to language names and wins over the built-in table.
func ForPath(path string, overrides map[string]string) (*Language, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if name, ok := overrides[ext]; ok {
		return Lookup(name)
	}
	for _, lang := range languages {
		for _, e := range lang.Extensions {
			if e == ext {
				return lang, nil
			}
		}
	}
	return nil, fmt.Errorf("%w for %s", ErrUnknownLanguage, path)
}

// Names lists the registered languages in order.
func Names() []string {
	names := make([]string, 0, len(languages))
	for name := range languages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
