// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

// Language is a source-language label offered by the language picker.
//
// The label is passed to the model verbatim ("Language: Python"), so the
// values are display names, not file extensions.
type Language string

// The supported labels, in picker order.
const (
	JavaScript Language = "JavaScript"
	Python     Language = "Python"
	Java       Language = "Java"
	C          Language = "C"
	CPP        Language = "C++"
	CSharp     Language = "C#"
	Go         Language = "Go"
	Rust       Language = "Rust"
	Ruby       Language = "Ruby"
	PHP        Language = "PHP"
	TypeScript Language = "TypeScript"
	Kotlin     Language = "Kotlin"
	Swift      Language = "Swift"
	Scala      Language = "Scala"
	Dart       Language = "Dart"
	Perl       Language = "Perl"
	R          Language = "R"
	Shell      Language = "Shell"
	SQL        Language = "SQL"
)

// DefaultLanguage is preselected when nothing else is configured.
const DefaultLanguage = JavaScript

var languages = []Language{
	JavaScript, Python, Java, C, CPP, CSharp, Go, Rust, Ruby, PHP,
	TypeScript, Kotlin, Swift, Scala, Dart, Perl, R, Shell, SQL,
}

// Languages returns the supported labels in picker order.
// A fresh slice is returned so callers can't reorder the package's copy.
func Languages() []Language {
	out := make([]Language, len(languages))
	copy(out, languages)
	return out
}

// Valid reports whether l is one of the supported labels.
func (l Language) Valid() bool {
	for _, known := range languages {
		if l == known {
			return true
		}
	}
	return false
}

func (l Language) String() string {
	return string(l)
}
