// Package llm talks to the Gemini generateContent endpoint.
//
// The package has two halves:
//   - BuildRequest turns a snippet and its language into the request body.
//     It is pure — no I/O, no clock, no randomness.
//   - Client sends that body and decodes the reply.
//
// Only the small subset of the Gemini schema the app needs is modelled here:
// a single-turn request with one text part, and the first candidate's text.
package llm

import (
	"strings"

	"github.com/sakif/devhelper-ai/internal/apperror"
	"github.com/sakif/devhelper-ai/internal/model"
)

// Prompt is the fixed instruction sent ahead of every snippet.
const Prompt = `You are an intelligent programming assistant named DevHelper AI. A user will give you a code snippet in either JavaScript, Python, or Java. Your task is to:
1. Explain the code
2. Identify bugs
3. Suggest improvements

Format it in markdown with:
### 🧠 Code Explanation
### 🐞 Bugs / Issues
### 🚀 Suggestions / Improvements`

// GenerateRequest is the body of a generateContent call.
type GenerateRequest struct {
	Contents []Content `json:"contents"`
}

// Content is one turn of the conversation.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part is one piece of a turn. Only text parts are used.
type Part struct {
	Text string `json:"text"`
}

// BuildRequest returns the request body for analysing code written in lang.
//
// The code is embedded verbatim (not trimmed) — whitespace can matter to the
// explanation, e.g. for Python. Trimming is only used to reject empty input.
func BuildRequest(code string, lang model.Language) (GenerateRequest, error) {
	if strings.TrimSpace(code) == "" {
		return GenerateRequest{}, apperror.ValidationFailed("code", "code is required")
	}
	if !lang.Valid() {
		return GenerateRequest{}, apperror.ValidationFailed("language", "unsupported language: "+string(lang))
	}

	return GenerateRequest{
		Contents: []Content{
			{Parts: []Part{{Text: promptText(code, lang)}}},
		},
	}, nil
}

func promptText(code string, lang model.Language) string {
	var b strings.Builder
	b.Grow(len(Prompt) + len(code) + 32)
	b.WriteString(Prompt)
	b.WriteString("\n\nLanguage: ")
	b.WriteString(string(lang))
	b.WriteString("\n\nCode:\n")
	b.WriteString(code)
	return b.String()
}
