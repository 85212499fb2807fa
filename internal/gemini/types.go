package gemini

import "strings"

// Wire types for the generativelanguage REST API.

// FileHandle identifies a document uploaded through the files endpoint. The
// URI is what generateContent consumes; the Name is what delete consumes.
type FileHandle struct {
	Name        string `json:"name"` // "files/<id>"
	URI         string `json:"uri"`
	MIMEType    string `json:"mimeType,omitempty"`
	State       string `json:"state,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

type uploadResponse struct {
	File FileHandle `json:"file"`
}

type GenerateContentRequest struct {
	Contents []Content `json:"contents"`
}

type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part carries either inline text or a reference to an uploaded file.
type Part struct {
	Text     string    `json:"text,omitempty"`
	FileData *FileData `json:"fileData,omitempty"`
}

type FileData struct {
	MIMEType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri"`
}

type GenerateContentResponse struct {
	Candidates []Candidate `json:"candidates"`
}

type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

// Text returns the concatenated text parts of the first candidate, trimmed.
func (r *GenerateContentResponse) Text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return strings.TrimSpace(b.String())
}
