package model

// ContextBlock is one piece of source material handed to the synthesizer.
// The formatter extracts citations strictly from the blocks that were
// actually supplied, so this type is the boundary that makes fabricated
// sources impossible.
type ContextBlock struct {
	DisplayName string `json:"display_name"`
	Filename    string `json:"filename"`
	Page        *int   `json:"page,omitempty"`
	Content     string `json:"content"`
}
