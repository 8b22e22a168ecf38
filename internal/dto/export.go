package dto

// Export formats accepted by the export API.
const (
	ExportFormatJSON = "json"
	ExportFormatCSV  = "csv"
	ExportFormatPDF  = "pdf"
)

// ExportNotesRequest asks for a bundle of notes in the given format.
type ExportNotesRequest struct {
	NoteIDs []string `json:"noteIds" binding:"required,min=1"`
	Format  string   `json:"format" binding:"required"`
	Reason  string   `json:"reason,omitempty"`
}

// SkippedNote names a note excluded from an export and why.
type SkippedNote struct {
	NoteID string `json:"noteId"`
	Reason string `json:"reason"`
}

// ExportNotesResponse carries the rendered payload location and skip list.
type ExportNotesResponse struct {
	DownloadURL string        `json:"downloadUrl"`
	Format      string        `json:"format"`
	Exported    int           `json:"exported"`
	Skipped     []SkippedNote `json:"skipped"`
}
