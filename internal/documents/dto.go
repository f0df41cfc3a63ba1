package documents

import "time"

type documentResponse struct {
	DocumentID   string    `json:"documentId"`
	Role         string    `json:"role"`
	FileName     string    `json:"fileName"`
	MimeType     string    `json:"mimeType,omitempty"`
	SizeBytes    int64     `json:"sizeBytes"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	HasText      bool      `json:"hasText"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

func toResponse(doc Document) documentResponse {
	return documentResponse{
		DocumentID:   doc.ID,
		Role:         doc.Role,
		FileName:     doc.FileName,
		MimeType:     doc.MimeType,
		SizeBytes:    doc.SizeBytes,
		Status:       doc.Status,
		ErrorMessage: doc.ErrorMessage,
		HasText:      doc.ExtractedText != "",
		UploadedAt:   doc.CreatedAt,
	}
}
