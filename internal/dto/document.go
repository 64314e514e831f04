package dto

// UploadResponse is returned by both upload endpoints.
type UploadResponse struct {
	Message  string `json:"message"`
	FileID   string `json:"file_id"`
	FilePath string `json:"file_path"`
	Status   string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type RootResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
}
