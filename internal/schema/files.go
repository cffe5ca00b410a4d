package schema

type (
	// FileObject mirrors the OpenAI file object.
	FileObject struct {
		ID        string `json:"id"`
		Object    string `json:"object"`
		Bytes     int64  `json:"bytes"`
		CreatedAt int64  `json:"created_at"`
		Filename  string `json:"filename"`
		Purpose   string `json:"purpose"`
	}

	FileList struct {
		Object  string       `json:"object"`
		Data    []FileObject `json:"data"`
		HasMore bool         `json:"has_more,omitempty"`
	}

	FileDeleted struct {
		ID      string `json:"id"`
		Object  string `json:"object"`
		Deleted bool   `json:"deleted"`
	}
)
