package pdf

// TextResponse is returned by extract_pdf_text
type TextResponse struct {
	// Text is the extracted text of every selected page, separated by blank lines
	Text string `json:"text"`

	// PageCount is the total number of pages in the document
	PageCount int `json:"page_count"`

	// PagesExtracted lists the 1-based pages included in Text
	PagesExtracted []int `json:"pages_extracted"`

	// Metadata is present when include_metadata was requested
	Metadata *MetadataResponse `json:"metadata,omitempty"`

	ProcessingTimeMs int64 `json:"processing_time_ms"`
}

// MetadataResponse is returned by extract_pdf_metadata
type MetadataResponse struct {
	Title            string `json:"title,omitempty"`
	Author           string `json:"author,omitempty"`
	Subject          string `json:"subject,omitempty"`
	Keywords         string `json:"keywords,omitempty"`
	Creator          string `json:"creator,omitempty"`
	Producer         string `json:"producer,omitempty"`
	CreationDate     string `json:"creation_date,omitempty"`
	ModificationDate string `json:"modification_date,omitempty"`
	PageCount        int    `json:"page_count"`
	PDFVersion       string `json:"pdf_version"`
	IsEncrypted      bool   `json:"is_encrypted"`
	FileSizeBytes    int64  `json:"file_size_bytes"`
}

// PageContent is the text of one page in a PagesResponse
type PageContent struct {
	PageNumber int    `json:"page_number"`
	Content    string `json:"content"`
	WordCount  int    `json:"word_count"`

	// Lines is only set for structured output
	Lines []string `json:"lines,omitempty"`
}

// PagesResponse is returned by extract_pdf_pages
type PagesResponse struct {
	Pages               []PageContent `json:"pages"`
	TotalPagesExtracted int           `json:"total_pages_extracted"`
	PageCount           int           `json:"page_count"`
}

// ValidationResponse is returned by validate_pdf
type ValidationResponse struct {
	IsValid       bool   `json:"is_valid"`
	PDFVersion    string `json:"pdf_version,omitempty"`
	IsEncrypted   bool   `json:"is_encrypted"`
	IsReadable    bool   `json:"is_readable"`
	PageCount     int    `json:"page_count,omitempty"`
	ErrorMessage  string `json:"error_message,omitempty"`
	FileSizeBytes int64  `json:"file_size_bytes"`
}
