package bitbucket

// Repository represents a Bitbucket repository as returned by the listing endpoint
type Repository struct {
	Name     string `json:"name"`
	Slug     string `json:"slug,omitempty"`
	FullName string `json:"full_name,omitempty"`
}

// RepositoryPage represents one page of a paginated repository listing
type RepositoryPage struct {
	Values  []Repository `json:"values"`
	Next    string       `json:"next,omitempty"`
	Page    int          `json:"page,omitempty"`
	PageLen int          `json:"pagelen,omitempty"`
	Size    int          `json:"size,omitempty"`
}

// apiError mirrors the error envelope Bitbucket returns on failures
type apiError struct {
	Type  string `json:"type"`
	Error struct {
		Message string `json:"message"`
		Detail  string `json:"detail,omitempty"`
	} `json:"error"`
}
