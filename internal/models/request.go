package models

// QueryRequest is the body of POST /query: a natural language
// question against one of the registered databases.
type QueryRequest struct {
	Question   string `json:"question"`
	Database   string `json:"database,omitempty"`
	ReturnType string `json:"return_type,omitempty"` // "sql" | "result", default "result"
	Context    string `json:"context,omitempty"`
}

func (r *QueryRequest) SetDefaults() {
	if r.ReturnType == "" {
		r.ReturnType = "result"
	}
}
