package domain

// ImportField is the multipart field the contact import reads the CSV from.
const ImportField = "file"

// ImportColumns are the CSV headers the contact import understands. Matching
// is case-insensitive; only Email is mandatory.
var ImportColumns = []string{"First Name", "Last Name", "Email", "From"}

// ImportResult summarizes one CSV import.
type ImportResult struct {
	Total    int              `json:"total"`
	Imported int              `json:"imported"`
	Skipped  int              `json:"skipped"`
	Errors   []ImportRowError `json:"errors"`
}

// ImportRowError explains why a row was skipped. Row is 1-based and counts
// the header line.
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// Membership is the payload of the group associate and dissociate endpoints.
type Membership struct {
	GroupID   string `json:"group_id"`
	ContactID string `json:"contact_id"`
}
