package model

// FetchError records a vault that could not be fetched.
type FetchError struct {
	Cluster  string `json:"cluster,omitempty"`
	Label    string `json:"label,omitempty"`
	Address  string `json:"address"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error"`
	At       string `json:"at"`
}
