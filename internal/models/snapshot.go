package models

import (
	"errors"
	"time"
)

// Snapshot is one fetched-and-cleaned dataset: the full set of valid
// rating records at a point in time, plus the snack display-name lookup
// that accompanied it. The computation engines take a snapshot's records
// as input and derive everything else fresh on each call.
type Snapshot struct {
	ID         string            `json:"id"`
	FetchedAt  time.Time         `json:"fetched_at"`
	Source     string            `json:"source"`
	Records    []RatingRecord    `json:"records"`
	SnackNames map[string]string `json:"snack_names,omitempty"`
}

// Validate checks that all snapshot fields are valid. An empty record set
// is allowed: an empty survey is data, not an error.
func (s *Snapshot) Validate(categories []string) error {
	if s.ID == "" {
		return errors.New("snapshot ID must not be empty")
	}
	if s.Source == "" {
		return errors.New("source must not be empty")
	}
	if s.FetchedAt.IsZero() {
		return errors.New("fetched at must be set")
	}
	for i := range s.Records {
		if err := s.Records[i].Validate(categories); err != nil {
			return err
		}
	}
	return nil
}
