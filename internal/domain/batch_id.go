package domain

import "github.com/google/uuid"

// NewBatchID returns a time-ordered identifier shared by jars filled together.
func NewBatchID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
