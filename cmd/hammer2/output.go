package main

import (
	"github.com/google/uuid"

	"github.com/hammer2fs/go-hammer2/internal/types"
)

// formatUUID renders a fixed-size types.UUID in standard hyphenated form.
func formatUUID(u types.UUID) string {
	id, err := uuid.FromBytes(u[:])
	if err != nil {
		return "invalid-uuid"
	}
	return id.String()
}
