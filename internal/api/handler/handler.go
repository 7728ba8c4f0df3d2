// Package handler wires the HTTP and WebSocket surface to the chat core.
// Authentication is the identity collaborator's concern: the middleware
// verifies the token and attaches a principal; everything downstream
// trusts it.
package handler

import (
	"supportchat/backend/internal/chathub"
	"supportchat/backend/internal/storage"
)

// Handler carries the dependencies of the HTTP and WebSocket endpoints.
type Handler struct {
	Hub     *chathub.ManagerService
	Storage storage.Storage
	Signer  *storage.LinkSigner

	// FileDir is the directory the signed download endpoint serves from.
	FileDir string

	// FallbackAdminID mirrors the hub's room-creation policy for the
	// HTTP fetch-or-create route.
	FallbackAdminID string
}

// NewHandler builds a Handler.
func NewHandler(hub *chathub.ManagerService, s storage.Storage, signer *storage.LinkSigner, fileDir, fallbackAdminID string) *Handler {
	return &Handler{
		Hub:             hub,
		Storage:         s,
		Signer:          signer,
		FileDir:         fileDir,
		FallbackAdminID: fallbackAdminID,
	}
}
