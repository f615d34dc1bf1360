package conversation

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers conversation routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/conversations", func(r chi.Router) {
		r.Get("/", h.ListConversations)
		r.Post("/", h.CreateConversation)

		r.Route("/{conversation_id}", func(r chi.Router) {
			r.Get("/", h.GetConversation)
			r.Patch("/", h.RenameConversation)
			r.Delete("/", h.DeleteConversation)
			r.Post("/select", h.SelectConversation)

			r.Post("/files", h.AddFiles)
			r.Delete("/files/{file_id}", h.RemoveFile)

			r.Post("/build", h.BuildIndex)
			r.Get("/status", h.GetStatus)

			r.Get("/messages", h.ListMessages)
			r.Post("/messages", h.Ask)

			r.Get("/export", h.Export)
		})
	})
}
