package handlers

import (
	"net/http"

	"awsugmdu-backend/internal/service/certification"
	"awsugmdu-backend/pkg/api"

	"github.com/go-chi/chi/v5"
)

// CertificationHandler handles /certification-groups requests.
type CertificationHandler struct {
	base
	groups certification.Service
}

func NewCertificationHandler(groups certification.Service, b base) *CertificationHandler {
	return &CertificationHandler{base: b, groups: groups}
}

// Routes mounts the certification group endpoints.
func (h *CertificationHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Route("/{groupID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Delete("/", h.Delete)

		r.Post("/join", h.Join)
		r.Post("/leave", h.Leave)

		r.Post("/messages", h.AddMessage)
		r.Put("/messages/{messageID}", h.UpdateMessage)
		r.Delete("/messages/{messageID}", h.DeleteMessage)
		r.Post("/messages/{messageID}/like", h.ToggleMessageLike)

		r.Post("/messages/{messageID}/replies", h.AddReply)
		r.Put("/messages/{messageID}/replies/{replyID}", h.UpdateReply)
		r.Delete("/messages/{messageID}/replies/{replyID}", h.DeleteReply)
		r.Post("/messages/{messageID}/replies/{replyID}/like", h.ToggleReplyLike)

		r.Post("/sessions", h.AddSession)
		r.Put("/sessions/{sessionID}", h.UpdateSession)
		r.Delete("/sessions/{sessionID}", h.DeleteSession)
	})
}

func (h *CertificationHandler) List(w http.ResponseWriter, r *http.Request) {
	groups, err := h.groups.ListGroups(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, groups)
}

func (h *CertificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in certification.CreateGroupInput
	if err := decode(r, &in); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	createdBy, err := resolveUserID(r, in.CreatedBy)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	in.CreatedBy = createdBy

	g, err := h.groups.CreateGroup(r.Context(), in)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusCreated, g)
}

func (h *CertificationHandler) Get(w http.ResponseWriter, r *http.Request) {
	g, err := h.groups.GetGroup(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, g)
}

func (h *CertificationHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in certification.UpdateGroupInput
	if err := decode(r, &in); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	g, err := h.groups.UpdateGroup(r.Context(), chi.URLParam(r, "groupID"), in)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, g)
}

func (h *CertificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.groups.DeleteGroup(r.Context(), chi.URLParam(r, "groupID")); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Message(w, http.StatusOK, "Certification group deleted successfully")
}

func (h *CertificationHandler) Join(w http.ResponseWriter, r *http.Request) {
	body, err := readUser(r)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	g, err := h.groups.Join(r.Context(), chi.URLParam(r, "groupID"), certification.MemberInput{
		UserID:   body.UserID,
		UserName: body.UserName,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, g)
}

func (h *CertificationHandler) Leave(w http.ResponseWriter, r *http.Request) {
	body, err := readUser(r)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	g, err := h.groups.Leave(r.Context(), chi.URLParam(r, "groupID"), body.UserID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, g)
}

// readPost decodes a message or reply body and resolves its author.
func readPost(r *http.Request) (certification.PostInput, error) {
	var in certification.PostInput
	if err := decode(r, &in); err != nil {
		return in, err
	}
	userID, err := resolveUserID(r, in.UserID)
	in.UserID = userID
	return in, err
}

func (h *CertificationHandler) AddMessage(w http.ResponseWriter, r *http.Request) {
	in, err := readPost(r)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	g, err := h.groups.AddMessage(r.Context(), chi.URLParam(r, "groupID"), in)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusCreated, g)
}

func (h *CertificationHandler) UpdateMessage(w http.ResponseWriter, r *http.Request) {
	var in certification.UpdateMessageInput
	if err := decode(r, &in); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	g, err := h.groups.UpdateMessage(r.Context(), chi.URLParam(r, "groupID"), chi.URLParam(r, "messageID"), in)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, g)
}

func (h *CertificationHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	g, err := h.groups.DeleteMessage(r.Context(), chi.URLParam(r, "groupID"), chi.URLParam(r, "messageID"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, g)
}

func (h *CertificationHandler) ToggleMessageLike(w http.ResponseWriter, r *http.Request) {
	body, err := readUser(r)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	g, err := h.groups.ToggleMessageLike(r.Context(), chi.URLParam(r, "groupID"), chi.URLParam(r, "messageID"), body.UserID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, g)
}

func (h *CertificationHandler) AddReply(w http.ResponseWriter, r *http.Request) {
	in, err := readPost(r)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	g, err := h.groups.AddReply(r.Context(), chi.URLParam(r, "groupID"), chi.URLParam(r, "messageID"), in)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusCreated, g)
}

func (h *CertificationHandler) UpdateReply(w http.ResponseWriter, r *http.Request) {
	var in certification.UpdateReplyInput
	if err := decode(r, &in); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	g, err := h.groups.UpdateReply(r.Context(),
		chi.URLParam(r, "groupID"), chi.URLParam(r, "messageID"), chi.URLParam(r, "replyID"), in)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, g)
}

func (h *CertificationHandler) DeleteReply(w http.ResponseWriter, r *http.Request) {
	g, err := h.groups.DeleteReply(r.Context(),
		chi.URLParam(r, "groupID"), chi.URLParam(r, "messageID"), chi.URLParam(r, "replyID"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, g)
}

func (h *CertificationHandler) ToggleReplyLike(w http.ResponseWriter, r *http.Request) {
	body, err := readUser(r)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	g, err := h.groups.ToggleReplyLike(r.Context(),
		chi.URLParam(r, "groupID"), chi.URLParam(r, "messageID"), chi.URLParam(r, "replyID"), body.UserID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, g)
}

func (h *CertificationHandler) AddSession(w http.ResponseWriter, r *http.Request) {
	var in certification.SessionInput
	if err := decode(r, &in); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	g, err := h.groups.AddSession(r.Context(), chi.URLParam(r, "groupID"), in)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusCreated, g)
}

func (h *CertificationHandler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	var in certification.UpdateSessionInput
	if err := decode(r, &in); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	g, err := h.groups.UpdateSession(r.Context(), chi.URLParam(r, "groupID"), chi.URLParam(r, "sessionID"), in)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, g)
}

func (h *CertificationHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	g, err := h.groups.DeleteSession(r.Context(), chi.URLParam(r, "groupID"), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, g)
}
