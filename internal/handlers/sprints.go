package handlers

import (
	"net/http"

	"awsugmdu-backend/internal/service/sprint"
	"awsugmdu-backend/pkg/api"

	"github.com/go-chi/chi/v5"
)

// SprintHandler handles /sprints requests.
type SprintHandler struct {
	base
	sprints sprint.Service
}

func NewSprintHandler(sprints sprint.Service, b base) *SprintHandler {
	return &SprintHandler{base: b, sprints: sprints}
}

// Routes mounts the sprint endpoints.
func (h *SprintHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Route("/{sprintID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Delete("/", h.Delete)

		r.Post("/sessions", h.AddSession)
		r.Put("/sessions/{sessionID}", h.UpdateSession)
		r.Delete("/sessions/{sessionID}", h.DeleteSession)
		r.Post("/sessions/{sessionID}/register", h.RegisterForSession)

		r.Post("/register", h.Register)
		r.Post("/submit", h.Submit)
		r.Put("/submissions/{submissionID}", h.ReviewSubmission)

		r.Get("/forum", h.ListForum)
		r.Post("/forum", h.CreateForumPost)
		r.Post("/forum/{postID}/reply", h.ReplyToForumPost)
		r.Post("/forum/{postID}/like", h.ToggleForumLike)
	})
}

func (h *SprintHandler) List(w http.ResponseWriter, r *http.Request) {
	sprints, err := h.sprints.ListSprints(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, sprints)
}

func (h *SprintHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in sprint.CreateSprintInput
	if err := decode(r, &in); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if in.CreatedBy == "" {
		in.CreatedBy, _ = resolveUserID(r, "")
	}
	s, err := h.sprints.CreateSprint(r.Context(), in)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusCreated, s)
}

func (h *SprintHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.sprints.GetSprint(r.Context(), chi.URLParam(r, "sprintID"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, s)
}

func (h *SprintHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in sprint.UpdateSprintInput
	if err := decode(r, &in); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	s, err := h.sprints.UpdateSprint(r.Context(), chi.URLParam(r, "sprintID"), in)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, s)
}

func (h *SprintHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.sprints.DeleteSprint(r.Context(), chi.URLParam(r, "sprintID")); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Message(w, http.StatusOK, "Sprint deleted successfully")
}

func (h *SprintHandler) AddSession(w http.ResponseWriter, r *http.Request) {
	var in sprint.SessionInput
	if err := decode(r, &in); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	s, err := h.sprints.AddSession(r.Context(), chi.URLParam(r, "sprintID"), in)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusCreated, s)
}

func (h *SprintHandler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	var in sprint.UpdateSessionInput
	if err := decode(r, &in); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	s, err := h.sprints.UpdateSession(r.Context(), chi.URLParam(r, "sprintID"), chi.URLParam(r, "sessionID"), in)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, s)
}

func (h *SprintHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.sprints.DeleteSession(r.Context(), chi.URLParam(r, "sprintID"), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, s)
}

func (h *SprintHandler) RegisterForSession(w http.ResponseWriter, r *http.Request) {
	body, err := readUser(r)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	s, err := h.sprints.RegisterForSession(r.Context(), chi.URLParam(r, "sprintID"), chi.URLParam(r, "sessionID"), body.UserID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, s)
}

func (h *SprintHandler) Register(w http.ResponseWriter, r *http.Request) {
	body, err := readUser(r)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	s, err := h.sprints.Register(r.Context(), chi.URLParam(r, "sprintID"), body.UserID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, s)
}

func (h *SprintHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var in sprint.SubmissionInput
	if err := decode(r, &in); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	userID, err := resolveUserID(r, in.UserID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	in.UserID = userID

	s, err := h.sprints.Submit(r.Context(), chi.URLParam(r, "sprintID"), in)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusCreated, s)
}

func (h *SprintHandler) ReviewSubmission(w http.ResponseWriter, r *http.Request) {
	var in sprint.ReviewInput
	if err := decode(r, &in); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	s, err := h.sprints.ReviewSubmission(r.Context(), chi.URLParam(r, "sprintID"), chi.URLParam(r, "submissionID"), in)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, s)
}

func (h *SprintHandler) ListForum(w http.ResponseWriter, r *http.Request) {
	posts, err := h.sprints.ListForumPosts(r.Context(), chi.URLParam(r, "sprintID"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, posts)
}

func (h *SprintHandler) CreateForumPost(w http.ResponseWriter, r *http.Request) {
	var in sprint.ForumPostInput
	if err := decode(r, &in); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	userID, err := resolveUserID(r, in.UserID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	in.UserID = userID

	s, err := h.sprints.CreateForumPost(r.Context(), chi.URLParam(r, "sprintID"), in)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusCreated, s)
}

func (h *SprintHandler) ReplyToForumPost(w http.ResponseWriter, r *http.Request) {
	var in sprint.ForumReplyInput
	if err := decode(r, &in); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	userID, err := resolveUserID(r, in.UserID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	in.UserID = userID

	s, err := h.sprints.ReplyToForumPost(r.Context(), chi.URLParam(r, "sprintID"), chi.URLParam(r, "postID"), in)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusCreated, s)
}

func (h *SprintHandler) ToggleForumLike(w http.ResponseWriter, r *http.Request) {
	body, err := readUser(r)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	s, err := h.sprints.ToggleForumPostLike(r.Context(), chi.URLParam(r, "sprintID"), chi.URLParam(r, "postID"), body.UserID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, s)
}
