package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"remindme/internal/models"
	"remindme/internal/repository"
	"remindme/internal/services"
)

type Handler struct {
	auth      *services.AuthService
	reminders *services.ReminderService
	logger    *logrus.Logger
}

func New(auth *services.AuthService, reminders *services.ReminderService, logger *logrus.Logger) *Handler {
	return &Handler{
		auth:      auth,
		reminders: reminders,
		logger:    logger,
	}
}

// Routes builds the full REST surface.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Reminder API is running"))
	})

	mux.HandleFunc("POST /api/auth/signup", h.Signup)
	mux.HandleFunc("POST /api/auth/login", h.Login)
	mux.HandleFunc("PUT /api/auth/push-token", h.requireAuth(h.RegisterPushToken))

	mux.HandleFunc("GET /api/reminders", h.requireAuth(h.ListReminders))
	mux.HandleFunc("POST /api/reminders", h.requireAuth(h.CreateReminder))
	mux.HandleFunc("GET /api/reminders/{id}", h.requireAuth(h.GetReminder))
	mux.HandleFunc("PATCH /api/reminders/{id}", h.requireAuth(h.UpdateReminder))
	mux.HandleFunc("DELETE /api/reminders/{id}", h.requireAuth(h.DeleteReminder))

	return mux
}

type createReminderRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	DueDate     time.Time       `json:"dueDate"`
	Priority    models.Priority `json:"priority"`
	Status      models.Status   `json:"status"` // accepted on the wire, always forced to pending
}

func (h *Handler) ListReminders(w http.ResponseWriter, r *http.Request) {
	reminders, err := h.reminders.List(r.Context(), userIDFrom(r))
	if err != nil {
		h.logger.WithError(err).Error("Failed to list reminders")
		writeError(w, http.StatusInternalServerError, "failed to fetch reminders")
		return
	}
	if reminders == nil {
		reminders = []models.Reminder{}
	}
	writeJSON(w, http.StatusOK, reminders)
}

func (h *Handler) CreateReminder(w http.ResponseWriter, r *http.Request) {
	var req createReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reminder, err := h.reminders.Create(r.Context(), userIDFrom(r), services.CreateReminderInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Priority:    req.Priority,
	})
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.WithError(err).Error("Failed to create reminder")
		writeError(w, http.StatusInternalServerError, "failed to create reminder")
		return
	}

	writeJSON(w, http.StatusCreated, reminder)
}

func (h *Handler) GetReminder(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "reminder not found")
		return
	}

	reminder, err := h.reminders.Get(r.Context(), userIDFrom(r), id)
	if err != nil {
		h.respondReminderError(w, err, "Failed to fetch reminder")
		return
	}
	writeJSON(w, http.StatusOK, reminder)
}

func (h *Handler) UpdateReminder(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "reminder not found")
		return
	}

	update, err := decodeReminderUpdate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reminder, err := h.reminders.Update(r.Context(), userIDFrom(r), id, update)
	if err != nil {
		h.respondReminderError(w, err, "Failed to update reminder")
		return
	}
	writeJSON(w, http.StatusOK, reminder)
}

func (h *Handler) DeleteReminder(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "reminder not found")
		return
	}

	reminder, err := h.reminders.Delete(r.Context(), userIDFrom(r), id)
	if err != nil {
		h.respondReminderError(w, err, "Failed to delete reminder")
		return
	}
	writeJSON(w, http.StatusOK, reminder)
}

func (h *Handler) respondReminderError(w http.ResponseWriter, err error, logMessage string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "reminder not found")
	case errors.Is(err, services.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.WithError(err).Error(logMessage)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeReminderUpdate parses a PATCH body. Any field outside the allowed set
// rejects the whole request; nothing is applied partially.
func decodeReminderUpdate(r *http.Request) (repository.ReminderUpdate, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return repository.ReminderUpdate{}, errors.New("invalid request body")
	}

	var update repository.ReminderUpdate
	for field, value := range raw {
		var err error
		switch field {
		case "title":
			update.Title = new(string)
			err = json.Unmarshal(value, update.Title)
		case "description":
			update.Description = new(string)
			err = json.Unmarshal(value, update.Description)
		case "dueDate":
			update.DueDate = new(time.Time)
			err = json.Unmarshal(value, update.DueDate)
		case "priority":
			update.Priority = new(models.Priority)
			err = json.Unmarshal(value, update.Priority)
		case "completed":
			update.Completed = new(bool)
			err = json.Unmarshal(value, update.Completed)
		case "status":
			update.Status = new(models.Status)
			err = json.Unmarshal(value, update.Status)
		default:
			return repository.ReminderUpdate{}, errors.New("invalid updates")
		}
		if err != nil {
			return repository.ReminderUpdate{}, errors.New("invalid value for field " + field)
		}
	}
	return update, nil
}
