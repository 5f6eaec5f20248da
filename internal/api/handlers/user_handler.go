package handlers

import (
	"errors"
	"net/http"

	"github.com/isdelr/ender-portal/internal/auth"
	"github.com/isdelr/ender-portal/internal/services"
	"github.com/isdelr/ender-portal/internal/web"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// Flash notices shown after a failed form submission.
const (
	MsgInvalidCredentials = "Invalid username or password."
	MsgUsernameTaken      = "Username already exists."
	MsgPasswordTooLong    = "Password is too long."
)

// UserHandler serves the login, registration and home pages.
type UserHandler struct {
	service  services.UserServiceProvider
	sessions *auth.SessionManager
	pages    *web.Renderer
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service services.UserServiceProvider, sessions *auth.SessionManager, pages *web.Renderer) *UserHandler {
	return &UserHandler{service: service, sessions: sessions, pages: pages}
}

// LoginPage shows the login form, or sends a logged-in visitor home.
func (h *UserHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.ClaimsFromContext(r.Context()); ok {
		http.Redirect(w, r, "/home", http.StatusSeeOther)
		return
	}
	h.render(w, r, web.PageLogin, web.PageData{Title: "Log in"})
}

// Login handles the login form.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	user, err := h.service.Authenticate(r.Context(), username, password)
	if err != nil {
		if !errors.Is(err, services.ErrInvalidCredentials) {
			log.Error().Err(err).Str("username", username).Msg("Failed to authenticate user")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		log.Warn().Str("username", username).Msg("Failed login attempt")
		auth.SetFlash(w, MsgInvalidCredentials)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if err := h.sessions.Start(w, user.Username); err != nil {
		log.Error().Err(err).Str("username", user.Username).Msg("Failed to start session")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	log.Info().Str("username", user.Username).Msg("User logged in")
	http.Redirect(w, r, "/home", http.StatusSeeOther)
}

// RegisterPage shows the registration form.
func (h *UserHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, web.PageRegister, web.PageData{Title: "Register"})
}

// Register handles new user registration and logs the new user in.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	in := services.RegisterInput{
		FirstName: r.PostFormValue("firstname"),
		LastName:  r.PostFormValue("lastname"),
		Email:     r.PostFormValue("email"),
		Username:  r.PostFormValue("username"),
		Password:  r.PostFormValue("password"),
	}

	user, err := h.service.Register(r.Context(), in)
	switch {
	case errors.Is(err, services.ErrUsernameTaken):
		log.Info().Str("username", in.Username).Msg("Registration rejected, username taken")
		auth.SetFlash(w, MsgUsernameTaken)
		http.Redirect(w, r, "/register", http.StatusSeeOther)
		return
	case errors.Is(err, bcrypt.ErrPasswordTooLong):
		auth.SetFlash(w, MsgPasswordTooLong)
		http.Redirect(w, r, "/register", http.StatusSeeOther)
		return
	case err != nil:
		log.Error().Err(err).Str("username", in.Username).Msg("Failed to register user")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if err := h.sessions.Start(w, user.Username); err != nil {
		log.Error().Err(err).Str("username", user.Username).Msg("Failed to start session")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	log.Info().Str("username", user.Username).Str("user_id", user.ID).Msg("User registered")
	http.Redirect(w, r, "/home", http.StatusSeeOther)
}

// Home shows the page reserved for logged-in visitors.
func (h *UserHandler) Home(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.render(w, r, web.PageHome, web.PageData{Title: "Home", Username: claims.Username})
}

// Logout ends the session and drops any pending notice.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w)
	auth.ClearFlash(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *UserHandler) render(w http.ResponseWriter, r *http.Request, page string, data web.PageData) {
	data.Flash = auth.PopFlash(w, r)
	if err := h.pages.Render(w, http.StatusOK, page, data); err != nil {
		log.Error().Err(err).Str("page", page).Msg("Failed to render page")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
