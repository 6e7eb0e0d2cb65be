package http

import (
	"net/http"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/services"
)

const userNotFound = "User not found"

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, err, userNotFound)
		return
	}
	if err := p.RequireFields("email", "password", "name"); err != nil {
		writeError(w, r, err, userNotFound)
		return
	}

	session, err := s.auth.Signup(r.Context(), services.SignupInput{
		Email:    p.Get("email"),
		Password: p.GetRaw("password"),
		Name:     p.Get("name"),
	})
	if err != nil {
		writeError(w, r, err, userNotFound)
		return
	}

	NewJSONResponse().
		Status(http.StatusCreated).
		Message("User created successfully", map[string]any{"token": session.Token, "user": session.User}).
		Write(w)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, err, userNotFound)
		return
	}
	if err := p.RequireFields("email", "password"); err != nil {
		writeError(w, r, err, userNotFound)
		return
	}

	session, err := s.auth.Login(r.Context(), p.Get("email"), p.GetRaw("password"))
	if err != nil {
		writeError(w, r, err, userNotFound)
		return
	}

	NewJSONResponse().
		Message("Login successful", map[string]any{"token": session.Token, "user": session.User}).
		Write(w)
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	user, err := s.auth.Verify(r.Context(), userID)
	if err != nil {
		writeError(w, r, err, userNotFound)
		return
	}
	NewJSONResponse().Body(map[string]any{"user": user}).Write(w)
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, err, userNotFound)
		return
	}
	if err := p.RequireFields("email"); err != nil {
		writeError(w, r, err, userNotFound)
		return
	}

	found, err := s.auth.ForgotPassword(r.Context(), p.Get("email"))
	if err != nil {
		writeError(w, r, err, userNotFound)
		return
	}
	NewJSONResponse().Body(map[string]any{"user_found": found}).Write(w)
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, err, userNotFound)
		return
	}
	if err := p.RequireFields("email", "new_password"); err != nil {
		writeError(w, r, err, userNotFound)
		return
	}

	if err := s.auth.ResetPassword(r.Context(), p.Get("email"), p.GetRaw("new_password")); err != nil {
		writeError(w, r, err, userNotFound)
		return
	}
	NewJSONResponse().Message("Password reset successfully", nil).Write(w)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, err, userNotFound)
		return
	}

	update := core.ProfileUpdate{
		Name:        p.Optional("name"),
		PhoneNumber: p.Optional("phone_number"),
	}
	if p.Has("profile_picture") {
		picture := p.GetRaw("profile_picture")
		update.ProfilePicture = &picture
	}

	userID, _ := auth.UserIDFromContext(r.Context())
	user, err := s.auth.UpdateProfile(r.Context(), userID, update)
	if err != nil {
		writeError(w, r, err, userNotFound)
		return
	}
	NewJSONResponse().Message("Profile updated successfully", map[string]any{"user": user}).Write(w)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, err, userNotFound)
		return
	}
	if err := p.RequireFields("current_password", "new_password"); err != nil {
		writeError(w, r, err, userNotFound)
		return
	}

	userID, _ := auth.UserIDFromContext(r.Context())
	err := s.auth.ChangePassword(r.Context(), userID, p.GetRaw("current_password"), p.GetRaw("new_password"))
	if err != nil {
		writeError(w, r, err, userNotFound)
		return
	}
	NewJSONResponse().Message("Password changed successfully", nil).Write(w)
}
