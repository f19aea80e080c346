package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"log/slog"

	"github.com/jmcleod/facelock/auth"
	"github.com/jmcleod/facelock/face"
	"github.com/jmcleod/facelock/storage"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// mapError translates flow outcomes to HTTP statuses. Denials keep their
// deliberately vague outward message; hard errors are reported as a failing
// store without detail.
func mapError(w http.ResponseWriter, err error) {
	if d, ok := auth.AsDenial(err); ok {
		writeError(w, denialStatus(d), d.Error())
		return
	}
	switch {
	case errors.Is(err, storage.ErrUserExists):
		writeError(w, http.StatusConflict, "username already exists")
	case errors.Is(err, context.Canceled):
		writeError(w, http.StatusBadRequest, "request canceled")
	default:
		writeError(w, http.StatusInternalServerError, "credential store unavailable")
	}
}

func denialStatus(d *auth.Denial) int {
	switch d.Reason {
	case auth.ReasonLocked:
		return http.StatusLocked
	case auth.ReasonAttemptTimeout:
		return http.StatusRequestTimeout
	case auth.ReasonRegistrationIncomplete:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusUnauthorized
	}
}

func decodeFrames(payloads []FramePayload) ([]face.Frame, error) {
	frames := make([]face.Frame, len(payloads))
	for i, p := range payloads {
		if p.Width <= 0 || p.Height <= 0 || len(p.Pixels) != p.Width*p.Height {
			return nil, fmt.Errorf("frame %d: %dx%d does not match %d pixel bytes", i, p.Width, p.Height, len(p.Pixels))
		}
		frames[i] = face.Frame{
			Width:     p.Width,
			Height:    p.Height,
			Pixels:    p.Pixels,
			Timestamp: time.UnixMilli(p.TimestampMs),
		}
	}
	return frames, nil
}

// HandleRegister enrolls a new user from a captured frame sequence.
func (a *API) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	frames, err := decodeFrames(req.Frames)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	enr, err := a.coord.Register(r.Context(), req.Username, req.Password, face.NewSliceStream(frames))
	if err != nil {
		a.audit.log(AuditRegisterDenied, r, slog.String("username", req.Username), slog.String("err", err.Error()))
		mapError(w, err)
		return
	}

	a.audit.log(AuditRegisterSuccess, r, slog.String("username", req.Username))
	writeJSON(w, http.StatusCreated, RegisterResponse{
		Secret:          enr.Secret,
		ProvisioningURI: enr.ProvisioningURI,
		BackupCodes:     enr.BackupCodes,
	})
}

// HandleLogin runs one authentication attempt from a captured frame sequence
// and the submitted second-factor code.
func (a *API) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	frames, err := decodeFrames(req.Frames)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	prompt := func(context.Context) (string, error) { return req.Code, nil }
	grant, err := a.coord.Login(r.Context(), req.Username, req.Password, face.NewSliceStream(frames), prompt)
	if err != nil {
		a.audit.log(AuditLoginDenied, r, slog.String("username", req.Username), slog.String("err", err.Error()))
		mapError(w, err)
		return
	}

	a.audit.log(AuditLoginSuccess, r, slog.String("username", req.Username), slog.String("grant_id", grant.ID))
	writeJSON(w, http.StatusOK, LoginResponse{
		GrantID:   grant.ID,
		Username:  grant.Username,
		GrantedAt: grant.GrantedAt.UTC().Format(time.RFC3339),
		ExpiresAt: grant.ExpiresAt.UTC().Format(time.RFC3339),
	})
}
