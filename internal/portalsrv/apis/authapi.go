package apis

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/worlddata/portalsrv/internal/common/httpx"
	"github.com/worlddata/portalsrv/internal/portalsrv/auth"
)

type loginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	AccessKey string `json:"access_key" validate:"required"`
}

// login validates the shared admin access key and issues the session cookie.
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.GetRequestData(r, &req); err != nil {
		if httpErr, ok := err.(*httpx.Error); ok {
			httpErr.Send(w)
			return
		}
		httpx.ErrUnableToParseReqData().Send(w)
		return
	}
	if err := validate.Struct(&req); err != nil {
		httpx.ErrInvalidRequest(err.Error()).Send(w)
		return
	}

	if err := auth.VerifyAccessKey(req.Email, req.AccessKey); err != nil {
		log.Ctx(r.Context()).Info().Str("email", req.Email).Msg("admin login rejected")
		httpx.SendError(w, err)
		return
	}

	token, expiry, err := auth.IssueSession(req.Email)
	if err != nil {
		httpx.SendError(w, err)
		return
	}
	auth.SetSessionCookie(w, token, expiry)
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, map[string]any{
		"success": true,
		"email":   strings.ToLower(strings.TrimSpace(req.Email)),
	})
}

// logout clears the session cookie.
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w)
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, map[string]any{"success": true})
}
