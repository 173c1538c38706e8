package routes

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/render"

	"github.com/mbolis/form-flow/app"
	"github.com/mbolis/form-flow/httpx"
	"github.com/mbolis/form-flow/log"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message,omitempty"`
	Token        string `json:"token,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresIn    int64  `json:"expiresIn,omitempty"`
}

func Register(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := credentialsRequest{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		username := strings.TrimSpace(req.Username)
		var problems []string
		if username == "" {
			problems = append(problems, "username is blank")
		}
		if len(req.Password) < 6 {
			problems = append(problems, "password must be at least 6 characters")
		}
		if len(problems) > 0 {
			httpx.LogInvalid(w, r, "register.invalid", "invalid registration", problems)
			return
		}

		hash, err := httpx.HashPassword(req.Password)
		if err != nil {
			httpx.LogInternalError(w, "register.hash_password", err)
			return
		}

		_, err = app.ExecContext(r.Context(), `
			INSERT INTO user (username, password_hash) VALUES (?, ?)`,
			username,
			hash,
		)
		if isConstraintViolation(err) {
			httpx.LogStatusMsg(w, http.StatusConflict, log.DebugLevel, "register.conflict", "username %q is taken", username)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.insert_user", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, loginResponse{Success: true})
	}
}

func Login(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := credentialsRequest{}
		if user, pass, ok := r.BasicAuth(); ok {
			req.Username, req.Password = user, pass
		} else if err := render.DecodeJSON(r.Body, &req); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		issueToken(app, w, r, url.Values{
			"grant_type": {"password"},
			"username":   {req.Username},
			"password":   {req.Password},
		})
	}
}

func Refresh(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := struct {
			RefreshToken string `json:"refreshToken"`
		}{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil || req.RefreshToken == "" {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "refresh.token")
			return
		}

		issueToken(app, w, r, url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {req.RefreshToken},
		})
	}
}

// issueToken runs a grant against the bearer server and rewrites its
// OAuth token response into the session shape clients expect.
func issueToken(app app.App, w http.ResponseWriter, r *http.Request, form url.Values) {
	body := form.Encode()
	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, "/", strings.NewReader(body))
	if err != nil {
		httpx.LogInternalError(w, "login.new_request", err)
		return
	}
	req.Header.Set("content-type", "application/x-www-form-urlencoded")
	req.Header.Set("content-length", strconv.Itoa(len(body)))

	resp := httpx.NewResponseBuffer()
	app.UserCredentials(resp, req)

	if resp.Status() != http.StatusOK {
		log.Debugf("login.grant.%s: status %d", form.Get("grant_type"), resp.Status())
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, loginResponse{Message: "Invalid credentials"})
		return
	}

	var token struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
	}
	err = json.Unmarshal(resp.Body(), &token)
	if err != nil {
		httpx.LogInternalError(w, "login.parse_token", err)
		return
	}

	render.JSON(w, r, loginResponse{
		Success:      true,
		Token:        token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    token.ExpiresIn,
	})
}
