package app

import (
	"database/sql"

	"github.com/go-chi/oauth"

	"github.com/mbolis/form-flow/answer"
	"github.com/mbolis/form-flow/config"
)

type App struct {
	*sql.DB
	*oauth.BearerServer
	config.Config
}

// Codec is the answer encoding this deployment stores submissions with.
func (app App) Codec() answer.Codec {
	if app.EscapeAnswers {
		return answer.Escaped
	}
	return answer.Legacy
}
