package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mbolis/form-flow/app"
	"github.com/mbolis/form-flow/httpx"
	"github.com/mbolis/form-flow/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.RequestID, middleware.RealIP, httpx.AccessLog, middleware.Recoverer)

	root.Route("/user", func(r chi.Router) {
		r.Post("/register", Register(app))
		r.Post("/login", Login(app))
		r.Post("/refresh", Refresh(app))
	})

	root.Group(func(r chi.Router) {
		r.Use(middlewares.Authenticated(app.TokenSecret))

		r.Route("/survey", func(r chi.Router) {
			r.Post("/create", CreateSurvey(app))
			r.Post("/update_questions", UpdateQuestions(app))
			r.Post("/delete", DeleteSurvey(app))
			r.Post("/get_survey_detail", GetSurveyDetail(app))
			r.Post("/list", ListSurveys(app))
		})

		r.Route("/take", func(r chi.Router) {
			r.Post("/take_survey", TakeSurvey(app))
			r.Post("/get_survey_stats", GetSurveyStats(app))
		})
	})

	return root
}
