package handlers

import (
	"github.com/Aksuiekbro/debetter-sub000/middleware"
	"github.com/Aksuiekbro/debetter-sub000/services"
	"github.com/gofiber/fiber/v2"
)

func SetupTournamentRoutes(
	app *fiber.App,
	tournamentService *services.TournamentService,
	registrationService *services.RegistrationService,
	teamService *services.TeamService,
	bracketService *services.BracketService,
	postingService *services.PostingService,
	evaluationService *services.EvaluationService,
) {
	// 🔓 Public routes: browse tournaments, brackets and standings
	app.Get("/tournaments", tournamentService.GetAllTournaments)
	app.Get("/tournaments/:id", tournamentService.GetTournamentByID)
	app.Get("/tournaments/:id/teams", teamService.GetTeams)
	app.Get("/tournaments/:id/bracket", bracketService.GetBracket)
	app.Get("/tournaments/:id/standings", evaluationService.GetStandings)
	app.Get("/tournaments/:id/tabulation", evaluationService.GetTabulation)
	app.Get("/tournaments/:id/themes", tournamentService.GetThemes)

	// 🔐 Authenticated routes
	secured := app.Group("/s", middleware.UserContextMiddleware())

	// Tournament lifecycle
	secured.Post("/tournaments", tournamentService.CreateTournament)
	secured.Patch("/tournaments/:id/status", tournamentService.UpdateTournamentStatus)
	secured.Post("/tournaments/:id/themes", tournamentService.AddTheme)
	secured.Post("/tournaments/:id/map", tournamentService.UploadMapImage)

	// Registration
	secured.Post("/tournaments/:id/join", registrationService.JoinTournament)
	secured.Delete("/tournaments/:id/leave", registrationService.LeaveTournament)
	secured.Post("/tournaments/:id/participants/bulk", registrationService.BulkRegister)

	// Teams
	secured.Post("/tournaments/:id/teams", teamService.CreateTeam)
	secured.Put("/tournaments/:id/teams/:team_id", teamService.UpdateTeam)
	secured.Delete("/tournaments/:id/teams/:team_id", teamService.DeleteTeam)
	secured.Post("/tournaments/:id/teams/randomize", teamService.RandomizeTeams)

	// Bracket
	secured.Post("/tournaments/:id/bracket", bracketService.GenerateBracket)
	secured.Post("/tournaments/:id/bracket/:round/:match_number/result", bracketService.RecordMatchResult)

	// Postings
	secured.Post("/tournaments/:id/postings", postingService.CreatePosting)
	secured.Post("/tournaments/:id/postings/batch", postingService.CreateBatchPostings)
	secured.Get("/tournaments/:id/postings", postingService.GetPostings)
	secured.Get("/tournaments/:id/postings/:posting_id", postingService.GetPostingByID)
	secured.Patch("/tournaments/:id/postings/:posting_id/status", postingService.UpdatePostingStatus)
	secured.Put("/tournaments/:id/postings/:posting_id", postingService.UpdatePostingDetails)
	secured.Delete("/tournaments/:id/postings/:posting_id", postingService.DeletePosting)
	secured.Post("/tournaments/:id/postings/:posting_id/remind", postingService.SendReminders)
	secured.Post("/tournaments/:id/postings/:posting_id/ballot", postingService.UploadBallotImage)

	// Evaluations
	secured.Post("/tournaments/:id/postings/:posting_id/evaluations", evaluationService.SubmitEvaluation)
	secured.Get("/tournaments/:id/postings/:posting_id/feedback", evaluationService.GetDebaterFeedback)
	secured.Get("/tournaments/:id/evaluations", evaluationService.GetEvaluations)
	secured.Get("/tournaments/:id/evaluations/:evaluation_id", evaluationService.GetEvaluationByID)
}
