package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Snapguess API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for the snapguess geolocation guessing game.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /api/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/events")
	getEvents.SetSummary("Guess event stream")
	getEvents.SetDescription("Upgrades to a WebSocket connection that receives a message for every newly created guess.")
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getEvents)

	// POST /api/users
	postUser, _ := r.NewOperationContext(http.MethodPost, "/api/users")
	postUser.SetSummary("Register a user")
	postUser.SetDescription("Creates a user account. The Location header points at the created resource.")
	postUser.AddReqStructure(RegisterUserRequest{})
	postUser.AddRespStructure(UserResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	postUser.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	postUser.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnprocessableEntity))
	_ = r.AddOperation(postUser)

	// GET /api/users
	listUsers, _ := r.NewOperationContext(http.MethodGet, "/api/users")
	listUsers.SetSummary("List users with score statistics")
	listUsers.SetDescription("Paginated users ordered by username, each with total, max and average score. Pagination links are returned in the Link header.")
	listUsers.AddRespStructure([]UserResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	listUsers.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(listUsers)

	// POST /api/users/login
	postLogin, _ := r.NewOperationContext(http.MethodPost, "/api/users/login")
	postLogin.SetSummary("Log in")
	postLogin.SetDescription("Authenticate with username and password. Returns a bearer token valid for 7 days.")
	postLogin.AddReqStructure(LoginRequest{})
	postLogin.AddRespStructure(LoginResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postLogin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postLogin)

	// GET /api/users/{id}
	getUser, _ := r.NewOperationContext(http.MethodGet, "/api/users/{id}")
	getUser.SetSummary("Retrieve a user")
	getUser.AddRespStructure(UserResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getUser.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getUser)

	// PATCH /api/users/{id}
	patchUser, _ := r.NewOperationContext(http.MethodPatch, "/api/users/{id}")
	patchUser.SetSummary("Partially update a user")
	patchUser.SetDescription("Updates the provided fields of the caller's own account. Requires Bearer token.")
	patchUser.AddReqStructure(UpdateUserRequest{})
	patchUser.AddRespStructure(UserResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	patchUser.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	patchUser.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	_ = r.AddOperation(patchUser)

	// DELETE /api/users/{id}
	deleteUser, _ := r.NewOperationContext(http.MethodDelete, "/api/users/{id}")
	deleteUser.SetSummary("Delete a user")
	deleteUser.SetDescription("Permanently deletes the caller's own account. Requires Bearer token.")
	deleteUser.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	deleteUser.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	deleteUser.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	_ = r.AddOperation(deleteUser)

	// GET /api/thumbnails
	listThumbnails, _ := r.NewOperationContext(http.MethodGet, "/api/thumbnails")
	listThumbnails.SetSummary("List thumbnails")
	listThumbnails.AddRespStructure([]ThumbnailResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(listThumbnails)

	// POST /api/thumbnails
	postThumbnail, _ := r.NewOperationContext(http.MethodPost, "/api/thumbnails")
	postThumbnail.SetSummary("Create a thumbnail")
	postThumbnail.SetDescription("Stores a thumbnail with its coordinates. Requires Bearer token.")
	postThumbnail.AddReqStructure(ThumbnailRequest{})
	postThumbnail.AddRespStructure(ThumbnailResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	postThumbnail.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	postThumbnail.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnprocessableEntity))
	_ = r.AddOperation(postThumbnail)

	// GET /api/thumbnails/{id}
	getThumbnail, _ := r.NewOperationContext(http.MethodGet, "/api/thumbnails/{id}")
	getThumbnail.SetSummary("Retrieve a thumbnail")
	getThumbnail.AddRespStructure(ThumbnailResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getThumbnail.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getThumbnail)

	// GET /api/guesses
	listGuesses, _ := r.NewOperationContext(http.MethodGet, "/api/guesses")
	listGuesses.SetSummary("List guesses")
	listGuesses.AddRespStructure([]GuessResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(listGuesses)

	// POST /api/guesses
	postGuess, _ := r.NewOperationContext(http.MethodPost, "/api/guesses")
	postGuess.SetSummary("Submit a guess")
	postGuess.SetDescription("Records a guess for the authenticated user and notifies all connected clients. Requires Bearer token.")
	postGuess.AddReqStructure(CreateGuessRequest{})
	postGuess.AddRespStructure(GuessResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	postGuess.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	postGuess.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnprocessableEntity))
	_ = r.AddOperation(postGuess)

	// DELETE /api/guesses/{id}
	deleteGuess, _ := r.NewOperationContext(http.MethodDelete, "/api/guesses/{id}")
	deleteGuess.SetSummary("Delete a guess")
	deleteGuess.SetDescription("Deletes one of the caller's own guesses. Requires Bearer token.")
	deleteGuess.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	deleteGuess.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	deleteGuess.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(deleteGuess)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
