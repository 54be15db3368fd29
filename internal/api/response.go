package api

import (
	"encoding/json"
	"errors"
	"html/template"
	"log"
	"net/http"

	sgerr "github.com/amterp/sitegate/internal/errors"
)

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// StatusFor maps domain errors to HTTP status codes.
func StatusFor(err error) int {
	var resolve *sgerr.ResolveError

	switch {
	case sgerr.IsAuth(err):
		return http.StatusUnauthorized
	case errors.As(err, &resolve):
		// A document could not be assembled, whatever the cause.
		return http.StatusBadGateway
	case sgerr.IsNotFound(err):
		return http.StatusNotFound
	case sgerr.IsParse(err), sgerr.IsResolve(err):
		return http.StatusBadGateway
	case sgerr.IsValidationError(err):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Error writes an error response, mapping domain errors to HTTP status codes.
func Error(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	message := err.Error()
	if status == http.StatusUnauthorized {
		message = "content store rejected the access token"
	}
	JSON(w, status, map[string]string{"error": message})
}

// NotFound writes a 404 error for the given resource.
func NotFound(w http.ResponseWriter, resource, id string) {
	JSON(w, http.StatusNotFound, map[string]string{"error": resource + " not found: " + id})
}

var errorPage = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
</body>
</html>
`))

// ErrorPage renders a load failure as a standalone page instead of a
// partially working site.
func ErrorPage(w http.ResponseWriter, err error) {
	status := StatusFor(err)

	title := "Site unavailable"
	switch {
	case status == http.StatusUnauthorized:
		title = "Access denied"
	case sgerr.IsParse(err):
		title = "Site could not be read"
	case status == http.StatusBadGateway:
		title = "Site could not be assembled"
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if execErr := errorPage.Execute(w, struct{ Title, Message string }{title, err.Error()}); execErr != nil {
		log.Printf("Failed to render error page: %v", execErr)
	}
}
