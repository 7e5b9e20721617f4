package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/axiom-ai/axiom/pkg/models"
)

// problemBase prefixes every problem type URI.
const problemBase = "https://axiom.dev/problems/"

// Problem is an RFC 7807 Problem Details body.
type Problem = models.APIProblem

// problemType derives the type URI from the status text, e.g. 429 gives
// ".../too-many-requests".
func problemType(status int) string {
	return problemBase + strings.ReplaceAll(strings.ToLower(http.StatusText(status)), " ", "-")
}

// WriteProblem writes p as application/problem+json. Type and Title are
// filled from Status when empty.
func WriteProblem(w http.ResponseWriter, p Problem) {
	if p.Type == "" {
		p.Type = problemType(p.Status)
	}
	if p.Title == "" {
		p.Title = http.StatusText(p.Status)
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

func NotFound(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{Status: http.StatusNotFound, Detail: detail, Instance: instance})
}

func InternalError(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{Status: http.StatusInternalServerError, Detail: detail, Instance: instance})
}

func RateLimited(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{Status: http.StatusTooManyRequests, Detail: detail, Instance: instance})
}
