package exercisemedia

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/ripixel/fitglue-media/pkg/bootstrap"
	"github.com/ripixel/fitglue-media/pkg/framework"
)

const serviceName = "exercise-media"

var (
	svc     *bootstrap.Service
	svcOnce sync.Once
	svcErr  error
)

func init() {
	functions.HTTP("SearchExercises", SearchExercises)
	functions.HTTP("SuggestExerciseMatches", SuggestExerciseMatches)
	functions.HTTP("UploadExerciseMedia", UploadExerciseMedia)
}

func initService(ctx context.Context) (*bootstrap.Service, error) {
	if svc != nil {
		return svc, nil
	}
	svcOnce.Do(func() {
		svc, svcErr = bootstrap.NewService(ctx, serviceName)
		if svcErr != nil {
			slog.Error("Failed to initialize service", "error", svcErr)
		}
	})
	return svc, svcErr
}

// wrappedHandlers holds the framework-wrapped handlers for one service, so
// per-wrapper state such as the ingress token cache survives across requests.
type wrappedHandlers struct {
	svc     *bootstrap.Service
	search  http.HandlerFunc
	suggest http.HandlerFunc
	upload  http.HandlerFunc
}

var (
	wrapMu  sync.Mutex
	wrapped *wrappedHandlers
)

func handlersFor(s *bootstrap.Service) *wrappedHandlers {
	wrapMu.Lock()
	defer wrapMu.Unlock()

	if wrapped == nil || wrapped.svc != s {
		wrapped = &wrappedHandlers{
			svc:     s,
			search:  framework.WrapHTTP(serviceName, s, searchHandler),
			suggest: framework.WrapHTTP(serviceName, s, suggestHandler),
			upload:  framework.WrapHTTP(serviceName, s, uploadHandler),
		}
	}
	return wrapped
}

func serve(w http.ResponseWriter, r *http.Request, pick func(*wrappedHandlers) http.HandlerFunc) {
	svc, err := initService(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("service init failed: %v", err), http.StatusInternalServerError)
		return
	}
	pick(handlersFor(svc))(w, r)
}

// SearchExercises lists the catalog entries for the manual picker.
func SearchExercises(w http.ResponseWriter, r *http.Request) {
	serve(w, r, func(h *wrappedHandlers) http.HandlerFunc { return h.search })
}

// SuggestExerciseMatches pairs file names with catalog entries without
// writing anything.
func SuggestExerciseMatches(w http.ResponseWriter, r *http.Request) {
	serve(w, r, func(h *wrappedHandlers) http.HandlerFunc { return h.suggest })
}

// UploadExerciseMedia runs a reconciliation batch for the uploaded GIFs.
func UploadExerciseMedia(w http.ResponseWriter, r *http.Request) {
	serve(w, r, func(h *wrappedHandlers) http.HandlerFunc { return h.upload })
}
