package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/camcore/internal/api/models"
	"github.com/smazurov/camcore/internal/logging"
)

// ModuleLevelInput changes the level of one logger.
type ModuleLevelInput struct {
	Module string `path:"module" example:"capture" doc:"Logger module name"`
	Body   models.ModuleLevelBody
}

func (s *Server) registerLoggingRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-logging",
		Method:      http.MethodGet,
		Path:        "/api/logging",
		Summary:     "Log Levels",
		Description: "Get the global log level and the effective level of every module",
		Tags:        []string{"system"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.LoggingResponse, error) {
		return loggingResponse(), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-module-level",
		Method:      http.MethodPut,
		Path:        "/api/logging/{module}",
		Summary:     "Set Module Log Level",
		Description: "Change the level of one module until the next config reload",
		Tags:        []string{"system"},
		Security:    withAuth(),
		Errors:      []int{400, 401},
	}, func(_ context.Context, input *ModuleLevelInput) (*models.LoggingResponse, error) {
		if err := logging.SetModuleLevel(input.Module, input.Body.Level); err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}
		s.logger.Info("Module log level changed", "module", input.Module, "level", input.Body.Level)
		return loggingResponse(), nil
	})
}

func loggingResponse() *models.LoggingResponse {
	return &models.LoggingResponse{
		Body: models.LoggingData{
			Level:   logging.GlobalLevel(),
			Modules: logging.Levels(),
		},
	}
}
