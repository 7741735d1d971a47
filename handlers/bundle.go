package handlers

import (
	"context"

	profileRepo "educonnect/database/repository/profile"
	"educonnect/middleware"
	"educonnect/services/workflow"
	"educonnect/utils"
)

// HandlerBundle groups the endpoint handlers and what they depend on.
type HandlerBundle struct {
	Workflow *workflow.Controller
	Sessions middleware.SessionResolver
	Profiles profileRepo.ProfileRepository

	// Checks run by the health endpoint when no monitor result exists yet.
	HealthChecks map[string]utils.HealthCheck
}

func NewHandlerBundle(ctrl *workflow.Controller, sessions middleware.SessionResolver, profiles profileRepo.ProfileRepository) *HandlerBundle {
	return &HandlerBundle{
		Workflow: ctrl,
		Sessions: sessions,
		Profiles: profiles,
		HealthChecks: map[string]utils.HealthCheck{
			"profiles": func(ctx context.Context) error { return profiles.Ping(ctx) },
		},
	}
}
