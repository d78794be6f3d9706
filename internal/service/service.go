package service

import (
	"github.com/smartconvoy/backend/internal/domain"
)

// JourneyRepository is re-exported from domain for convenience
type JourneyRepository = domain.JourneyRepository
