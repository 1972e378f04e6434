package httpapi

import (
	"sync/atomic"

	"applyflow-engine/internal/events"
	"applyflow-engine/internal/recommend"
	"applyflow-engine/internal/store"
)

type Deps struct {
	Orch Orchestrator

	Profiles        *store.ProfileStore
	Applications    *store.ApplicationLedger
	Recommendations *store.RecommendationStore
	Runs            *store.RunStore
	Catalog         *store.JobCatalog

	Matcher *recommend.Matcher

	Hub *events.Hub

	// Atomic store of config.Config
	CfgVal      *atomic.Value
	UserCfgPath string

	// Keyring write (inject for testability)
	SetSecret func(userID int64, password string) error
}
