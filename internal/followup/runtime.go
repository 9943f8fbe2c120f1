package followup

import (
	"log/slog"

	"github.com/JaimeStill/followup/internal/audit"
	"github.com/JaimeStill/followup/internal/cases"
	"github.com/JaimeStill/followup/internal/classifier"
	"github.com/JaimeStill/followup/internal/directory"
	"github.com/JaimeStill/followup/internal/routing"
	"github.com/JaimeStill/followup/internal/transport"
	"github.com/JaimeStill/followup/pkg/storage"
)

// Runtime bundles the collaborators a follow-up run requires.
// It is constructed by higher-level composition code from Infrastructure and Domain systems.
type Runtime struct {
	Directory  directory.Directory
	Caller     transport.Caller
	Classifier classifier.Classifier
	Parser     classifier.QueryParser
	Cases      cases.Store
	Audit      *audit.Emitter
	Storage    storage.System
	Engine     *routing.Engine
	Updater    *routing.Updater
	Logger     *slog.Logger
}
