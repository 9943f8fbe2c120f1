// Package classifier produces advisory outcomes for patient interactions
// and parses doctor requests into query criteria.
//
// Advisories are untrusted. The routing engine validates them and falls
// back to a review flag when they are malformed.
package classifier

import (
	"context"
	"errors"

	"github.com/JaimeStill/followup/internal/directory"
	"github.com/JaimeStill/followup/internal/routing"
)

// ErrUnparseable marks model output that could not be read as an advisory.
var ErrUnparseable = errors.New("classifier output unparseable")

// Subject is the input to a classification.
type Subject struct {
	Patient  directory.Patient
	Evidence routing.Evidence
}

// Classifier suggests a routing action for an interaction. A nil advisory
// with a nil error means the classifier had nothing to offer.
type Classifier interface {
	Classify(ctx context.Context, s Subject) (*routing.Advisory, error)
}

// QueryParser turns a doctor's request into Criteria.
type QueryParser interface {
	ParseQuery(ctx context.Context, query string) (Criteria, error)
}
