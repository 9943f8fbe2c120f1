// Package directory retrieves patient records from the external patient
// database service.
package directory

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Directory errors.
var (
	ErrUnavailable = errors.New("patient directory unavailable")
	ErrNotFound    = errors.New("patient not found")
)

// MapHTTPStatus maps directory errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrUnavailable) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// Source identifies this service in directory queries.
const Source = "followup"

// Patient is a directory record.
type Patient struct {
	ID                 string   `json:"patient_id" yaml:"patient_id"`
	Name               string   `json:"name" yaml:"name"`
	LastVisit          string   `json:"last_visit" yaml:"last_visit"`
	Status             string   `json:"status" yaml:"status"`
	MedicalHistory     []string `json:"medical_history" yaml:"medical_history"`
	CurrentMedications []string `json:"current_medications" yaml:"current_medications"`
	Symptoms           []string `json:"symptoms" yaml:"symptoms"`
	Age                int      `json:"age" yaml:"age"`
	FollowUpReason     string   `json:"follow_up_reason" yaml:"follow_up_reason"`
}

// QueryRequest is the body of a directory query.
type QueryRequest struct {
	Query     string    `json:"query"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// QueryResponse is the directory's answer to a query.
type QueryResponse struct {
	Success   bool      `json:"success"`
	Query     string    `json:"query"`
	Patients  []Patient `json:"patients"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

// Directory finds patients by free-text query or id.
type Directory interface {
	Query(ctx context.Context, text string) ([]Patient, error)
	Find(ctx context.Context, patientID string) (*Patient, error)
}
