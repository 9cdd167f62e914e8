package handler

import (
	"time"

	"github.com/google/uuid"

	"github.com/Alijeyrad/simorq_screening/internal/repo"
)

type orderResponse struct {
	ID                uuid.UUID           `json:"id"`
	PatientID         uuid.UUID           `json:"patient_id"`
	DoctorID          uuid.UUID           `json:"doctor_id"`
	AssessingDoctorID *uuid.UUID          `json:"assessing_doctor_id,omitempty"`
	AssessmentType    repo.AssessmentType `json:"assessment_type"`
	Instructions      *string             `json:"instructions,omitempty"`
	Status            repo.OrderStatus    `json:"status"`
	OrderedOn         time.Time           `json:"ordered_on"`
	SentAt            *time.Time          `json:"sent_at,omitempty"`
}

func toOrderResponse(o *repo.AssessmentOrder) orderResponse {
	return orderResponse{
		ID:                o.ID,
		PatientID:         o.PatientID,
		DoctorID:          o.DoctorID,
		AssessingDoctorID: o.AssessingDoctorID,
		AssessmentType:    o.AssessmentType,
		Instructions:      o.Instructions,
		Status:            o.Status,
		OrderedOn:         o.OrderedOn,
		SentAt:            o.SentAt,
	}
}

type assessmentResponse struct {
	ID             uuid.UUID                 `json:"id"`
	OrderID        uuid.UUID                 `json:"order_id"`
	PatientID      uuid.UUID                 `json:"patient_id"`
	DoctorID       uuid.UUID                 `json:"doctor_id"`
	AssessmentType repo.AssessmentType       `json:"assessment_type"`
	Results        []repo.InstrumentResult   `json:"results"`
	SuicideRisk    int                       `json:"suicide_risk"`
	Status         repo.AssessmentStatus     `json:"status"`
	CompletedOn    time.Time                 `json:"completed_on"`
	ReviewedAt     *time.Time                `json:"reviewed_at,omitempty"`
	ReviewedBy     *uuid.UUID                `json:"reviewed_by,omitempty"`
	Responses      []repo.AssessmentResponse `json:"responses,omitempty"`
}

func toAssessmentResponse(a *repo.Assessment) assessmentResponse {
	return assessmentResponse{
		ID:             a.ID,
		OrderID:        a.OrderID,
		PatientID:      a.PatientID,
		DoctorID:       a.DoctorID,
		AssessmentType: a.AssessmentType,
		Results:        a.Results,
		SuicideRisk:    a.SuicideRisk,
		Status:         a.Status,
		CompletedOn:    a.CompletedOn,
		ReviewedAt:     a.ReviewedAt,
		ReviewedBy:     a.ReviewedBy,
		Responses:      a.Responses,
	}
}
