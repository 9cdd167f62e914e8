package handler

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/Alijeyrad/simorq_screening/internal/repo"
	"github.com/Alijeyrad/simorq_screening/internal/service/intake"
	"github.com/Alijeyrad/simorq_screening/internal/service/screening"
)

// PublicHandler serves the patient-facing routes. The token in the path is
// the only credential.
type PublicHandler struct {
	svc screening.Service
}

func NewPublicHandler(svc screening.Service) *PublicHandler {
	return &PublicHandler{svc: svc}
}

type tokenInfoResponse struct {
	OrderID        uuid.UUID           `json:"order_id"`
	AssessmentType repo.AssessmentType `json:"assessment_type"`
	Instructions   *string             `json:"instructions,omitempty"`
	PatientName    string              `json:"patient_name"`
	DoctorName     string              `json:"doctor_name"`
	ExpiresAt      time.Time           `json:"expires_at"`
}

// GET /assess/:token
func (h *PublicHandler) Validate(c fiber.Ctx) error {
	info, err := h.svc.ValidateToken(c.Context(), c.Params("token"))
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, tokenInfoResponse{
		OrderID:        info.OrderID,
		AssessmentType: info.AssessmentType,
		Instructions:   info.Instructions,
		PatientName:    info.Patient.FullName,
		DoctorName:     info.Doctor.FullName,
		ExpiresAt:      info.ExpiresAt,
	})
}

// GET /assess/:token/questions
func (h *PublicHandler) Questions(c fiber.Ctx) error {
	qs, err := h.svc.QuestionsForToken(c.Context(), c.Params("token"))
	if err != nil {
		return writeError(c, err)
	}
	return ok(c, qs)
}

// submitResponse carries the scored outcome. Single-instrument orders report
// score, severity and recommendation as scalars; comprehensive orders report
// each as an object keyed "phq9" and "gad7".
type submitResponse struct {
	AssessmentID   uuid.UUID               `json:"assessment_id"`
	AssessmentType repo.AssessmentType     `json:"assessment_type"`
	Score          any                     `json:"score"`
	Severity       any                     `json:"severity"`
	Recommendation any                     `json:"recommendation"`
	Results        []repo.InstrumentResult `json:"results"`
	SuicideRisk    int                     `json:"suicide_risk"`
	Status         repo.AssessmentStatus   `json:"status"`
	CompletedOn    time.Time               `json:"completed_on"`
}

func toSubmitResponse(a *repo.Assessment) submitResponse {
	resp := submitResponse{
		AssessmentID:   a.ID,
		AssessmentType: a.AssessmentType,
		Results:        a.Results,
		SuicideRisk:    a.SuicideRisk,
		Status:         a.Status,
		CompletedOn:    a.CompletedOn,
	}
	if len(a.Results) == 1 {
		r := a.Results[0]
		resp.Score, resp.Severity, resp.Recommendation = r.Score, r.Severity, r.Recommendation
		return resp
	}
	scores := make(map[string]int, len(a.Results))
	severities := make(map[string]repo.Severity, len(a.Results))
	recs := make(map[string]string, len(a.Results))
	for _, r := range a.Results {
		key := instrumentKey(r.Instrument)
		scores[key], severities[key], recs[key] = r.Score, r.Severity, r.Recommendation
	}
	resp.Score, resp.Severity, resp.Recommendation = scores, severities, recs
	return resp
}

func instrumentKey(t repo.AssessmentType) string {
	switch t {
	case repo.TypePHQ9:
		return "phq9"
	case repo.TypeGAD7:
		return "gad7"
	}
	return string(t)
}

// decodeAnswers reads {"<question_id>": score, ...}, optionally wrapped as
// {"answers": {...}}. Keys that are not integers are returned separately so
// they can be reported as unknown questions.
func decodeAnswers(body []byte) (intake.AnswerSet, []string, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, nil, err
	}
	if inner, wrapped := raw["answers"]; wrapped && len(raw) == 1 {
		raw = nil
		if err := json.Unmarshal(inner, &raw); err != nil {
			return nil, nil, err
		}
	}

	set := make(intake.AnswerSet, len(raw))
	var invalid []string
	for key, val := range raw {
		id, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			invalid = append(invalid, key)
			continue
		}
		var score int
		if err := json.Unmarshal(val, &score); err != nil {
			return nil, nil, fmt.Errorf("answer %q: score must be an integer", key)
		}
		set[id] = score
	}
	slices.Sort(invalid)
	return set, invalid, nil
}

// POST /assess/:token
// Body: {"<question_id>": score, ...}. {"answers": {...}} is also accepted.
func (h *PublicHandler) Submit(c fiber.Ctx) error {
	set, invalid, err := decodeAnswers(c.Body())
	if err != nil {
		return badRequest(c, "invalid request body")
	}
	if len(invalid) > 0 {
		return unprocessable(c, fiber.Map{
			"error":        intake.ErrUnknownQuestion.Error(),
			"question_ids": []int{},
			"invalid_keys": invalid,
		})
	}

	a, err := h.svc.SubmitAnswers(c.Context(), c.Params("token"), set)
	if err != nil {
		return writeError(c, err)
	}
	return created(c, toSubmitResponse(a))
}
