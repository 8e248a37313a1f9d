package transport

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/fastygo/scheduler/domain"
	"github.com/fastygo/scheduler/internal/scheduler"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// SessionInput is one session of a stateless solve.
type SessionInput struct {
	ID        string `json:"id" yaml:"id" validate:"required,max=64"`
	Date      string `json:"date" yaml:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"start_time" yaml:"start_time" validate:"required"`
	EndTime   string `json:"end_time" yaml:"end_time" validate:"required"`
}

type TherapistInput struct {
	ID string `json:"id" yaml:"id" validate:"required,max=64"`
}

// SolveRequest carries a full batch for POST /api/v1/schedule/solve and for
// schedulectl snapshot files.
type SolveRequest struct {
	Mode       string           `json:"mode" yaml:"mode"`
	Sessions   []SessionInput   `json:"sessions" yaml:"sessions" validate:"max=10000,dive"`
	Therapists []TherapistInput `json:"therapists" yaml:"therapists" validate:"max=1000,dive"`
}

// RunRequest is the body of POST /api/v1/schedule/runs.
type RunRequest struct {
	Mode  string `json:"mode"`
	Apply bool   `json:"apply"`
	From  string `json:"from" validate:"omitempty,datetime=2006-01-02"`
	To    string `json:"to" validate:"omitempty,datetime=2006-01-02"`
}

// Validate checks struct tags and reports the first failing field as an
// invalid payload.
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return domain.Detail(domain.ErrInvalidPayload, "%s failed %s", fieldPath(fe.Namespace()), fe.Tag())
	}
	return domain.WrapError(domain.ErrCodeInvalid, "invalid payload", err)
}

// Tasks validates the request and converts it into solver input.
func (r SolveRequest) Tasks() ([]scheduler.Task, []scheduler.Resource, scheduler.Mode, error) {
	if err := Validate(r); err != nil {
		return nil, nil, 0, err
	}
	mode, err := scheduler.ParseMode(r.Mode)
	if err != nil {
		return nil, nil, 0, err
	}

	tasks := make([]scheduler.Task, len(r.Sessions))
	for i, s := range r.Sessions {
		task, err := s.task()
		if err != nil {
			return nil, nil, 0, err
		}
		tasks[i] = task
	}
	resources := make([]scheduler.Resource, len(r.Therapists))
	for i, t := range r.Therapists {
		resources[i] = scheduler.Resource{ID: t.ID}
	}
	return tasks, resources, mode, nil
}

// Snapshot converts the request into domain records.
func (r SolveRequest) Snapshot() (*domain.Snapshot, scheduler.Mode, error) {
	tasks, resources, mode, err := r.Tasks()
	if err != nil {
		return nil, mode, err
	}
	snap := &domain.Snapshot{
		Sessions:   make([]domain.Session, len(tasks)),
		Therapists: make([]domain.Therapist, len(resources)),
	}
	for i, t := range tasks {
		snap.Sessions[i] = domain.Session{ID: t.ID, Date: t.Date, Start: t.Start, End: t.End, Status: domain.SessionUnscheduled}
	}
	for i, res := range resources {
		snap.Therapists[i] = domain.Therapist{ID: res.ID}
	}
	return snap, mode, nil
}

func (s SessionInput) task() (scheduler.Task, error) {
	date, err := domain.ParseDate(s.Date)
	if err != nil {
		return scheduler.Task{}, domain.Detail(domain.ErrMalformedDate, "session %s: %q", s.ID, s.Date)
	}
	start, err := domain.ParseTimeOfDay(s.StartTime)
	if err != nil {
		return scheduler.Task{}, domain.Detail(domain.ErrMalformedInterval, "session %s: start %q", s.ID, s.StartTime)
	}
	end, err := domain.ParseTimeOfDay(s.EndTime)
	if err != nil {
		return scheduler.Task{}, domain.Detail(domain.ErrMalformedInterval, "session %s: end %q", s.ID, s.EndTime)
	}
	return scheduler.Task{ID: s.ID, Date: date, Start: start, End: end}, nil
}

// Filter parses the optional date range.
func (r RunRequest) Filter() (from, to *domain.Date, mode scheduler.Mode, err error) {
	if err = Validate(r); err != nil {
		return nil, nil, 0, err
	}
	if mode, err = scheduler.ParseMode(r.Mode); err != nil {
		return nil, nil, 0, err
	}
	if from, to, err = DateRange(r.From, r.To); err != nil {
		return nil, nil, 0, err
	}
	return from, to, mode, nil
}

// DateRange parses an optional inclusive [from, to] range. Empty bounds are nil.
func DateRange(fromValue, toValue string) (from, to *domain.Date, err error) {
	if from, err = optionalDate(fromValue); err != nil {
		return nil, nil, err
	}
	if to, err = optionalDate(toValue); err != nil {
		return nil, nil, err
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, nil, domain.Detail(domain.ErrInvalidPayload, "to %s is before from %s", to, from)
	}
	return from, to, nil
}

func optionalDate(value string) (*domain.Date, error) {
	if value == "" {
		return nil, nil
	}
	d, err := domain.ParseDate(value)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		namespace = namespace[i+1:]
	}
	if namespace == "" {
		return "payload"
	}
	return strings.ToLower(namespace[:1]) + namespace[1:]
}
