package model

type LoginRequest struct {
	Credential string `json:"credential" binding:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type User struct {
	Role     Role   `json:"role"`
	PersonID string `json:"personId,omitempty"`
	Name     string `json:"name"`
}

type ScheduleRequest struct {
	Date        string                `json:"date"`
	Title       string                `json:"title"`
	Records     map[string]TaskRecord `json:"records"`
	PrivacyMode PrivacyMode           `json:"privacyMode"`
}

// RecordPatch carries the optional fields of a single-row edit; nil means untouched.
type RecordPatch struct {
	Completed *bool   `json:"completed"`
	Remarks   *string `json:"remarks"`
}

func (p RecordPatch) Updates() []RecordUpdate {
	var out []RecordUpdate
	if p.Completed != nil {
		out = append(out, SetCompleted(*p.Completed))
	}
	if p.Remarks != nil {
		out = append(out, SetRemarks(*p.Remarks))
	}
	return out
}

type BulkDeleteRequest struct {
	Keys []string `json:"keys" binding:"required"`
}

type ReportRequest struct {
	Date    string                `json:"date"`
	Title   string                `json:"title"`
	Records map[string]TaskRecord `json:"records"`
}

type ReportResponse struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type MemberRequest struct {
	Name       string `json:"name"`
	Group      string `json:"group"`
	ZoneNumber string `json:"zoneNumber"`
}

type ClearScope string

const (
	ClearSchedules ClearScope = "schedules"
	ClearAll       ClearScope = "all"
)

type ClearPrepareRequest struct {
	Scope ClearScope `json:"scope" binding:"required"`
}

type ClearConfirmRequest struct {
	Token  string `json:"token" binding:"required"`
	Phrase string `json:"phrase"`
}

// ResetPhrase must be typed back before a full reset is executed.
const ResetPhrase = "초기화"

// RecordUpdate is a closed set of single-field edits on a TaskRecord.
type RecordUpdate interface {
	apply(r *TaskRecord)
}

type SetCompleted bool

type SetRemarks string

func (u SetCompleted) apply(r *TaskRecord) { r.Completed = bool(u) }
func (u SetRemarks) apply(r *TaskRecord)   { r.Remarks = string(u) }

// With returns a copy of r with the updates applied in order.
func (r TaskRecord) With(updates ...RecordUpdate) TaskRecord {
	for _, u := range updates {
		u.apply(&r)
	}
	return r
}
