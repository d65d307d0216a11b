package model

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Session is the identity resolved by the access gate. It is passed explicitly to every
// operation that needs authorization; the zero value authorizes nothing.
type Session struct {
	Role     Role
	PersonID string
	Name     string
}

func AdminSession() Session {
	return Session{Role: RoleAdmin, Name: "관리자"}
}

func MemberSession(p Person) Session {
	return Session{Role: RoleMember, PersonID: p.ID, Name: p.Name}
}

func (s Session) IsAdmin() bool { return s.Role == RoleAdmin }

func (s Session) Valid() bool {
	return s.IsAdmin() || (s.Role == RoleMember && s.PersonID != "")
}

// CanEditRow reports whether the session may change personID's record.
// Members edit their own row regardless of privacy mode.
func (s Session) CanEditRow(personID string) bool {
	if s.IsAdmin() {
		return true
	}
	return s.Role == RoleMember && s.PersonID != "" && s.PersonID == personID
}

func (s Session) CanViewRow(e ScheduleEntry, personID string) bool {
	if s.IsAdmin() {
		return true
	}
	if s.Role != RoleMember {
		return false
	}
	if e.PrivacyMode.Normalize() == PrivacyPublic {
		return true
	}
	return s.PersonID == personID
}

// VisibleRecords returns the subset of e.Records the session may see.
func (s Session) VisibleRecords(e ScheduleEntry) map[string]TaskRecord {
	out := make(map[string]TaskRecord, len(e.Records))
	for id, r := range e.Records {
		if s.CanViewRow(e, id) {
			out[id] = r
		}
	}
	return out
}

func (s Session) User() User {
	return User{Role: s.Role, PersonID: s.PersonID, Name: s.Name}
}
