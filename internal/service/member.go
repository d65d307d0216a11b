package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ninnin76-design/sm-manager/internal/logger"
	"github.com/ninnin76-design/sm-manager/internal/model"
	"github.com/ninnin76-design/sm-manager/internal/store"
)

type MemberInput struct {
	Name       string
	Group      string
	ZoneNumber string
}

func MemberInputFrom(req model.MemberRequest) MemberInput {
	return MemberInput{Name: req.Name, Group: req.Group, ZoneNumber: req.ZoneNumber}
}

func (in MemberInput) clean() (MemberInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Group = strings.TrimSpace(in.Group)
	in.ZoneNumber = strings.TrimSpace(in.ZoneNumber)
	switch {
	case in.Name == "":
		return in, invalid("name is required")
	case in.Group == "":
		return in, invalid("group is required")
	case in.ZoneNumber == "":
		return in, invalid("zone number is required")
	}
	return in, nil
}

// MemberService edits the roster. Every write replaces the whole roster document,
// so writes are serialized within the process.
type MemberService struct {
	store   store.Store
	catalog *CatalogSync
	now     func() time.Time
	mu      sync.Mutex
}

func NewMemberService(st store.Store, catalog *CatalogSync) *MemberService {
	return &MemberService{store: st, catalog: catalog, now: time.Now}
}

func (s *MemberService) SetClock(now func() time.Time) { s.now = now }

func (s *MemberService) List(ctx context.Context, sess model.Session) ([]model.Person, error) {
	if !sess.Valid() {
		return nil, ErrForbidden
	}
	members, err := s.store.GetMembers(ctx)
	if err != nil {
		logger.Warn("list members degraded", "err", err)
	}
	out := make([]model.Person, 0, len(members))
	for _, m := range members {
		out = append(out, PublicPerson(sess, m))
	}
	return out, nil
}

func (s *MemberService) Add(ctx context.Context, sess model.Session, in MemberInput) (model.Person, error) {
	if !sess.IsAdmin() {
		return model.Person{}, ErrForbidden
	}
	in, err := in.clean()
	if err != nil {
		return model.Person{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	members, err := s.store.GetMembers(ctx)
	if err != nil {
		return model.Person{}, err
	}
	if err := zoneTaken(members, in.ZoneNumber, ""); err != nil {
		return model.Person{}, err
	}
	p := model.Person{ID: s.newID(members), Name: in.Name, Group: in.Group, ZoneNumber: in.ZoneNumber}
	if err := s.save(ctx, append(members, p)); err != nil {
		return model.Person{}, err
	}
	return p, nil
}

func (s *MemberService) Update(ctx context.Context, sess model.Session, id string, in MemberInput) (model.Person, error) {
	if !sess.IsAdmin() {
		return model.Person{}, ErrForbidden
	}
	in, err := in.clean()
	if err != nil {
		return model.Person{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	members, err := s.store.GetMembers(ctx)
	if err != nil {
		return model.Person{}, err
	}
	i, ok := model.RosterIndex(members)[id]
	if !ok {
		return model.Person{}, fmt.Errorf("member %s: %w", id, ErrNotFound)
	}
	if err := zoneTaken(members, in.ZoneNumber, id); err != nil {
		return model.Person{}, err
	}
	members[i] = model.Person{ID: id, Name: in.Name, Group: in.Group, ZoneNumber: in.ZoneNumber}
	if err := s.save(ctx, members); err != nil {
		return model.Person{}, err
	}
	return members[i], nil
}

// Remove drops a member from the roster. Their records vanish from entries the next
// time each entry is saved.
func (s *MemberService) Remove(ctx context.Context, sess model.Session, id string) error {
	if !sess.IsAdmin() {
		return ErrForbidden
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	members, err := s.store.GetMembers(ctx)
	if err != nil {
		return err
	}
	i, ok := model.RosterIndex(members)[id]
	if !ok {
		return fmt.Errorf("member %s: %w", id, ErrNotFound)
	}
	return s.save(ctx, append(members[:i], members[i+1:]...))
}

// Replace validates and stores a whole roster. Missing ids are generated.
func (s *MemberService) Replace(ctx context.Context, sess model.Session, members []model.Person) ([]model.Person, error) {
	if !sess.IsAdmin() {
		return nil, ErrForbidden
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Person, 0, len(members))
	ids := map[string]bool{}
	zones := map[string]bool{}
	for _, m := range members {
		in, err := MemberInput{Name: m.Name, Group: m.Group, ZoneNumber: m.ZoneNumber}.clean()
		if err != nil {
			return nil, err
		}
		if zones[in.ZoneNumber] {
			return nil, &ConflictError{Field: "zoneNumber", Value: in.ZoneNumber}
		}
		zones[in.ZoneNumber] = true
		id := strings.TrimSpace(m.ID)
		if ids[id] {
			return nil, &ConflictError{Field: "id", Value: id}
		}
		if id != "" {
			ids[id] = true
		}
		out = append(out, model.Person{ID: id, Name: in.Name, Group: in.Group, ZoneNumber: in.ZoneNumber})
	}
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = s.newID(out)
		}
	}
	if err := s.save(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MemberService) save(ctx context.Context, members []model.Person) error {
	if err := s.store.SaveMembers(ctx, members); err != nil {
		return err
	}
	logger.Info("roster saved", "members", len(members))
	if s.catalog != nil {
		s.catalog.Go(func(ctx context.Context) {
			s.catalog.SyncMembers(ctx, members)
		})
	}
	return nil
}

// newID returns user_<millis>, bumped until it is unused.
func (s *MemberService) newID(members []model.Person) string {
	taken := model.RosterIndex(members)
	ms := s.now().UnixMilli()
	for {
		id := fmt.Sprintf("user_%d", ms)
		if _, ok := taken[id]; !ok {
			return id
		}
		ms++
	}
}

func zoneTaken(members []model.Person, zone, exceptID string) error {
	for _, m := range members {
		if m.ZoneNumber == zone && m.ID != exceptID {
			return &ConflictError{Field: "zoneNumber", Value: zone}
		}
	}
	return nil
}
